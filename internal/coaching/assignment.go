// Package coaching implements the real-time coaching session controller
// (spec.md §4.7): a per-session cooperative loop that consumes 1 fps frames
// and audio chunks, evaluates a DirectorPack's invariant rules, and emits
// interventions subject to a control/holdout carve-out and a per-rule
// cooldown.
package coaching

import (
	"crypto/sha256"
	"encoding/binary"

	domaincoaching "github.com/ds4psb/komission-core/internal/domain/coaching"
)

// bucketFraction maps a session_id hash into [0,1) deterministically: the same
// session_id always returns the same assignment (spec.md §8 scenario 6).
func bucketFraction(sessionID string) float64 {
	sum := sha256.Sum256([]byte(sessionID))
	n := binary.BigEndian.Uint64(sum[:8])
	return float64(n) / float64(^uint64(0))
}

// AssignSession buckets a session_id deterministically: the first 10% are
// control (no coaching, but rule_evaluated events still logged), the next 5%
// are coached-but-holdout (excluded from promotion statistics), and the
// remaining 85% are normal coached (spec.md §4.7).
func AssignSession(sessionID string) (domaincoaching.Assignment, bool) {
	frac := bucketFraction(sessionID)
	switch {
	case frac < 0.10:
		return domaincoaching.AssignmentControl, false
	case frac < 0.15:
		return domaincoaching.AssignmentCoached, true
	default:
		return domaincoaching.AssignmentCoached, false
	}
}
