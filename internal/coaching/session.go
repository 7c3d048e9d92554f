package coaching

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ds4psb/komission-core/internal/coaching/evaluator"
	domaincoaching "github.com/ds4psb/komission-core/internal/domain/coaching"
)

const (
	evalRateLimit      = time.Second      // rule evaluation throttled to <=1 Hz
	interventionCooldown = 6 * time.Second // per rule_id
	outcomeWindow        = 10 * time.Second
	interventionConfidenceFloor = 0.5
)

// Controller drives one coaching session's evaluation loop. Scheduling (the
// "single-threaded cooperative loop, one per session" in spec.md §4.7) is
// the caller's responsibility — internal/jobs/worker or an equivalent
// per-session goroutine calls EvaluateTick as frames/audio arrive and
// DueOutcomes on a timer. Controller itself holds only the
// in-process throttle/cooldown state for a single session.
type Controller struct {
	SessionID  uuid.UUID
	Assignment domaincoaching.Assignment
	Holdout    bool

	lastEvalAt  time.Time
	cooldowns   map[string]time.Time
	pending     map[uuid.UUID]pendingOutcome
}

type pendingOutcome struct {
	ruleID    string
	emittedAt time.Time
	deadline  time.Time
}

// NewController starts a controller with the deterministic assignment
// bucketing from spec.md §4.7.
func NewController(sessionID uuid.UUID) *Controller {
	assignment, holdout := AssignSession(sessionID.String())
	return &Controller{
		SessionID:  sessionID,
		Assignment: assignment,
		Holdout:    holdout,
		cooldowns:  map[string]time.Time{},
		pending:    map[uuid.UUID]pendingOutcome{},
	}
}

// ShouldEvaluate applies the <=1 Hz rate limit: oldest-frame-wins when the
// loop falls behind, i.e. it simply skips evaluation until the limiter
// clears rather than queuing backlog.
func (c *Controller) ShouldEvaluate(now time.Time) bool {
	if now.Sub(c.lastEvalAt) < evalRateLimit {
		return false
	}
	c.lastEvalAt = now
	return true
}

// EvaluateTick runs every visual-domain rule in pack against frame (subject
// to the rate limit already having cleared — call ShouldEvaluate first) and
// returns the interventions to emit. Control-group sessions still evaluate
// rules (for rule_evaluated logging) but never emit interventions.
func (c *Controller) EvaluateTick(ctx context.Context, now time.Time, frame evaluator.Frame, pack []evaluator.DNAInvariant, eval evaluator.RuleEvaluator) ([]domaincoaching.Intervention, error) {
	var interventions []domaincoaching.Intervention
	for _, rule := range pack {
		if !rule.IsVisual() {
			continue
		}
		result, err := eval.Evaluate(ctx, frame, rule)
		if err != nil {
			return interventions, err
		}
		if result.Compliant || result.Confidence < interventionConfidenceFloor {
			continue
		}
		if c.Assignment == domaincoaching.AssignmentControl {
			// rule_evaluated is logged by the caller from the evaluator result;
			// control sessions never receive a coached intervention.
			continue
		}
		if !c.clearCooldown(rule.RuleID, now) {
			continue
		}
		interventions = append(interventions, domaincoaching.Intervention{
			ID:         uuid.New(),
			SessionID:  c.SessionID,
			RuleID:     rule.RuleID,
			Confidence: result.Confidence,
			Message:    result.Message,
			EmittedAt:  now,
		})
		c.cooldowns[rule.RuleID] = now
		c.pending[interventions[len(interventions)-1].ID] = pendingOutcome{
			ruleID:    rule.RuleID,
			emittedAt: now,
			deadline:  now.Add(outcomeWindow),
		}
	}
	return interventions, nil
}

// clearCooldown reports whether rule_id may fire again: it may not fire more
// than once per 6s (spec.md §4.7).
func (c *Controller) clearCooldown(ruleID string, now time.Time) bool {
	last, ok := c.cooldowns[ruleID]
	if !ok {
		return true
	}
	return now.Sub(last) >= interventionCooldown
}

// ResolveOutcome records the compliance re-check for an intervention within
// its 10s observation window. Callers re-evaluate the same rule and pass the
// result in; ResolveOutcome itself only applies the window/compliance logic.
func (c *Controller) ResolveOutcome(interventionID uuid.UUID, now time.Time, result *evaluator.ComplianceResult) (domaincoaching.Outcome, bool) {
	pending, ok := c.pending[interventionID]
	if !ok {
		return domaincoaching.Outcome{}, false
	}
	delete(c.pending, interventionID)

	latency := now.Sub(pending.emittedAt).Seconds()
	if result == nil {
		return domaincoaching.Outcome{
			ID:             uuid.New(),
			InterventionID: interventionID,
			Compliance:     domaincoaching.ComplianceUnknown,
			LatencySec:     latency,
			Reason:         "no re-evaluation observed within the window",
		}, true
	}

	compliance := domaincoaching.ComplianceViolated
	if result.Compliant {
		compliance = domaincoaching.ComplianceComplied
	}
	return domaincoaching.Outcome{
		ID:             uuid.New(),
		InterventionID: interventionID,
		Compliance:     compliance,
		LatencySec:     latency,
	}, true
}

// DueOutcomes returns the intervention IDs whose 10s observation window has
// elapsed as of now without a ResolveOutcome call, so the caller can record
// them "unknown".
func (c *Controller) DueOutcomes(now time.Time) []uuid.UUID {
	var due []uuid.UUID
	for id, p := range c.pending {
		if !now.Before(p.deadline) {
			due = append(due, id)
		}
	}
	return due
}
