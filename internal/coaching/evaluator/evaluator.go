// Package evaluator defines the vision rule evaluator's request contract.
// The evaluator itself is an external collaborator (spec.md §1 "the vision
// LLM itself... spec only the request contract") — this package specifies
// the shape of that call, never an implementation.
package evaluator

import (
	"context"
	"strings"
)

// Frame is one inbound 1 fps video frame or audio chunk handed to the
// session controller.
type Frame struct {
	TimestampMs   int64
	HasVideo      bool
	HasAudio      bool
}

// DNAInvariant is one rule drawn from a DirectorPack (spec.md §3
// "dna_invariants[]").
type DNAInvariant struct {
	RuleID   string
	Domain   string // "composition", "safety", or another visual domain
	MetricID string
	Priority string // low|medium|high|critical
	Weight   float64
}

// IsVisual reports whether this rule should be evaluated per-frame (as
// opposed to only at time-triggered checkpoints) — spec.md §4.7: "Only rules
// in visual domains (composition, safety, or whose metric_id indicates
// visual measurement) are evaluated per frame".
func (d DNAInvariant) IsVisual() bool {
	if d.Domain == "composition" || d.Domain == "safety" {
		return true
	}
	return containsVisualHint(d.MetricID)
}

func containsVisualHint(metricID string) bool {
	lower := strings.ToLower(metricID)
	for _, hint := range []string{"frame", "visual", "composition", "camera"} {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// ComplianceResult is the vision rule evaluator's response for one rule
// against one frame.
type ComplianceResult struct {
	Compliant     bool
	Confidence    float64
	Message       string
	MeasuredValue any
}

// RuleEvaluator is the external collaborator contract: given a frame and a
// rule, return a compliance judgment.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, frame Frame, rule DNAInvariant) (ComplianceResult, error)
}
