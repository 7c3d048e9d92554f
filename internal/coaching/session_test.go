package coaching

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ds4psb/komission-core/internal/coaching/evaluator"
	domaincoaching "github.com/ds4psb/komission-core/internal/domain/coaching"
)

type fakeEvaluator struct {
	result evaluator.ComplianceResult
}

func (f fakeEvaluator) Evaluate(ctx context.Context, frame evaluator.Frame, rule evaluator.DNAInvariant) (evaluator.ComplianceResult, error) {
	return f.result, nil
}

func coachedController() *Controller {
	c := &Controller{
		SessionID:  uuid.New(),
		Assignment: domaincoaching.AssignmentCoached,
		cooldowns:  map[string]time.Time{},
		pending:    map[uuid.UUID]pendingOutcome{},
	}
	return c
}

func TestEvaluateTickEmitsInterventionOnFailure(t *testing.T) {
	c := coachedController()
	now := time.Now()
	pack := []evaluator.DNAInvariant{{RuleID: "r1", Domain: "composition"}}
	eval := fakeEvaluator{result: evaluator.ComplianceResult{Compliant: false, Confidence: 0.8}}

	interventions, err := c.EvaluateTick(context.Background(), now, evaluator.Frame{}, pack, eval)
	if err != nil {
		t.Fatalf("EvaluateTick: %v", err)
	}
	if len(interventions) != 1 {
		t.Fatalf("expected 1 intervention, got %d", len(interventions))
	}
}

func TestEvaluateTickRespectsCooldown(t *testing.T) {
	c := coachedController()
	now := time.Now()
	pack := []evaluator.DNAInvariant{{RuleID: "r1", Domain: "safety"}}
	eval := fakeEvaluator{result: evaluator.ComplianceResult{Compliant: false, Confidence: 0.9}}

	first, _ := c.EvaluateTick(context.Background(), now, evaluator.Frame{}, pack, eval)
	if len(first) != 1 {
		t.Fatalf("expected first tick to fire, got %d", len(first))
	}

	second, _ := c.EvaluateTick(context.Background(), now.Add(2*time.Second), evaluator.Frame{}, pack, eval)
	if len(second) != 0 {
		t.Fatalf("expected cooldown to suppress a second fire within 6s, got %d", len(second))
	}

	third, _ := c.EvaluateTick(context.Background(), now.Add(7*time.Second), evaluator.Frame{}, pack, eval)
	if len(third) != 1 {
		t.Fatalf("expected the rule to fire again after the cooldown elapses, got %d", len(third))
	}
}

func TestEvaluateTickSkipsNonVisualRules(t *testing.T) {
	c := coachedController()
	pack := []evaluator.DNAInvariant{{RuleID: "r1", Domain: "audio_quality", MetricID: "loudness"}}
	eval := fakeEvaluator{result: evaluator.ComplianceResult{Compliant: false, Confidence: 0.9}}

	interventions, _ := c.EvaluateTick(context.Background(), time.Now(), evaluator.Frame{}, pack, eval)
	if len(interventions) != 0 {
		t.Fatalf("expected non-visual rules to be skipped for per-frame evaluation")
	}
}

func TestEvaluateTickControlGroupNeverIntervenes(t *testing.T) {
	c := coachedController()
	c.Assignment = domaincoaching.AssignmentControl
	pack := []evaluator.DNAInvariant{{RuleID: "r1", Domain: "composition"}}
	eval := fakeEvaluator{result: evaluator.ComplianceResult{Compliant: false, Confidence: 0.9}}

	interventions, _ := c.EvaluateTick(context.Background(), time.Now(), evaluator.Frame{}, pack, eval)
	if len(interventions) != 0 {
		t.Fatalf("expected control group to never receive an intervention")
	}
}

func TestShouldEvaluateThrottlesToOneHz(t *testing.T) {
	c := coachedController()
	now := time.Now()
	if !c.ShouldEvaluate(now) {
		t.Fatalf("expected the first call to be allowed")
	}
	if c.ShouldEvaluate(now.Add(200 * time.Millisecond)) {
		t.Fatalf("expected a sub-1s follow-up to be throttled")
	}
	if !c.ShouldEvaluate(now.Add(1100 * time.Millisecond)) {
		t.Fatalf("expected evaluation to resume once >=1s has elapsed")
	}
}

func TestResolveOutcomeUnknownWhenNeverReevaluated(t *testing.T) {
	c := coachedController()
	now := time.Now()
	pack := []evaluator.DNAInvariant{{RuleID: "r1", Domain: "composition"}}
	eval := fakeEvaluator{result: evaluator.ComplianceResult{Compliant: false, Confidence: 0.9}}
	interventions, _ := c.EvaluateTick(context.Background(), now, evaluator.Frame{}, pack, eval)

	due := c.DueOutcomes(now.Add(11 * time.Second))
	if len(due) != 1 || due[0] != interventions[0].ID {
		t.Fatalf("expected the intervention to be due after the 10s window, got %v", due)
	}

	outcome, ok := c.ResolveOutcome(interventions[0].ID, now.Add(11*time.Second), nil)
	if !ok || outcome.Compliance != domaincoaching.ComplianceUnknown {
		t.Fatalf("expected an unknown outcome when never re-evaluated, got %+v", outcome)
	}
}
