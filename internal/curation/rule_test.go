package curation

import (
	"encoding/json"
	"testing"

	"gorm.io/datatypes"

	domaincuration "github.com/ds4psb/komission-core/internal/domain/curation"
)

func TestEvaluateOperators(t *testing.T) {
	ok, err := Evaluate(Condition{Op: OpGTE, Value: 10.0}, 12.0)
	if err != nil || !ok {
		t.Fatalf("expected >= to match, got ok=%v err=%v", ok, err)
	}
	ok, err = Evaluate(Condition{Op: OpEQ, Value: "hook_text"}, "hook_text")
	if err != nil || !ok {
		t.Fatalf("expected == to match, got ok=%v err=%v", ok, err)
	}
	ok, err = Evaluate(Condition{Op: OpIn, Value: []any{"a", "b", "c"}}, "b")
	if err != nil || !ok {
		t.Fatalf("expected 'in' to match, got ok=%v err=%v", ok, err)
	}
	ok, err = Evaluate(Condition{Op: OpRange, Value: []any{0.0, 1.0}}, 0.5)
	if err != nil || !ok {
		t.Fatalf("expected range to match, got ok=%v err=%v", ok, err)
	}
	if _, err := Evaluate(Condition{Op: Op("~="), Value: 1}, 1); err == nil {
		t.Fatalf("expected an unknown operator to be a hard error")
	}
}

func TestSelectPicksHighestPriorityMatch(t *testing.T) {
	low := domaincuration.Rule{
		Name: "low", Priority: 1, Active: true, Action: domaincuration.ActionCampaign,
		Conditions: datatypes.JSON(`{"view_velocity": {">=": 0}}`),
	}
	high := domaincuration.Rule{
		Name: "high", Priority: 10, Active: true, Action: domaincuration.ActionPromote,
		Conditions: datatypes.JSON(`{"view_velocity": {">=": 100}}`),
	}
	features := map[string]any{"view_velocity": 500.0}

	matched, ok, err := Select([]domaincuration.Rule{low, high}, features)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if !ok || matched.Name != "high" {
		t.Fatalf("expected the higher-priority rule to win, got %+v ok=%v", matched, ok)
	}
}

func TestSelectSkipsInactiveAndNonMatching(t *testing.T) {
	inactive := domaincuration.Rule{
		Name: "inactive", Priority: 99, Active: false, Action: domaincuration.ActionPromote,
		Conditions: datatypes.JSON(`{"view_velocity": {">=": 0}}`),
	}
	noMatch := domaincuration.Rule{
		Name: "no_match", Priority: 5, Active: true, Action: domaincuration.ActionReject,
		Conditions: datatypes.JSON(`{"view_velocity": {">=": 1000000}}`),
	}
	features := map[string]any{"view_velocity": 50.0}

	_, ok, err := Select([]domaincuration.Rule{inactive, noMatch}, features)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if ok {
		t.Fatalf("expected no rule to match")
	}
}

func TestMatchesMissingFeatureIsNonMatchNotError(t *testing.T) {
	conds, err := DecodeConditions(json.RawMessage(`{"engagement_rate": {">=": 0.1}}`))
	if err != nil {
		t.Fatalf("DecodeConditions: %v", err)
	}
	matched, err := Matches(conds, map[string]any{})
	if err != nil {
		t.Fatalf("Matches: %v", err)
	}
	if matched {
		t.Fatalf("expected a missing feature_key to be a non-match")
	}
}

func TestAuditKeyspaceSupersetFindsMissingKeys(t *testing.T) {
	rules := []domaincuration.Rule{
		{
			Name: "r1", Active: true,
			Conditions: datatypes.JSON(`{"view_velocity": {">=": 0}, "hook_score": {">=": 0.5}}`),
		},
	}
	result, err := AuditKeyspaceSuperset(rules, []string{"view_velocity"})
	if err != nil {
		t.Fatalf("AuditKeyspaceSuperset: %v", err)
	}
	if result.OK {
		t.Fatalf("expected a missing key to fail the audit")
	}
	if len(result.MissingKeys) != 1 || result.MissingKeys[0] != "hook_score" {
		t.Fatalf("expected missing_keys=[hook_score], got %v", result.MissingKeys)
	}
}

func TestAuditKeyspaceSupersetPassesWhenSuperset(t *testing.T) {
	rules := []domaincuration.Rule{
		{
			Name: "r1", Active: true,
			Conditions: datatypes.JSON(`{"view_velocity": {">=": 0}}`),
		},
	}
	result, err := AuditKeyspaceSuperset(rules, []string{"view_velocity", "hook_score"})
	if err != nil {
		t.Fatalf("AuditKeyspaceSuperset: %v", err)
	}
	if !result.OK {
		t.Fatalf("expected a superset keyspace to pass, missing=%v", result.MissingKeys)
	}
}
