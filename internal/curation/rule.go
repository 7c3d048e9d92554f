package curation

import (
	"encoding/json"
	"fmt"
	"sort"

	domaincuration "github.com/ds4psb/komission-core/internal/domain/curation"
)

// conditionDoc is the wire shape of Rule.Conditions: {feature_key: {op: value}}.
type conditionDoc map[string]map[string]any

// DecodeConditions parses a Rule's stored conditions document into the
// closed-operator Condition list. Unknown operators are a hard error; an
// operator-per-key means a rule may only test one condition per feature_key.
func DecodeConditions(raw json.RawMessage) ([]Condition, error) {
	var doc conditionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("curation: decode conditions: %w", err)
	}
	out := make([]Condition, 0, len(doc))
	for featureKey, opval := range doc {
		if len(opval) != 1 {
			return nil, fmt.Errorf("curation: feature %q must have exactly one operator, got %d", featureKey, len(opval))
		}
		for op, value := range opval {
			switch Op(op) {
			case OpGTE, OpEQ, OpIn, OpRange:
				out = append(out, Condition{FeatureKey: featureKey, Op: Op(op), Value: value})
			default:
				return nil, fmt.Errorf("curation: unknown operator %q on feature %q", op, featureKey)
			}
		}
	}
	return out, nil
}

// Matches reports whether every condition in conds holds against features.
// A feature_key referenced by a condition but absent from features is a
// non-match, not an error — absence means the candidate lacks that signal.
func Matches(conds []Condition, features map[string]any) (bool, error) {
	for _, cond := range conds {
		value, ok := features[cond.FeatureKey]
		if !ok {
			return false, nil
		}
		ok, err := Evaluate(cond, value)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// MatchedRule pairs a Rule with its decoded conditions for ranking.
type MatchedRule struct {
	Rule       domaincuration.Rule
	Conditions []Condition
}

// Select runs every active rule (highest priority first, ties broken by
// name for determinism) against features and returns the first rule whose
// conditions all hold, or ok=false if none match.
func Select(rules []domaincuration.Rule, features map[string]any) (domaincuration.Rule, bool, error) {
	candidates := make([]MatchedRule, 0, len(rules))
	for _, r := range rules {
		if !r.Active {
			continue
		}
		conds, err := DecodeConditions(json.RawMessage(r.Conditions))
		if err != nil {
			return domaincuration.Rule{}, false, fmt.Errorf("curation: rule %q: %w", r.Name, err)
		}
		candidates = append(candidates, MatchedRule{Rule: r, Conditions: conds})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Rule.Priority != candidates[j].Rule.Priority {
			return candidates[i].Rule.Priority > candidates[j].Rule.Priority
		}
		return candidates[i].Rule.Name < candidates[j].Rule.Name
	})
	for _, c := range candidates {
		matched, err := Matches(c.Conditions, features)
		if err != nil {
			return domaincuration.Rule{}, false, err
		}
		if matched {
			return c.Rule, true, nil
		}
	}
	return domaincuration.Rule{}, false, nil
}
