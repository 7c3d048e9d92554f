// Package qualitygate validates a raw VDG analysis_schema blob before it is
// persisted as proof_ready (spec.md §4.10). It never blocks persistence:
// failures are recorded as issues and the analysis is stored with
// proof_ready=false (fail-soft).
package qualitygate

import (
	"encoding/json"
	"strconv"
)

// Result is the outcome of gating a single analysis. ProofReady is false
// whenever Issues is non-empty.
type Result struct {
	ProofReady bool     `json:"proof_ready"`
	Issues     []string `json:"issues,omitempty"`
}

// Evaluate runs every gate rule and aggregates issues. It never returns an
// error: a malformed blob simply fails every gate and is reported as issues.
func Evaluate(raw json.RawMessage) Result {
	var tree map[string]any
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &tree)
	}
	if tree == nil {
		tree = map[string]any{}
	}

	var issues []string
	issues = append(issues, checkViralKicks(tree)...)
	issues = append(issues, checkCommentAnchor(tree)...)
	issues = append(issues, checkProvenance(tree)...)

	return Result{
		ProofReady: len(issues) == 0,
		Issues:     issues,
	}
}

// checkViralKicks requires at least 2 viral_kicks, each with start/peak/end
// keyframes ordered start_ms < peak_ms < end_ms and within [0, duration_ms].
func checkViralKicks(tree map[string]any) []string {
	var issues []string

	durationMs, hasDuration := numAt(tree, "duration_ms")
	kicksRaw, _ := sliceAt(tree, "viral_kicks")

	valid := 0
	for i, k := range kicksRaw {
		kick, ok := k.(map[string]any)
		if !ok {
			issues = append(issues, "viral_kicks["+strconv.Itoa(i)+"]: not an object")
			continue
		}
		start, okStart := numAt(kick, "start_ms")
		peak, okPeak := numAt(kick, "peak_ms")
		end, okEnd := numAt(kick, "end_ms")
		if !okStart || !okPeak || !okEnd {
			issues = append(issues, "viral_kicks["+strconv.Itoa(i)+"]: missing a keyframe")
			continue
		}
		if !(start < peak && peak < end) {
			issues = append(issues, "viral_kicks["+strconv.Itoa(i)+"]: keyframes out of order")
			continue
		}
		if hasDuration && (start < 0 || end > durationMs) {
			issues = append(issues, "viral_kicks["+strconv.Itoa(i)+"]: keyframe outside [0,duration_ms]")
			continue
		}
		valid++
	}
	if valid < 2 {
		issues = append(issues, "fewer than 2 valid viral_kicks")
	}
	return issues
}

// checkCommentAnchor requires at least 1 comment evidence anchor out of the
// top-5 comments.
func checkCommentAnchor(tree map[string]any) []string {
	comments, _ := sliceAt(tree, "top_comments")
	if len(comments) > 5 {
		comments = comments[:5]
	}
	for _, c := range comments {
		comment, ok := c.(map[string]any)
		if !ok {
			continue
		}
		if b, ok := comment["is_evidence_anchor"].(bool); ok && b {
			return nil
		}
	}
	return []string{"no comment evidence anchor in top-5"}
}

// checkProvenance requires prompt_version, model_id, and schema_version.
func checkProvenance(tree map[string]any) []string {
	var issues []string
	provenance := objectAt(tree, "provenance")
	for _, key := range []string{"prompt_version", "model_id", "schema_version"} {
		if strAt(provenance, key) == "" {
			issues = append(issues, "provenance missing "+key)
		}
	}
	return issues
}

func objectAt(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]any)
	return v
}

func sliceAt(m map[string]any, key string) ([]any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m[key].([]any)
	return v, ok
}

func strAt(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

func numAt(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

