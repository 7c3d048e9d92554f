// Package audit implements the two audit CLI commands (spec.md §6): a
// build-time keyspace-superset check over curation rules, and a runtime
// state-consistency sweep over the run queue and content tables. Both are
// read-only diagnostics — neither repairs what it finds.
package audit

import (
	"reflect"

	"github.com/ds4psb/komission-core/internal/curation"
	domaincuration "github.com/ds4psb/komission-core/internal/domain/curation"
	domainstpf "github.com/ds4psb/komission-core/internal/domain/stpf"
)

// ProducedFeatureKeys lists every feature_key a curation rule is allowed to
// reference: the STPF Inputs json tags plus the fixed content-level keys
// computed outside STPF (engagement_rate, growth_rate, outlier_score,
// creator_avg_views).
// New extractor output must be added here, or AuditPipelineContracts will flag the
// rules that rely on it as referencing an unproduced key.
func ProducedFeatureKeys() []string {
	keys := jsonTagsOf(domainstpf.Inputs{})
	keys = append(keys, "engagement_rate", "growth_rate", "outlier_score", "creator_avg_views")
	return keys
}

func jsonTagsOf(v any) []string {
	t := reflect.TypeOf(v)
	out := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		for j := 0; j < len(tag); j++ {
			if tag[j] == ',' {
				tag = tag[:j]
				break
			}
		}
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// ContractReport is AuditPipelineContracts' output.
type ContractReport struct {
	OK          bool
	MissingKeys []string
}

// AuditPipelineContracts runs the keyspace-superset audit (spec.md §4.9)
// against the currently produced feature keyspace.
func AuditPipelineContracts(rules []domaincuration.Rule) (ContractReport, error) {
	result, err := curation.AuditKeyspaceSuperset(rules, ProducedFeatureKeys())
	if err != nil {
		return ContractReport{}, err
	}
	return ContractReport{OK: result.OK, MissingKeys: result.MissingKeys}, nil
}
