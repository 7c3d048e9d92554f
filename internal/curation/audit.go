package curation

import (
	"encoding/json"
	"fmt"
	"sort"

	domaincuration "github.com/ds4psb/komission-core/internal/domain/curation"
)

// KeyspaceAuditResult is the outcome of checking a rule set's referenced
// feature keys against the keys a feature extractor actually produces.
type KeyspaceAuditResult struct {
	OK          bool
	MissingKeys []string // referenced by a rule, never produced
}

// AuditKeyspaceSuperset enforces spec.md §4.9: the extraction schema's
// keyspace must be a superset of every active rule's referenced keys.
// Unknown keys in a rule's conditions are a hard error, surfaced here as
// MissingKeys rather than failing at evaluation time — this is what backs
// the audit_pipeline_contracts CLI command.
func AuditKeyspaceSuperset(rules []domaincuration.Rule, producedKeys []string) (KeyspaceAuditResult, error) {
	produced := make(map[string]struct{}, len(producedKeys))
	for _, k := range producedKeys {
		produced[k] = struct{}{}
	}

	missing := map[string]struct{}{}
	for _, r := range rules {
		if !r.Active {
			continue
		}
		conds, err := DecodeConditions(json.RawMessage(r.Conditions))
		if err != nil {
			return KeyspaceAuditResult{}, fmt.Errorf("curation: rule %q: %w", r.Name, err)
		}
		for _, c := range conds {
			if _, ok := produced[c.FeatureKey]; !ok {
				missing[c.FeatureKey] = struct{}{}
			}
		}
	}

	out := KeyspaceAuditResult{OK: len(missing) == 0}
	for k := range missing {
		out.MissingKeys = append(out.MissingKeys, k)
	}
	sort.Strings(out.MissingKeys)
	return out, nil
}
