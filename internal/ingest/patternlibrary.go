package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"gorm.io/datatypes"

	evidencerepos "github.com/ds4psb/komission-core/internal/data/repos/evidence"
	domainevidence "github.com/ds4psb/komission-core/internal/domain/evidence"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
)

// PatternLibraryEntry is one element of the --input patterns.json array fed
// to ingest_pattern_library (spec.md §6). It mirrors domainevidence.
// PatternLibrary's fields rather than embedding the gorm type directly, so a
// malformed or partial json document fails to parse instead of silently
// zeroing columns.
type PatternLibraryEntry struct {
	PatternID        string          `json:"pattern_id"`
	ClusterID        string          `json:"cluster_id"`
	TemporalPhase    string          `json:"temporal_phase"`
	InvariantRules   json.RawMessage `json:"invariant_rules"`
	MutationStrategy json.RawMessage `json:"mutation_strategy"`
	ConfidenceScore  float64         `json:"confidence_score"`
	SampleCount      int             `json:"sample_count"`
}

// ParsePatternLibraryFile reads a patterns.json array of PatternLibraryEntry.
func ParsePatternLibraryFile(r io.Reader) ([]PatternLibraryEntry, error) {
	var entries []PatternLibraryEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("ingest: parsing pattern library file: %w", err)
	}
	for i, e := range entries {
		if e.PatternID == "" {
			return nil, fmt.Errorf("ingest: entry %d: pattern_id is required", i)
		}
		if e.ClusterID == "" {
			return nil, fmt.Errorf("ingest: entry %d: cluster_id is required", i)
		}
		if e.TemporalPhase == "" {
			return nil, fmt.Errorf("ingest: entry %d: temporal_phase is required", i)
		}
	}
	return entries, nil
}

// PatternLibraryResult reports what PatternLibraryItem did with one entry.
type PatternLibraryResult struct {
	PatternID string
	Revision  int
	Written   bool
}

// PatternLibraryItem appends entry as the next revision of its pattern_id
// (domainevidence.PatternLibrary's own contract: revisions never overwrite).
// With dryRun=true it computes the revision number a real ingest would use
// without writing, for ingest_pattern_library --dry-run.
func PatternLibraryItem(ctx context.Context, repo evidencerepos.PatternLibraryRepo, entry PatternLibraryEntry, dryRun bool) (PatternLibraryResult, error) {
	dbc := dbctx.Context{Ctx: ctx}

	latest, err := repo.GetLatestByPatternID(dbc, entry.PatternID)
	if err != nil {
		return PatternLibraryResult{}, err
	}

	revision := 1
	var previousRevisionID *domainevidence.PatternLibrary
	if latest != nil {
		revision = latest.Revision + 1
		previousRevisionID = latest
	}

	if dryRun {
		return PatternLibraryResult{PatternID: entry.PatternID, Revision: revision, Written: false}, nil
	}

	row := &domainevidence.PatternLibrary{
		PatternID:        entry.PatternID,
		ClusterID:        entry.ClusterID,
		TemporalPhase:    domainevidence.TemporalPhase(entry.TemporalPhase),
		InvariantRules:   rawOrEmptyArray(entry.InvariantRules),
		MutationStrategy: rawOrEmptyArray(entry.MutationStrategy),
		Revision:         revision,
		ConfidenceScore:  entry.ConfidenceScore,
		SampleCount:      entry.SampleCount,
	}
	if previousRevisionID != nil {
		row.PreviousRevisionID = &previousRevisionID.ID
	}

	if err := repo.Create(dbc, row); err != nil {
		return PatternLibraryResult{}, err
	}
	return PatternLibraryResult{PatternID: entry.PatternID, Revision: revision, Written: true}, nil
}

func rawOrEmptyArray(raw json.RawMessage) datatypes.JSON {
	if len(raw) == 0 {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(raw)
}
