package query

import (
	"context"

	clusterrepos "github.com/ds4psb/komission-core/internal/data/repos/cluster"
	domaincluster "github.com/ds4psb/komission-core/internal/domain/cluster"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
)

// PatternView is the read-model behind the original's patterns/{cluster_id}
// resource: a cluster's identity, membership, and recurrence lineage in one
// shape.
type PatternView struct {
	ClusterID        string
	ClusterName      string
	PatternType      string
	MemberCount      int
	AvgOutlierScore  float64
	AncestorClusterID string
	OriginClusterID  string
	RecurrenceScore  float64
	RecurrenceCount  int
}

// BuildPatternView loads clusterID's PatternCluster row.
func BuildPatternView(ctx context.Context, clusters clusterrepos.ClusterRepo, clusterID string) (*PatternView, error) {
	c, err := clusters.GetByClusterID(dbctx.Context{Ctx: ctx}, clusterID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	view := &PatternView{
		ClusterID:       c.ClusterID,
		ClusterName:     c.ClusterName,
		PatternType:     c.PatternType,
		MemberCount:     c.MemberCount,
		AvgOutlierScore: c.AvgOutlierScore,
		OriginClusterID: c.OriginClusterID,
		RecurrenceScore: c.RecurrenceScore,
		RecurrenceCount: c.RecurrenceCount,
	}
	if c.AncestorClusterID != nil {
		view.AncestorClusterID = *c.AncestorClusterID
	}
	return view, nil
}

// RecurrenceLineage is the top recurrence links out of a cluster, the
// read-model behind the original's recurrence/{cluster_id} resource. It is
// pre-computed batch data (spec.md §4.3's recurrence-confirmation pass), not
// a real-time match.
type RecurrenceLineage struct {
	ClusterID string
	Links     []domaincluster.PatternRecurrenceLink
}

// BuildRecurrenceLineage loads the top `limit` recurrence links out of
// clusterID, highest score first.
func BuildRecurrenceLineage(ctx context.Context, recurrence clusterrepos.RecurrenceRepo, clusterID string, limit int) (RecurrenceLineage, error) {
	links, err := recurrence.ListByCurrent(dbctx.Context{Ctx: ctx}, clusterID, limit)
	if err != nil {
		return RecurrenceLineage{}, err
	}
	out := make([]domaincluster.PatternRecurrenceLink, 0, len(links))
	for _, l := range links {
		out = append(out, *l)
	}
	return RecurrenceLineage{ClusterID: clusterID, Links: out}, nil
}
