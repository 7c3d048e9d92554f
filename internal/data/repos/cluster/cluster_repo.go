// Package cluster is the table-level gateway for PatternCluster and
// PatternRecurrenceLink rows, following the same tx(dbc) dispatcher pattern
// as internal/data/repos/runs. Similarity scoring and assignment decisions
// live one layer up, in internal/cluster.
package cluster

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domaincluster "github.com/ds4psb/komission-core/internal/domain/cluster"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

type ClusterRepo interface {
	Create(dbc dbctx.Context, c *domaincluster.PatternCluster) error
	GetByClusterID(dbc dbctx.Context, clusterID string) (*domaincluster.PatternCluster, error)
	LockByClusterID(dbc dbctx.Context, clusterID string) (*domaincluster.PatternCluster, error)
	ListCandidates(dbc dbctx.Context, patternType string) ([]*domaincluster.PatternCluster, error)
	UpdateByVersion(dbc dbctx.Context, clusterID string, expectedVersion int, updates map[string]any) (bool, error)
}

type clusterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewClusterRepo(db *gorm.DB, baseLog *logger.Logger) ClusterRepo {
	return &clusterRepo{db: db, log: baseLog.With("repo", "ClusterRepo")}
}

func (r *clusterRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *clusterRepo) Create(dbc dbctx.Context, c *domaincluster.PatternCluster) error {
	return r.tx(dbc).Create(c).Error
}

func (r *clusterRepo) GetByClusterID(dbc dbctx.Context, clusterID string) (*domaincluster.PatternCluster, error) {
	var out domaincluster.PatternCluster
	if err := r.tx(dbc).Where("cluster_id = ?", clusterID).First(&out).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *clusterRepo) LockByClusterID(dbc dbctx.Context, clusterID string) (*domaincluster.PatternCluster, error) {
	var out domaincluster.PatternCluster
	err := r.tx(dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cluster_id = ?", clusterID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCandidates returns the cheap-prefilter candidate set for assignment:
// same pattern_type, ordered by member_count desc then created_at asc so the
// caller's tie-break (spec.md §4.3) can short-circuit on the first qualifying
// match.
func (r *clusterRepo) ListCandidates(dbc dbctx.Context, patternType string) ([]*domaincluster.PatternCluster, error) {
	var out []*domaincluster.PatternCluster
	err := r.tx(dbc).
		Where("pattern_type = ?", patternType).
		Order("member_count DESC, created_at ASC").
		Find(&out).Error
	return out, err
}

func (r *clusterRepo) UpdateByVersion(dbc dbctx.Context, clusterID string, expectedVersion int, updates map[string]any) (bool, error) {
	updates["version"] = expectedVersion + 1
	res := r.tx(dbc).Model(&domaincluster.PatternCluster{}).
		Where("cluster_id = ? AND version = ?", clusterID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
