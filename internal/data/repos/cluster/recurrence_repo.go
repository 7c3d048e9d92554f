package cluster

import (
	"gorm.io/gorm"

	domaincluster "github.com/ds4psb/komission-core/internal/domain/cluster"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

type RecurrenceRepo interface {
	Upsert(dbc dbctx.Context, link *domaincluster.PatternRecurrenceLink) error
	GetByPair(dbc dbctx.Context, current, ancestor string) (*domaincluster.PatternRecurrenceLink, error)
	IncrementEvidence(dbc dbctx.Context, current, ancestor string) (*domaincluster.PatternRecurrenceLink, error)

	// ListByCurrent returns the top-N links out of clusterID, highest
	// recurrence_score first, for the recurrence-lineage read model.
	ListByCurrent(dbc dbctx.Context, clusterID string, limit int) ([]*domaincluster.PatternRecurrenceLink, error)
}

type recurrenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecurrenceRepo(db *gorm.DB, baseLog *logger.Logger) RecurrenceRepo {
	return &recurrenceRepo{db: db, log: baseLog.With("repo", "RecurrenceRepo")}
}

func (r *recurrenceRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

// Upsert inserts a new candidate link, or is a no-op if (current, ancestor)
// already exists — unique on that pair per spec.md §4.3.
func (r *recurrenceRepo) Upsert(dbc dbctx.Context, link *domaincluster.PatternRecurrenceLink) error {
	existing, err := r.GetByPair(dbc, link.ClusterIDCurrent, link.ClusterIDAncestor)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return r.tx(dbc).Create(link).Error
}

func (r *recurrenceRepo) GetByPair(dbc dbctx.Context, current, ancestor string) (*domaincluster.PatternRecurrenceLink, error) {
	var out domaincluster.PatternRecurrenceLink
	err := r.tx(dbc).
		Where("cluster_id_current = ? AND cluster_id_ancestor = ?", current, ancestor).
		First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

// IncrementEvidence bumps evidence_count and promotes candidate->confirmed
// once evidence_count reaches 3 (spec.md §4.3).
func (r *recurrenceRepo) IncrementEvidence(dbc dbctx.Context, current, ancestor string) (*domaincluster.PatternRecurrenceLink, error) {
	link, err := r.GetByPair(dbc, current, ancestor)
	if err != nil {
		return nil, err
	}
	if link == nil {
		return nil, gorm.ErrRecordNotFound
	}

	link.EvidenceCount++
	if link.EvidenceCount >= 3 && link.Status == domaincluster.RecurrenceCandidate {
		link.Status = domaincluster.RecurrenceConfirmed
	}
	if err := r.tx(dbc).Save(link).Error; err != nil {
		return nil, err
	}
	return link, nil
}

func (r *recurrenceRepo) ListByCurrent(dbc dbctx.Context, clusterID string, limit int) ([]*domaincluster.PatternRecurrenceLink, error) {
	var out []*domaincluster.PatternRecurrenceLink
	q := r.tx(dbc).
		Where("cluster_id_current = ?", clusterID).
		Order("recurrence_score DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}
