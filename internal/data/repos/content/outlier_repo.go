// Package content is the table-level gateway for OutlierItem and
// PatternNode rows, following the same tx(dbc) dispatcher pattern as
// internal/data/repos/runs. Dedup, selection and promotion decisions live
// one layer up, in the crawler/curation call paths.
package content

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domaincontent "github.com/ds4psb/komission-core/internal/domain/content"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

type OutlierRepo interface {
	Create(dbc dbctx.Context, item *domaincontent.OutlierItem) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domaincontent.OutlierItem, error)
	GetByPlatformExternalID(dbc dbctx.Context, platform, externalID string) (*domaincontent.OutlierItem, error)
	GetByVideoURL(dbc dbctx.Context, videoURL string) (*domaincontent.OutlierItem, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*domaincontent.OutlierItem, error)
	ListByStatus(dbc dbctx.Context, status domaincontent.OutlierStatus, limit int) ([]*domaincontent.OutlierItem, error)
	Update(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
}

type outlierRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutlierRepo(db *gorm.DB, baseLog *logger.Logger) OutlierRepo {
	return &outlierRepo{db: db, log: baseLog.With("repo", "OutlierRepo")}
}

func (r *outlierRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *outlierRepo) Create(dbc dbctx.Context, item *domaincontent.OutlierItem) error {
	return r.tx(dbc).Create(item).Error
}

func (r *outlierRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domaincontent.OutlierItem, error) {
	var out domaincontent.OutlierItem
	if err := r.tx(dbc).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// GetByPlatformExternalID is the dedup lookup for crawler ingest: the unique
// index on (platform, external_id) is what actually enforces this, this is
// just the read side so callers can decide update-vs-insert.
func (r *outlierRepo) GetByPlatformExternalID(dbc dbctx.Context, platform, externalID string) (*domaincontent.OutlierItem, error) {
	var out domaincontent.OutlierItem
	err := r.tx(dbc).
		Where("platform = ? AND external_id = ?", platform, externalID).
		First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *outlierRepo) GetByVideoURL(dbc dbctx.Context, videoURL string) (*domaincontent.OutlierItem, error) {
	var out domaincontent.OutlierItem
	err := r.tx(dbc).Where("video_url = ?", videoURL).First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *outlierRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*domaincontent.OutlierItem, error) {
	var out domaincontent.OutlierItem
	err := r.tx(dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *outlierRepo) ListByStatus(dbc dbctx.Context, status domaincontent.OutlierStatus, limit int) ([]*domaincontent.OutlierItem, error) {
	var out []*domaincontent.OutlierItem
	q := r.tx(dbc).Where("status = ?", status).Order("outlier_score DESC, created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

func (r *outlierRepo) Update(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	return r.tx(dbc).Model(&domaincontent.OutlierItem{}).
		Where("id = ?", id).
		Updates(updates).Error
}
