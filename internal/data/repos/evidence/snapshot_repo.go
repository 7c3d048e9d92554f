package evidence

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	domainevidence "github.com/ds4psb/komission-core/internal/domain/evidence"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

// SnapshotRepo is the table-level gateway for evidence_snapshot rows.
// Snapshots are produced exactly once per Event and never updated.
type SnapshotRepo interface {
	Create(dbc dbctx.Context, snapshot *domainevidence.Snapshot) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domainevidence.Snapshot, error)
	GetByEventID(dbc dbctx.Context, eventID uuid.UUID) (*domainevidence.Snapshot, error)
}

type snapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRepo {
	return &snapshotRepo{db: db, log: baseLog.With("repo", "SnapshotRepo")}
}

func (r *snapshotRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *snapshotRepo) Create(dbc dbctx.Context, snapshot *domainevidence.Snapshot) error {
	return r.tx(dbc).Create(snapshot).Error
}

func (r *snapshotRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domainevidence.Snapshot, error) {
	var out domainevidence.Snapshot
	if err := r.tx(dbc).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *snapshotRepo) GetByEventID(dbc dbctx.Context, eventID uuid.UUID) (*domainevidence.Snapshot, error) {
	var out domainevidence.Snapshot
	err := r.tx(dbc).Where("event_id = ?", eventID).First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
