package evidence

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainevidence "github.com/ds4psb/komission-core/internal/domain/evidence"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

// EventRepo is the table-level gateway for evidence_event rows. Transition
// validation lives one layer up in the aggregate; this repo only persists.
type EventRepo interface {
	Create(dbc dbctx.Context, event *domainevidence.Event) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domainevidence.Event, error)
	LockByID(dbc dbctx.Context, id uuid.UUID) (*domainevidence.Event, error)
	UpdateByVersion(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]any) (bool, error)
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return &eventRepo{db: db, log: baseLog.With("repo", "EventRepo")}
}

func (r *eventRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *eventRepo) Create(dbc dbctx.Context, event *domainevidence.Event) error {
	return r.tx(dbc).Create(event).Error
}

func (r *eventRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domainevidence.Event, error) {
	var out domainevidence.Event
	if err := r.tx(dbc).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *eventRepo) LockByID(dbc dbctx.Context, id uuid.UUID) (*domainevidence.Event, error) {
	var out domainevidence.Event
	err := r.tx(dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *eventRepo) UpdateByVersion(dbc dbctx.Context, id uuid.UUID, expectedVersion int, updates map[string]any) (bool, error) {
	updates["version"] = expectedVersion + 1
	res := r.tx(dbc).Model(&domainevidence.Event{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
