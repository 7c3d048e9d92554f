package evidence

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	domainevidence "github.com/ds4psb/komission-core/internal/domain/evidence"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

// DecisionRepo is the table-level gateway for decision_object rows.
// Decisions are produced exactly once per Event and never updated.
type DecisionRepo interface {
	Create(dbc dbctx.Context, decision *domainevidence.DecisionObject) error
	GetByEventID(dbc dbctx.Context, eventID uuid.UUID) (*domainevidence.DecisionObject, error)
}

type decisionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDecisionRepo(db *gorm.DB, baseLog *logger.Logger) DecisionRepo {
	return &decisionRepo{db: db, log: baseLog.With("repo", "DecisionRepo")}
}

func (r *decisionRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *decisionRepo) Create(dbc dbctx.Context, decision *domainevidence.DecisionObject) error {
	return r.tx(dbc).Create(decision).Error
}

func (r *decisionRepo) GetByEventID(dbc dbctx.Context, eventID uuid.UUID) (*domainevidence.DecisionObject, error) {
	var out domainevidence.DecisionObject
	err := r.tx(dbc).Where("event_id = ?", eventID).First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
