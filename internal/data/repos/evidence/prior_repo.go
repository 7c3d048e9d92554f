package evidence

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainevidence "github.com/ds4psb/komission-core/internal/domain/evidence"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

// PriorRepo persists the per-pattern Bayesian prior (PatternPrior) so
// internal/bayes's updater survives process restarts (spec.md §4.6, §9).
type PriorRepo interface {
	GetOrInit(dbc dbctx.Context, patternID string) (*domainevidence.PatternPrior, error)
	LockByPatternID(dbc dbctx.Context, patternID string) (*domainevidence.PatternPrior, error)
	UpdateByVersion(dbc dbctx.Context, patternID string, expectedVersion int, updates map[string]any) (bool, error)
}

type priorRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPriorRepo(db *gorm.DB, baseLog *logger.Logger) PriorRepo {
	return &priorRepo{db: db, log: baseLog.With("repo", "PriorRepo")}
}

func (r *priorRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

// GetOrInit returns the existing prior row for patternID, or creates one at
// the spec's default (p=0.5, n=0) if none exists yet.
func (r *priorRepo) GetOrInit(dbc dbctx.Context, patternID string) (*domainevidence.PatternPrior, error) {
	var out domainevidence.PatternPrior
	err := r.tx(dbc).Where("pattern_id = ?", patternID).First(&out).Error
	if err == nil {
		return &out, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	fresh := &domainevidence.PatternPrior{
		PatternID:   patternID,
		PSuccess:    0.5,
		SampleCount: 0,
	}
	if err := r.tx(dbc).Create(fresh).Error; err != nil {
		return nil, err
	}
	return fresh, nil
}

func (r *priorRepo) LockByPatternID(dbc dbctx.Context, patternID string) (*domainevidence.PatternPrior, error) {
	var out domainevidence.PatternPrior
	err := r.tx(dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("pattern_id = ?", patternID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *priorRepo) UpdateByVersion(dbc dbctx.Context, patternID string, expectedVersion int, updates map[string]any) (bool, error) {
	updates["version"] = expectedVersion + 1
	res := r.tx(dbc).Model(&domainevidence.PatternPrior{}).
		Where("pattern_id = ? AND version = ?", patternID, expectedVersion).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
