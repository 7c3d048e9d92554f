// Package curation is the table-level gateway for Rule rows. Operator
// evaluation, condition decoding and the keyspace-superset audit live one
// layer up, in internal/curation.
package curation

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	domaincuration "github.com/ds4psb/komission-core/internal/domain/curation"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

type RuleRepo interface {
	Create(dbc dbctx.Context, rule *domaincuration.Rule) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domaincuration.Rule, error)
	ListActive(dbc dbctx.Context) ([]domaincuration.Rule, error)
	ListAll(dbc dbctx.Context) ([]domaincuration.Rule, error)
	Update(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
}

type ruleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRuleRepo(db *gorm.DB, baseLog *logger.Logger) RuleRepo {
	return &ruleRepo{db: db, log: baseLog.With("repo", "RuleRepo")}
}

func (r *ruleRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *ruleRepo) Create(dbc dbctx.Context, rule *domaincuration.Rule) error {
	return r.tx(dbc).Create(rule).Error
}

func (r *ruleRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domaincuration.Rule, error) {
	var out domaincuration.Rule
	if err := r.tx(dbc).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ListActive returns active rules ordered by priority so callers that don't
// want to re-sort (e.g. the audit path) get a deterministic order for free.
func (r *ruleRepo) ListActive(dbc dbctx.Context) ([]domaincuration.Rule, error) {
	var out []domaincuration.Rule
	err := r.tx(dbc).
		Where("active = ?", true).
		Order("priority DESC, name ASC").
		Find(&out).Error
	return out, err
}

func (r *ruleRepo) ListAll(dbc dbctx.Context) ([]domaincuration.Rule, error) {
	var out []domaincuration.Rule
	err := r.tx(dbc).Order("priority DESC, name ASC").Find(&out).Error
	return out, err
}

func (r *ruleRepo) Update(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	return r.tx(dbc).Model(&domaincuration.Rule{}).
		Where("id = ?", id).
		Updates(updates).Error
}
