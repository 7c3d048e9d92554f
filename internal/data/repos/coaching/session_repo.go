// Package coaching is the table-level gateway for coaching Session,
// Intervention, Outcome and UploadOutcome rows, following the same tx(dbc)
// dispatcher pattern as internal/data/repos/runs and internal/data/repos/cluster.
// The evaluation/cooldown/outcome-window logic lives one layer up, in
// internal/coaching.
package coaching

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domaincoaching "github.com/ds4psb/komission-core/internal/domain/coaching"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

type SessionRepo interface {
	Create(dbc dbctx.Context, s *domaincoaching.Session) error
	GetBySessionID(dbc dbctx.Context, sessionID string) (*domaincoaching.Session, error)
	LockBySessionID(dbc dbctx.Context, sessionID string) (*domaincoaching.Session, error)
	End(dbc dbctx.Context, sessionID string, status string) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *sessionRepo) Create(dbc dbctx.Context, s *domaincoaching.Session) error {
	return r.tx(dbc).Create(s).Error
}

func (r *sessionRepo) GetBySessionID(dbc dbctx.Context, sessionID string) (*domaincoaching.Session, error) {
	var out domaincoaching.Session
	if err := r.tx(dbc).Where("session_id = ?", sessionID).First(&out).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *sessionRepo) LockBySessionID(dbc dbctx.Context, sessionID string) (*domaincoaching.Session, error) {
	var out domaincoaching.Session
	err := r.tx(dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_id = ?", sessionID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sessionRepo) End(dbc dbctx.Context, sessionID string, status string) error {
	return r.tx(dbc).Model(&domaincoaching.Session{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{
			"status":   status,
			"ended_at": gorm.Expr("now()"),
		}).Error
}

type InterventionRepo interface {
	Create(dbc dbctx.Context, iv *domaincoaching.Intervention) error
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*domaincoaching.Intervention, error)
	LastFiredAt(dbc dbctx.Context, sessionID uuid.UUID, ruleID string) (*domaincoaching.Intervention, error)
}

type interventionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInterventionRepo(db *gorm.DB, baseLog *logger.Logger) InterventionRepo {
	return &interventionRepo{db: db, log: baseLog.With("repo", "InterventionRepo")}
}

func (r *interventionRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *interventionRepo) Create(dbc dbctx.Context, iv *domaincoaching.Intervention) error {
	return r.tx(dbc).Create(iv).Error
}

func (r *interventionRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*domaincoaching.Intervention, error) {
	var out []*domaincoaching.Intervention
	err := r.tx(dbc).Where("session_id = ?", sessionID).Order("emitted_at ASC").Find(&out).Error
	return out, err
}

// LastFiredAt returns the most recent intervention for rule_id in this
// session, used to recover cooldown state after a process restart.
func (r *interventionRepo) LastFiredAt(dbc dbctx.Context, sessionID uuid.UUID, ruleID string) (*domaincoaching.Intervention, error) {
	var out domaincoaching.Intervention
	err := r.tx(dbc).
		Where("session_id = ? AND rule_id = ?", sessionID, ruleID).
		Order("emitted_at DESC").
		First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

type OutcomeRepo interface {
	Create(dbc dbctx.Context, o *domaincoaching.Outcome) error
	GetByInterventionID(dbc dbctx.Context, interventionID uuid.UUID) (*domaincoaching.Outcome, error)
}

type outcomeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutcomeRepo(db *gorm.DB, baseLog *logger.Logger) OutcomeRepo {
	return &outcomeRepo{db: db, log: baseLog.With("repo", "OutcomeRepo")}
}

func (r *outcomeRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *outcomeRepo) Create(dbc dbctx.Context, o *domaincoaching.Outcome) error {
	return r.tx(dbc).Create(o).Error
}

func (r *outcomeRepo) GetByInterventionID(dbc dbctx.Context, interventionID uuid.UUID) (*domaincoaching.Outcome, error) {
	var out domaincoaching.Outcome
	err := r.tx(dbc).Where("intervention_id = ?", interventionID).First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

type UploadOutcomeRepo interface {
	Create(dbc dbctx.Context, u *domaincoaching.UploadOutcome) error
	GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) (*domaincoaching.UploadOutcome, error)
}

type uploadOutcomeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUploadOutcomeRepo(db *gorm.DB, baseLog *logger.Logger) UploadOutcomeRepo {
	return &uploadOutcomeRepo{db: db, log: baseLog.With("repo", "UploadOutcomeRepo")}
}

func (r *uploadOutcomeRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *uploadOutcomeRepo) Create(dbc dbctx.Context, u *domaincoaching.UploadOutcome) error {
	return r.tx(dbc).Create(u).Error
}

func (r *uploadOutcomeRepo) GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) (*domaincoaching.UploadOutcome, error) {
	var out domaincoaching.UploadOutcome
	err := r.tx(dbc).Where("session_id = ?", sessionID).First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
