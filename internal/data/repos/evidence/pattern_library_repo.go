package evidence

import (
	"gorm.io/gorm"

	domainevidence "github.com/ds4psb/komission-core/internal/domain/evidence"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

// PatternLibraryRepo is the table-level gateway for pattern_library rows.
// Revisions never overwrite (domainevidence.PatternLibrary's own doc
// comment): this only appends.
type PatternLibraryRepo interface {
	Create(dbc dbctx.Context, entry *domainevidence.PatternLibrary) error
	GetLatestByPatternID(dbc dbctx.Context, patternID string) (*domainevidence.PatternLibrary, error)
}

type patternLibraryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatternLibraryRepo(db *gorm.DB, baseLog *logger.Logger) PatternLibraryRepo {
	return &patternLibraryRepo{db: db, log: baseLog.With("repo", "PatternLibraryRepo")}
}

func (r *patternLibraryRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *patternLibraryRepo) Create(dbc dbctx.Context, entry *domainevidence.PatternLibrary) error {
	return r.tx(dbc).Create(entry).Error
}

func (r *patternLibraryRepo) GetLatestByPatternID(dbc dbctx.Context, patternID string) (*domainevidence.PatternLibrary, error) {
	var out domainevidence.PatternLibrary
	err := r.tx(dbc).
		Where("pattern_id = ?", patternID).
		Order("revision DESC").
		First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
