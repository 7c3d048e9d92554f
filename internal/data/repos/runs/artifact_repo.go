package runs

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	domainruns "github.com/ds4psb/komission-core/internal/domain/runs"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

// ArtifactRepo is the table-level gateway for Artifact rows. Artifacts are
// immutable once written: this repo exposes Create and reads only, no Update.
type ArtifactRepo interface {
	Create(dbc dbctx.Context, artifact *domainruns.Artifact) error
	GetByRunID(dbc dbctx.Context, runID uuid.UUID) ([]*domainruns.Artifact, error)
	GetByContentHash(dbc dbctx.Context, contentHash string) (*domainruns.Artifact, error)
}

type artifactRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewArtifactRepo(db *gorm.DB, baseLog *logger.Logger) ArtifactRepo {
	return &artifactRepo{db: db, log: baseLog.With("repo", "ArtifactRepo")}
}

func (r *artifactRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *artifactRepo) Create(dbc dbctx.Context, artifact *domainruns.Artifact) error {
	return r.tx(dbc).Create(artifact).Error
}

func (r *artifactRepo) GetByRunID(dbc dbctx.Context, runID uuid.UUID) ([]*domainruns.Artifact, error) {
	var out []*domainruns.Artifact
	if err := r.tx(dbc).Where("run_id = ?", runID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *artifactRepo) GetByContentHash(dbc dbctx.Context, contentHash string) (*domainruns.Artifact, error) {
	var out domainruns.Artifact
	err := r.tx(dbc).Where("content_hash = ?", contentHash).First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}
