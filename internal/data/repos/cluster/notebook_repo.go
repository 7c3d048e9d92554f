package cluster

import (
	"gorm.io/gorm"

	domaincluster "github.com/ds4psb/komission-core/internal/domain/cluster"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

// NotebookRepo is the write-through gateway for the curated pattern
// notebook (spec.md §2's data flow, supplemented per SPEC_FULL.md §10). The
// external sheet-sync side is a documented no-op; this only persists the
// Go-side record of what should be synced.
type NotebookRepo interface {
	Create(dbc dbctx.Context, entry *domaincluster.NotebookLibraryEntry) error
	ListByClusterID(dbc dbctx.Context, clusterID string) ([]*domaincluster.NotebookLibraryEntry, error)
}

type notebookRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotebookRepo(db *gorm.DB, baseLog *logger.Logger) NotebookRepo {
	return &notebookRepo{db: db, log: baseLog.With("repo", "NotebookRepo")}
}

func (r *notebookRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *notebookRepo) Create(dbc dbctx.Context, entry *domaincluster.NotebookLibraryEntry) error {
	return r.tx(dbc).Create(entry).Error
}

func (r *notebookRepo) ListByClusterID(dbc dbctx.Context, clusterID string) ([]*domaincluster.NotebookLibraryEntry, error) {
	var out []*domaincluster.NotebookLibraryEntry
	err := r.tx(dbc).Where("cluster_id = ?", clusterID).Order("created_at DESC").Find(&out).Error
	return out, err
}
