package content

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domaincontent "github.com/ds4psb/komission-core/internal/domain/content"
	"github.com/ds4psb/komission-core/internal/platform/dbctx"
	"github.com/ds4psb/komission-core/internal/platform/logger"
)

type PatternNodeRepo interface {
	Create(dbc dbctx.Context, node *domaincontent.PatternNode) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*domaincontent.PatternNode, error)
	GetByNodeID(dbc dbctx.Context, nodeID string) (*domaincontent.PatternNode, error)
	LockByNodeID(dbc dbctx.Context, nodeID string) (*domaincontent.PatternNode, error)
	ListChildren(dbc dbctx.Context, parentNodeID uuid.UUID) ([]*domaincontent.PatternNode, error)
	ListByClusterID(dbc dbctx.Context, clusterID string) ([]*domaincontent.PatternNode, error)
	Update(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error

	// ListRoots returns every node with no parent — the starting points for
	// track_depth_experiment --all.
	ListRoots(dbc dbctx.Context) ([]*domaincontent.PatternNode, error)
}

type patternNodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPatternNodeRepo(db *gorm.DB, baseLog *logger.Logger) PatternNodeRepo {
	return &patternNodeRepo{db: db, log: baseLog.With("repo", "PatternNodeRepo")}
}

func (r *patternNodeRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx.WithContext(dbc.Ctx)
	}
	return r.db.WithContext(dbc.Ctx)
}

func (r *patternNodeRepo) Create(dbc dbctx.Context, node *domaincontent.PatternNode) error {
	return r.tx(dbc).Create(node).Error
}

func (r *patternNodeRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*domaincontent.PatternNode, error) {
	var out domaincontent.PatternNode
	if err := r.tx(dbc).Where("id = ?", id).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *patternNodeRepo) GetByNodeID(dbc dbctx.Context, nodeID string) (*domaincontent.PatternNode, error) {
	var out domaincontent.PatternNode
	err := r.tx(dbc).Where("node_id = ?", nodeID).First(&out).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (r *patternNodeRepo) LockByNodeID(dbc dbctx.Context, nodeID string) (*domaincontent.PatternNode, error) {
	var out domaincontent.PatternNode
	err := r.tx(dbc).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("node_id = ?", nodeID).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListChildren walks one genealogy level down (spec.md §4.7's fork tree).
func (r *patternNodeRepo) ListChildren(dbc dbctx.Context, parentNodeID uuid.UUID) ([]*domaincontent.PatternNode, error) {
	var out []*domaincontent.PatternNode
	err := r.tx(dbc).
		Where("parent_node_id = ?", parentNodeID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

func (r *patternNodeRepo) ListByClusterID(dbc dbctx.Context, clusterID string) ([]*domaincontent.PatternNode, error) {
	var out []*domaincontent.PatternNode
	err := r.tx(dbc).Where("cluster_id = ?", clusterID).Find(&out).Error
	return out, err
}

func (r *patternNodeRepo) Update(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	return r.tx(dbc).Model(&domaincontent.PatternNode{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *patternNodeRepo) ListRoots(dbc dbctx.Context) ([]*domaincontent.PatternNode, error) {
	var out []*domaincontent.PatternNode
	err := r.tx(dbc).
		Where("parent_node_id IS NULL").
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}
