package content

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type OutlierTier string

const (
	OutlierTierS OutlierTier = "S"
	OutlierTierA OutlierTier = "A"
	OutlierTierB OutlierTier = "B"
	OutlierTierC OutlierTier = "C"
)

// AnalysisStatus tracks a candidate through vision-LLM analysis and the
// external comment-review side channel. comments_pending_review and
// comments_failed are opaque labels written by that external subsystem; the
// promotion flow only cares whether status has left "pending".
type AnalysisStatus string

const (
	AnalysisStatusPending               AnalysisStatus = "pending"
	AnalysisStatusApproved              AnalysisStatus = "approved"
	AnalysisStatusAnalyzing             AnalysisStatus = "analyzing"
	AnalysisStatusCompleted             AnalysisStatus = "completed"
	AnalysisStatusCommentsPendingReview AnalysisStatus = "comments_pending_review"
	AnalysisStatusCommentsFailed        AnalysisStatus = "comments_failed"
	AnalysisStatusCommentsReady         AnalysisStatus = "comments_ready"
	AnalysisStatusSkipped               AnalysisStatus = "skipped"
)

type OutlierStatus string

const (
	OutlierStatusPending  OutlierStatus = "pending"
	OutlierStatusSelected OutlierStatus = "selected"
	OutlierStatusRejected OutlierStatus = "rejected"
	OutlierStatusPromoted OutlierStatus = "promoted"
)

// OutlierItem is a crawled candidate, keyed by (platform, external_id) and
// by canonical video_url.
type OutlierItem struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Platform   string    `gorm:"column:platform;not null;uniqueIndex:idx_outlier_platform_ext" json:"platform"`
	ExternalID string    `gorm:"column:external_id;not null;uniqueIndex:idx_outlier_platform_ext" json:"external_id"`
	VideoURL   string    `gorm:"column:video_url;not null;index" json:"video_url"`
	SourceName string    `gorm:"column:source_name" json:"source_name,omitempty"`
	Category   string    `gorm:"column:category" json:"category,omitempty"`
	Title      string    `gorm:"column:title" json:"title,omitempty"`

	ViewCount       int64   `gorm:"column:view_count" json:"view_count"`
	LikeCount       int64   `gorm:"column:like_count" json:"like_count"`
	ShareCount      int64   `gorm:"column:share_count" json:"share_count"`
	CommentCount    int64   `gorm:"column:comment_count" json:"comment_count"`
	GrowthRate      float64 `gorm:"column:growth_rate" json:"growth_rate"`
	CreatorAvgViews int64   `gorm:"column:creator_avg_views" json:"creator_avg_views,omitempty"`
	EngagementRate  float64 `gorm:"column:engagement_rate" json:"engagement_rate,omitempty"`

	TopComments datatypes.JSON `gorm:"column:top_comments;type:jsonb" json:"top_comments,omitempty"`

	OutlierScore float64        `gorm:"column:outlier_score" json:"outlier_score"`
	OutlierTier  OutlierTier    `gorm:"column:outlier_tier" json:"outlier_tier,omitempty"`
	AnalysisStat AnalysisStatus `gorm:"column:analysis_status;not null;default:pending;index" json:"analysis_status"`
	Status       OutlierStatus  `gorm:"column:status;not null;default:pending;index" json:"status"`

	PromotedToNodeID *uuid.UUID `gorm:"type:uuid;column:promoted_to_node_id" json:"promoted_to_node_id,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (OutlierItem) TableName() string { return "outlier_item" }

// Layer describes a PatternNode's position in its genealogy tree.
type Layer string

const (
	LayerMaster     Layer = "MASTER"
	LayerFork       Layer = "FORK"
	LayerForkOfFork Layer = "FORK_OF_FORK"
)

// PatternNode is a promoted content anchor (parent, layer=MASTER) or one of
// its variants (child). parent_node_id forms a tree, never a cycle.
type PatternNode struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	NodeID           string         `gorm:"column:node_id;uniqueIndex;not null" json:"node_id"`
	Layer            Layer          `gorm:"column:layer;not null" json:"layer"`
	ParentNodeID     *uuid.UUID     `gorm:"type:uuid;column:parent_node_id;index" json:"parent_node_id,omitempty"`
	GenealogyDepth   int            `gorm:"column:genealogy_depth;not null;default:0" json:"genealogy_depth"`
	OutlierItemID    *uuid.UUID     `gorm:"type:uuid;column:outlier_item_id" json:"outlier_item_id,omitempty"`
	GeminiAnalysis   datatypes.JSON `gorm:"column:gemini_analysis;type:jsonb" json:"gemini_analysis,omitempty"`
	ClusterID        string         `gorm:"column:cluster_id;index" json:"cluster_id,omitempty"`
	ViewCount        int64          `gorm:"column:view_count" json:"view_count"`
	TotalForkCount   int            `gorm:"column:total_fork_count;not null;default:0" json:"total_fork_count"`
	TotalRoyaltyEarn float64        `gorm:"column:total_royalty_earned;not null;default:0" json:"total_royalty_earned"`
	IsPublished      bool           `gorm:"column:is_published;not null;default:false" json:"is_published"`
	ProofReady       bool           `gorm:"column:proof_ready;not null;default:false" json:"proof_ready"`
	QualityIssues    datatypes.JSON `gorm:"column:quality_issues;type:jsonb" json:"quality_issues,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PatternNode) TableName() string { return "pattern_node" }
