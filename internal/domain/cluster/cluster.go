package cluster

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PatternCluster is an equivalence class of NormalizedDNAs under weighted
// similarity >= 0.72. origin_cluster_id is reflexive for a root cluster and
// equal to the ancestor's origin for a descendant, so it is stable across
// any depth of re-derivation.
type PatternCluster struct {
	ID               uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ClusterID        string     `gorm:"column:cluster_id;uniqueIndex;not null" json:"cluster_id"`
	ClusterName      string     `gorm:"column:cluster_name" json:"cluster_name,omitempty"`
	PatternType      string     `gorm:"column:pattern_type;not null;index" json:"pattern_type"`
	MemberCount      int        `gorm:"column:member_count;not null;default:0" json:"member_count"`
	AvgOutlierScore  float64    `gorm:"column:avg_outlier_score;not null;default:0" json:"avg_outlier_score"`
	AncestorClusterID *string   `gorm:"column:ancestor_cluster_id;index" json:"ancestor_cluster_id,omitempty"`
	OriginClusterID  string     `gorm:"column:origin_cluster_id;not null;index" json:"origin_cluster_id"`
	RecurrenceScore  float64    `gorm:"column:recurrence_score;not null;default:0" json:"recurrence_score"`
	RecurrenceCount  int        `gorm:"column:recurrence_count;not null;default:0" json:"recurrence_count"`
	LastRecurrenceAt *time.Time `gorm:"column:last_recurrence_at" json:"last_recurrence_at,omitempty"`
	Version          int        `gorm:"column:version;not null;default:0" json:"version"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PatternCluster) TableName() string { return "pattern_cluster" }

// RecurrenceStatus is the lifecycle of a PatternRecurrenceLink.
type RecurrenceStatus string

const (
	RecurrenceCandidate RecurrenceStatus = "candidate"
	RecurrenceConfirmed RecurrenceStatus = "confirmed"
	RecurrenceRejected  RecurrenceStatus = "rejected"
)

// PatternRecurrenceLink is a directed edge from a newer cluster to an older
// one. Unique on (cluster_id_current, cluster_id_ancestor).
type PatternRecurrenceLink struct {
	ID                uuid.UUID        `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ClusterIDCurrent  string           `gorm:"column:cluster_id_current;not null;uniqueIndex:idx_recurrence_pair" json:"cluster_id_current"`
	ClusterIDAncestor string           `gorm:"column:cluster_id_ancestor;not null;uniqueIndex:idx_recurrence_pair" json:"cluster_id_ancestor"`
	Status            RecurrenceStatus `gorm:"column:status;not null;default:candidate;index" json:"status"`

	MicrobeatSim        float64 `gorm:"column:microbeat_sim" json:"microbeat_sim"`
	HookGenomeSim       float64 `gorm:"column:hook_genome_sim" json:"hook_genome_sim"`
	FocusWindowSim      float64 `gorm:"column:focus_window_sim" json:"focus_window_sim"`
	AudioFormatSim      float64 `gorm:"column:audio_format_sim" json:"audio_format_sim"`
	CommentSignatureSim float64 `gorm:"column:comment_signature_sim" json:"comment_signature_sim"`
	ProductSlotSim      float64 `gorm:"column:product_slot_sim" json:"product_slot_sim"`

	RecurrenceScore float64   `gorm:"column:recurrence_score" json:"recurrence_score"`
	EvidenceCount   int       `gorm:"column:evidence_count;not null;default:0" json:"evidence_count"`
	FirstSeenAt     time.Time `gorm:"column:first_seen_at;not null" json:"first_seen_at"`
	LastSeenAt      time.Time `gorm:"column:last_seen_at;not null" json:"last_seen_at"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (PatternRecurrenceLink) TableName() string { return "pattern_recurrence_link" }

// NotebookLibraryEntry records the clustering engine's write-through to the
// curated pattern notebook (spec §2 data flow, supplemented per SPEC_FULL §10).
type NotebookLibraryEntry struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ClusterID   string    `gorm:"column:cluster_id;not null;index" json:"cluster_id"`
	NodeID      string    `gorm:"column:node_id;not null;index" json:"node_id"`
	PatternType string    `gorm:"column:pattern_type" json:"pattern_type,omitempty"`
	Summary     string    `gorm:"column:summary" json:"summary,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (NotebookLibraryEntry) TableName() string { return "notebook_library_entry" }
