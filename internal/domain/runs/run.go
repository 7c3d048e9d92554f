package runs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RunType enumerates the pipeline step kinds the engine can execute.
type RunType string

const (
	RunTypeCrawler           RunType = "CRAWLER"
	RunTypeAnalysis          RunType = "ANALYSIS"
	RunTypeClustering        RunType = "CLUSTERING"
	RunTypeEvidence          RunType = "EVIDENCE"
	RunTypeSourcePack        RunType = "SOURCE_PACK"
	RunTypePatternSynthesis  RunType = "PATTERN_SYNTHESIS"
	RunTypeDecision          RunType = "DECISION"
	RunTypeBandit            RunType = "BANDIT"
)

// RunStatus is the Run lifecycle.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// Run is a single idempotent pipeline execution, keyed by
// (run_type, idempotency_key). At most one COMPLETED row may exist per key.
type Run struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	RunID          string         `gorm:"column:run_id;uniqueIndex;not null" json:"run_id"`
	RunType        RunType        `gorm:"column:run_type;not null;index:idx_run_type_key" json:"run_type"`
	Status         RunStatus      `gorm:"column:status;not null;index" json:"status"`
	IdempotencyKey string         `gorm:"column:idempotency_key;not null;index:idx_run_type_key" json:"idempotency_key"`
	InputsJSON     datatypes.JSON `gorm:"column:inputs_json;type:jsonb" json:"inputs_json"`
	ResultSummary  datatypes.JSON `gorm:"column:result_summary;type:jsonb" json:"result_summary,omitempty"`
	ErrorMessage   string         `gorm:"column:error_message" json:"error_message,omitempty"`
	ErrorTraceback string         `gorm:"column:error_traceback" json:"error_traceback,omitempty"`
	TriggeredBy    string         `gorm:"column:triggered_by" json:"triggered_by,omitempty"`
	ParentRunID    *uuid.UUID     `gorm:"type:uuid;column:parent_run_id;index" json:"parent_run_id,omitempty"`
	StartedAt      *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	EndedAt        *time.Time     `gorm:"column:ended_at" json:"ended_at,omitempty"`
	DurationMs     *int64         `gorm:"column:duration_ms" json:"duration_ms,omitempty"`
	Version        int            `gorm:"column:version;not null;default:0" json:"version"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Run) TableName() string { return "run" }

// StorageType enumerates where an Artifact's payload actually lives.
type StorageType string

const (
	StorageTypeDB          StorageType = "db"
	StorageTypeObjectStore StorageType = "object_store"
	StorageTypeExternalURL StorageType = "external_url"
)

// Artifact is the immutable, content-addressed output of a completed Run.
type Artifact struct {
	ID            uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ArtifactType  string         `gorm:"column:artifact_type;not null;index" json:"artifact_type"`
	Name          string         `gorm:"column:name;not null" json:"name"`
	StorageType   StorageType    `gorm:"column:storage_type;not null" json:"storage_type"`
	StoragePath   string         `gorm:"column:storage_path" json:"storage_path,omitempty"`
	SchemaVersion string         `gorm:"column:schema_version" json:"schema_version,omitempty"`
	ContentHash   string         `gorm:"column:content_hash;not null;index" json:"content_hash"`
	DataJSON      datatypes.JSON `gorm:"column:data_json;type:jsonb" json:"data_json,omitempty"`
	SizeBytes     int64          `gorm:"column:size_bytes" json:"size_bytes"`
	MimeType      string         `gorm:"column:mime_type" json:"mime_type,omitempty"`
	RunID         uuid.UUID      `gorm:"type:uuid;column:run_id;not null;index" json:"run_id"`
	CreatedAt     time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Artifact) TableName() string { return "artifact" }
