package evidence

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Status is the Evidence Loop state machine's position. Only MEASURED and
// FAILED are terminal.
type Status string

const (
	StatusQueued         Status = "QUEUED"
	StatusRunning        Status = "RUNNING"
	StatusEvidenceReady  Status = "EVIDENCE_READY"
	StatusDecided        Status = "DECIDED"
	StatusExecuted       Status = "EXECUTED"
	StatusMeasured       Status = "MEASURED"
	StatusFailed         Status = "FAILED"
)

// Event is the per-cycle state carrier for a parent node's Evidence Loop.
type Event struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ParentNodeID      uuid.UUID  `gorm:"type:uuid;column:parent_node_id;not null;index" json:"parent_node_id"`
	RunID             *uuid.UUID `gorm:"type:uuid;column:run_id" json:"run_id,omitempty"`
	Status            Status     `gorm:"column:status;not null;index" json:"status"`
	EvidenceSnapshotID *uuid.UUID `gorm:"type:uuid;column:evidence_snapshot_id" json:"evidence_snapshot_id,omitempty"`
	DecisionObjectID  *uuid.UUID `gorm:"type:uuid;column:decision_object_id" json:"decision_object_id,omitempty"`
	ErrorMessage      string     `gorm:"column:error_message" json:"error_message,omitempty"`

	QueuedAt        time.Time  `gorm:"column:queued_at;not null" json:"queued_at"`
	RunningAt       *time.Time `gorm:"column:running_at" json:"running_at,omitempty"`
	EvidenceReadyAt *time.Time `gorm:"column:evidence_ready_at" json:"evidence_ready_at,omitempty"`
	DecidedAt       *time.Time `gorm:"column:decided_at" json:"decided_at,omitempty"`
	ExecutedAt      *time.Time `gorm:"column:executed_at" json:"executed_at,omitempty"`
	MeasuredAt      *time.Time `gorm:"column:measured_at" json:"measured_at,omitempty"`

	Version int `gorm:"column:version;not null;default:0" json:"version"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Event) TableName() string { return "evidence_event" }

// MutationSuccess is one (mutation_type, pattern) cell of a snapshot's
// depth1_summary.
type MutationSuccess struct {
	SuccessRate float64 `json:"success_rate"`
	SampleCount int     `json:"sample_count"`
}

// Snapshot is produced exactly once per Event, on RUNNING -> EVIDENCE_READY.
type Snapshot struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID           uuid.UUID      `gorm:"type:uuid;column:event_id;not null;index" json:"event_id"`
	Period            string         `gorm:"column:period" json:"period,omitempty"`
	Depth1SummaryJSON datatypes.JSON `gorm:"column:depth1_summary;type:jsonb" json:"depth1_summary"`
	TopMutationType   string         `gorm:"column:top_mutation_type" json:"top_mutation_type,omitempty"`
	TopMutationPattern string        `gorm:"column:top_mutation_pattern" json:"top_mutation_pattern,omitempty"`
	TopMutationRate   float64        `gorm:"column:top_mutation_rate" json:"top_mutation_rate"`
	SampleCount       int            `gorm:"column:sample_count" json:"sample_count"`
	Confidence        float64        `gorm:"column:confidence" json:"confidence"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Snapshot) TableName() string { return "evidence_snapshot" }

// DecisionType is the Evidence Loop's GO/STOP/PIVOT verdict.
type DecisionType string

const (
	DecisionGo    DecisionType = "GO"
	DecisionStop  DecisionType = "STOP"
	DecisionPivot DecisionType = "PIVOT"
)

type DecisionMethod string

const (
	DecisionMethodAuto   DecisionMethod = "auto"
	DecisionMethodManual DecisionMethod = "manual"
	DecisionMethodHybrid DecisionMethod = "hybrid"
)

// DecisionObject is produced exactly once per Event, on
// EVIDENCE_READY -> DECIDED.
type DecisionObject struct {
	ID                   uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID              uuid.UUID      `gorm:"type:uuid;column:event_id;not null;index" json:"event_id"`
	DecisionType         DecisionType   `gorm:"column:decision_type;not null" json:"decision_type"`
	DecisionJSON         datatypes.JSON `gorm:"column:decision_json;type:jsonb" json:"decision_json,omitempty"`
	EvidenceSummary      string         `gorm:"column:evidence_summary" json:"evidence_summary,omitempty"`
	DecisionMethod       DecisionMethod `gorm:"column:decision_method;not null" json:"decision_method"`
	DecidedBy            string         `gorm:"column:decided_by" json:"decided_by,omitempty"`
	DecidedAt            time.Time      `gorm:"column:decided_at;not null" json:"decided_at"`
	TranscriptArtifactID *uuid.UUID     `gorm:"type:uuid;column:transcript_artifact_id" json:"transcript_artifact_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DecisionObject) TableName() string { return "decision_object" }

// TemporalPhase marks a PatternLibrary entry's position in its lifecycle
// (T0 = newly observed .. T4 = fully mature).
type TemporalPhase string

const (
	PhaseT0 TemporalPhase = "T0"
	PhaseT1 TemporalPhase = "T1"
	PhaseT2 TemporalPhase = "T2"
	PhaseT3 TemporalPhase = "T3"
	PhaseT4 TemporalPhase = "T4"
)

// PatternLibrary is a crystallized rule+strategy revision. Revisions never
// overwrite; they append with PreviousRevisionID set.
type PatternLibrary struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PatternID          string         `gorm:"column:pattern_id;not null;index" json:"pattern_id"`
	ClusterID          string         `gorm:"column:cluster_id;not null;index" json:"cluster_id"`
	TemporalPhase      TemporalPhase  `gorm:"column:temporal_phase;not null" json:"temporal_phase"`
	InvariantRules     datatypes.JSON `gorm:"column:invariant_rules;type:jsonb" json:"invariant_rules"`
	MutationStrategy   datatypes.JSON `gorm:"column:mutation_strategy;type:jsonb" json:"mutation_strategy"`
	Revision           int            `gorm:"column:revision;not null;default:1" json:"revision"`
	PreviousRevisionID *uuid.UUID     `gorm:"type:uuid;column:previous_revision_id" json:"previous_revision_id,omitempty"`
	ConfidenceScore    float64        `gorm:"column:confidence_score" json:"confidence_score"`
	SampleCount        int            `gorm:"column:sample_count" json:"sample_count"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (PatternLibrary) TableName() string { return "pattern_library" }

// DirectorPack is the immutable runtime coaching spec for a pattern. The
// evidence-guided updater (spec §4.8) never mutates a pack in place; it
// produces a new row.
type DirectorPack struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PatternID           string         `gorm:"column:pattern_id;not null;index" json:"pattern_id"`
	PackHash            string         `gorm:"column:pack_hash;not null;index" json:"pack_hash"`
	DNAInvariants       datatypes.JSON `gorm:"column:dna_invariants;type:jsonb" json:"dna_invariants"`
	MutationSlots       datatypes.JSON `gorm:"column:mutation_slots;type:jsonb" json:"mutation_slots"`
	ForbiddenMutations  datatypes.JSON `gorm:"column:forbidden_mutations;type:jsonb" json:"forbidden_mutations"`
	Checkpoints         datatypes.JSON `gorm:"column:checkpoints;type:jsonb" json:"checkpoints"`
	CoachLineTemplates  datatypes.JSON `gorm:"column:coach_line_templates;type:jsonb" json:"coach_line_templates"`
	RuntimeContract     datatypes.JSON `gorm:"column:runtime_contract;type:jsonb" json:"runtime_contract"`
	PreviousPackID      *uuid.UUID     `gorm:"type:uuid;column:previous_pack_id" json:"previous_pack_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (DirectorPack) TableName() string { return "director_pack" }
