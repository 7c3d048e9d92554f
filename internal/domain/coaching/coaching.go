package coaching

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Mode string

const (
	ModeHomage   Mode = "homage"
	ModeMutation Mode = "mutation"
	ModeCampaign Mode = "campaign"
)

type Assignment string

const (
	AssignmentCoached Assignment = "coached"
	AssignmentControl Assignment = "control"
)

// Session is a single live recording/coaching session.
type Session struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID    string     `gorm:"column:session_id;uniqueIndex;not null" json:"session_id"`
	UserIDHash   string     `gorm:"column:user_id_hash;index" json:"user_id_hash,omitempty"`
	Mode         Mode       `gorm:"column:mode;not null" json:"mode"`
	PatternID    string     `gorm:"column:pattern_id;index" json:"pattern_id,omitempty"`
	PackHash     string     `gorm:"column:pack_hash" json:"pack_hash,omitempty"`
	Assignment   Assignment `gorm:"column:assignment;not null" json:"assignment"`
	HoldoutGroup bool       `gorm:"column:holdout_group;not null;default:false" json:"holdout_group"`
	Status       string     `gorm:"column:status;not null;default:active" json:"status"`
	StartedAt    time.Time  `gorm:"column:started_at;not null" json:"started_at"`
	EndedAt      *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Session) TableName() string { return "coaching_session" }

// Intervention is emitted when a rule fails with confidence >= 0.5, subject
// to a 6s per-rule cooldown.
type Intervention struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID    uuid.UUID `gorm:"type:uuid;column:session_id;not null;index" json:"session_id"`
	RuleID       string    `gorm:"column:rule_id;not null;index" json:"rule_id"`
	Confidence   float64   `gorm:"column:confidence" json:"confidence"`
	Message      string    `gorm:"column:message" json:"message,omitempty"`
	MeasuredVal  datatypes.JSON `gorm:"column:measured_value;type:jsonb" json:"measured_value,omitempty"`
	EmittedAt    time.Time `gorm:"column:emitted_at;not null" json:"emitted_at"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Intervention) TableName() string { return "coaching_intervention" }

type Compliance string

const (
	ComplianceComplied Compliance = "complied"
	ComplianceViolated Compliance = "violated"
	ComplianceUnknown  Compliance = "unknown"
)

// Outcome records whether an Intervention's rule was complied with within
// the 10s observation window.
type Outcome struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	InterventionID uuid.UUID  `gorm:"type:uuid;column:intervention_id;not null;index" json:"intervention_id"`
	Compliance     Compliance `gorm:"column:compliance;not null" json:"compliance"`
	LatencySec     float64    `gorm:"column:latency_sec" json:"latency_sec"`
	Reason         string     `gorm:"column:reason" json:"reason,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Outcome) TableName() string { return "coaching_outcome" }

// UploadOutcome is the terminal record written when a session ends
// (normally, cancelled, or disconnected).
type UploadOutcome struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionID   uuid.UUID `gorm:"type:uuid;column:session_id;not null;index" json:"session_id"`
	Uploaded    bool      `gorm:"column:uploaded;not null;default:false" json:"uploaded"`
	Reason      string    `gorm:"column:reason" json:"reason,omitempty"`
	AssetRef    string    `gorm:"column:asset_ref" json:"asset_ref,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (UploadOutcome) TableName() string { return "coaching_upload_outcome" }
