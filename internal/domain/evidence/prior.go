package evidence

import (
	"time"

	"github.com/google/uuid"
)

// PatternPrior is the durable row backing the Bayesian updater's per-pattern
// p_success/sample_count state (spec §4.6, §9's "encapsulate behind
// init/snapshot/load" design note).
type PatternPrior struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PatternID   string    `gorm:"column:pattern_id;uniqueIndex;not null" json:"pattern_id"`
	PSuccess    float64   `gorm:"column:p_success;not null;default:0.5" json:"p_success"`
	SampleCount int       `gorm:"column:sample_count;not null;default:0" json:"sample_count"`
	Version     int       `gorm:"column:version;not null;default:0" json:"version"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (PatternPrior) TableName() string { return "pattern_prior" }
