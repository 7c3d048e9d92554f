package curation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Action string

const (
	ActionPromote Action = "promote"
	ActionReject  Action = "reject"
	ActionCampaign Action = "campaign"
)

// Rule is a persisted declarative curation rule: conditions over a
// promoted candidate's extracted feature keyspace, an action, and a
// priority used to break ties when multiple rules match.
type Rule struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name       string         `gorm:"column:name;not null" json:"name"`
	Conditions datatypes.JSON `gorm:"column:conditions;type:jsonb;not null" json:"conditions"`
	Action     Action         `gorm:"column:action;not null" json:"action"`
	Priority   int            `gorm:"column:priority;not null;default:0" json:"priority"`
	Active     bool           `gorm:"column:active;not null;default:true" json:"active"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Rule) TableName() string { return "curation_rule" }
