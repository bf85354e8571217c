package models

import (
	"time"
)

// WarningType classifies conduct warnings issued against an account.
type WarningType string

const (
	WarningLateCancellation WarningType = "LATE_CANCELLATION"
	WarningNoShow           WarningType = "NO_SHOW"
	WarningMisconduct       WarningType = "MISCONDUCT"
)

// Warning is an admin-issued conduct warning. Issuance is manual; there is no
// automatic policy attached to lifecycle events.
type Warning struct {
	BaseModel
	UserID    string      `gorm:"size:36;index;not null" json:"userId"`
	Type      WarningType `gorm:"size:30;not null" json:"type"`
	Reason    string      `gorm:"type:text;not null" json:"reason"`
	IsActive  bool        `gorm:"default:true" json:"isActive"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
