package models

import (
	"time"
)

// RefreshToken is a stored, rotating refresh token. Each successful refresh
// revokes the presented row and issues a new one; logout and account
// deactivation revoke outstanding rows without deleting them.
type RefreshToken struct {
	BaseModel
	UserID    string    `gorm:"size:36;index" json:"userId"`
	Token     string    `gorm:"type:text;not null" json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
	IsRevoked bool      `gorm:"default:false" json:"isRevoked"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
