package models

import (
	"time"

	"gorm.io/datatypes"
)

// DoctorProfile holds the public-facing practice data for a doctor account.
// Consultation fee is per hour; appointment prices derive from it.
type DoctorProfile struct {
	BaseModel
	UserID             string         `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	Specialty          string         `gorm:"size:100;not null;index" json:"specialty"`
	Qualifications     datatypes.JSON `json:"qualifications,omitempty"`
	Experience         int            `json:"experience"`
	LicenseNumber      string         `gorm:"size:100" json:"licenseNumber"`
	LicenseExpiry      *time.Time     `json:"licenseExpiry,omitempty"`
	Bio                string         `gorm:"type:text" json:"bio,omitempty"`
	ConsultationFee    float64        `gorm:"not null" json:"consultationFee"`
	Location           string         `gorm:"size:200" json:"location,omitempty"`
	Languages          datatypes.JSON `json:"languages,omitempty"`
	Rating             float64        `gorm:"default:0" json:"rating"`
	TotalConsultations int            `gorm:"default:0" json:"totalConsultations"`
	IsAvailable        bool           `gorm:"default:true" json:"isAvailable"`

	User    User                 `gorm:"foreignKey:UserID" json:"-"`
	Windows []AvailabilityWindow `gorm:"foreignKey:DoctorID;references:UserID" json:"-"`
}
