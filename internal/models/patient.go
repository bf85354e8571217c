package models

import (
	"time"
)

// PatientProfile holds the medical metadata attached to a patient account.
type PatientProfile struct {
	BaseModel
	UserID           string     `gorm:"size:36;uniqueIndex;not null" json:"userId"`
	DateOfBirth      *time.Time `json:"dateOfBirth,omitempty"`
	Gender           string     `gorm:"size:20" json:"gender,omitempty"`
	BloodType        string     `gorm:"size:10" json:"bloodType,omitempty"`
	Allergies        string     `gorm:"type:text" json:"allergies,omitempty"`
	Medications      string     `gorm:"type:text" json:"medications,omitempty"`
	EmergencyContact string     `gorm:"size:200" json:"emergencyContact,omitempty"`
	EmergencyPhone   string     `gorm:"size:30" json:"emergencyPhone,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Complete reports whether the profile satisfies the "profile complete"
// invariant: date of birth, gender and both emergency contact fields set.
func (p *PatientProfile) Complete() bool {
	return p.DateOfBirth != nil &&
		p.Gender != "" &&
		p.EmergencyContact != "" &&
		p.EmergencyPhone != ""
}
