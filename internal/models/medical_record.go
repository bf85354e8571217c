package models

import (
	"gorm.io/datatypes"
)

// MedicalRecord represents a patient-owned record. Documents holds the opaque
// storage paths of the uploaded files as a JSON array of strings; the bytes
// themselves live in the object store.
type MedicalRecord struct {
	BaseModel
	PatientID   string         `gorm:"size:36;index;not null" json:"patientId"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	Folder      string         `gorm:"size:100" json:"folder,omitempty"`
	Documents   datatypes.JSON `json:"documents,omitempty"`

	Patient User `gorm:"foreignKey:PatientID" json:"-"`
}
