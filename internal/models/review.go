package models

// Review is a patient's rating of a completed appointment. Creating one
// updates the doctor's aggregate rating.
type Review struct {
	BaseModel
	PatientID     string `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID      string `gorm:"size:36;index;not null" json:"doctorId"`
	AppointmentID string `gorm:"size:36;uniqueIndex;not null" json:"appointmentId"`
	Rating        int    `gorm:"not null" json:"rating"`
	Comment       string `gorm:"type:text" json:"comment,omitempty"`

	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"-"`
}
