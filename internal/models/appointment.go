package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusRequested   AppointmentStatus = "REQUESTED"
	StatusAccepted    AppointmentStatus = "ACCEPTED"
	StatusDeclined    AppointmentStatus = "DECLINED"
	StatusRescheduled AppointmentStatus = "RESCHEDULED"
	StatusCompleted   AppointmentStatus = "COMPLETED"
	StatusCancelled   AppointmentStatus = "CANCELLED"
)

// ActiveStatuses are the statuses that occupy a slot and count toward the
// five-distinct-doctors cap.
var ActiveStatuses = []AppointmentStatus{StatusRequested, StatusAccepted, StatusRescheduled}

// IsActive reports whether the status occupies a slot.
func (s AppointmentStatus) IsActive() bool {
	return s == StatusRequested || s == StatusAccepted || s == StatusRescheduled
}

// AppointmentType distinguishes regular bookings from emergencies.
type AppointmentType string

const (
	TypeRegular   AppointmentType = "REGULAR"
	TypeEmergency AppointmentType = "EMERGENCY"
)

// ConsultationDuration is the fixed set of bookable lengths.
type ConsultationDuration string

const (
	DurationMinutes10 ConsultationDuration = "MINUTES_10"
	DurationMinutes30 ConsultationDuration = "MINUTES_30"
	DurationHours1    ConsultationDuration = "HOURS_1"
	DurationHours2    ConsultationDuration = "HOURS_2"
)

// Minutes returns the length of the consultation, or 0 for an unknown value.
func (d ConsultationDuration) Minutes() int {
	switch d {
	case DurationMinutes10:
		return 10
	case DurationMinutes30:
		return 30
	case DurationHours1:
		return 60
	case DurationHours2:
		return 120
	}
	return 0
}

// Valid reports whether d is one of the bookable lengths.
func (d ConsultationDuration) Valid() bool {
	return d.Minutes() > 0
}

// Appointment represents a scheduled consultation between one patient and one
// doctor. Price is derived from the doctor's hourly fee and the duration; it
// is recomputed server-side on creation.
type Appointment struct {
	BaseModel
	PatientID     string               `gorm:"size:36;index;not null" json:"patientId"`
	DoctorID      string               `gorm:"size:36;index;not null" json:"doctorId"`
	Status        AppointmentStatus    `gorm:"size:20;default:'REQUESTED';index" json:"status"`
	Type          AppointmentType      `gorm:"size:20;default:'REGULAR'" json:"type"`
	Duration      ConsultationDuration `gorm:"size:20;not null" json:"duration"`
	ScheduledAt   time.Time            `gorm:"index;not null" json:"scheduledAt"`
	Illness       string               `gorm:"type:text" json:"illness,omitempty"`
	SpecificNeeds string               `gorm:"type:text" json:"specificNeeds,omitempty"`
	Questions     string               `gorm:"type:text" json:"questions,omitempty"`
	Price         float64              `gorm:"not null" json:"price"`
	PaymentID     *string              `gorm:"size:36" json:"paymentId,omitempty"`
	Notes         string               `gorm:"type:text" json:"notes,omitempty"`

	// Relations
	Patient User     `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User     `gorm:"foreignKey:DoctorID" json:"-"`
	Payment *Payment `gorm:"foreignKey:AppointmentID" json:"payment,omitempty"`
}

// End returns the exclusive end of the appointment's time interval.
func (a *Appointment) End() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.Duration.Minutes()) * time.Minute)
}
