package models

// AvailabilityWindow is a weekly recurring window during which a doctor
// accepts bookings. Times are wall-clock strings ("15:04"); day of week is
// 0 (Sunday) through 6. A blocked window suppresses slots for one-off
// closures without deleting the row.
type AvailabilityWindow struct {
	BaseModel
	DoctorID  string `gorm:"size:36;index;not null" json:"doctorId"`
	DayOfWeek int    `gorm:"not null" json:"dayOfWeek"`
	StartTime string `gorm:"size:5;not null" json:"startTime"`
	EndTime   string `gorm:"size:5;not null" json:"endTime"`
	IsBlocked bool   `gorm:"default:false" json:"isBlocked"`

	Doctor User `gorm:"foreignKey:DoctorID" json:"-"`
}
