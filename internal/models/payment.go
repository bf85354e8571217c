package models

// PaymentStatus values mirror the processor's lifecycle; only the record is
// kept here, capture happens outside this service.
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusSucceeded = "SUCCEEDED"
	PaymentStatusFailed    = "FAILED"
)

// Payment links an appointment to an external payment processor charge.
type Payment struct {
	BaseModel
	UserID        string  `gorm:"size:36;index;not null" json:"userId"`
	AppointmentID string  `gorm:"size:36;uniqueIndex;not null" json:"appointmentId"`
	Amount        float64 `gorm:"not null" json:"amount"`
	Status        string  `gorm:"size:20;default:'PENDING'" json:"status"`
	StripeID      string  `gorm:"size:255" json:"stripeId,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
