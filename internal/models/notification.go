package models

// NotificationKind names the event that produced a notification.
type NotificationKind string

const (
	NotificationAppointment NotificationKind = "APPOINTMENT"
	NotificationMessage     NotificationKind = "MESSAGE"
	NotificationSystem      NotificationKind = "SYSTEM"
)

// Notification is an in-app notification row; delivery to connected clients
// happens over the realtime hub.
type Notification struct {
	BaseModel
	UserID string           `gorm:"size:36;index;not null" json:"userId"`
	Kind   NotificationKind `gorm:"size:30;not null" json:"kind"`
	Title  string           `gorm:"size:255;not null" json:"title"`
	Body   string           `gorm:"type:text" json:"body,omitempty"`
	IsRead bool             `gorm:"default:false" json:"isRead"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
