package handlers

import (
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"mediflow-server/internal/models"
	"mediflow-server/internal/realtime"
)

// Notifier persists in-app notifications and fans row changes out over the
// realtime hub. Failures are logged, never surfaced: a lost notification must
// not fail the operation that produced it.
type Notifier struct {
	DB  *gorm.DB
	Hub *realtime.Hub
	Log zerolog.Logger
}

// NewNotifier creates a Notifier.
func NewNotifier(db *gorm.DB, hub *realtime.Hub, log zerolog.Logger) *Notifier {
	return &Notifier{DB: db, Hub: hub, Log: log}
}

// Notify writes a notification row for the user and pushes it on their
// notifications topic.
func (n *Notifier) Notify(userID string, kind models.NotificationKind, title, body string) {
	notification := models.Notification{
		UserID: userID,
		Kind:   kind,
		Title:  title,
		Body:   body,
	}
	if err := n.DB.Create(&notification).Error; err != nil {
		n.Log.Error().Err(err).Str("user_id", userID).Msg("failed to store notification")
		return
	}
	n.Hub.PublishRow(realtime.NotificationsTopic(userID), "notifications", realtime.ChangeInsert, notification.ID, notification)
}

// AppointmentChanged pushes the appointment row to both participants.
func (n *Notifier) AppointmentChanged(appointment *models.Appointment, change realtime.Change) {
	for _, userID := range []string{appointment.PatientID, appointment.DoctorID} {
		n.Hub.PublishRow(realtime.AppointmentsTopic(userID), "appointments", change, appointment.ID, appointment)
	}
}

// MessageChanged pushes the message row to both ends of the conversation.
func (n *Notifier) MessageChanged(message *models.Message, change realtime.Change) {
	for _, userID := range []string{message.SenderID, message.ReceiverID} {
		n.Hub.PublishRow(realtime.MessagesTopic(userID), "messages", change, message.ID, message)
	}
}
