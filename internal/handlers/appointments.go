package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mediflow-server/internal/booking"
	"mediflow-server/internal/middleware"
	"mediflow-server/internal/models"
	"mediflow-server/internal/realtime"
	"mediflow-server/internal/utils"
)

// AppointmentHandler exposes booking and lifecycle operations over HTTP. All
// domain rules live in the booking service; this layer binds requests, maps
// typed errors onto statuses and fires notifications.
type AppointmentHandler struct {
	DB      *gorm.DB
	Booking *booking.Service
	Notify  *Notifier
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, svc *booking.Service, notify *Notifier) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Booking: svc, Notify: notify}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	DoctorID      string    `json:"doctorId" binding:"required"`
	ScheduledAt   time.Time `json:"scheduledAt" binding:"required"`
	Type          string    `json:"type" binding:"required"`
	Duration      string    `json:"duration" binding:"required"`
	Price         float64   `json:"price" binding:"required"`
	Illness       string    `json:"illness"`
	SpecificNeeds string    `json:"specificNeeds"`
	Questions     string    `json:"questions"`
}

// CreateAppointment books a new appointment for the calling patient. The
// stored price is recomputed from the doctor's fee regardless of the value
// the client sent.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.Booking.Create(c.Request.Context(), actor.ID, booking.CreateRequest{
		DoctorID:      req.DoctorID,
		ScheduledAt:   req.ScheduledAt,
		Type:          models.AppointmentType(req.Type),
		Duration:      models.ConsultationDuration(req.Duration),
		Price:         req.Price,
		Illness:       req.Illness,
		SpecificNeeds: req.SpecificNeeds,
		Questions:     req.Questions,
	})
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	h.Notify.Notify(appointment.DoctorID, models.NotificationAppointment,
		"New appointment request",
		fmt.Sprintf("A patient requested an appointment on %s", appointment.ScheduledAt.Format(time.RFC1123)))
	h.Notify.AppointmentChanged(appointment, realtime.ChangeInsert)

	utils.Created(c, "Appointment requested successfully", appointment)
}

// ListAppointments returns the caller's appointments: patients see their own
// bookings, doctors their assigned ones, admins everything. An optional
// status query filters by lifecycle state.
func (h *AppointmentHandler) ListAppointments(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	query := h.DB.Preload("Patient").Preload("Doctor").Order("scheduled_at ASC")
	switch actor.Role {
	case models.RolePatient:
		query = query.Where("patient_id = ?", actor.ID)
	case models.RoleDoctor:
		query = query.Where("doctor_id = ?", actor.ID)
	case models.RoleAdmin:
		// Admins see everything.
	default:
		utils.Forbidden(c, "Unknown role")
		return
	}

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var appointments []models.Appointment
	if err := query.Find(&appointments).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointment fetches one appointment. Only the participants and admins
// may see it.
func (h *AppointmentHandler) GetAppointment(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	appointmentID := c.Param("id")

	var appointment models.Appointment
	if err := h.DB.Preload("Patient").Preload("Doctor").Preload("Payment").
		First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if actor.Role != models.RoleAdmin && actor.ID != appointment.PatientID && actor.ID != appointment.DoctorID {
		utils.Forbidden(c, "You are not a participant of this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateStatusRequest represents the request body for a lifecycle transition.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// UpdateStatus applies a lifecycle transition (accept, decline, cancel,
// complete). Rescheduling has its own endpoint because it needs a new time.
func (h *AppointmentHandler) UpdateStatus(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	appointmentID := c.Param("id")

	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.Booking.Transition(c.Request.Context(), appointmentID,
		booking.Actor{ID: actor.ID, Role: actor.Role},
		models.AppointmentStatus(req.Status), req.Notes)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	h.notifyStatusChange(actor.ID, appointment)
	h.Notify.AppointmentChanged(appointment, realtime.ChangeUpdate)

	utils.Success(c, "Appointment status updated", appointment)
}

// RescheduleRequest represents the request body for moving an appointment.
type RescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduledAt" binding:"required"`
	Notes       string    `json:"notes"`
}

// Reschedule moves an accepted appointment to a new time. The appointment
// returns to the doctor's queue for re-acceptance.
func (h *AppointmentHandler) Reschedule(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	appointmentID := c.Param("id")

	var req RescheduleRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, err := h.Booking.Reschedule(c.Request.Context(), appointmentID,
		booking.Actor{ID: actor.ID, Role: actor.Role},
		req.ScheduledAt, req.Notes)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	h.notifyStatusChange(actor.ID, appointment)
	h.Notify.AppointmentChanged(appointment, realtime.ChangeUpdate)

	utils.Success(c, "Appointment rescheduled", appointment)
}

// notifyStatusChange notifies the participant who did not perform the action.
func (h *AppointmentHandler) notifyStatusChange(actorID string, appointment *models.Appointment) {
	target := appointment.PatientID
	if actorID == appointment.PatientID {
		target = appointment.DoctorID
	}
	h.Notify.Notify(target, models.NotificationAppointment,
		"Appointment "+string(appointment.Status),
		fmt.Sprintf("Your appointment on %s is now %s", appointment.ScheduledAt.Format(time.RFC1123), appointment.Status))
}
