package booking

import (
	"context"
	"time"

	"gorm.io/gorm"

	"mediflow-server/internal/models"
)

// Actor identifies who is attempting a lifecycle action.
type Actor struct {
	ID   string
	Role models.Role
}

// transitions is the enforced lifecycle table. DECLINED, COMPLETED and
// CANCELLED are terminal.
var transitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusRequested:   {models.StatusAccepted, models.StatusDeclined, models.StatusCancelled},
	models.StatusAccepted:    {models.StatusCompleted, models.StatusCancelled, models.StatusRescheduled},
	models.StatusRescheduled: {models.StatusAccepted, models.StatusCancelled},
}

// CanTransition reports whether from -> to is in the lifecycle table.
func CanTransition(from, to models.AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition applies a status change to an appointment after checking the
// lifecycle table and the actor's authority. Accepting, declining and
// completing are restricted to the assigned doctor; cancelling is open to
// either participant while the appointment is active; admins may perform any
// in-table transition. Completing an appointment bumps the doctor's
// consultation counter.
func (s *Service) Transition(ctx context.Context, appointmentID string, actor Actor, newStatus models.AppointmentStatus, notes string) (*models.Appointment, error) {
	if newStatus == models.StatusRescheduled {
		return nil, newError(KindValidation, "rescheduling requires a new time; use the reschedule operation")
	}

	var appointment models.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&appointment, "id = ?", appointmentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return newError(KindNotFound, "appointment not found")
			}
			return err
		}

		if !CanTransition(appointment.Status, newStatus) {
			return newError(KindInvalidTransition, "cannot move appointment from %s to %s", appointment.Status, newStatus)
		}
		if err := authorizeTransition(&appointment, actor, newStatus); err != nil {
			return err
		}

		appointment.Status = newStatus
		if notes != "" {
			appointment.Notes = notes
		}
		if err := tx.Save(&appointment).Error; err != nil {
			return err
		}

		if newStatus == models.StatusCompleted {
			if err := tx.Model(&models.DoctorProfile{}).
				Where("user_id = ?", appointment.DoctorID).
				UpdateColumn("total_consultations", gorm.Expr("total_consultations + 1")).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if e := AsError(err); e != nil {
			return nil, e
		}
		s.log.Error().Err(err).Str("appointment_id", appointmentID).Msg("transition failed")
		return nil, newError(KindInternal, "failed to update appointment")
	}

	return &appointment, nil
}

func authorizeTransition(appointment *models.Appointment, actor Actor, newStatus models.AppointmentStatus) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}

	switch newStatus {
	case models.StatusAccepted, models.StatusDeclined, models.StatusCompleted:
		if actor.Role != models.RoleDoctor || actor.ID != appointment.DoctorID {
			return newError(KindAuthorization, "only the assigned doctor can set status %s", newStatus)
		}
	case models.StatusCancelled:
		if actor.ID != appointment.PatientID && actor.ID != appointment.DoctorID {
			return newError(KindAuthorization, "only a participant can cancel this appointment")
		}
	default:
		return newError(KindAuthorization, "status %s cannot be set directly", newStatus)
	}
	return nil
}

// Reschedule moves an accepted appointment to a new time, conflict-checking
// the target slot and marking the appointment RESCHEDULED until the doctor
// re-accepts it. Either participant may reschedule.
func (s *Service) Reschedule(ctx context.Context, appointmentID string, actor Actor, newTime time.Time, notes string) (*models.Appointment, error) {
	if newTime.IsZero() {
		return nil, newError(KindValidation, "a new appointment time is required")
	}
	if newTime.Before(time.Now()) {
		return nil, newError(KindValidation, "new appointment time must be in the future")
	}

	var appointment models.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&appointment, "id = ?", appointmentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return newError(KindNotFound, "appointment not found")
			}
			return err
		}

		if !CanTransition(appointment.Status, models.StatusRescheduled) {
			return newError(KindInvalidTransition, "cannot reschedule an appointment in status %s", appointment.Status)
		}
		if actor.Role != models.RoleAdmin && actor.ID != appointment.PatientID && actor.ID != appointment.DoctorID {
			return newError(KindAuthorization, "only a participant can reschedule this appointment")
		}

		var occupied int64
		if err := tx.Model(&models.Appointment{}).
			Where("doctor_id = ? AND scheduled_at = ? AND status IN ? AND id <> ?",
				appointment.DoctorID, newTime, models.ActiveStatuses, appointment.ID).
			Count(&occupied).Error; err != nil {
			return err
		}
		if occupied > 0 {
			return newError(KindConflict, "this time slot is already booked")
		}

		appointment.ScheduledAt = newTime
		appointment.Status = models.StatusRescheduled
		if notes != "" {
			appointment.Notes = notes
		}
		return tx.Save(&appointment).Error
	})
	if err != nil {
		if e := AsError(err); e != nil {
			return nil, e
		}
		s.log.Error().Err(err).Str("appointment_id", appointmentID).Msg("reschedule failed")
		return nil, newError(KindInternal, "failed to reschedule appointment")
	}

	return &appointment, nil
}
