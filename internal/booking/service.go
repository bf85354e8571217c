package booking

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mediflow-server/internal/models"
)

// MaxDistinctDoctors is the doctor-diversity cap: a patient may hold active
// appointments with at most this many different doctors at once.
const MaxDistinctDoctors = 5

// Service orchestrates appointment creation and lifecycle transitions.
type Service struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewService creates a booking Service on top of the given database handle.
func NewService(db *gorm.DB, log zerolog.Logger) *Service {
	return &Service{db: db, log: log}
}

// CreateRequest carries the patient's booking submission. Price is required
// for compatibility with existing clients but the stored price is always
// recomputed from the doctor's hourly fee and the duration.
type CreateRequest struct {
	DoctorID      string
	ScheduledAt   time.Time
	Type          models.AppointmentType
	Duration      models.ConsultationDuration
	Price         float64
	Illness       string
	SpecificNeeds string
	Questions     string
}

// Create validates and persists a new appointment in REQUESTED status.
// Validation short-circuits in order: required fields, scheduling window,
// doctor existence/availability, the distinct-doctor cap, slot conflict.
// The cap and conflict checks and the insert run in one transaction holding
// a row lock on the doctor profile, so two racing bookings for the same
// doctor serialize and at most one wins a given timestamp.
func (s *Service) Create(ctx context.Context, patientID string, req CreateRequest) (*models.Appointment, error) {
	if req.DoctorID == "" || req.ScheduledAt.IsZero() || req.Type == "" || req.Duration == "" || req.Price == 0 {
		return nil, newError(KindValidation, "doctorId, scheduledAt, type, duration and price are required")
	}
	if req.Type != models.TypeRegular && req.Type != models.TypeEmergency {
		return nil, newError(KindValidation, "unknown appointment type %q", req.Type)
	}
	if !req.Duration.Valid() {
		return nil, newError(KindValidation, "unknown consultation duration %q", req.Duration)
	}
	if req.ScheduledAt.Before(time.Now()) {
		return nil, newError(KindValidation, "appointment time must be in the future")
	}

	var appointment models.Appointment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		doctorQuery := tx.Where("user_id = ?", req.DoctorID)
		if tx.Dialector.Name() == "mysql" {
			// Serializes concurrent bookings per doctor. SQLite (used in
			// tests) rejects FOR UPDATE and serializes writes on its own.
			doctorQuery = doctorQuery.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var doctor models.DoctorProfile
		if err := doctorQuery.First(&doctor).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return newError(KindNotFound, "doctor not found")
			}
			return err
		}
		if !doctor.IsAvailable {
			return newError(KindValidation, "doctor is not accepting appointments")
		}

		var doctorIDs []string
		if err := tx.Model(&models.Appointment{}).
			Where("patient_id = ? AND status IN ?", patientID, models.ActiveStatuses).
			Distinct().
			Pluck("doctor_id", &doctorIDs).Error; err != nil {
			return err
		}
		if len(doctorIDs) >= MaxDistinctDoctors && !contains(doctorIDs, req.DoctorID) {
			return newError(KindCapacity,
				"you can only have appointments with a maximum of %d different doctors simultaneously", MaxDistinctDoctors)
		}

		var occupied int64
		if err := tx.Model(&models.Appointment{}).
			Where("doctor_id = ? AND scheduled_at = ? AND status IN ?", req.DoctorID, req.ScheduledAt, models.ActiveStatuses).
			Count(&occupied).Error; err != nil {
			return err
		}
		if occupied > 0 {
			return newError(KindConflict, "this time slot is already booked")
		}

		appointment = models.Appointment{
			PatientID:     patientID,
			DoctorID:      req.DoctorID,
			Status:        models.StatusRequested,
			Type:          req.Type,
			Duration:      req.Duration,
			ScheduledAt:   req.ScheduledAt,
			Illness:       req.Illness,
			SpecificNeeds: req.SpecificNeeds,
			Questions:     req.Questions,
			Price:         PriceFor(doctor.ConsultationFee, req.Duration),
		}
		return tx.Create(&appointment).Error
	})
	if err != nil {
		if e := AsError(err); e != nil {
			return nil, e
		}
		// A lost write race surfaces as a driver error rather than the
		// in-transaction conflict check. If the slot turned out taken, the
		// loser gets the same conflict it would have seen had the
		// transactions serialized cleanly.
		var occupied int64
		recheck := s.db.WithContext(ctx).Model(&models.Appointment{}).
			Where("doctor_id = ? AND scheduled_at = ? AND status IN ?", req.DoctorID, req.ScheduledAt, models.ActiveStatuses).
			Count(&occupied).Error
		if recheck == nil && occupied > 0 {
			return nil, newError(KindConflict, "this time slot is already booked")
		}
		s.log.Error().Err(err).Str("doctor_id", req.DoctorID).Msg("booking insert failed")
		return nil, newError(KindInternal, "failed to create appointment")
	}

	return &appointment, nil
}

// PriceFor derives an appointment price from the doctor's hourly fee.
func PriceFor(hourlyFee float64, duration models.ConsultationDuration) float64 {
	return hourlyFee * float64(duration.Minutes()) / 60
}

// ActiveForDoctor returns the doctor's active appointments, used by the slot
// listing to mask occupied times.
func (s *Service) ActiveForDoctor(ctx context.Context, doctorID string) ([]models.Appointment, error) {
	var appts []models.Appointment
	err := s.db.WithContext(ctx).
		Where("doctor_id = ? AND status IN ?", doctorID, models.ActiveStatuses).
		Find(&appts).Error
	if err != nil {
		s.log.Error().Err(err).Str("doctor_id", doctorID).Msg("active appointment query failed")
		return nil, newError(KindInternal, "failed to load appointments")
	}
	return appts, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
