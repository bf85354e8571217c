package booking

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mediflow-server/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := openTestDB(t)
	return NewService(db, zerolog.Nop()), db
}

func seedDoctor(t *testing.T, db *gorm.DB, email string, fee float64) string {
	t.Helper()
	user := models.User{
		Email:              email,
		Name:               "Dr " + email,
		Role:               models.RoleDoctor,
		VerificationStatus: models.VerificationVerified,
	}
	if err := user.SetPassword("secret123"); err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create doctor user: %v", err)
	}
	profile := models.DoctorProfile{
		UserID:          user.ID,
		Specialty:       "Cardiology",
		ConsultationFee: fee,
		IsAvailable:     true,
	}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("create doctor profile: %v", err)
	}
	return user.ID
}

func seedPatient(t *testing.T, db *gorm.DB, email string) string {
	t.Helper()
	user := models.User{Email: email, Name: email, Role: models.RolePatient}
	if err := user.SetPassword("secret123"); err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return user.ID
}

func futureSlot(days int, hour int) time.Time {
	return time.Now().AddDate(0, 0, days).Truncate(time.Hour).Add(time.Duration(hour) * time.Hour)
}

func validRequest(doctorID string, at time.Time) CreateRequest {
	return CreateRequest{
		DoctorID:    doctorID,
		ScheduledAt: at,
		Type:        models.TypeRegular,
		Duration:    models.DurationMinutes30,
		Price:       50,
	}
}

func TestCreateBooking(t *testing.T) {
	svc, db := newTestService(t)
	doctorID := seedDoctor(t, db, "doc@mediflow.test", 100)
	patientID := seedPatient(t, db, "pat@mediflow.test")

	appt, err := svc.Create(context.Background(), patientID, validRequest(doctorID, futureSlot(2, 10)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if appt.Status != models.StatusRequested {
		t.Errorf("expected REQUESTED, got %s", appt.Status)
	}
	if appt.Price != 50 {
		t.Errorf("expected price 50 for 30m at $100/h, got %v", appt.Price)
	}
	if appt.PatientID != patientID || appt.DoctorID != doctorID {
		t.Error("participants not recorded")
	}
}

func TestCreateBookingRecomputesPrice(t *testing.T) {
	svc, db := newTestService(t)
	doctorID := seedDoctor(t, db, "doc@mediflow.test", 100)
	patientID := seedPatient(t, db, "pat@mediflow.test")

	req := validRequest(doctorID, futureSlot(2, 10))
	req.Duration = models.DurationHours1
	req.Price = 1 // client-supplied price is not trusted

	appt, err := svc.Create(context.Background(), patientID, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if appt.Price != 100 {
		t.Errorf("expected server-side price 100, got %v", appt.Price)
	}
}

func TestCreateBookingMissingFields(t *testing.T) {
	svc, db := newTestService(t)
	doctorID := seedDoctor(t, db, "doc@mediflow.test", 100)
	patientID := seedPatient(t, db, "pat@mediflow.test")

	cases := []struct {
		name   string
		mutate func(*CreateRequest)
	}{
		{"no doctor", func(r *CreateRequest) { r.DoctorID = "" }},
		{"no time", func(r *CreateRequest) { r.ScheduledAt = time.Time{} }},
		{"no type", func(r *CreateRequest) { r.Type = "" }},
		{"no duration", func(r *CreateRequest) { r.Duration = "" }},
		{"no price", func(r *CreateRequest) { r.Price = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest(doctorID, futureSlot(2, 10))
			tc.mutate(&req)
			_, err := svc.Create(context.Background(), patientID, req)
			if KindOf(err) != KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreateBookingPastTime(t *testing.T) {
	svc, db := newTestService(t)
	doctorID := seedDoctor(t, db, "doc@mediflow.test", 100)
	patientID := seedPatient(t, db, "pat@mediflow.test")

	req := validRequest(doctorID, time.Now().Add(-time.Hour))
	if _, err := svc.Create(context.Background(), patientID, req); KindOf(err) != KindValidation {
		t.Fatalf("expected validation error for past time, got %v", err)
	}
}

func TestCreateBookingUnknownDoctor(t *testing.T) {
	svc, db := newTestService(t)
	patientID := seedPatient(t, db, "pat@mediflow.test")

	req := validRequest("00000000-0000-0000-0000-000000000000", futureSlot(2, 10))
	if _, err := svc.Create(context.Background(), patientID, req); KindOf(err) != KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestCreateBookingUnavailableDoctor(t *testing.T) {
	svc, db := newTestService(t)
	doctorID := seedDoctor(t, db, "doc@mediflow.test", 100)
	patientID := seedPatient(t, db, "pat@mediflow.test")
	if err := db.Model(&models.DoctorProfile{}).Where("user_id = ?", doctorID).
		Update("is_available", false).Error; err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, err := svc.Create(context.Background(), patientID, validRequest(doctorID, futureSlot(2, 10))); KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateBookingSlotConflict(t *testing.T) {
	svc, db := newTestService(t)
	doctorID := seedDoctor(t, db, "doc@mediflow.test", 100)
	first := seedPatient(t, db, "pat1@mediflow.test")
	second := seedPatient(t, db, "pat2@mediflow.test")

	slot := futureSlot(2, 10)
	if _, err := svc.Create(context.Background(), first, validRequest(doctorID, slot)); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	// Exact same timestamp loses.
	if _, err := svc.Create(context.Background(), second, validRequest(doctorID, slot)); KindOf(err) != KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	// A different timestamp with the same doctor succeeds.
	if _, err := svc.Create(context.Background(), second, validRequest(doctorID, slot.Add(30*time.Minute))); err != nil {
		t.Fatalf("second booking at free slot: %v", err)
	}
}

func TestCreateBookingCancelledSlotIsFree(t *testing.T) {
	svc, db := newTestService(t)
	doctorID := seedDoctor(t, db, "doc@mediflow.test", 100)
	first := seedPatient(t, db, "pat1@mediflow.test")
	second := seedPatient(t, db, "pat2@mediflow.test")

	slot := futureSlot(2, 10)
	appt, err := svc.Create(context.Background(), first, validRequest(doctorID, slot))
	if err != nil {
		t.Fatalf("first booking: %v", err)
	}
	if _, err := svc.Transition(context.Background(), appt.ID, Actor{ID: first, Role: models.RolePatient}, models.StatusCancelled, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := svc.Create(context.Background(), second, validRequest(doctorID, slot)); err != nil {
		t.Fatalf("cancelled appointment must release the slot: %v", err)
	}
}

func TestCreateBookingDoctorCap(t *testing.T) {
	svc, db := newTestService(t)
	patientID := seedPatient(t, db, "pat@mediflow.test")

	doctors := make([]string, 0, MaxDistinctDoctors)
	for i := 0; i < MaxDistinctDoctors; i++ {
		id := seedDoctor(t, db, fmt.Sprintf("doc%d@mediflow.test", i), 100)
		doctors = append(doctors, id)
		if _, err := svc.Create(context.Background(), patientID, validRequest(id, futureSlot(2, 9+i))); err != nil {
			t.Fatalf("booking with doctor %d: %v", i, err)
		}
	}

	sixth := seedDoctor(t, db, "doc-extra@mediflow.test", 100)
	if _, err := svc.Create(context.Background(), patientID, validRequest(sixth, futureSlot(3, 9))); KindOf(err) != KindCapacity {
		t.Fatalf("expected capacity error for sixth distinct doctor, got %v", err)
	}

	// Another appointment with an already-present doctor is fine.
	if _, err := svc.Create(context.Background(), patientID, validRequest(doctors[0], futureSlot(3, 10))); err != nil {
		t.Fatalf("repeat doctor booking: %v", err)
	}
}

func TestCreateBookingCapIgnoresInactive(t *testing.T) {
	svc, db := newTestService(t)
	patientID := seedPatient(t, db, "pat@mediflow.test")

	var appts []*models.Appointment
	for i := 0; i < MaxDistinctDoctors; i++ {
		id := seedDoctor(t, db, fmt.Sprintf("doc%d@mediflow.test", i), 100)
		a, err := svc.Create(context.Background(), patientID, validRequest(id, futureSlot(2, 9+i)))
		if err != nil {
			t.Fatalf("booking with doctor %d: %v", i, err)
		}
		appts = append(appts, a)
	}

	// Cancelling one frees a cap slot.
	if _, err := svc.Transition(context.Background(), appts[0].ID, Actor{ID: patientID, Role: models.RolePatient}, models.StatusCancelled, ""); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	sixth := seedDoctor(t, db, "doc-extra@mediflow.test", 100)
	if _, err := svc.Create(context.Background(), patientID, validRequest(sixth, futureSlot(3, 9))); err != nil {
		t.Fatalf("expected booking to succeed after cancellation, got %v", err)
	}
}

func TestPriceFor(t *testing.T) {
	cases := []struct {
		duration models.ConsultationDuration
		want     float64
	}{
		{models.DurationMinutes10, 100.0 / 6},
		{models.DurationMinutes30, 50},
		{models.DurationHours1, 100},
		{models.DurationHours2, 200},
	}
	for _, tc := range cases {
		got := PriceFor(100, tc.duration)
		diff := got - tc.want
		if diff < -1e-9 || diff > 1e-9 {
			t.Errorf("%s: expected %v, got %v", tc.duration, tc.want, got)
		}
	}
}
