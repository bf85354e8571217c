package booking

import (
	"context"
	"testing"
	"time"

	"mediflow-server/internal/models"
)

type fixture struct {
	svc       *Service
	doctorID  string
	patientID string
	appt      *models.Appointment
}

func newLifecycleFixture(t *testing.T) *fixture {
	t.Helper()
	svc, db := newTestService(t)
	doctorID := seedDoctor(t, db, "doc@mediflow.test", 100)
	patientID := seedPatient(t, db, "pat@mediflow.test")
	appt, err := svc.Create(context.Background(), patientID, validRequest(doctorID, futureSlot(2, 10)))
	if err != nil {
		t.Fatalf("seed appointment: %v", err)
	}
	return &fixture{svc: svc, doctorID: doctorID, patientID: patientID, appt: appt}
}

func (f *fixture) doctor() Actor  { return Actor{ID: f.doctorID, Role: models.RoleDoctor} }
func (f *fixture) patient() Actor { return Actor{ID: f.patientID, Role: models.RolePatient} }

func TestTransitionAcceptByDoctor(t *testing.T) {
	f := newLifecycleFixture(t)

	appt, err := f.svc.Transition(context.Background(), f.appt.ID, f.doctor(), models.StatusAccepted, "")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if appt.Status != models.StatusAccepted {
		t.Errorf("expected ACCEPTED, got %s", appt.Status)
	}
}

func TestTransitionAcceptByPatientForbidden(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.svc.Transition(context.Background(), f.appt.ID, f.patient(), models.StatusAccepted, "")
	if KindOf(err) != KindAuthorization {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestTransitionAcceptByOtherDoctorForbidden(t *testing.T) {
	f := newLifecycleFixture(t)
	other := Actor{ID: "someone-else", Role: models.RoleDoctor}

	_, err := f.svc.Transition(context.Background(), f.appt.ID, other, models.StatusAccepted, "")
	if KindOf(err) != KindAuthorization {
		t.Fatalf("expected authorization error, got %v", err)
	}
}

func TestTransitionDeclinedIsTerminal(t *testing.T) {
	f := newLifecycleFixture(t)

	if _, err := f.svc.Transition(context.Background(), f.appt.ID, f.doctor(), models.StatusDeclined, ""); err != nil {
		t.Fatalf("decline: %v", err)
	}

	for _, target := range []models.AppointmentStatus{
		models.StatusAccepted, models.StatusCancelled, models.StatusCompleted, models.StatusDeclined,
	} {
		_, err := f.svc.Transition(context.Background(), f.appt.ID, f.doctor(), target, "")
		if KindOf(err) != KindInvalidTransition {
			t.Errorf("DECLINED -> %s: expected invalid_transition, got %v", target, err)
		}
	}
}

func TestTransitionCancelByEitherParticipant(t *testing.T) {
	f := newLifecycleFixture(t)
	if _, err := f.svc.Transition(context.Background(), f.appt.ID, f.patient(), models.StatusCancelled, "cannot make it"); err != nil {
		t.Fatalf("patient cancel from REQUESTED: %v", err)
	}

	f = newLifecycleFixture(t)
	if _, err := f.svc.Transition(context.Background(), f.appt.ID, f.doctor(), models.StatusAccepted, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.Transition(context.Background(), f.appt.ID, f.doctor(), models.StatusCancelled, ""); err != nil {
		t.Fatalf("doctor cancel from ACCEPTED: %v", err)
	}
}

func TestTransitionCompleteRequiresAccepted(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.svc.Transition(context.Background(), f.appt.ID, f.doctor(), models.StatusCompleted, "")
	if KindOf(err) != KindInvalidTransition {
		t.Fatalf("REQUESTED -> COMPLETED: expected invalid_transition, got %v", err)
	}
}

func TestTransitionCompleteBumpsConsultations(t *testing.T) {
	f := newLifecycleFixture(t)
	if _, err := f.svc.Transition(context.Background(), f.appt.ID, f.doctor(), models.StatusAccepted, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := f.svc.Transition(context.Background(), f.appt.ID, f.doctor(), models.StatusCompleted, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	var profile models.DoctorProfile
	if err := f.svc.db.First(&profile, "user_id = ?", f.doctorID).Error; err != nil {
		t.Fatalf("load profile: %v", err)
	}
	if profile.TotalConsultations != 1 {
		t.Errorf("expected 1 consultation, got %d", profile.TotalConsultations)
	}
}

func TestTransitionUnknownAppointment(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.svc.Transition(context.Background(), "missing-id", f.doctor(), models.StatusAccepted, "")
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestTransitionToRescheduledRejected(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.svc.Transition(context.Background(), f.appt.ID, f.doctor(), models.StatusRescheduled, "")
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRescheduleAcceptedAppointment(t *testing.T) {
	f := newLifecycleFixture(t)
	if _, err := f.svc.Transition(context.Background(), f.appt.ID, f.doctor(), models.StatusAccepted, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}

	newTime := futureSlot(4, 11)
	appt, err := f.svc.Reschedule(context.Background(), f.appt.ID, f.patient(), newTime, "")
	if err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if appt.Status != models.StatusRescheduled {
		t.Errorf("expected RESCHEDULED, got %s", appt.Status)
	}
	if !appt.ScheduledAt.Equal(newTime) {
		t.Errorf("expected %v, got %v", newTime, appt.ScheduledAt)
	}

	// The doctor re-accepts the moved appointment.
	if _, err := f.svc.Transition(context.Background(), f.appt.ID, f.doctor(), models.StatusAccepted, ""); err != nil {
		t.Fatalf("re-accept: %v", err)
	}
}

func TestRescheduleRequestedRejected(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.svc.Reschedule(context.Background(), f.appt.ID, f.patient(), futureSlot(4, 11), "")
	if KindOf(err) != KindInvalidTransition {
		t.Fatalf("expected invalid_transition for REQUESTED, got %v", err)
	}
}

func TestRescheduleIntoOccupiedSlot(t *testing.T) {
	f := newLifecycleFixture(t)

	// Book a second appointment occupying the target slot.
	target := futureSlot(4, 11)
	secondPatient := seedPatient(t, f.svc.db, "pat2@mediflow.test")
	if _, err := f.svc.Create(context.Background(), secondPatient, validRequest(f.doctorID, target)); err != nil {
		t.Fatalf("occupy target slot: %v", err)
	}

	if _, err := f.svc.Transition(context.Background(), f.appt.ID, f.doctor(), models.StatusAccepted, ""); err != nil {
		t.Fatalf("accept: %v", err)
	}
	_, err := f.svc.Reschedule(context.Background(), f.appt.ID, f.patient(), target, "")
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestReschedulePastTime(t *testing.T) {
	f := newLifecycleFixture(t)

	_, err := f.svc.Reschedule(context.Background(), f.appt.ID, f.patient(), time.Now().Add(-time.Hour), "")
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
