package booking

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mediflow-server/internal/models"
)

// openSharedTestDB opens an on-disk database that several connections can use
// at once. Transactions take the write lock up front so racing writers queue
// on the busy timeout instead of failing a mid-transaction lock upgrade.
func openSharedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "booking.db") + "?_txlock=immediate&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
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

func TestCreateConcurrentSameSlot(t *testing.T) {
	db := openSharedTestDB(t)
	svc := NewService(db, zerolog.Nop())
	doctorID := seedDoctor(t, db, "doc@mediflow.test", 100)
	patients := []string{
		seedPatient(t, db, "pat1@mediflow.test"),
		seedPatient(t, db, "pat2@mediflow.test"),
	}

	for round := 0; round < 3; round++ {
		slot := futureSlot(2+round, 10)

		errs := make([]error, len(patients))
		var wg sync.WaitGroup
		for i, patientID := range patients {
			wg.Add(1)
			go func(i int, patientID string) {
				defer wg.Done()
				_, errs[i] = svc.Create(context.Background(), patientID, validRequest(doctorID, slot))
			}(i, patientID)
		}
		wg.Wait()

		winners := 0
		for _, err := range errs {
			switch {
			case err == nil:
				winners++
			case KindOf(err) == KindConflict:
				// The loser must see the same conflict a sequential caller
				// would, never a bare storage error.
			default:
				t.Fatalf("round %d: loser got %v, want conflict", round, err)
			}
		}
		if winners != 1 {
			t.Fatalf("round %d: expected exactly one winner, got %d (errs=%v)", round, winners, errs)
		}

		var active int64
		if err := db.Model(&models.Appointment{}).
			Where("doctor_id = ? AND scheduled_at = ? AND status IN ?", doctorID, slot, models.ActiveStatuses).
			Count(&active).Error; err != nil {
			t.Fatalf("count active: %v", err)
		}
		if active != 1 {
			t.Fatalf("round %d: expected one active appointment in the slot, got %d", round, active)
		}
	}
}
