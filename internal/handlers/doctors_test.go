package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mediflow-server/internal/booking"
	"mediflow-server/internal/middleware"
	"mediflow-server/internal/models"
)

// memoryCache is a map-backed cache for handler tests. Entries never expire,
// so anything served stale here would also be served stale by Redis inside
// the TTL window.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func openHandlerTestDB(t *testing.T) *gorm.DB {
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

func seedListedDoctor(t *testing.T, db *gorm.DB, fee float64) string {
	t.Helper()
	user := models.User{
		Email:              "doc@mediflow.test",
		Name:               "Dr Listed",
		Role:               models.RoleDoctor,
		IsVerified:         true,
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

func listedFee(t *testing.T, router *gin.Engine) float64 {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/doctors", nil)
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list doctors: status %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data []struct {
			ConsultationFee float64 `json:"consultationFee"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("expected one listed doctor, got %d", len(envelope.Data))
	}
	return envelope.Data[0].ConsultationFee
}

func TestListDoctorsCacheInvalidatedOnProfileUpdate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := openHandlerTestDB(t)
	doctorID := seedListedDoctor(t, db, 100)

	h := NewDoctorHandler(db, booking.NewService(db, zerolog.Nop()), newMemoryCache(), zerolog.Nop())

	router := gin.New()
	router.GET("/doctors", h.ListDoctors)
	router.PUT("/doctors/me/profile", func(c *gin.Context) {
		c.Set("actor", middleware.Actor{ID: doctorID, Role: models.RoleDoctor})
	}, h.UpdateOwnProfile)

	if fee := listedFee(t, router); fee != 100 {
		t.Fatalf("initial fee = %v, want 100", fee)
	}
	// Second read is served from the cache and must agree.
	if fee := listedFee(t, router); fee != 100 {
		t.Fatalf("cached fee = %v, want 100", fee)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/doctors/me/profile",
		strings.NewReader(`{"consultationFee": 150}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update profile: status %d: %s", rec.Code, rec.Body.String())
	}

	// The cache never expires entries in this test, so a stale 100 here
	// means the profile write did not invalidate the directory.
	if fee := listedFee(t, router); fee != 150 {
		t.Fatalf("fee after update = %v, want 150", fee)
	}
}
