package handlers

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mediflow-server/internal/booking"
	"mediflow-server/internal/cache"
	"mediflow-server/internal/middleware"
	"mediflow-server/internal/models"
	"mediflow-server/internal/scheduling"
	"mediflow-server/internal/utils"
)

// directoryCacheTTL bounds how stale a directory entry may get on paths that
// bypass the invalidation hook, such as admin verification changing
// membership.
const directoryCacheTTL = 2 * time.Minute

const (
	directoryCachePrefix = "doctors:search:"
	directoryCacheGenKey = "doctors:search:gen"
)

// DoctorHandler serves the doctor directory, availability windows and slot
// listings.
type DoctorHandler struct {
	DB      *gorm.DB
	Booking *booking.Service
	Cache   cache.Cache
	Log     zerolog.Logger
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(db *gorm.DB, svc *booking.Service, c cache.Cache, log zerolog.Logger) *DoctorHandler {
	return &DoctorHandler{DB: db, Booking: svc, Cache: c, Log: log}
}

// directoryCacheKey namespaces directory entries under a generation value so
// one profile write invalidates every cached query at once.
func (h *DoctorHandler) directoryCacheKey(ctx context.Context, rawQuery string) string {
	gen := "0"
	if v, ok, err := h.Cache.Get(ctx, directoryCacheGenKey); err == nil && ok {
		gen = string(v)
	}
	return directoryCachePrefix + gen + ":" + rawQuery
}

// invalidateDirectoryCache moves the directory to a fresh generation. Entries
// under old generations become unreachable and expire by TTL.
func (h *DoctorHandler) invalidateDirectoryCache(ctx context.Context) {
	gen := strconv.FormatInt(time.Now().UnixNano(), 10)
	if err := h.Cache.Set(ctx, directoryCacheGenKey, []byte(gen), 0); err != nil {
		h.Log.Warn().Err(err).Msg("doctor directory cache invalidation failed")
	}
}

// DoctorListing is the directory entry shape: practice data joined with the
// doctor's public account fields.
type DoctorListing struct {
	models.DoctorProfile
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// ListDoctors searches the doctor directory. Filters combine with AND:
// specialty (exact), location (substring), minRating, maxFee, available,
// and q (substring across name, specialty and bio). Only verified, active
// doctor accounts appear. Results are ordered rating descending and cached.
func (h *DoctorHandler) ListDoctors(c *gin.Context) {
	cacheKey := h.directoryCacheKey(c.Request.Context(), c.Request.URL.RawQuery)
	if payload, ok, err := h.Cache.Get(c.Request.Context(), cacheKey); err == nil && ok {
		var listings []DoctorListing
		if json.Unmarshal(payload, &listings) == nil {
			utils.Success(c, "Doctors fetched successfully", listings)
			return
		}
	} else if err != nil {
		h.Log.Warn().Err(err).Msg("doctor directory cache read failed")
	}

	query := h.DB.Model(&models.DoctorProfile{}).
		Select("doctor_profiles.*, users.name AS name, users.avatar AS avatar").
		Joins("JOIN users ON users.id = doctor_profiles.user_id").
		Where("users.verification_status = ? AND users.account_status = ?", models.VerificationVerified, models.AccountActive)

	if specialty := c.Query("specialty"); specialty != "" {
		query = query.Where("doctor_profiles.specialty = ?", specialty)
	}
	if location := c.Query("location"); location != "" {
		query = query.Where("doctor_profiles.location LIKE ?", "%"+location+"%")
	}
	if minRating := c.Query("minRating"); minRating != "" {
		rating, err := strconv.ParseFloat(minRating, 64)
		if err != nil {
			utils.BadRequest(c, "Invalid minRating")
			return
		}
		query = query.Where("doctor_profiles.rating >= ?", rating)
	}
	if maxFee := c.Query("maxFee"); maxFee != "" {
		fee, err := strconv.ParseFloat(maxFee, 64)
		if err != nil {
			utils.BadRequest(c, "Invalid maxFee")
			return
		}
		query = query.Where("doctor_profiles.consultation_fee <= ?", fee)
	}
	if available := c.Query("available"); available == "true" {
		query = query.Where("doctor_profiles.is_available = ?", true)
	}
	if q := c.Query("q"); q != "" {
		like := "%" + q + "%"
		query = query.Where("users.name LIKE ? OR doctor_profiles.specialty LIKE ? OR doctor_profiles.bio LIKE ?", like, like, like)
	}

	var listings []DoctorListing
	if err := query.Order("doctor_profiles.rating DESC").Find(&listings).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch doctors: "+err.Error())
		return
	}

	if payload, err := json.Marshal(listings); err == nil {
		if err := h.Cache.Set(c.Request.Context(), cacheKey, payload, directoryCacheTTL); err != nil {
			h.Log.Warn().Err(err).Msg("doctor directory cache write failed")
		}
	}

	utils.Success(c, "Doctors fetched successfully", listings)
}

// GetDoctor fetches a single doctor's listing by user ID.
func (h *DoctorHandler) GetDoctor(c *gin.Context) {
	doctorID := c.Param("id")

	var listing DoctorListing
	err := h.DB.Model(&models.DoctorProfile{}).
		Select("doctor_profiles.*, users.name AS name, users.avatar AS avatar").
		Joins("JOIN users ON users.id = doctor_profiles.user_id").
		Where("doctor_profiles.user_id = ?", doctorID).
		First(&listing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Doctor fetched successfully", listing)
}

// GetAvailability lists a doctor's weekly availability windows.
func (h *DoctorHandler) GetAvailability(c *gin.Context) {
	doctorID := c.Param("id")

	var windows []models.AvailabilityWindow
	if err := h.DB.Where("doctor_id = ?", doctorID).
		Order("day_of_week ASC, start_time ASC").
		Find(&windows).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch availability: "+err.Error())
		return
	}

	utils.Success(c, "Availability fetched successfully", windows)
}

// ListSlots expands a doctor's windows into bookable start times for one
// date, masking times covered by active appointments. Query params: date
// (YYYY-MM-DD, required) and duration (consultation duration, defaults to
// thirty minutes).
func (h *DoctorHandler) ListSlots(c *gin.Context) {
	doctorID := c.Param("id")

	dateStr := c.Query("date")
	if dateStr == "" {
		utils.BadRequest(c, "date query parameter is required (YYYY-MM-DD)")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		utils.BadRequest(c, "Invalid date, expected YYYY-MM-DD")
		return
	}

	duration := models.ConsultationDuration(c.DefaultQuery("duration", string(models.DurationMinutes30)))
	if !duration.Valid() {
		utils.BadRequest(c, "Unknown consultation duration")
		return
	}

	var doctor models.DoctorProfile
	if err := h.DB.Where("user_id = ?", doctorID).First(&doctor).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var windows []models.AvailabilityWindow
	if err := h.DB.Where("doctor_id = ?", doctorID).Find(&windows).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch availability: "+err.Error())
		return
	}

	starts, err := scheduling.GenerateSlots(windows, date)
	if err != nil {
		utils.InternalServerError(c, "Failed to expand availability: "+err.Error())
		return
	}

	booked, err := h.Booking.ActiveForDoctor(c.Request.Context(), doctorID)
	if err != nil {
		utils.DomainError(c, err)
		return
	}

	slots := scheduling.MaskBooked(starts, time.Duration(duration.Minutes())*time.Minute, booked)
	utils.Success(c, "Slots fetched successfully", gin.H{
		"date":     dateStr,
		"duration": duration,
		"slots":    slots,
	})
}

// AvailabilityWindowRequest is the body for creating or updating a window.
type AvailabilityWindowRequest struct {
	DayOfWeek int    `json:"dayOfWeek"`
	StartTime string `json:"startTime" binding:"required"`
	EndTime   string `json:"endTime" binding:"required"`
	IsBlocked bool   `json:"isBlocked"`
}

// CreateWindow adds a weekly window to the calling doctor's schedule. The
// window must be internally valid and must not overlap an existing window on
// the same weekday.
func (h *DoctorHandler) CreateWindow(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var req AvailabilityWindowRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	window := models.AvailabilityWindow{
		DoctorID:  actor.ID,
		DayOfWeek: req.DayOfWeek,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		IsBlocked: req.IsBlocked,
	}
	if err := scheduling.ValidateWindow(window); err != nil {
		utils.BadRequest(c, "Invalid availability window: "+err.Error())
		return
	}

	var existing []models.AvailabilityWindow
	if err := h.DB.Where("doctor_id = ? AND day_of_week = ?", actor.ID, req.DayOfWeek).Find(&existing).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	for _, other := range existing {
		overlap, err := scheduling.WindowsOverlap(window, other)
		if err != nil {
			utils.InternalServerError(c, "Stored window is malformed: "+err.Error())
			return
		}
		if overlap {
			utils.Conflict(c, "Window overlaps an existing window on that day")
			return
		}
	}

	if err := h.DB.Create(&window).Error; err != nil {
		utils.InternalServerError(c, "Failed to create window: "+err.Error())
		return
	}

	utils.Created(c, "Availability window created", window)
}

// UpdateWindow edits one of the calling doctor's windows, re-checking the
// overlap invariant against the other windows.
func (h *DoctorHandler) UpdateWindow(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	windowID := c.Param("windowId")

	var window models.AvailabilityWindow
	if err := h.DB.Where("id = ? AND doctor_id = ?", windowID, actor.ID).First(&window).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Availability window not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var req AvailabilityWindowRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	window.DayOfWeek = req.DayOfWeek
	window.StartTime = req.StartTime
	window.EndTime = req.EndTime
	window.IsBlocked = req.IsBlocked

	if err := scheduling.ValidateWindow(window); err != nil {
		utils.BadRequest(c, "Invalid availability window: "+err.Error())
		return
	}

	var existing []models.AvailabilityWindow
	if err := h.DB.Where("doctor_id = ? AND day_of_week = ? AND id <> ?", actor.ID, req.DayOfWeek, window.ID).Find(&existing).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	for _, other := range existing {
		overlap, err := scheduling.WindowsOverlap(window, other)
		if err != nil {
			utils.InternalServerError(c, "Stored window is malformed: "+err.Error())
			return
		}
		if overlap {
			utils.Conflict(c, "Window overlaps an existing window on that day")
			return
		}
	}

	if err := h.DB.Save(&window).Error; err != nil {
		utils.InternalServerError(c, "Failed to update window: "+err.Error())
		return
	}

	utils.Success(c, "Availability window updated", window)
}

// DeleteWindow removes one of the calling doctor's windows.
func (h *DoctorHandler) DeleteWindow(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	windowID := c.Param("windowId")

	result := h.DB.Where("id = ? AND doctor_id = ?", windowID, actor.ID).Delete(&models.AvailabilityWindow{})
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to delete window: "+result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Availability window not found")
		return
	}

	utils.Success(c, "Availability window deleted", nil)
}

// UpdateDoctorProfileRequest is the body for a doctor editing their own
// practice data.
type UpdateDoctorProfileRequest struct {
	Specialty       *string  `json:"specialty"`
	Bio             *string  `json:"bio"`
	Location        *string  `json:"location"`
	ConsultationFee *float64 `json:"consultationFee"`
	Experience      *int     `json:"experience"`
	IsAvailable     *bool    `json:"isAvailable"`
	Qualifications  []string `json:"qualifications"`
	Languages       []string `json:"languages"`
}

// UpdateOwnProfile lets a doctor edit their practice data, including the
// availability toggle that gates new bookings. A successful write bumps the
// directory cache generation so the listing reflects the change immediately.
func (h *DoctorHandler) UpdateOwnProfile(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var profile models.DoctorProfile
	if err := h.DB.Where("user_id = ?", actor.ID).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Doctor profile not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var req UpdateDoctorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	if req.Specialty != nil {
		profile.Specialty = *req.Specialty
	}
	if req.Bio != nil {
		profile.Bio = *req.Bio
	}
	if req.Location != nil {
		profile.Location = *req.Location
	}
	if req.ConsultationFee != nil {
		if *req.ConsultationFee <= 0 {
			utils.BadRequest(c, "Consultation fee must be positive")
			return
		}
		profile.ConsultationFee = *req.ConsultationFee
	}
	if req.Experience != nil {
		profile.Experience = *req.Experience
	}
	if req.IsAvailable != nil {
		profile.IsAvailable = *req.IsAvailable
	}
	if req.Qualifications != nil {
		payload, err := utils.ToJSON(req.Qualifications)
		if err != nil {
			utils.BadRequest(c, "Invalid qualifications: "+err.Error())
			return
		}
		profile.Qualifications = datatypes.JSON(payload)
	}
	if req.Languages != nil {
		payload, err := utils.ToJSON(req.Languages)
		if err != nil {
			utils.BadRequest(c, "Invalid languages: "+err.Error())
			return
		}
		profile.Languages = datatypes.JSON(payload)
	}

	if err := h.DB.Save(&profile).Error; err != nil {
		utils.InternalServerError(c, "Failed to update doctor profile: "+err.Error())
		return
	}

	h.invalidateDirectoryCache(c.Request.Context())

	utils.Success(c, "Doctor profile updated", profile)
}
