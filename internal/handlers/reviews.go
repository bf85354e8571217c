package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mediflow-server/internal/middleware"
	"mediflow-server/internal/models"
	"mediflow-server/internal/utils"
)

// ReviewHandler handles patient reviews of completed appointments.
type ReviewHandler struct {
	DB *gorm.DB
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{DB: db}
}

// CreateReviewRequest represents the request body for posting a review.
type CreateReviewRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required"`
	Rating        int    `json:"rating" binding:"required,min=1,max=5"`
	Comment       string `json:"comment"`
}

// CreateReview posts a review for one of the caller's completed
// appointments. One review per appointment; the doctor's aggregate rating is
// recomputed in the same transaction.
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var req CreateReviewRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", req.AppointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if appointment.PatientID != actor.ID {
		utils.Forbidden(c, "You can only review your own appointments")
		return
	}
	if appointment.Status != models.StatusCompleted {
		utils.BadRequest(c, "Only completed appointments can be reviewed")
		return
	}

	var existing int64
	if err := h.DB.Model(&models.Review{}).
		Where("appointment_id = ?", req.AppointmentID).
		Count(&existing).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if existing > 0 {
		utils.Conflict(c, "This appointment has already been reviewed")
		return
	}

	review := models.Review{
		PatientID:     actor.ID,
		DoctorID:      appointment.DoctorID,
		AppointmentID: appointment.ID,
		Rating:        req.Rating,
		Comment:       req.Comment,
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&review).Error; err != nil {
			return err
		}
		var avg float64
		if err := tx.Model(&models.Review{}).
			Where("doctor_id = ?", appointment.DoctorID).
			Select("AVG(rating)").
			Scan(&avg).Error; err != nil {
			return err
		}
		return tx.Model(&models.DoctorProfile{}).
			Where("user_id = ?", appointment.DoctorID).
			Update("rating", avg).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to create review: "+err.Error())
		return
	}

	utils.Created(c, "Review created successfully", review)
}

// ListDoctorReviews returns a doctor's reviews, newest first.
func (h *ReviewHandler) ListDoctorReviews(c *gin.Context) {
	doctorID := c.Param("id")

	var reviews []models.Review
	if err := h.DB.Where("doctor_id = ?", doctorID).
		Order("created_at DESC").
		Find(&reviews).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch reviews: "+err.Error())
		return
	}

	utils.Success(c, "Reviews fetched successfully", reviews)
}
