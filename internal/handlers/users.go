package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mediflow-server/internal/models"
	"mediflow-server/internal/utils"
)

// UserHandler handles admin operations on accounts: CRUD, doctor
// verification and conduct warnings.
type UserHandler struct {
	DB     *gorm.DB
	Notify *Notifier
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(db *gorm.DB, notify *Notifier) *UserHandler {
	return &UserHandler{DB: db, Notify: notify}
}

// CreateUserRequest represents the request body for creating a user by an admin.
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=PATIENT DOCTOR ADMIN"`
}

// CreateUser handles creating a new user (admin). Admin-created accounts are
// verified immediately.
func (h *UserHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var existingUser models.User
	if err := h.DB.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		utils.BadRequest(c, "User with this email already exists")
		return
	} else if err != gorm.ErrRecordNotFound {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	user := models.User{
		Name:               req.Name,
		Email:              req.Email,
		Role:               models.Role(req.Role),
		IsVerified:         true,
		VerificationStatus: models.VerificationVerified,
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password: "+err.Error())
		return
	}

	if err := h.DB.Create(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to create user: "+err.Error())
		return
	}

	utils.Created(c, "User created successfully", user.Sanitize())
}

// GetUsers handles fetching all users (admin). Optional role and
// verificationStatus queries filter the listing.
func (h *UserHandler) GetUsers(c *gin.Context) {
	query := h.DB.Order("created_at DESC")
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if vs := c.Query("verificationStatus"); vs != "" {
		query = query.Where("verification_status = ?", vs)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch users: "+err.Error())
		return
	}

	sanitizedUsers := make([]models.UserSanitized, len(users))
	for i, u := range users {
		sanitizedUsers[i] = u.Sanitize()
	}

	utils.Success(c, "Users fetched successfully", sanitizedUsers)
}

// GetUser handles fetching a single user by ID (admin).
func (h *UserHandler) GetUser(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "User fetched successfully", user.Sanitize())
}

// UpdateUserRequest represents the request body for an admin user update.
type UpdateUserRequest struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	AccountStatus string `json:"accountStatus" binding:"omitempty,oneof=active deactivated"`
}

// UpdateUser handles updating a user's account fields (admin). Setting
// accountStatus to anything but active locks the account out at the next
// token refresh.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.Phone != "" {
		user.Phone = req.Phone
	}
	if req.AccountStatus != "" {
		user.AccountStatus = req.AccountStatus
	}

	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update user: "+err.Error())
		return
	}

	utils.Success(c, "User updated successfully", user.Sanitize())
}

// DeactivateUser flips the account to deactivated and revokes its refresh
// tokens. Accounts are never hard-deleted so that appointment and record
// history stays intact.
func (h *UserHandler) DeactivateUser(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Update("account_status", "deactivated").Error; err != nil {
			return err
		}
		return tx.Model(&models.RefreshToken{}).
			Where("user_id = ?", user.ID).
			Update("is_revoked", true).Error
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to deactivate user: "+err.Error())
		return
	}

	utils.Success(c, "User deactivated successfully", nil)
}

// VerifyDoctorRequest represents the request body for a verification decision.
type VerifyDoctorRequest struct {
	Status string `json:"status" binding:"required,oneof=VERIFIED REJECTED"`
	Reason string `json:"reason"`
}

// VerifyDoctor records an admin's decision on a pending doctor account. A
// verified doctor can log in and appears in the directory.
func (h *UserHandler) VerifyDoctor(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	if user.Role != models.RoleDoctor {
		utils.BadRequest(c, "Only doctor accounts go through verification")
		return
	}

	var req VerifyDoctorRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	user.VerificationStatus = models.VerificationStatus(req.Status)
	user.IsVerified = user.VerificationStatus == models.VerificationVerified
	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to update verification status: "+err.Error())
		return
	}

	if user.IsVerified {
		h.Notify.Notify(user.ID, models.NotificationSystem,
			"Account verified", "Your doctor account has been verified. You can now log in.")
	} else {
		body := "Your doctor account verification was rejected."
		if req.Reason != "" {
			body += " Reason: " + req.Reason
		}
		h.Notify.Notify(user.ID, models.NotificationSystem, "Verification rejected", body)
	}

	utils.Success(c, "Verification status updated", user.Sanitize())
}

// IssueWarningRequest represents the request body for issuing a conduct
// warning.
type IssueWarningRequest struct {
	Type      string     `json:"type" binding:"required,oneof=LATE_CANCELLATION NO_SHOW MISCONDUCT"`
	Reason    string     `json:"reason" binding:"required"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// IssueWarning records a conduct warning against an account (admin).
func (h *UserHandler) IssueWarning(c *gin.Context) {
	userID := c.Param("id")

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var req IssueWarningRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	warning := models.Warning{
		UserID:    user.ID,
		Type:      models.WarningType(req.Type),
		Reason:    req.Reason,
		IsActive:  true,
		ExpiresAt: req.ExpiresAt,
	}
	if err := h.DB.Create(&warning).Error; err != nil {
		utils.InternalServerError(c, "Failed to issue warning: "+err.Error())
		return
	}

	h.Notify.Notify(user.ID, models.NotificationSystem,
		"Conduct warning issued", "A warning has been recorded on your account: "+req.Reason)

	utils.Created(c, "Warning issued successfully", warning)
}

// ListWarnings fetches a user's warnings (admin).
func (h *UserHandler) ListWarnings(c *gin.Context) {
	userID := c.Param("id")

	var warnings []models.Warning
	if err := h.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&warnings).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch warnings: "+err.Error())
		return
	}

	utils.Success(c, "Warnings fetched successfully", warnings)
}

// RevokeWarning deactivates a warning (admin).
func (h *UserHandler) RevokeWarning(c *gin.Context) {
	warningID := c.Param("warningId")

	result := h.DB.Model(&models.Warning{}).
		Where("id = ?", warningID).
		Update("is_active", false)
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to revoke warning: "+result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Warning not found")
		return
	}

	utils.Success(c, "Warning revoked successfully", nil)
}
