package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mediflow-server/internal/middleware"
	"mediflow-server/internal/models"
	"mediflow-server/internal/utils"
)

// NotificationHandler serves the caller's in-app notifications.
type NotificationHandler struct {
	DB *gorm.DB
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{DB: db}
}

// ListNotifications returns the caller's notifications, newest first.
// ?unread=true narrows to unread ones.
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	query := h.DB.Where("user_id = ?", actor.ID).Order("created_at DESC")
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch notifications: "+err.Error())
		return
	}

	utils.Success(c, "Notifications fetched successfully", notifications)
}

// MarkNotificationRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkNotificationRead(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	notificationID := c.Param("id")

	var notification models.Notification
	if err := h.DB.Where("id = ? AND user_id = ?", notificationID, actor.ID).First(&notification).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Notification not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if !notification.IsRead {
		notification.IsRead = true
		if err := h.DB.Save(&notification).Error; err != nil {
			utils.InternalServerError(c, "Failed to update notification: "+err.Error())
			return
		}
	}

	utils.Success(c, "Notification marked as read", notification)
}

// MarkAllNotificationsRead marks every unread notification of the caller.
func (h *NotificationHandler) MarkAllNotificationsRead(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	if err := h.DB.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", actor.ID, false).
		Update("is_read", true).Error; err != nil {
		utils.InternalServerError(c, "Failed to update notifications: "+err.Error())
		return
	}

	utils.Success(c, "All notifications marked as read", nil)
}
