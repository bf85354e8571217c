package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mediflow-server/internal/middleware"
	"mediflow-server/internal/models"
	"mediflow-server/internal/realtime"
	"mediflow-server/internal/utils"
)

// MessageHandler handles messaging between patients and doctors.
type MessageHandler struct {
	DB     *gorm.DB
	Notify *Notifier
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(db *gorm.DB, notify *Notifier) *MessageHandler {
	return &MessageHandler{DB: db, Notify: notify}
}

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	RecipientID string `json:"recipientId" binding:"required"`
	Content     string `json:"content" binding:"required"`
}

// canMessage encodes who may message whom: patients and doctors message each
// other, and admins message anyone.
func canMessage(sender, recipient models.Role) bool {
	if sender == models.RoleAdmin || recipient == models.RoleAdmin {
		return true
	}
	return (sender == models.RolePatient && recipient == models.RoleDoctor) ||
		(sender == models.RoleDoctor && recipient == models.RolePatient)
}

// SendMessage handles sending a new message.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if actor.ID == req.RecipientID {
		utils.BadRequest(c, "Cannot send a message to yourself")
		return
	}

	var recipient models.User
	if err := h.DB.First(&recipient, "id = ?", req.RecipientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Recipient user not found")
		} else {
			utils.InternalServerError(c, "Database error verifying recipient: "+err.Error())
		}
		return
	}

	if !canMessage(actor.Role, recipient.Role) {
		utils.Forbidden(c, "You are not authorized to send a message to this user")
		return
	}

	message := models.Message{
		SenderID:   actor.ID,
		ReceiverID: recipient.ID,
		Content:    req.Content,
		Status:     models.MessageStatusSent,
	}
	if err := h.DB.Create(&message).Error; err != nil {
		utils.InternalServerError(c, "Failed to send message: "+err.Error())
		return
	}

	h.Notify.MessageChanged(&message, realtime.ChangeInsert)
	h.Notify.Notify(recipient.ID, models.NotificationMessage, "New message", "You have received a new message")

	utils.Created(c, "Message sent successfully", message)
}

// GetMessages fetches the caller's messages, optionally narrowed to the
// conversation with one other user via ?withUser=. Fetching a conversation
// marks its unread incoming messages as read.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	query := h.DB.Preload("Sender").Preload("Receiver").Order("created_at ASC")

	otherUserID := c.Query("withUser")
	if otherUserID != "" {
		query = query.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			actor.ID, otherUserID, otherUserID, actor.ID)
	} else {
		query = query.Where("sender_id = ? OR receiver_id = ?", actor.ID, actor.ID)
	}

	var messages []models.Message
	if err := query.Find(&messages).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch messages: "+err.Error())
		return
	}

	if otherUserID != "" {
		now := time.Now()
		for i := range messages {
			if messages[i].ReceiverID == actor.ID && messages[i].Status == models.MessageStatusSent {
				messages[i].Status = models.MessageStatusRead
				messages[i].ReadAt = &now
				if err := h.DB.Model(&messages[i]).
					Updates(map[string]interface{}{"status": models.MessageStatusRead, "read_at": now}).Error; err == nil {
					h.Notify.MessageChanged(&messages[i], realtime.ChangeUpdate)
				}
			}
		}
	}

	utils.Success(c, "Messages fetched successfully", messages)
}

// ConversationPreview is one row of the conversation list: the partner, the
// latest message and how many incoming messages are unread.
type ConversationPreview struct {
	Partner     models.UserSanitized `json:"partner"`
	LastMessage models.Message       `json:"lastMessage"`
	UnreadCount int64                `json:"unreadCount"`
}

// GetConversations fetches the caller's conversation list, one entry per
// distinct partner.
func (h *MessageHandler) GetConversations(c *gin.Context) {
	actor, _ := middleware.GetActor(c)

	var partners []struct {
		PartnerID string `gorm:"column:partner_id"`
	}
	err := h.DB.Raw(`
		SELECT DISTINCT partner_id FROM (
			SELECT receiver_id AS partner_id FROM messages WHERE sender_id = ?
			UNION
			SELECT sender_id AS partner_id FROM messages WHERE receiver_id = ?
		) AS partners
	`, actor.ID, actor.ID).Scan(&partners).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch conversation partners: "+err.Error())
		return
	}

	previews := make([]ConversationPreview, 0, len(partners))
	for _, p := range partners {
		partnerID := p.PartnerID
		var partner models.User
		if err := h.DB.First(&partner, "id = ?", partnerID).Error; err != nil {
			continue
		}

		var lastMessage models.Message
		err := h.DB.Preload("Sender").Preload("Receiver").
			Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
				actor.ID, partnerID, partnerID, actor.ID).
			Order("created_at DESC").First(&lastMessage).Error
		if err != nil {
			continue
		}

		var unreadCount int64
		h.DB.Model(&models.Message{}).
			Where("sender_id = ? AND receiver_id = ? AND status = ?", partnerID, actor.ID, models.MessageStatusSent).
			Count(&unreadCount)

		previews = append(previews, ConversationPreview{
			Partner:     partner.Sanitize(),
			LastMessage: lastMessage,
			UnreadCount: unreadCount,
		})
	}

	utils.Success(c, "Conversations fetched successfully", previews)
}

// MarkMessageAsRead marks a single message as read. Only the recipient can
// do this.
func (h *MessageHandler) MarkMessageAsRead(c *gin.Context) {
	actor, _ := middleware.GetActor(c)
	messageID := c.Param("messageId")

	var message models.Message
	if err := h.DB.First(&message, "id = ?", messageID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Message not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if message.ReceiverID != actor.ID {
		utils.Forbidden(c, "You are not authorized to mark this message as read")
		return
	}

	if message.Status == models.MessageStatusRead {
		utils.Success(c, "Message already marked as read", message)
		return
	}

	now := time.Now()
	message.Status = models.MessageStatusRead
	message.ReadAt = &now
	if err := h.DB.Save(&message).Error; err != nil {
		utils.InternalServerError(c, "Failed to update message status: "+err.Error())
		return
	}

	h.Notify.MessageChanged(&message, realtime.ChangeUpdate)

	utils.Success(c, "Message marked as read successfully", message)
}
