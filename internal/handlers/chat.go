package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/magickw/ShopSmartly-sub000/internal/database"
	"github.com/magickw/ShopSmartly-sub000/internal/logger"
	"github.com/magickw/ShopSmartly-sub000/internal/models"
	"github.com/magickw/ShopSmartly-sub000/internal/util"
)

// GetChatMessages returns the user's conversation with the assistant
// GET /api/v1/chat/messages
func (h *Handlers) GetChatMessages(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	limit := util.ParseInt(c.DefaultQuery("limit", "50"), 50)
	offset := util.ParseInt(c.DefaultQuery("offset", "0"), 0)
	if limit > 200 {
		limit = 200
	}

	var messages []models.ChatMessage
	err := database.DB.Where("user_id = ?", userID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&messages).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// PostChatMessageRequest is one user turn
type PostChatMessageRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
}

// PostChatMessage stores the user's message and the assistant's reply
// POST /api/v1/chat/messages
func (h *Handlers) PostChatMessage(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req PostChatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userMessage := models.ChatMessage{
		UserID:  userID,
		Role:    models.ChatRoleUser,
		Content: req.Content,
	}
	if err := database.DB.Create(&userMessage).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	replyText, err := h.assistant.Reply(userID, req.Content)
	if err != nil {
		logger.ErrorWithFields("Assistant reply failed", err, logger.WithUserID(userID))
		replyText = "Sorry, I couldn't process that right now. Please try again."
	}

	assistantMessage := models.ChatMessage{
		UserID:  userID,
		Role:    models.ChatRoleAssistant,
		Content: replyText,
	}
	if err := database.DB.Create(&assistantMessage).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store reply"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": userMessage,
		"reply":   assistantMessage,
	})
}
