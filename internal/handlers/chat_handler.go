package handlers

import (
	"net/http"
	"strings"

	"wa-relay-server/internal/models"
	"wa-relay-server/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler serves one partition class of the admin chat UI
type ChatHandler struct {
	service ChatServiceInterface
	class   models.PartitionClass
}

// NewChatHandler creates a chat handler bound to a partition class
func NewChatHandler(service ChatServiceInterface, class models.PartitionClass) *ChatHandler {
	return &ChatHandler{service: service, class: class}
}

// Send delivers an admin message (POST /api/chat/send, POST /api/support/send)
func (h *ChatHandler) Send(c *gin.Context) {
	var req models.SendChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid chat send request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if strings.TrimSpace(req.PhoneNumber) == "" || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phoneNumber and message are required"})
		return
	}

	msg, err := h.service.SendAdminMessage(c.Request.Context(), h.class, req)
	if err != nil {
		logger.Error("Admin message failed",
			zap.String("class", string(h.class)),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": msg})
}

// History returns the retained messages of a partition (GET /api/{chat,support}/history/:phoneNumber)
func (h *ChatHandler) History(c *gin.Context) {
	phoneNumber := c.Param("phoneNumber")
	if strings.TrimSpace(phoneNumber) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number is required"})
		return
	}

	messages, err := h.service.History(c.Request.Context(), h.class, phoneNumber)
	if err != nil {
		logger.Error("Failed to load chat history",
			zap.String("class", string(h.class)),
			zap.Error(err),
		)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}
