package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"wa-relay-server/internal/models"
	"wa-relay-server/internal/services"
	"wa-relay-server/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookHandler receives provider callbacks
type WebhookHandler struct {
	service WebhookServiceInterface
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(service WebhookServiceInterface) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// Verify answers the subscription handshake (GET /webhook)
func (h *WebhookHandler) Verify(c *gin.Context) {
	challenge, ok := h.service.VerifySubscription(
		c.Query("hub.mode"),
		c.Query("hub.verify_token"),
		c.Query("hub.challenge"),
	)
	if !ok {
		logger.Warn("Webhook verification failed", zap.String("mode", c.Query("hub.mode")))
		c.JSON(http.StatusForbidden, gin.H{"error": "Verification failed"})
		return
	}

	logger.Info("Webhook verified")
	c.String(http.StatusOK, challenge)
}

// Receive processes a callback (POST /webhook)
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		logger.Warn("Invalid webhook body", zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid webhook payload"})
		return
	}

	summary, err := h.service.Process(c.Request.Context(), &payload)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPayload) {
			logger.Warn("Unexpected webhook object", zap.String("object", payload.Object))
			c.JSON(http.StatusNotFound, gin.H{"error": "Invalid webhook payload"})
			return
		}
		logger.Error("Webhook processing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process webhook"})
		return
	}

	logger.Debug("Webhook processed",
		zap.Int("messages", summary.Messages),
		zap.Int("stored", summary.Stored),
		zap.Int("failed", summary.Failed),
		zap.Int("statuses", summary.Statuses))

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RecentEvents lists recently processed webhook events (GET /api/debug/webhook-events)
func (h *WebhookHandler) RecentEvents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}

	events, err := h.service.RecentEvents(c.Request.Context(), limit)
	if err != nil {
		logger.Error("Failed to read webhook events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read webhook events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}
