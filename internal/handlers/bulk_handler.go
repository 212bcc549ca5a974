package handlers

import (
	"net/http"
	"strconv"

	"wa-relay-server/internal/models"
	"wa-relay-server/internal/services"
	"wa-relay-server/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BulkHandler handles bulk template sends and their history
type BulkHandler struct {
	service BulkServiceInterface
}

// NewBulkHandler creates a new bulk handler
func NewBulkHandler(service BulkServiceInterface) *BulkHandler {
	return &BulkHandler{service: service}
}

// Send dispatches a template to every recipient (POST /api/bulk-message/send)
// Partial failures still answer 200; the details carry per-recipient outcomes
func (h *BulkHandler) Send(c *gin.Context) {
	var req models.BulkSendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid bulk send request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, err := h.service.Dispatch(c.Request.Context(), req)
	if err != nil {
		logger.Warn("Bulk send rejected", zap.String("template", req.TemplateName), zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// History lists persisted bulk summaries (GET /api/bulk-message/history)
func (h *BulkHandler) History(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return
	}
	limit, offset = services.HistoryPage(limit, offset)

	records, total, err := h.service.History(c.Request.Context(), limit, offset)
	if err != nil {
		logger.Error("Failed to list bulk history", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

// DeleteHistory removes one summary (DELETE /api/bulk-message/history/:id)
func (h *BulkHandler) DeleteHistory(c *gin.Context) {
	id := c.Param("id")

	if err := h.service.DeleteHistory(c.Request.Context(), id); err != nil {
		logger.Warn("Failed to delete bulk history", zap.String("id", id), zap.Error(err))
		respondError(c, err)
		return
	}

	logger.Info("Bulk history deleted", zap.String("id", id))
	c.JSON(http.StatusOK, gin.H{"message": "History record deleted"})
}
