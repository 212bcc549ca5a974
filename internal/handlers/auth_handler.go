package handlers

import (
	"errors"
	"net/http"
	"time"

	"wa-relay-server/internal/config"
	"wa-relay-server/internal/services"
	"wa-relay-server/pkg/logger"
	"wa-relay-server/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

// AuthHandler handles admin login
type AuthHandler struct {
	config *config.Config
	auth   AdminAuthenticator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(cfg *config.Config, auth AdminAuthenticator) *AuthHandler {
	return &AuthHandler{config: cfg, auth: auth}
}

// Login verifies the admin credentials and returns a JWT token (POST /api/auth/login)
func (h *AuthHandler) Login(c *gin.Context) {
	logger.Info("Auth login endpoint called")
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Error("Failed to parse login request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if req.Username == "" || req.Password == "" {
		logger.Error("Missing username or password")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}

	permissions, err := h.auth.Authenticate(req.Username, req.Password, req.TOTPCode)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrAccountLocked):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrInvalidTOTP):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid TOTP code"})
		default:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		}
		return
	}

	token, expiresAt, err := middleware.GenerateToken(req.Username, permissions, h.config)
	if err != nil {
		logger.Error("Failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"expires_at":  expiresAt.UTC().Format(time.RFC3339),
		"permissions": permissions,
	})
}
