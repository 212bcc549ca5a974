package router

import (
	"net/http"

	"wa-relay-server/internal/config"
	"wa-relay-server/internal/handlers"
	"wa-relay-server/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// MaxRequestBytes bounds every request body, webhook callbacks included.
const MaxRequestBytes = 1 << 20

// Admin permissions checked on the /api routes
const (
	PermChatRead    = "chat:read"
	PermChatWrite   = "chat:write"
	PermBulkSend    = "bulk:send"
	PermBulkHistory = "bulk:history"
	PermDebugRead   = "debug:read"
)

// Handlers groups the HTTP handlers served by the router
type Handlers struct {
	Webhook        *handlers.WebhookHandler
	RegisteredChat *handlers.ChatHandler
	SupportChat    *handlers.ChatHandler
	Bulk           *handlers.BulkHandler
	Auth           *handlers.AuthHandler
	Health         *handlers.HealthHandler
}

type Router struct {
	engine *gin.Engine
	config *config.Config
}

func NewRouter(cfg *config.Config, h Handlers) *Router {
	if cfg == nil {
		panic("config cannot be nil")
	}

	r := &Router{
		engine: gin.New(),
		config: cfg,
	}

	r.engine.HandleMethodNotAllowed = true
	r.engine.Use(
		gin.Recovery(),
		middleware.RequestIDMiddleware(),
		middleware.SecurityHeadersMiddleware(),
		middleware.CORSMiddleware(),
		middleware.AuditLogMiddleware(),
		middleware.RequestSizeLimitMiddleware(MaxRequestBytes),
	)
	r.engine.NoRoute(r.handleNotFound)
	r.engine.NoMethod(r.handleMethodNotAllowed)

	if h.Health != nil {
		r.engine.GET("/health", h.Health.Health)
	}

	if h.Webhook != nil {
		r.engine.GET("/webhook", h.Webhook.Verify)
		r.engine.POST("/webhook", middleware.WebhookSignatureMiddleware(cfg.WhatsApp.AppSecret), h.Webhook.Receive)
	}

	if h.Auth != nil {
		r.engine.POST("/api/auth/login", h.Auth.Login)
	}

	api := r.engine.Group("/api")
	if cfg.Auth.Enabled {
		api.Use(middleware.AuthMiddleware(cfg))
	}

	if h.RegisteredChat != nil {
		api.POST("/chat/send", r.require(PermChatWrite), h.RegisteredChat.Send)
		api.GET("/chat/history/:phoneNumber", r.require(PermChatRead), h.RegisteredChat.History)
	}
	if h.SupportChat != nil {
		api.POST("/support/send", r.require(PermChatWrite), h.SupportChat.Send)
		api.GET("/support/history/:phoneNumber", r.require(PermChatRead), h.SupportChat.History)
	}

	if h.Bulk != nil {
		bulk := api.Group("/bulk-message")
		{
			bulk.POST("/send", r.require(PermBulkSend), h.Bulk.Send)
			bulk.GET("/history", r.require(PermBulkHistory), h.Bulk.History)
			bulk.DELETE("/history/:id", r.require(PermBulkHistory), h.Bulk.DeleteHistory)
		}
	}

	if h.Webhook != nil {
		api.GET("/debug/webhook-events", r.require(PermDebugRead), h.Webhook.RecentEvents)
	}

	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

// Engine exposes the underlying gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// require checks a permission only when admin auth is enabled
func (r *Router) require(permission string) gin.HandlerFunc {
	if !r.config.Auth.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RequirePermission(permission)
}

func (r *Router) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}

func (r *Router) handleMethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
}
