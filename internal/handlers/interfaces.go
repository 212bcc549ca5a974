package handlers

import (
	"context"

	"wa-relay-server/internal/models"
	"wa-relay-server/internal/services"
)

// WebhookServiceInterface defines the contract for webhook dispatch
// This interface is used for dependency injection and testing
type WebhookServiceInterface interface {
	VerifySubscription(mode, token, challenge string) (string, bool)
	Process(ctx context.Context, payload *models.WebhookPayload) (*services.WebhookSummary, error)
	RecentEvents(ctx context.Context, n int) ([]models.WebhookEvent, error)
}

// ChatServiceInterface defines the contract for the admin chat operations
type ChatServiceInterface interface {
	SendAdminMessage(ctx context.Context, class models.PartitionClass, req models.SendChatRequest) (*models.ChatMessage, error)
	History(ctx context.Context, class models.PartitionClass, phoneNumber string) ([]*models.ChatMessage, error)
}

// BulkServiceInterface defines the contract for bulk template sends and their history
type BulkServiceInterface interface {
	Dispatch(ctx context.Context, req models.BulkSendRequest) (*models.BulkDispatchResult, error)
	History(ctx context.Context, limit, offset int) ([]*models.BulkHistoryRecord, int, error)
	DeleteHistory(ctx context.Context, id string) error
}

// AdminAuthenticator verifies admin credentials and returns granted permissions
type AdminAuthenticator interface {
	Authenticate(username, password, totpCode string) ([]string, error)
}

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}
