package router

import (
	"context"

	"wa-relay-server/internal/config"
	"wa-relay-server/internal/handlers"
	"wa-relay-server/internal/models"
	"wa-relay-server/internal/services"

	"github.com/stretchr/testify/mock"
)

type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) VerifySubscription(mode, token, challenge string) (string, bool) {
	args := m.Called(mode, token, challenge)
	return args.String(0), args.Bool(1)
}

func (m *MockWebhookService) Process(ctx context.Context, payload *models.WebhookPayload) (*services.WebhookSummary, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.WebhookSummary), args.Error(1)
}

func (m *MockWebhookService) RecentEvents(ctx context.Context, n int) ([]models.WebhookEvent, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WebhookEvent), args.Error(1)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) SendAdminMessage(ctx context.Context, class models.PartitionClass, req models.SendChatRequest) (*models.ChatMessage, error) {
	args := m.Called(ctx, class, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatMessage), args.Error(1)
}

func (m *MockChatService) History(ctx context.Context, class models.PartitionClass, phoneNumber string) ([]*models.ChatMessage, error) {
	args := m.Called(ctx, class, phoneNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChatMessage), args.Error(1)
}

type MockBulkService struct {
	mock.Mock
}

func (m *MockBulkService) Dispatch(ctx context.Context, req models.BulkSendRequest) (*models.BulkDispatchResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BulkDispatchResult), args.Error(1)
}

func (m *MockBulkService) History(ctx context.Context, limit, offset int) ([]*models.BulkHistoryRecord, int, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.BulkHistoryRecord), args.Int(1), args.Error(2)
}

func (m *MockBulkService) DeleteHistory(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Authenticate(username, password, totpCode string) ([]string, error) {
	args := m.Called(username, password, totpCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type mockServices struct {
	webhook *MockWebhookService
	chat    *MockChatService
	bulk    *MockBulkService
	auth    *MockAuthenticator
}

// newTestRouter builds a router over mocked services
func newTestRouter(cfg *config.Config) (*Router, *mockServices) {
	m := &mockServices{
		webhook: new(MockWebhookService),
		chat:    new(MockChatService),
		bulk:    new(MockBulkService),
		auth:    new(MockAuthenticator),
	}

	r := NewRouter(cfg, Handlers{
		Webhook:        handlers.NewWebhookHandler(m.webhook),
		RegisteredChat: handlers.NewChatHandler(m.chat, models.PartitionRegistered),
		SupportChat:    handlers.NewChatHandler(m.chat, models.PartitionSupport),
		Bulk:           handlers.NewBulkHandler(m.bulk),
		Auth:           handlers.NewAuthHandler(cfg, m.auth),
		Health:         handlers.NewHealthHandler(nil),
	})
	return r, m
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.JWT.Secret = "router-test-secret"
	return cfg
}
