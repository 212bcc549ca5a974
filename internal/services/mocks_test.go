package services

import (
	"context"
	"io"

	"wa-relay-server/internal/media"
	"wa-relay-server/internal/models"
	"wa-relay-server/internal/whatsapp"

	"github.com/stretchr/testify/mock"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) SendTemplate(ctx context.Context, to string, tmpl whatsapp.Template) (*models.ProviderResponse, error) {
	args := m.Called(ctx, to, tmpl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderResponse), args.Error(1)
}

func (m *mockTransport) SendText(ctx context.Context, to, body string) (*models.ProviderResponse, error) {
	args := m.Called(ctx, to, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProviderResponse), args.Error(1)
}

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) GetMediaURL(ctx context.Context, mediaID string) (*whatsapp.MediaInfo, error) {
	args := m.Called(ctx, mediaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*whatsapp.MediaInfo), args.Error(1)
}

func (m *mockFetcher) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	args := m.Called(ctx, mediaURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, r io.Reader, name string) (*media.Uploaded, error) {
	args := m.Called(ctx, r, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*media.Uploaded), args.Error(1)
}

type mockChatRepository struct {
	mock.Mock
}

func (m *mockChatRepository) AppendMessage(ctx context.Context, ref models.PartitionRef, msg *models.ChatMessage) error {
	return m.Called(ctx, ref, msg).Error(0)
}

func (m *mockChatRepository) CountMessages(ctx context.Context, ref models.PartitionRef) (int, error) {
	args := m.Called(ctx, ref)
	return args.Int(0), args.Error(1)
}

func (m *mockChatRepository) DeleteOldest(ctx context.Context, ref models.PartitionRef, n int) (int, error) {
	args := m.Called(ctx, ref, n)
	return args.Int(0), args.Error(1)
}

func (m *mockChatRepository) RecentMessages(ctx context.Context, ref models.PartitionRef, limit int) ([]*models.ChatMessage, error) {
	args := m.Called(ctx, ref, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChatMessage), args.Error(1)
}

func (m *mockChatRepository) GetPartition(ctx context.Context, ref models.PartitionRef) (*models.ChatPartition, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatPartition), args.Error(1)
}

type mockHistoryRepository struct {
	mock.Mock
}

func (m *mockHistoryRepository) Create(ctx context.Context, rec *models.BulkHistoryRecord) error {
	return m.Called(ctx, rec).Error(0)
}

func (m *mockHistoryRepository) GetByID(ctx context.Context, id string) (*models.BulkHistoryRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BulkHistoryRecord), args.Error(1)
}

func (m *mockHistoryRepository) List(ctx context.Context, limit, offset int) ([]*models.BulkHistoryRecord, int, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.BulkHistoryRecord), args.Int(1), args.Error(2)
}

func (m *mockHistoryRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type stubLookup map[string]bool

func (s stubLookup) ExistsByPhoneKey(_ context.Context, key string) (bool, error) {
	return s[key], nil
}
