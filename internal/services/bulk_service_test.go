package services

import (
	"context"
	"testing"
	"time"

	"wa-relay-server/internal/db"
	"wa-relay-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestBulkService(t *testing.T, transport *mockTransport, history db.BulkHistoryRepository, interval time.Duration) *BulkService {
	t.Helper()
	sender := NewTemplateSender(NewTemplateRegistry(testDescriptors(), false, ""), transport)
	return NewBulkService(sender, history, interval, "91")
}

func reminderRequest(recipients ...models.Recipient) models.BulkSendRequest {
	return models.BulkSendRequest{
		Recipients:   recipients,
		TemplateName: "tournament_reminder",
		Params:       models.TemplateParams{Tournament: "Spring Open", Date: "1 April"},
	}
}

func TestBulkService_PartialFailureKeepsOrder(t *testing.T) {
	history := db.SetupTestDB(t).BulkHistory()
	transport := new(mockTransport)
	transport.On("SendTemplate", mock.Anything, "919876543210", mock.Anything).Return(&models.ProviderResponse{MessageID: "wamid.1"}, nil)
	transport.On("SendTemplate", mock.Anything, "919123456789", mock.Anything).Return(&models.ProviderResponse{MessageID: "wamid.3"}, nil)

	service := newTestBulkService(t, transport, history, 0)
	result, err := service.Dispatch(context.Background(), reminderRequest(
		models.Recipient{ID: "r1", PhoneNumber: "9876543210", Name: "Asha"},
		models.Recipient{ID: "r2", PhoneNumber: "12345", Name: "Ravi"},
		models.Recipient{ID: "r3", PhoneNumber: "919123456789", Name: "Meena"},
	))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Successful)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Details, 3)
	assert.Equal(t, "r1", result.Details[0].RecipientID)
	assert.Equal(t, models.DispatchSuccess, result.Details[0].Status)
	assert.Equal(t, "r2", result.Details[1].RecipientID)
	assert.Equal(t, models.DispatchFailed, result.Details[1].Status)
	assert.Equal(t, models.InvalidPhoneNumber, result.Details[1].Error)
	assert.Equal(t, "r3", result.Details[2].RecipientID)
	assert.Equal(t, models.DispatchSuccess, result.Details[2].Status)
	assert.Empty(t, result.Warning)
	transport.AssertNumberOfCalls(t, "SendTemplate", 2)

	stored, err := history.GetByID(context.Background(), result.HistoryID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 3, stored.Total)
	assert.Equal(t, 2, stored.Successful)
	assert.Equal(t, "Spring Open", stored.Tournament)
}

func TestBulkService_ProviderFailureIsolated(t *testing.T) {
	transport := new(mockTransport)
	transport.On("SendTemplate", mock.Anything, "919876543210", mock.Anything).Return(nil, &models.ProviderError{Code: 131026, Message: "undeliverable"})
	transport.On("SendTemplate", mock.Anything, "919123456789", mock.Anything).Return(&models.ProviderResponse{MessageID: "wamid.2"}, nil)

	service := newTestBulkService(t, transport, db.SetupTestDB(t).BulkHistory(), 0)
	result, err := service.Dispatch(context.Background(), reminderRequest(
		models.Recipient{ID: "r1", PhoneNumber: "9876543210", Name: "Asha"},
		models.Recipient{ID: "r2", PhoneNumber: "9123456789", Name: "Ravi"},
	))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, 1, result.Failed)
	assert.Contains(t, result.Details[0].Error, "undeliverable")
	assert.Equal(t, "wamid.2", result.Details[1].MessageID)
}

func TestBulkService_ValidationSendsNothing(t *testing.T) {
	valid := models.Recipient{ID: "r1", PhoneNumber: "9876543210", Name: "Asha"}

	tests := []struct {
		name string
		req  models.BulkSendRequest
	}{
		{"no recipients", reminderRequest()},
		{"recipient missing name", reminderRequest(valid, models.Recipient{ID: "r2", PhoneNumber: "9876543211"})},
		{"recipient missing id", reminderRequest(models.Recipient{PhoneNumber: "9876543211", Name: "Ravi"})},
		{"missing template", models.BulkSendRequest{Recipients: []models.Recipient{valid}, Params: models.TemplateParams{Tournament: "x"}}},
		{"missing tournament", models.BulkSendRequest{Recipients: []models.Recipient{valid}, TemplateName: "tournament_reminder"}},
		{"unknown template", models.BulkSendRequest{Recipients: []models.Recipient{valid}, TemplateName: "promo", Params: models.TemplateParams{Tournament: "x"}}},
		{"param mismatch", models.BulkSendRequest{Recipients: []models.Recipient{valid}, TemplateName: "tournament_reminder", Params: models.TemplateParams{Tournament: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(mockTransport)
			history := new(mockHistoryRepository)
			service := newTestBulkService(t, transport, history, 0)

			result, err := service.Dispatch(context.Background(), tt.req)
			assert.Nil(t, result)
			assert.True(t, models.IsValidation(err), "expected validation error, got %v", err)
			transport.AssertNumberOfCalls(t, "SendTemplate", 0)
			history.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestBulkService_HistoryFailureIsWarning(t *testing.T) {
	transport := new(mockTransport)
	transport.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything).Return(&models.ProviderResponse{MessageID: "wamid.1"}, nil)
	history := new(mockHistoryRepository)
	history.On("Create", mock.Anything, mock.Anything).Return(&models.StoreError{Op: "create", Code: models.StoreUnavailable})

	service := newTestBulkService(t, transport, history, 0)
	result, err := service.Dispatch(context.Background(), reminderRequest(models.Recipient{ID: "r1", PhoneNumber: "9876543210", Name: "Asha"}))

	require.NoError(t, err)
	assert.Equal(t, 1, result.Successful)
	assert.Equal(t, HistoryNotPersisted, result.Warning)
	assert.Empty(t, result.HistoryID)
}

func TestBulkService_CancelledContextDoesNotAbort(t *testing.T) {
	transport := new(mockTransport)
	transport.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything).Return(&models.ProviderResponse{MessageID: "wamid"}, nil)

	service := newTestBulkService(t, transport, db.SetupTestDB(t).BulkHistory(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := service.Dispatch(ctx, reminderRequest(
		models.Recipient{ID: "r1", PhoneNumber: "9876543210", Name: "Asha"},
		models.Recipient{ID: "r2", PhoneNumber: "9876543211", Name: "Ravi"},
		models.Recipient{ID: "r3", PhoneNumber: "9876543212", Name: "Meena"},
	))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Successful)
	assert.NotEmpty(t, result.HistoryID)
}

func TestBulkService_Pacing(t *testing.T) {
	transport := new(mockTransport)
	transport.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything).Return(&models.ProviderResponse{MessageID: "wamid"}, nil)

	service := newTestBulkService(t, transport, db.SetupTestDB(t).BulkHistory(), 50*time.Millisecond)

	start := time.Now()
	_, err := service.Dispatch(context.Background(), reminderRequest(
		models.Recipient{ID: "r1", PhoneNumber: "9876543210", Name: "Asha"},
		models.Recipient{ID: "r2", PhoneNumber: "9876543211", Name: "Ravi"},
		models.Recipient{ID: "r3", PhoneNumber: "9876543212", Name: "Meena"},
	))
	require.NoError(t, err)

	// first send is immediate, the next two wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestBulkService_History(t *testing.T) {
	history := new(mockHistoryRepository)
	history.On("List", mock.Anything, 100, 0).Return([]*models.BulkHistoryRecord{{ID: "h1"}}, 1, nil)
	history.On("Delete", mock.Anything, "h1").Return(nil)
	history.On("Delete", mock.Anything, "missing").Return(&models.StoreError{Op: "delete", Code: models.StoreNotFound})

	service := newTestBulkService(t, new(mockTransport), history, 0)
	ctx := context.Background()

	records, total, err := service.History(ctx, 500, -1)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, records, 1)

	assert.NoError(t, service.DeleteHistory(ctx, "h1"))

	err = service.DeleteHistory(ctx, "missing")
	assert.Equal(t, models.StoreNotFound, models.StoreCode(err))

	assert.True(t, models.IsValidation(service.DeleteHistory(ctx, " ")))
}
