package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wa-relay-server/internal/db"
	"wa-relay-server/internal/models"
	"wa-relay-server/internal/whatsapp"
	"wa-relay-server/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultSendInterval is the pause between two bulk sends.
	DefaultSendInterval = 100 * time.Millisecond

	// HistoryNotPersisted is the warning returned when the summary could not be stored.
	HistoryNotPersisted = "bulk history could not be persisted"

	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// TemplateDispatcher composes and sends templates. Implemented by TemplateSender.
type TemplateDispatcher interface {
	Compose(name string, params models.TemplateParams) (whatsapp.Template, error)
	Send(ctx context.Context, to, name string, params models.TemplateParams) (*models.ProviderResponse, error)
}

// BulkService sends one template to many recipients, one at a time.
type BulkService struct {
	sender      TemplateDispatcher
	history     db.BulkHistoryRepository
	limiter     *rate.Limiter
	countryCode string
}

// NewBulkService creates a BulkService pacing sends by interval. A zero interval disables pacing.
func NewBulkService(sender TemplateDispatcher, history db.BulkHistoryRepository, interval time.Duration, countryCode string) *BulkService {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &BulkService{
		sender:      sender,
		history:     history,
		limiter:     rate.NewLimiter(limit, 1),
		countryCode: countryCode,
	}
}

func validateBulkRequest(req models.BulkSendRequest) error {
	if len(req.Recipients) == 0 {
		return models.NewValidationError("recipients", "at least one recipient is required")
	}
	for i, r := range req.Recipients {
		if strings.TrimSpace(r.ID) == "" || strings.TrimSpace(r.PhoneNumber) == "" || strings.TrimSpace(r.Name) == "" {
			return models.NewValidationError(fmt.Sprintf("recipients[%d]", i), "id, phoneNumber and name are required")
		}
	}
	if strings.TrimSpace(req.TemplateName) == "" {
		return models.NewValidationError("templateName", "template name is required")
	}
	if strings.TrimSpace(req.Params.Tournament) == "" {
		return models.NewValidationError("params.tournament", "tournament is required")
	}
	return nil
}

// Dispatch validates the whole request, then sends to each recipient in order.
// Per-recipient failures are recorded in the result. Cancelling ctx does not
// stop a batch that has started.
func (s *BulkService) Dispatch(ctx context.Context, req models.BulkSendRequest) (*models.BulkDispatchResult, error) {
	if err := validateBulkRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.sender.Compose(req.TemplateName, req.Params); err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	result := &models.BulkDispatchResult{
		Details: make([]models.DispatchDetail, 0, len(req.Recipients)),
	}

	for _, r := range req.Recipients {
		detail := models.DispatchDetail{RecipientID: r.ID, Name: r.Name, PhoneNumber: r.PhoneNumber}

		to, err := NormalizePhone(r.PhoneNumber, s.countryCode)
		if err != nil {
			detail.Status = models.DispatchFailed
			detail.Error = models.InvalidPhoneNumber
			result.Failed++
			result.Details = append(result.Details, detail)
			continue
		}
		detail.PhoneNumber = to

		if err := s.limiter.Wait(ctx); err != nil {
			detail.Status = models.DispatchFailed
			detail.Error = err.Error()
			result.Failed++
			result.Details = append(result.Details, detail)
			continue
		}

		resp, err := s.sender.Send(ctx, to, req.TemplateName, req.Params)
		if err != nil {
			logger.Warn("Bulk send failed",
				zap.String("recipient_id", r.ID),
				zap.String("template", req.TemplateName),
				zap.Error(err))
			detail.Status = models.DispatchFailed
			detail.Error = err.Error()
			result.Failed++
		} else {
			detail.Status = models.DispatchSuccess
			detail.MessageID = resp.MessageID
			result.Successful++
		}
		result.Details = append(result.Details, detail)
	}

	record := &models.BulkHistoryRecord{
		TemplateName: req.TemplateName,
		Tournament:   req.Params.Tournament,
		Total:        len(req.Recipients),
		Successful:   result.Successful,
		Failed:       result.Failed,
		Details:      result.Details,
	}
	if s.history == nil {
		result.Warning = HistoryNotPersisted
	} else if err := s.history.Create(ctx, record); err != nil {
		logger.Error("Failed to persist bulk history", zap.String("template", req.TemplateName), zap.Error(err))
		result.Warning = HistoryNotPersisted
	} else {
		result.HistoryID = record.ID
	}

	logger.Info("Bulk dispatch finished",
		zap.String("template", req.TemplateName),
		zap.Int("successful", result.Successful),
		zap.Int("failed", result.Failed))

	return result, nil
}

// History lists persisted bulk summaries, newest first, with the total count.
func (s *BulkService) History(ctx context.Context, limit, offset int) ([]*models.BulkHistoryRecord, int, error) {
	limit, offset = HistoryPage(limit, offset)
	return s.history.List(ctx, limit, offset)
}

// HistoryPage clamps a requested history page to the bounds History serves.
func HistoryPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// DeleteHistory removes one persisted summary.
func (s *BulkService) DeleteHistory(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return models.NewValidationError("id", "history id is required")
	}
	return s.history.Delete(ctx, id)
}
