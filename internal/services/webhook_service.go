package services

import (
	"context"
	"errors"
	"time"

	"wa-relay-server/internal/eventlog"
	"wa-relay-server/internal/models"
	"wa-relay-server/pkg/logger"

	"go.uber.org/zap"
)

// ErrInvalidPayload indicates a callback that is not a business account notification.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// WebhookSummary counts what one callback delivered.
type WebhookSummary struct {
	Messages int `json:"messages"`
	Stored   int `json:"stored"`
	Media    int `json:"media"`
	Statuses int `json:"statuses"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// WebhookService dispatches provider callbacks to the classifier, the chat
// writer and the media pipeline.
type WebhookService struct {
	classifier  *Classifier
	chats       *ChatService
	media       *MediaService
	events      eventlog.Log
	verifyToken string
	now         func() time.Time
}

func NewWebhookService(classifier *Classifier, chats *ChatService, media *MediaService, events eventlog.Log, verifyToken string) *WebhookService {
	return &WebhookService{
		classifier:  classifier,
		chats:       chats,
		media:       media,
		events:      events,
		verifyToken: verifyToken,
		now:         time.Now,
	}
}

// VerifySubscription checks a subscription handshake and returns the challenge to echo.
func (s *WebhookService) VerifySubscription(mode, token, challenge string) (string, bool) {
	if s.verifyToken == "" || mode != "subscribe" || token != s.verifyToken {
		return "", false
	}
	return challenge, true
}

// Process handles every message and status in payload. A message that fails
// to classify or store is recorded with its error and counted as failed; the
// remaining messages and statuses are still processed.
func (s *WebhookService) Process(ctx context.Context, payload *models.WebhookPayload) (*WebhookSummary, error) {
	if payload == nil || payload.Object != models.WebhookObject {
		return nil, ErrInvalidPayload
	}

	summary := &WebhookSummary{}
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				summary.Messages++
				s.handleMessage(ctx, msg, summary)
			}
			for _, st := range change.Value.Statuses {
				summary.Statuses++
				s.handleStatus(ctx, st)
			}
		}
	}

	return summary, nil
}

func (s *WebhookService) handleMessage(ctx context.Context, msg models.InboundMessage, summary *WebhookSummary) {
	event := models.WebhookEvent{
		Kind:       "message",
		From:       msg.From,
		MessageID:  msg.ID,
		Type:       msg.Type,
		ReceivedAt: s.now().UTC(),
	}

	c, err := s.classifier.Classify(ctx, msg)
	if errors.Is(err, ErrEmptySender) {
		summary.Skipped++
		event.Error = err.Error()
		s.record(ctx, event)
		return
	}
	if err != nil {
		s.fail(ctx, event, summary, err)
		return
	}
	event.Partition = c.Ref.String()

	switch c.Kind {
	case KindText:
		outcome, err := s.chats.Append(ctx, c.Ref, c.Record)
		if err != nil {
			s.fail(ctx, event, summary, err)
			return
		}
		if outcome.Err != nil {
			event.Error = outcome.Err.Error()
		}
		summary.Stored++

	case KindImage:
		if s.media == nil {
			summary.Skipped++
			break
		}
		result, err := s.media.AttachInbound(ctx, c.Ref.Key, c.Media)
		switch {
		case err != nil:
			logger.Warn("Inbound media discarded",
				zap.String("message_id", msg.ID),
				zap.String("partition", c.Ref.String()),
				zap.Error(err))
			event.Error = err.Error()
			summary.Skipped++
		case result.Duplicate:
			logger.Info("Inbound media already attached", zap.String("media_id", c.Media.ID))
			summary.Skipped++
		default:
			summary.Media++
		}

	default:
		logger.Debug("Unsupported inbound message type", zap.String("type", msg.Type), zap.String("message_id", msg.ID))
		summary.Skipped++
	}

	s.record(ctx, event)
}

func (s *WebhookService) fail(ctx context.Context, event models.WebhookEvent, summary *WebhookSummary, err error) {
	logger.Error("Failed to process inbound message",
		zap.String("message_id", event.MessageID),
		zap.String("partition", event.Partition),
		zap.Error(err))
	summary.Failed++
	event.Error = err.Error()
	s.record(ctx, event)
}

func (s *WebhookService) handleStatus(ctx context.Context, st models.DeliveryStatus) {
	event := models.WebhookEvent{
		Kind:       "status",
		MessageID:  st.ID,
		Status:     st.Status,
		From:       st.RecipientID,
		ReceivedAt: s.now().UTC(),
	}
	if len(st.Errors) > 0 {
		event.Error = st.Errors[0].Title
		logger.Warn("Outbound message delivery failed",
			zap.String("message_id", st.ID),
			zap.Int("code", st.Errors[0].Code),
			zap.String("title", st.Errors[0].Title))
	}
	s.record(ctx, event)
}

func (s *WebhookService) record(ctx context.Context, ev models.WebhookEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, ev); err != nil {
		logger.Warn("Failed to record webhook event", zap.Error(err))
	}
}

// RecentEvents returns the newest recorded webhook events.
func (s *WebhookService) RecentEvents(ctx context.Context, n int) ([]models.WebhookEvent, error) {
	if s.events == nil {
		return []models.WebhookEvent{}, nil
	}
	return s.events.Recent(ctx, n)
}
