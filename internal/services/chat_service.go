package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wa-relay-server/internal/db"
	"wa-relay-server/internal/models"
	"wa-relay-server/pkg/logger"

	"go.uber.org/zap"
)

// TextSender delivers free-form text to a recipient.
type TextSender interface {
	SendText(ctx context.Context, to, body string) (*models.ProviderResponse, error)
}

// ChatService writes chat records and serves the admin chat UI.
type ChatService struct {
	chats       db.ChatRepository
	retention   *RetentionPolicy
	sender      TextSender
	countryCode string
	now         func() time.Time
}

// NewChatService creates a ChatService. sender may be nil when outbound chat is disabled.
func NewChatService(chats db.ChatRepository, retention *RetentionPolicy, sender TextSender, countryCode string) *ChatService {
	if retention == nil {
		retention = NewRetentionPolicy(chats, models.MaxChatMessages)
	}
	return &ChatService{
		chats:       chats,
		retention:   retention,
		sender:      sender,
		countryCode: countryCode,
		now:         time.Now,
	}
}

// Append stores msg in the partition, updates its lastUpdated and then trims it.
// Store failures of the append are returned; trim failures only show in the outcome.
func (s *ChatService) Append(ctx context.Context, ref models.PartitionRef, msg *models.ChatMessage) (TrimOutcome, error) {
	if err := s.chats.AppendMessage(ctx, ref, msg); err != nil {
		return TrimOutcome{}, err
	}
	return s.retention.Enforce(ctx, ref), nil
}

// SendAdminMessage delivers text to the phone number and records it as an admin message.
func (s *ChatService) SendAdminMessage(ctx context.Context, class models.PartitionClass, req models.SendChatRequest) (*models.ChatMessage, error) {
	if !class.Valid() {
		return nil, models.NewValidationError("class", "unknown partition class %q", class)
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		return nil, models.NewValidationError("phoneNumber", "phone number is required")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, models.NewValidationError("message", "message is required")
	}

	to, err := NormalizePhone(req.PhoneNumber, s.countryCode)
	if err != nil {
		return nil, models.NewValidationError("phoneNumber", "%s", models.InvalidPhoneNumber)
	}

	if s.sender == nil {
		return nil, fmt.Errorf("outbound messaging is not configured")
	}
	if _, err := s.sender.SendText(ctx, to, req.Message); err != nil {
		return nil, err
	}

	ref := models.PartitionRef{Class: class, Key: PartitionKey(to)}
	msg := models.NewTextMessage(models.SenderAdmin, req.Message, s.now())
	outcome, err := s.Append(ctx, ref, msg)
	if err != nil {
		return nil, err
	}
	if outcome.Err != nil {
		logger.Warn("Chat retention failed after admin send", zap.String("partition", ref.String()), zap.Error(outcome.Err))
	}

	return msg, nil
}

// History returns the retained messages of a partition in ascending time order.
func (s *ChatService) History(ctx context.Context, class models.PartitionClass, phoneNumber string) ([]*models.ChatMessage, error) {
	if !class.Valid() {
		return nil, models.NewValidationError("class", "unknown partition class %q", class)
	}
	key := PartitionKey(phoneNumber)
	if key == "" {
		return nil, models.NewValidationError("phoneNumber", "phone number is required")
	}

	return s.chats.RecentMessages(ctx, models.PartitionRef{Class: class, Key: key}, s.retention.MaxSize())
}
