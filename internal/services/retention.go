package services

import (
	"context"

	"wa-relay-server/internal/db"
	"wa-relay-server/internal/models"
	"wa-relay-server/pkg/logger"

	"go.uber.org/zap"
)

// TrimOutcome reports what one retention pass did.
// Err is set when the store failed; it is never returned to writers.
type TrimOutcome struct {
	Trimmed int
	Err     error
}

// RetentionPolicy keeps a chat partition at most MaxSize messages long.
type RetentionPolicy struct {
	chats   db.ChatRepository
	maxSize int
}

// NewRetentionPolicy creates a policy; non-positive sizes use models.MaxChatMessages.
func NewRetentionPolicy(chats db.ChatRepository, maxSize int) *RetentionPolicy {
	if maxSize <= 0 {
		maxSize = models.MaxChatMessages
	}
	return &RetentionPolicy{chats: chats, maxSize: maxSize}
}

// MaxSize returns the retention window.
func (p *RetentionPolicy) MaxSize() int {
	return p.maxSize
}

// Enforce deletes the oldest messages of ref beyond the window in one batch.
// Running it on a partition within the window is a no-op.
func (p *RetentionPolicy) Enforce(ctx context.Context, ref models.PartitionRef) TrimOutcome {
	count, err := p.chats.CountMessages(ctx, ref)
	if err != nil {
		logger.Warn("Retention count failed", zap.String("partition", ref.String()), zap.Error(err))
		return TrimOutcome{Err: err}
	}
	if count <= p.maxSize {
		return TrimOutcome{}
	}

	deleted, err := p.chats.DeleteOldest(ctx, ref, count-p.maxSize)
	if err != nil {
		logger.Warn("Retention trim failed", zap.String("partition", ref.String()), zap.Error(err))
		return TrimOutcome{Err: err}
	}

	logger.Debug("Partition trimmed", zap.String("partition", ref.String()), zap.Int("trimmed", deleted))
	return TrimOutcome{Trimmed: deleted}
}
