package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"wa-relay-server/internal/models"
)

// ChatRepository defines the interface for chat partition data access
type ChatRepository interface {
	AppendMessage(ctx context.Context, ref models.PartitionRef, msg *models.ChatMessage) error
	CountMessages(ctx context.Context, ref models.PartitionRef) (int, error)
	DeleteOldest(ctx context.Context, ref models.PartitionRef, n int) (int, error)
	RecentMessages(ctx context.Context, ref models.PartitionRef, limit int) ([]*models.ChatMessage, error)
	GetPartition(ctx context.Context, ref models.PartitionRef) (*models.ChatPartition, error)
}

type chatRepository struct {
	db *sql.DB
}

// NewChatRepository creates a new ChatRepository
func NewChatRepository(db *sql.DB) ChatRepository {
	return &chatRepository{db: db}
}

func validateRef(ref models.PartitionRef) error {
	if !ref.Class.Valid() {
		return fmt.Errorf("invalid partition class %q", ref.Class)
	}
	if ref.Key == "" {
		return fmt.Errorf("partition key cannot be empty")
	}
	return nil
}

// AppendMessage inserts msg and merges the partition's lastUpdated in one transaction
func (r *chatRepository) AppendMessage(ctx context.Context, ref models.PartitionRef, msg *models.ChatMessage) error {
	if err := validateRef(ref); err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("message cannot be nil")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreError("append message", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO chat_messages (class, phone_key, sender, body, sent_at, is_read, type)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ref.Class, ref.Key, msg.From, msg.Text, msg.Timestamp.UnixNano(), msg.Read, msg.Type)
	if err != nil {
		return wrapStoreError("append message", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO chat_partitions (class, phone_key, last_updated)
		VALUES (?, ?, ?)
		ON CONFLICT (class, phone_key) DO UPDATE SET last_updated = excluded.last_updated
	`, ref.Class, ref.Key, msg.Timestamp.UnixNano()); err != nil {
		return wrapStoreError("update partition", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapStoreError("append message", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		msg.ID = strconv.FormatInt(id, 10)
	}
	return nil
}

func (r *chatRepository) CountMessages(ctx context.Context, ref models.PartitionRef) (int, error) {
	if err := validateRef(ref); err != nil {
		return 0, err
	}

	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM chat_messages WHERE class = ? AND phone_key = ?",
		ref.Class, ref.Key,
	).Scan(&count)
	if err != nil {
		return 0, wrapStoreError("count messages", err)
	}
	return count, nil
}

// DeleteOldest removes the n oldest messages of a partition as a single batch
func (r *chatRepository) DeleteOldest(ctx context.Context, ref models.PartitionRef, n int) (int, error) {
	if err := validateRef(ref); err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrapStoreError("delete oldest", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM chat_messages
		WHERE id IN (
			SELECT id FROM chat_messages
			WHERE class = ? AND phone_key = ?
			ORDER BY sent_at ASC, id ASC
			LIMIT ?
		)
	`, ref.Class, ref.Key, n)
	if err != nil {
		return 0, wrapStoreError("delete oldest", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, wrapStoreError("delete oldest", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, wrapStoreError("delete oldest", err)
	}
	return int(deleted), nil
}

// RecentMessages returns up to limit newest messages in ascending timestamp order
func (r *chatRepository) RecentMessages(ctx context.Context, ref models.PartitionRef, limit int) ([]*models.ChatMessage, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = models.MaxChatMessages
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, sender, body, sent_at, is_read, type
		FROM chat_messages
		WHERE class = ? AND phone_key = ?
		ORDER BY sent_at DESC, id DESC
		LIMIT ?
	`, ref.Class, ref.Key, limit)
	if err != nil {
		return nil, wrapStoreError("recent messages", err)
	}
	defer rows.Close()

	messages := []*models.ChatMessage{}
	for rows.Next() {
		var (
			id     int64
			sentAt int64
			msg    models.ChatMessage
		)
		if err := rows.Scan(&id, &msg.From, &msg.Text, &sentAt, &msg.Read, &msg.Type); err != nil {
			return nil, wrapStoreError("recent messages", err)
		}
		msg.ID = strconv.FormatInt(id, 10)
		msg.Timestamp = time.Unix(0, sentAt).UTC()
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError("recent messages", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// GetPartition returns nil, nil when the partition has never been written
func (r *chatRepository) GetPartition(ctx context.Context, ref models.PartitionRef) (*models.ChatPartition, error) {
	if err := validateRef(ref); err != nil {
		return nil, err
	}

	var lastUpdated int64
	err := r.db.QueryRowContext(ctx,
		"SELECT last_updated FROM chat_partitions WHERE class = ? AND phone_key = ?",
		ref.Class, ref.Key,
	).Scan(&lastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreError("get partition", err)
	}

	return &models.ChatPartition{
		Class:       ref.Class,
		Key:         ref.Key,
		LastUpdated: time.Unix(0, lastUpdated).UTC(),
	}, nil
}
