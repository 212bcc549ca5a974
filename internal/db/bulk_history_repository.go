package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"wa-relay-server/internal/models"

	"github.com/google/uuid"
)

// BulkHistoryRepository defines the interface for bulk send history records
type BulkHistoryRepository interface {
	Create(ctx context.Context, rec *models.BulkHistoryRecord) error
	GetByID(ctx context.Context, id string) (*models.BulkHistoryRecord, error)
	List(ctx context.Context, limit, offset int) ([]*models.BulkHistoryRecord, int, error)
	Delete(ctx context.Context, id string) error
}

type bulkHistoryRepository struct {
	db *sql.DB
}

// NewBulkHistoryRepository creates a new BulkHistoryRepository
func NewBulkHistoryRepository(db *sql.DB) BulkHistoryRepository {
	return &bulkHistoryRepository{db: db}
}

func (r *bulkHistoryRepository) Create(ctx context.Context, rec *models.BulkHistoryRecord) error {
	if rec == nil {
		return fmt.Errorf("history record cannot be nil")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	details, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO bulk_message_history (id, template_name, tournament, total, successful, failed, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.TemplateName, rec.Tournament, rec.Total, rec.Successful, rec.Failed, string(details), rec.CreatedAt.UnixNano())
	if err != nil {
		return wrapStoreError("create bulk history", err)
	}
	return nil
}

func (r *bulkHistoryRepository) GetByID(ctx context.Context, id string) (*models.BulkHistoryRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("history ID cannot be empty")
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, template_name, tournament, total, successful, failed, details, created_at
		FROM bulk_message_history
		WHERE id = ?
	`, id)

	rec, err := scanHistory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreError("get bulk history", err)
	}
	return rec, nil
}

// List returns records newest first together with the total record count
func (r *bulkHistoryRepository) List(ctx context.Context, limit, offset int) ([]*models.BulkHistoryRecord, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bulk_message_history").Scan(&total); err != nil {
		return nil, 0, wrapStoreError("count bulk history", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, template_name, tournament, total, successful, failed, details, created_at
		FROM bulk_message_history
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, wrapStoreError("list bulk history", err)
	}
	defer rows.Close()

	records := []*models.BulkHistoryRecord{}
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, 0, wrapStoreError("list bulk history", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapStoreError("list bulk history", err)
	}

	return records, total, nil
}

// Delete removes a record; a missing id yields a StoreError with StoreNotFound
func (r *bulkHistoryRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("history ID cannot be empty")
	}

	res, err := r.db.ExecContext(ctx, "DELETE FROM bulk_message_history WHERE id = ?", id)
	if err != nil {
		return wrapStoreError("delete bulk history", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return wrapStoreError("delete bulk history", err)
	}
	if n == 0 {
		return &models.StoreError{Op: "delete bulk history", Code: models.StoreNotFound, Err: fmt.Errorf("history record %s not found", id)}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanHistory(row rowScanner) (*models.BulkHistoryRecord, error) {
	var (
		rec        models.BulkHistoryRecord
		tournament sql.NullString
		details    string
		createdAt  int64
	)
	if err := row.Scan(&rec.ID, &rec.TemplateName, &tournament, &rec.Total, &rec.Successful, &rec.Failed, &details, &createdAt); err != nil {
		return nil, err
	}

	rec.Tournament = tournament.String
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	if err := json.Unmarshal([]byte(details), &rec.Details); err != nil {
		return nil, fmt.Errorf("failed to decode details: %w", err)
	}
	return &rec, nil
}
