package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"wa-relay-server/internal/models"

	"github.com/mattn/go-sqlite3"
)

// Store bundles the repositories of one storage backend.
type Store interface {
	Chats() ChatRepository
	Registrations() RegistrationRepository
	BulkHistory() BulkHistoryRepository
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*Database)(nil)
	_ Store = (*MongoStore)(nil)
)

// Database is the SQLite backed Store.
type Database struct {
	db *sql.DB
}

func NewDatabase(dsn string) (*Database, error) {
	if dsn == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("ping failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	if err := createTables(db); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("create tables failed: %w, close failed: %v", err, closeErr)
		}
		return nil, err
	}

	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		PRAGMA foreign_keys = ON;

		CREATE TABLE IF NOT EXISTS chat_partitions (
			class TEXT NOT NULL,
			phone_key TEXT NOT NULL,
			last_updated INTEGER NOT NULL,
			PRIMARY KEY (class, phone_key)
		);

		CREATE TABLE IF NOT EXISTS chat_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			class TEXT NOT NULL,
			phone_key TEXT NOT NULL,
			sender TEXT NOT NULL,
			body TEXT NOT NULL,
			sent_at INTEGER NOT NULL,
			is_read BOOLEAN NOT NULL DEFAULT 0,
			type TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS registrations (
			id TEXT PRIMARY KEY,
			phone_key TEXT NOT NULL,
			name TEXT NOT NULL,
			tournament TEXT,
			image_status TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS registration_images (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			registration_id TEXT NOT NULL,
			url TEXT NOT NULL,
			public_id TEXT,
			media_id TEXT,
			received_at INTEGER NOT NULL,
			FOREIGN KEY (registration_id) REFERENCES registrations(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS bulk_message_history (
			id TEXT PRIMARY KEY,
			template_name TEXT NOT NULL,
			tournament TEXT,
			total INTEGER NOT NULL,
			successful INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			details TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_chat_messages_partition ON chat_messages(class, phone_key, sent_at);
		CREATE INDEX IF NOT EXISTS idx_registrations_phone_key ON registrations(phone_key);
		CREATE INDEX IF NOT EXISTS idx_registration_images_registration ON registration_images(registration_id);
		CREATE INDEX IF NOT EXISTS idx_bulk_history_created_at ON bulk_message_history(created_at);
	`)
	return err
}

// GetDB returns the underlying connection pool
func (d *Database) GetDB() *sql.DB {
	return d.db
}

func (d *Database) Chats() ChatRepository {
	return NewChatRepository(d.db)
}

func (d *Database) Registrations() RegistrationRepository {
	return NewRegistrationRepository(d.db)
}

func (d *Database) BulkHistory() BulkHistoryRepository {
	return NewBulkHistoryRepository(d.db)
}

func (d *Database) Ping(ctx context.Context) error {
	if d == nil || d.db == nil {
		return &models.StoreError{Op: "ping", Code: models.StoreUnavailable, Err: errors.New("database is closed")}
	}
	return wrapStoreError("ping", d.db.PingContext(ctx))
}

func (d *Database) Close() error {
	if d == nil {
		return errors.New("database is nil")
	}

	if d.db == nil {
		return errors.New("database already closed")
	}

	err := d.db.Close()
	d.db = nil
	return err
}

// wrapStoreError classifies a driver error as a models.StoreError.
func wrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}

	var existing *models.StoreError
	if errors.As(err, &existing) {
		return err
	}

	code := models.StoreInternal
	var sqliteErr sqlite3.Error
	switch {
	case errors.As(err, &sqliteErr):
		switch sqliteErr.Code {
		case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
			code = models.StorePermissionDenied
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen, sqlite3.ErrIoErr:
			code = models.StoreUnavailable
		}
	case errors.Is(err, sql.ErrConnDone),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		strings.Contains(err.Error(), "database is closed"):
		code = models.StoreUnavailable
	}

	return &models.StoreError{Op: op, Code: code, Err: err}
}
