package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"wa-relay-server/internal/models"

	"github.com/google/uuid"
)

// RegistrationRepository defines the lookups the relay performs on registrations
type RegistrationRepository interface {
	Create(ctx context.Context, reg *models.Registration) error
	FindByPhoneKey(ctx context.Context, phoneKey string) (*models.Registration, error)
	ExistsByPhoneKey(ctx context.Context, phoneKey string) (bool, error)
	AttachImage(ctx context.Context, id string, img models.RegistrationImage, status models.ImageStatus) error
}

type registrationRepository struct {
	db *sql.DB
}

// NewRegistrationRepository creates a new RegistrationRepository
func NewRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

// Create stores a registration. Used for seeding; registrations are owned elsewhere.
func (r *registrationRepository) Create(ctx context.Context, reg *models.Registration) error {
	if reg == nil {
		return fmt.Errorf("registration cannot be nil")
	}
	if reg.PhoneKey == "" {
		return fmt.Errorf("registration phone key cannot be empty")
	}

	if reg.ID == "" {
		reg.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	reg.CreatedAt = now
	reg.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO registrations (id, phone_key, name, tournament, image_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, reg.ID, reg.PhoneKey, reg.Name, reg.Tournament, reg.ImageStatus, now.UnixNano(), now.UnixNano())
	if err != nil {
		return wrapStoreError("create registration", err)
	}
	return nil
}

// FindByPhoneKey returns the oldest registration for the phone key, or nil, nil
func (r *registrationRepository) FindByPhoneKey(ctx context.Context, phoneKey string) (*models.Registration, error) {
	if phoneKey == "" {
		return nil, fmt.Errorf("phone key cannot be empty")
	}

	var (
		reg                  models.Registration
		tournament, status   sql.NullString
		createdAt, updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, phone_key, name, tournament, image_status, created_at, updated_at
		FROM registrations
		WHERE phone_key = ?
		ORDER BY created_at ASC
		LIMIT 1
	`, phoneKey).Scan(&reg.ID, &reg.PhoneKey, &reg.Name, &tournament, &status, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStoreError("find registration", err)
	}

	reg.Tournament = tournament.String
	reg.ImageStatus = models.ImageStatus(status.String)
	reg.CreatedAt = time.Unix(0, createdAt).UTC()
	reg.UpdatedAt = time.Unix(0, updatedAt).UTC()

	images, err := r.images(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	reg.Images = images

	return &reg, nil
}

func (r *registrationRepository) images(ctx context.Context, registrationID string) ([]models.RegistrationImage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT url, public_id, media_id, received_at
		FROM registration_images
		WHERE registration_id = ?
		ORDER BY id ASC
	`, registrationID)
	if err != nil {
		return nil, wrapStoreError("list registration images", err)
	}
	defer rows.Close()

	images := []models.RegistrationImage{}
	for rows.Next() {
		var (
			img               models.RegistrationImage
			publicID, mediaID sql.NullString
			receivedAt        int64
		)
		if err := rows.Scan(&img.URL, &publicID, &mediaID, &receivedAt); err != nil {
			return nil, wrapStoreError("list registration images", err)
		}
		img.PublicID = publicID.String
		img.MediaID = mediaID.String
		img.ReceivedAt = time.Unix(0, receivedAt).UTC()
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError("list registration images", err)
	}
	return images, nil
}

func (r *registrationRepository) ExistsByPhoneKey(ctx context.Context, phoneKey string) (bool, error) {
	if phoneKey == "" {
		return false, fmt.Errorf("phone key cannot be empty")
	}

	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM registrations WHERE phone_key = ?)",
		phoneKey,
	).Scan(&exists)
	if err != nil {
		return false, wrapStoreError("registration lookup", err)
	}
	return exists, nil
}

// AttachImage appends img to the registration's image list and sets its image status
func (r *registrationRepository) AttachImage(ctx context.Context, id string, img models.RegistrationImage, status models.ImageStatus) error {
	if id == "" {
		return fmt.Errorf("registration ID cannot be empty")
	}
	if img.URL == "" {
		return fmt.Errorf("image URL cannot be empty")
	}
	if img.ReceivedAt.IsZero() {
		img.ReceivedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStoreError("attach image", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		"UPDATE registrations SET image_status = ?, updated_at = ? WHERE id = ?",
		status, time.Now().UTC().UnixNano(), id,
	)
	if err != nil {
		return wrapStoreError("attach image", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &models.StoreError{Op: "attach image", Code: models.StoreNotFound, Err: fmt.Errorf("registration %s not found", id)}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO registration_images (registration_id, url, public_id, media_id, received_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, img.URL, img.PublicID, img.MediaID, img.ReceivedAt.UnixNano()); err != nil {
		return wrapStoreError("attach image", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapStoreError("attach image", err)
	}
	return nil
}
