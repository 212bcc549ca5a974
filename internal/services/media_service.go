package services

import (
	"bytes"
	"context"
	"errors"
	"time"

	"wa-relay-server/internal/db"
	"wa-relay-server/internal/media"
	"wa-relay-server/internal/models"
	"wa-relay-server/internal/whatsapp"
)

// ErrNoRegistration indicates inbound media from a sender without a registration.
var ErrNoRegistration = errors.New("no registration for sender")

// MediaFetcher resolves and downloads provider media.
type MediaFetcher interface {
	GetMediaURL(ctx context.Context, mediaID string) (*whatsapp.MediaInfo, error)
	DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error)
}

// AttachResult describes what happened to one inbound image.
type AttachResult struct {
	Attached  bool
	Duplicate bool
	URL       string
}

// MediaService copies inbound images to the CDN and attaches them to registrations.
type MediaService struct {
	registrations db.RegistrationRepository
	fetcher       MediaFetcher
	uploader      media.Uploader
	now           func() time.Time
}

func NewMediaService(registrations db.RegistrationRepository, fetcher MediaFetcher, uploader media.Uploader) *MediaService {
	return &MediaService{
		registrations: registrations,
		fetcher:       fetcher,
		uploader:      uploader,
		now:           time.Now,
	}
}

// AttachInbound fetches the image behind img, uploads it and appends it to the
// sender's registration. The registration is read first so a redelivered media
// id is not uploaded again. Failures are returned as *models.MediaProcessingError.
func (s *MediaService) AttachInbound(ctx context.Context, phoneKey string, img *models.InboundMedia) (*AttachResult, error) {
	if img == nil || img.ID == "" {
		return nil, &models.MediaProcessingError{Stage: "validate", Err: errors.New("missing media id")}
	}
	fail := func(stage string, err error) (*AttachResult, error) {
		return nil, &models.MediaProcessingError{Stage: stage, MediaID: img.ID, Err: err}
	}

	reg, err := s.registrations.FindByPhoneKey(ctx, phoneKey)
	if err != nil {
		return fail("lookup", err)
	}
	if reg == nil {
		return fail("lookup", ErrNoRegistration)
	}
	if reg.HasMedia(img.ID) {
		return &AttachResult{Duplicate: true}, nil
	}

	if s.fetcher == nil || s.uploader == nil {
		return fail("configure", errors.New("media pipeline is not configured"))
	}

	info, err := s.fetcher.GetMediaURL(ctx, img.ID)
	if err != nil {
		return fail("resolve", err)
	}

	data, err := s.fetcher.DownloadMedia(ctx, info.URL)
	if err != nil {
		return fail("download", err)
	}

	uploaded, err := s.uploader.Upload(ctx, bytes.NewReader(data), img.ID)
	if err != nil {
		return fail("upload", err)
	}

	attached := models.RegistrationImage{
		URL:        uploaded.URL,
		PublicID:   uploaded.PublicID,
		MediaID:    img.ID,
		ReceivedAt: s.now().UTC(),
	}
	if err := s.registrations.AttachImage(ctx, reg.ID, attached, models.ImageStatusReceived); err != nil {
		return fail("attach", err)
	}

	return &AttachResult{Attached: true, URL: uploaded.URL}, nil
}
