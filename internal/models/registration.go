package models

import "time"

// ImageStatus flags the review state of images attached to a registration.
type ImageStatus string

const (
	ImageStatusNone     ImageStatus = ""
	ImageStatusReceived ImageStatus = "received"
)

// Registration is owned by the registration subsystem. The relay only looks
// registrations up by phone key and appends inbound images to them.
type Registration struct {
	ID          string              `json:"id" bson:"_id"`
	PhoneKey    string              `json:"phoneKey" bson:"phoneKey"`
	Name        string              `json:"name" bson:"name"`
	Tournament  string              `json:"tournament,omitempty" bson:"tournament,omitempty"`
	Images      []RegistrationImage `json:"images" bson:"images"`
	ImageStatus ImageStatus         `json:"imageStatus,omitempty" bson:"imageStatus,omitempty"`
	CreatedAt   time.Time           `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt" bson:"updatedAt"`
}

// RegistrationImage is one uploaded image attached to a registration.
type RegistrationImage struct {
	URL        string    `json:"url" bson:"url"`
	PublicID   string    `json:"publicId" bson:"publicId"`
	MediaID    string    `json:"mediaId" bson:"mediaId"`
	ReceivedAt time.Time `json:"receivedAt" bson:"receivedAt"`
}

// HasMedia reports whether an image with the provider media id is already attached.
func (r *Registration) HasMedia(mediaID string) bool {
	if r == nil || mediaID == "" {
		return false
	}
	for _, img := range r.Images {
		if img.MediaID == mediaID {
			return true
		}
	}
	return false
}
