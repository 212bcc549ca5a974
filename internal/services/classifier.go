package services

import (
	"context"
	"errors"
	"fmt"

	"wa-relay-server/internal/models"
)

// MessageKind is how the relay handles an inbound message.
type MessageKind string

const (
	KindText        MessageKind = "text"
	KindImage       MessageKind = "image"
	KindUnsupported MessageKind = "unsupported"
)

// ErrEmptySender indicates an inbound message without a usable sender id.
var ErrEmptySender = errors.New("inbound message has no sender")

// RegistrationLookup answers whether a phone key belongs to a registration.
type RegistrationLookup interface {
	ExistsByPhoneKey(ctx context.Context, phoneKey string) (bool, error)
}

// Classification is the routing decision for one inbound message.
// Record is only set for text; Media only for images.
type Classification struct {
	Ref    models.PartitionRef
	Kind   MessageKind
	Record *models.ChatMessage
	Media  *models.InboundMedia
}

// Classifier picks the partition and kind of inbound messages.
type Classifier struct {
	registrations RegistrationLookup
}

func NewClassifier(registrations RegistrationLookup) *Classifier {
	return &Classifier{registrations: registrations}
}

// Classify routes msg to the registered partition when its sender has a
// registration and to the support partition otherwise.
func (c *Classifier) Classify(ctx context.Context, msg models.InboundMessage) (*Classification, error) {
	key := PartitionKey(msg.From)
	if key == "" {
		return nil, ErrEmptySender
	}

	registered, err := c.registrations.ExistsByPhoneKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("registration lookup failed: %w", err)
	}

	class := models.PartitionSupport
	if registered {
		class = models.PartitionRegistered
	}

	result := &Classification{
		Ref:  models.PartitionRef{Class: class, Key: key},
		Kind: KindUnsupported,
	}

	switch {
	case msg.Type == "text" && msg.Text != nil:
		result.Kind = KindText
		result.Record = models.NewTextMessage(models.SenderUser, msg.Text.Body, msg.SentAt())
	case msg.Type == "image" && msg.Image != nil:
		result.Kind = KindImage
		result.Media = msg.Image
	}

	return result, nil
}
