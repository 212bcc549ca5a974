package models

import (
	"fmt"
	"time"
)

// MaxChatMessages is the retention window of every chat partition.
const MaxChatMessages = 10

// PartitionClass selects which chat collection a conversation lives in.
type PartitionClass string

const (
	// PartitionRegistered holds chats with senders that have a registration
	PartitionRegistered PartitionClass = "registered"
	// PartitionSupport holds chats with unknown senders
	PartitionSupport PartitionClass = "support"
)

// Valid reports whether c is one of the known partition classes.
func (c PartitionClass) Valid() bool {
	return c == PartitionRegistered || c == PartitionSupport
}

// Sender identifies who wrote a chat message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAdmin Sender = "admin"
)

// MessageType is the kind of a stored chat message. Only text is persisted.
type MessageType string

const (
	MessageTypeText MessageType = "text"
)

// ChatMessage is a single record in a chat partition.
// Records are immutable apart from the Read flag.
type ChatMessage struct {
	ID        string      `json:"id,omitempty" bson:"_id,omitempty"`
	From      Sender      `json:"from" bson:"from"`
	Text      string      `json:"text" bson:"text"`
	Timestamp time.Time   `json:"timestamp" bson:"timestamp"`
	Read      bool        `json:"read" bson:"read"`
	Type      MessageType `json:"type" bson:"type"`
}

// NewTextMessage builds a text record stamped in UTC.
func NewTextMessage(from Sender, text string, at time.Time) *ChatMessage {
	if at.IsZero() {
		at = time.Now()
	}
	return &ChatMessage{
		From:      from,
		Text:      text,
		Timestamp: at.UTC(),
		Read:      false,
		Type:      MessageTypeText,
	}
}

// PartitionRef addresses one chat partition.
type PartitionRef struct {
	Class PartitionClass
	Key   string
}

func (p PartitionRef) String() string {
	return fmt.Sprintf("%s/%s", p.Class, p.Key)
}

// ChatPartition is the metadata document of a conversation.
type ChatPartition struct {
	Class       PartitionClass `json:"class" bson:"class"`
	Key         string         `json:"phoneKey" bson:"phoneKey"`
	LastUpdated time.Time      `json:"lastUpdated" bson:"lastUpdated"`
}

// SendChatRequest is the body of the admin send endpoints
type SendChatRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}
