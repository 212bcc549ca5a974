package models

import "time"

// DispatchStatus is the outcome of one recipient in a bulk send.
type DispatchStatus string

const (
	DispatchSuccess DispatchStatus = "success"
	DispatchFailed  DispatchStatus = "failed"
)

// InvalidPhoneNumber is the detail recorded for recipients whose number cannot be normalized.
const InvalidPhoneNumber = "InvalidPhoneNumber"

// Recipient is one entry of a bulk send request.
type Recipient struct {
	ID          string `json:"id"`
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name"`
}

// DispatchDetail is the per-recipient line of a bulk result.
type DispatchDetail struct {
	RecipientID string         `json:"recipientId" bson:"recipientId"`
	Name        string         `json:"name,omitempty" bson:"name,omitempty"`
	PhoneNumber string         `json:"phoneNumber,omitempty" bson:"phoneNumber,omitempty"`
	Status      DispatchStatus `json:"status" bson:"status"`
	MessageID   string         `json:"messageId,omitempty" bson:"messageId,omitempty"`
	Error       string         `json:"error,omitempty" bson:"error,omitempty"`
}

// BulkDispatchResult aggregates a bulk send. Details keep request order.
type BulkDispatchResult struct {
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Details    []DispatchDetail `json:"details"`
	HistoryID  string           `json:"historyId,omitempty"`
	Warning    string           `json:"warning,omitempty"`
}

// BulkSendRequest is the body of POST /api/bulk-message/send
type BulkSendRequest struct {
	Recipients   []Recipient    `json:"recipients"`
	TemplateName string         `json:"templateName"`
	Params       TemplateParams `json:"params"`
}

// BulkHistoryRecord is the immutable persisted summary of one bulk send.
type BulkHistoryRecord struct {
	ID           string           `json:"id" bson:"_id"`
	TemplateName string           `json:"templateName" bson:"templateName"`
	Tournament   string           `json:"tournament" bson:"tournament"`
	Total        int              `json:"total" bson:"total"`
	Successful   int              `json:"successful" bson:"successful"`
	Failed       int              `json:"failed" bson:"failed"`
	Details      []DispatchDetail `json:"details" bson:"details"`
	CreatedAt    time.Time        `json:"createdAt" bson:"createdAt"`
}
