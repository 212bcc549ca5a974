// Package whatsapp is a minimal client for the WhatsApp Cloud Graph API.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"wa-relay-server/internal/models"
)

const (
	// DefaultTimeout bounds every request to the provider.
	DefaultTimeout = 10 * time.Second

	maxMediaBytes = 16 << 20
	maxErrorBody  = 64 << 10
)

// Client talks to one business phone number of the Graph API.
type Client struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	client        *http.Client
}

// NewClient creates a client. A zero timeout falls back to DefaultTimeout.
func NewClient(baseURL, phoneNumberID, accessToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type MediaLink struct {
	Link string `json:"link"`
}

type Parameter struct {
	Type  string     `json:"type"`
	Text  string     `json:"text,omitempty"`
	Image *MediaLink `json:"image,omitempty"`
	Video *MediaLink `json:"video,omitempty"`
}

type Component struct {
	Type       string      `json:"type"`
	Parameters []Parameter `json:"parameters"`
}

type Language struct {
	Code string `json:"code"`
}

// Template is the template object of an outbound message.
type Template struct {
	Name       string      `json:"name"`
	Language   Language    `json:"language"`
	Components []Component `json:"components,omitempty"`
}

type textBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type outboundMessage struct {
	MessagingProduct string    `json:"messaging_product"`
	RecipientType    string    `json:"recipient_type"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Template         *Template `json:"template,omitempty"`
	Text             *textBody `json:"text,omitempty"`
}

type sendResponse struct {
	Contacts []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type errorResponse struct {
	Error struct {
		Message   string `json:"message"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// MediaInfo is the metadata returned for an inbound media id.
type MediaInfo struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	SHA256   string `json:"sha256"`
	FileSize int64  `json:"file_size"`
}

// SendTemplate sends a template message to the recipient.
func (c *Client) SendTemplate(ctx context.Context, to string, tmpl Template) (*models.ProviderResponse, error) {
	return c.send(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "template",
		Template:         &tmpl,
	})
}

// SendText sends a free-form text message.
func (c *Client) SendText(ctx context.Context, to, body string) (*models.ProviderResponse, error) {
	return c.send(ctx, outboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &textBody{Body: body},
	})
}

func (c *Client) send(ctx context.Context, msg outboundMessage) (*models.ProviderResponse, error) {
	reqBody, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var sr sendResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, &models.ProviderError{Message: "failed to decode response", HTTPStatus: http.StatusOK, Err: err}
	}
	if len(sr.Messages) == 0 || sr.Messages[0].ID == "" {
		return nil, &models.ProviderError{Message: fmt.Sprintf("missing message id in response body=%q", string(body)), HTTPStatus: http.StatusOK}
	}

	resp := &models.ProviderResponse{MessageID: sr.Messages[0].ID}
	if len(sr.Contacts) > 0 {
		resp.RecipientID = sr.Contacts[0].WaID
	}
	return resp, nil
}

// GetMediaURL resolves an inbound media id to its short-lived download URL.
func (c *Client) GetMediaURL(ctx context.Context, mediaID string) (*MediaInfo, error) {
	if mediaID == "" {
		return nil, errors.New("media id cannot be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, mediaID), nil)
	if err != nil {
		return nil, err
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var info MediaInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &models.ProviderError{Message: "failed to decode media info", HTTPStatus: http.StatusOK, Err: err}
	}
	if info.URL == "" {
		return nil, &models.ProviderError{Message: "media info has no url", HTTPStatus: http.StatusOK}
	}
	return &info, nil
}

// DownloadMedia fetches the bytes behind a media URL.
func (c *Client) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, statusError(resp.StatusCode, body)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes+1))
	if err != nil {
		return nil, transportError(err)
	}
	if len(body) > maxMediaBytes {
		return nil, &models.ProviderError{Message: "response body too large", HTTPStatus: resp.StatusCode}
	}
	return body, nil
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &models.ProviderError{Message: "request timed out", Timeout: true, Err: err}
	}
	return &models.ProviderError{Message: err.Error(), Err: err}
}

func statusError(status int, body []byte) error {
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		return &models.ProviderError{Code: er.Error.Code, Message: er.Error.Message, HTTPStatus: status}
	}
	return &models.ProviderError{Message: fmt.Sprintf("unexpected status code: %d body=%q", status, string(body)), HTTPStatus: status}
}
