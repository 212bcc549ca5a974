package models

// HeaderKind is the optional media header of a message template.
type HeaderKind string

const (
	HeaderNone  HeaderKind = "none"
	HeaderImage HeaderKind = "image"
	HeaderVideo HeaderKind = "video"
)

// TemplateDescriptor describes the structure the provider expects for a template.
type TemplateDescriptor struct {
	Language   string     `json:"language" yaml:"language"`
	BodyParams int        `json:"body_params" yaml:"body_params"`
	Header     HeaderKind `json:"header,omitempty" yaml:"header,omitempty"`
}

// HasHeader reports whether the template carries a media header.
func (d TemplateDescriptor) HasHeader() bool {
	return d.Header == HeaderImage || d.Header == HeaderVideo
}

// TemplateParams are the caller supplied values for a template send.
// Named values are placed before the generic Body list.
type TemplateParams struct {
	Tournament string   `json:"tournament,omitempty"`
	Date       string   `json:"date,omitempty"`
	ImageURL   string   `json:"imageUrl,omitempty"`
	VideoURL   string   `json:"videoUrl,omitempty"`
	Body       []string `json:"body,omitempty"`
}

// BodyValues assembles the body parameters in send order.
func (p TemplateParams) BodyValues() []string {
	values := make([]string, 0, 2+len(p.Body))
	if p.Tournament != "" {
		values = append(values, p.Tournament)
	}
	if p.Date != "" {
		values = append(values, p.Date)
	}
	return append(values, p.Body...)
}

// HeaderURL returns the supplied URL for a header kind, if any.
func (p TemplateParams) HeaderURL(kind HeaderKind) string {
	switch kind {
	case HeaderImage:
		return p.ImageURL
	case HeaderVideo:
		return p.VideoURL
	default:
		return ""
	}
}

// ProviderResponse is the provider's acknowledgement of an outbound message.
type ProviderResponse struct {
	MessageID   string `json:"messageId"`
	RecipientID string `json:"recipientId,omitempty"`
}
