package services

import (
	"context"
	"strings"

	"wa-relay-server/internal/models"
	"wa-relay-server/internal/whatsapp"
)

// DefaultTemplateLanguage is used for synthesized descriptors.
const DefaultTemplateLanguage = "en_US"

// TemplateTransport transmits a composed template to the provider.
type TemplateTransport interface {
	SendTemplate(ctx context.Context, to string, tmpl whatsapp.Template) (*models.ProviderResponse, error)
}

// TemplateRegistry holds the configured template descriptors.
type TemplateRegistry struct {
	descriptors     map[string]models.TemplateDescriptor
	allowUnknown    bool
	defaultLanguage string
}

// NewTemplateRegistry creates a registry. With allowUnknown, unconfigured
// templates resolve to a parameterless descriptor in defaultLanguage.
func NewTemplateRegistry(descriptors map[string]models.TemplateDescriptor, allowUnknown bool, defaultLanguage string) *TemplateRegistry {
	if defaultLanguage == "" {
		defaultLanguage = DefaultTemplateLanguage
	}
	copied := make(map[string]models.TemplateDescriptor, len(descriptors))
	for name, d := range descriptors {
		if d.Language == "" {
			d.Language = defaultLanguage
		}
		copied[name] = d
	}
	return &TemplateRegistry{
		descriptors:     copied,
		allowUnknown:    allowUnknown,
		defaultLanguage: defaultLanguage,
	}
}

// Lookup returns the descriptor for name.
func (r *TemplateRegistry) Lookup(name string) (models.TemplateDescriptor, error) {
	if strings.TrimSpace(name) == "" {
		return models.TemplateDescriptor{}, models.NewValidationError("templateName", "template name is required")
	}
	if d, ok := r.descriptors[name]; ok {
		return d, nil
	}
	if r.allowUnknown {
		return models.TemplateDescriptor{Language: r.defaultLanguage, BodyParams: 0, Header: models.HeaderNone}, nil
	}
	return models.TemplateDescriptor{}, models.NewValidationError("templateName", "template %q is not configured", name)
}

// TemplateSender validates and sends template messages.
type TemplateSender struct {
	registry  *TemplateRegistry
	transport TemplateTransport
}

func NewTemplateSender(registry *TemplateRegistry, transport TemplateTransport) *TemplateSender {
	return &TemplateSender{registry: registry, transport: transport}
}

// Compose builds the provider template for name and params. It performs no I/O.
func (s *TemplateSender) Compose(name string, params models.TemplateParams) (whatsapp.Template, error) {
	desc, err := s.registry.Lookup(name)
	if err != nil {
		return whatsapp.Template{}, err
	}

	tmpl := whatsapp.Template{
		Name:     name,
		Language: whatsapp.Language{Code: desc.Language},
	}

	if desc.HasHeader() {
		if link := params.HeaderURL(desc.Header); link != "" {
			param := whatsapp.Parameter{Type: string(desc.Header)}
			if desc.Header == models.HeaderImage {
				param.Image = &whatsapp.MediaLink{Link: link}
			} else {
				param.Video = &whatsapp.MediaLink{Link: link}
			}
			tmpl.Components = append(tmpl.Components, whatsapp.Component{
				Type:       "header",
				Parameters: []whatsapp.Parameter{param},
			})
		}
	}

	if desc.BodyParams > 0 {
		values := params.BodyValues()
		if len(values) != desc.BodyParams {
			return whatsapp.Template{}, models.NewValidationError("params",
				"template %q expects %d body parameters, got %d", name, desc.BodyParams, len(values))
		}
		body := whatsapp.Component{Type: "body", Parameters: make([]whatsapp.Parameter, 0, len(values))}
		for _, v := range values {
			body.Parameters = append(body.Parameters, whatsapp.Parameter{Type: "text", Text: v})
		}
		tmpl.Components = append(tmpl.Components, body)
	}

	return tmpl, nil
}

// Send composes and transmits a template to an already normalized number.
func (s *TemplateSender) Send(ctx context.Context, to, name string, params models.TemplateParams) (*models.ProviderResponse, error) {
	if strings.TrimSpace(to) == "" {
		return nil, models.NewValidationError("to", "recipient is required")
	}

	tmpl, err := s.Compose(name, params)
	if err != nil {
		return nil, err
	}

	return s.transport.SendTemplate(ctx, to, tmpl)
}
