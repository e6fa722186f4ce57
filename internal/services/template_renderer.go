package services

import (
	"fmt"
	"strings"

	"github.com/pulsebridge/campaign-engine-backend/internal/models"
)

// PlaceholderRenderer is the default TemplateRenderer. It substitutes
// {field_name} placeholders with lead attributes; unknown placeholders are
// left in place so operators can spot template typos in previews.
type PlaceholderRenderer struct{}

func NewPlaceholderRenderer() *PlaceholderRenderer {
	return &PlaceholderRenderer{}
}

// Render resolves a template against one lead
func (r *PlaceholderRenderer) Render(template *models.Template, lead *models.Lead) (*models.RenderedMessage, error) {
	if template == nil {
		return nil, fmt.Errorf("template cannot be nil")
	}
	if lead == nil {
		return nil, fmt.Errorf("lead cannot be nil")
	}
	if template.Body == "" {
		return nil, fmt.Errorf("template %s has an empty body", template.ID)
	}

	return &models.RenderedMessage{
		Subject: r.substitute(template.Subject, lead),
		Body:    r.substitute(template.Body, lead),
		Meta: map[string]interface{}{
			"template_id": template.ID,
		},
	}, nil
}

func (r *PlaceholderRenderer) substitute(text string, lead *models.Lead) string {
	if text == "" {
		return ""
	}

	replacer := strings.NewReplacer(
		"{first_name}", lead.FirstName,
		"{last_name}", lead.LastName,
		"{email}", lead.Email,
		"{phone}", lead.Phone,
		"{company}", lead.Company,
		"{country}", lead.Country,
	)
	return replacer.Replace(text)
}
