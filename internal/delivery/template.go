package delivery

import (
	"fmt"

	"github.com/osteele/liquid"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/pkg/logger"
)

// DefaultEmailTemplate is used when the caller supplies none.
const DefaultEmailTemplate = `Hi {{ client.business_name }},

A new qualified lead is ready for you:

Company: {{ lead.company_name }}
Contact: {{ lead.name }}
Email: {{ lead.email }}
Phone: {{ lead.phone }}
Score: {{ lead.score }} ({{ lead.category }})
{{ lead.summary }}`

// Renderer renders email bodies from Liquid templates.
type Renderer struct {
	engine *liquid.Engine
}

func NewRenderer() *Renderer {
	return &Renderer{engine: liquid.NewEngine()}
}

// Render fills the template with lead and client fields. A broken
// template falls back to a plain-text body rather than failing the send.
func (r *Renderer) Render(tmpl string, lead *domain.QualifiedLead, client *domain.BusinessClient) string {
	if tmpl == "" {
		tmpl = DefaultEmailTemplate
	}
	bindings := map[string]any{
		"lead": map[string]any{
			"name":         lead.Name,
			"company_name": lead.CompanyName,
			"email":        lead.Email,
			"phone":        lead.Phone,
			"score":        lead.Score,
			"category":     string(lead.Category),
			"industry":     lead.Industry,
			"summary":      lead.Summary,
		},
		"client": map[string]any{
			"business_name": client.BusinessName,
			"industry":      client.Industry,
		},
	}
	out, err := r.engine.ParseAndRenderString(tmpl, bindings)
	if err != nil {
		logger.Warn("template render failed, using fallback", "error", err.Error())
		return fmt.Sprintf("New qualified lead: %s (score %d, %s)", lead.CompanyName, lead.Score, lead.Category)
	}
	return out
}
