package delivery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/leadflow/internal/domain"
)

func TestRenderDefaultTemplate(t *testing.T) {
	r := NewRenderer()
	lead := &domain.QualifiedLead{
		Name:        "Ana",
		CompanyName: "Acme",
		Email:       "ana@acme.io",
		Phone:       "+15551234567",
		Score:       82,
		Category:    domain.CategoryHot,
		Summary:     "site_ok=true, content_len=900",
	}
	client := &domain.BusinessClient{BusinessName: "Gym Chain"}

	out := r.Render("", lead, client)
	assert.Contains(t, out, "Hi Gym Chain,")
	assert.Contains(t, out, "Company: Acme")
	assert.Contains(t, out, "Score: 82 (hot)")
}

func TestRenderCustomTemplate(t *testing.T) {
	r := NewRenderer()
	lead := &domain.QualifiedLead{CompanyName: "Acme"}
	out := r.Render("Lead for you: {{ lead.company_name }}", lead, &domain.BusinessClient{})
	assert.Equal(t, "Lead for you: Acme", out)
}

func TestRenderBrokenTemplateFallsBack(t *testing.T) {
	r := NewRenderer()
	lead := &domain.QualifiedLead{CompanyName: "Acme", Score: 70, Category: domain.CategoryWarm}
	out := r.Render("{% broken", lead, &domain.BusinessClient{})
	assert.Contains(t, out, "Acme")
	assert.Contains(t, out, "70")
}
