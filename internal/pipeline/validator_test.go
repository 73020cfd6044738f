package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/leadflow/internal/domain"
)

func TestValidateFieldRules(t *testing.T) {
	tests := []struct {
		name string
		raw  domain.RawLead
		want View
	}{
		{
			name: "all valid",
			raw:  domain.RawLead{ID: 1, Name: "Ana", CompanyName: "Acme", Email: "a@b.co", Phone: "+1 (555) 123-4567", Website: "https://acme.io", Industry: "saas"},
			want: View{RawLeadID: 1, Name: "Ana", CompanyName: "Acme", Email: "a@b.co", Phone: "+1 (555) 123-4567", Website: "https://acme.io", Industry: "saas"},
		},
		{
			name: "bad email dropped",
			raw:  domain.RawLead{ID: 2, Email: "not an email"},
			want: View{RawLeadID: 2},
		},
		{
			name: "email without tld dropped",
			raw:  domain.RawLead{ID: 3, Email: "a@b"},
			want: View{RawLeadID: 3},
		},
		{
			name: "short phone dropped",
			raw:  domain.RawLead{ID: 4, Phone: "123-456"},
			want: View{RawLeadID: 4},
		},
		{
			name: "seven digits kept",
			raw:  domain.RawLead{ID: 5, Phone: "1234567"},
			want: View{RawLeadID: 5, Phone: "1234567"},
		},
		{
			name: "schemeless website kept via http prefix",
			raw:  domain.RawLead{ID: 6, Website: "acme.io"},
			want: View{RawLeadID: 6, Website: "acme.io"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Validate(&tt.raw))
		})
	}
}

// Validation is a projection: a view re-validated through a raw lead with
// the same fields maps to itself.
func TestValidateIsProjection(t *testing.T) {
	raw := domain.RawLead{ID: 9, Name: "n", CompanyName: "c", Email: "bad@", Phone: "555", Website: "ok.example.com", Industry: "fitness"}
	once := Validate(&raw)
	again := Validate(&domain.RawLead{
		ID: once.RawLeadID, Name: once.Name, CompanyName: once.CompanyName,
		Email: once.Email, Phone: once.Phone, Website: once.Website, Industry: once.Industry,
	})
	assert.Equal(t, once, again)
}

func TestValidateBatchPreservesOrder(t *testing.T) {
	views := ValidateBatch([]*domain.RawLead{{ID: 1}, {ID: 2}, {ID: 3}})
	assert.Equal(t, []int64{1, 2, 3}, []int64{views[0].RawLeadID, views[1].RawLeadID, views[2].RawLeadID})
}
