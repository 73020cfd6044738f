package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/store"
)

func TestScoreDefaults(t *testing.T) {
	tests := []struct {
		name    string
		view    View
		score   int
		cat     domain.Category
	}{
		{"all fields", View{Email: "a@b.co", Phone: "1234567", Website: "x.com"}, 75, domain.CategoryHot},
		{"email and phone", View{Email: "a@b.co", Phone: "1234567"}, 55, domain.CategoryWarm},
		{"email only", View{Email: "a@b.co"}, 30, domain.CategoryCold},
		{"nothing", View{}, 0, domain.CategoryCold},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, cat := Score(tt.view, QualifierConfig{})
			assert.Equal(t, tt.score, score)
			assert.Equal(t, tt.cat, cat)
		})
	}
}

func TestScoreCustomRules(t *testing.T) {
	cfg := ParseConfig(`{
		"weights": {"email": 50, "phone": 10, "website": 10, "keyword": 20},
		"thresholds": {"hot": 90, "warm": 40},
		"keywords": ["fitness", "gym"]
	}`)

	score, cat := Score(View{Email: "a@b.co", Name: "Iron Gym", CompanyName: "FitnessWorks"}, cfg)
	// 50 (email) + 20 (fitness) + 20 (gym) = 90
	assert.Equal(t, 90, score)
	assert.Equal(t, domain.CategoryHot, cat)
}

func TestScoreClampedTo100(t *testing.T) {
	cfg := ParseConfig(`{"weights": {"email": 80, "phone": 80}}`)
	score, _ := Score(View{Email: "a@b.co", Phone: "1234567"}, cfg)
	assert.Equal(t, 100, score)
}

func TestParseConfigMalformedFallsBack(t *testing.T) {
	cfg := ParseConfig(`{not json`)
	score, cat := Score(View{Email: "a@b.co", Phone: "1234567", Website: "x.com"}, cfg)
	assert.Equal(t, 75, score)
	assert.Equal(t, domain.CategoryHot, cat)
}

func TestQualifyDedupsWithinBatch(t *testing.T) {
	q := NewQualifier(store.NewMem())
	views := []View{
		{RawLeadID: 1, Email: "Dup@X.com", Phone: "1234567", CompanyName: "Acme"},
		{RawLeadID: 2, Email: "dup@x.com", Phone: "1234567", CompanyName: "ACME"},
		{RawLeadID: 3, Email: "other@x.com", Phone: "1234567", CompanyName: "Acme"},
	}
	out := q.Qualify(context.Background(), views)
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].Lead.RawLeadID, "first duplicate wins")
	assert.Equal(t, int64(3), out[1].Lead.RawLeadID)
}

func TestQualifyUsesIndustryRule(t *testing.T) {
	mem := store.NewMem()
	require.NoError(t, mem.UpsertIndustryRule(context.Background(), &domain.IndustryRule{
		Industry:     "fitness",
		ScoringRules: `{"thresholds": {"hot": 30}}`,
	}))
	q := NewQualifier(mem)

	out := q.Qualify(context.Background(), []View{{RawLeadID: 1, Email: "a@b.co", Industry: "fitness"}})
	require.Len(t, out, 1)
	assert.Equal(t, domain.CategoryHot, out[0].Lead.Category)
	assert.Equal(t, 30, out[0].Lead.Score)
}

func TestQualifyCarriesWebsiteForEnrichment(t *testing.T) {
	q := NewQualifier(store.NewMem())
	out := q.Qualify(context.Background(), []View{{RawLeadID: 1, Website: "https://acme.io"}})
	require.Len(t, out, 1)
	assert.Equal(t, "https://acme.io", out[0].Website)
}
