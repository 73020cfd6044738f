package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/leadflow/internal/domain"
)

func TestTierFor(t *testing.T) {
	assert.Equal(t, TierBasic, TierFor("restaurants"))
	assert.Equal(t, TierMid, TierFor("Real Estate"))
	assert.Equal(t, TierHigh, TierFor("  law "))
	assert.Equal(t, TierBasic, TierFor("unknown_industry"))
	assert.Equal(t, TierBasic, TierFor(""))
}

func TestBasePrice(t *testing.T) {
	assert.Equal(t, 15.0, BasePrice("cleaning"))
	assert.Equal(t, 45.0, BasePrice("fitness"))
	assert.Equal(t, 150.0, BasePrice("consulting"))
}

func TestPlanPrice(t *testing.T) {
	// starter = 40% off
	assert.Equal(t, 9.0, PlanPrice("restaurants", BasePlans[domain.PlanStarter]))
	// pro = 60% off mid tier
	assert.Equal(t, 18.0, PlanPrice("saas", BasePlans[domain.PlanPro]))
	// elite = 70% off high tier
	assert.Equal(t, 45.0, PlanPrice("law", BasePlans[domain.PlanElite]))
}

func TestPlanPriceClampsAtZero(t *testing.T) {
	p := Plan{Discount: 1.5}
	assert.Equal(t, 0.0, PlanPrice("restaurants", p))
}

func TestPlanTables(t *testing.T) {
	assert.Equal(t, 50, BasePlans[domain.PlanStarter].LeadCap)
	assert.Equal(t, 150, BasePlans[domain.PlanPro].LeadCap)
	assert.Equal(t, 500, BasePlans[domain.PlanElite].LeadCap)
	assert.Equal(t, 100, PayPerLeadCap[TierMid])
	assert.Equal(t, 10, Trial.Leads)
	assert.Equal(t, 7, Trial.DaysValid)
}
