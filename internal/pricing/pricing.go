// Package pricing holds the static plan, tier, and trial tables that the
// delivery engine and billing lifecycle price against.
package pricing

import (
	"math"
	"strings"

	"github.com/ignite/leadflow/internal/domain"
)

// Plan describes a monthly subscription.
type Plan struct {
	Price      float64
	Discount   float64 // fraction off the per-lead base price
	LeadCap    int     // max deliveries per month, all channels
	PeriodDays int
}

// Tier groups industries by lead value.
type Tier string

const (
	TierBasic Tier = "basic"
	TierMid   Tier = "mid"
	TierHigh  Tier = "high"
)

// BasePlans maps plan names to their terms.
var BasePlans = map[domain.PlanName]Plan{
	domain.PlanStarter: {Price: 499, Discount: 0.4, LeadCap: 50, PeriodDays: 30},
	domain.PlanPro:     {Price: 999, Discount: 0.6, LeadCap: 150, PeriodDays: 30},
	domain.PlanElite:   {Price: 1999, Discount: 0.7, LeadCap: 500, PeriodDays: 30},
}

// LeadPricing is the pay-per-lead base price per tier.
var LeadPricing = map[Tier]float64{
	TierBasic: 15,
	TierMid:   45,
	TierHigh:  150,
}

// PayPerLeadCap is the monthly delivery cap per tier for clients without
// a subscription plan.
var PayPerLeadCap = map[Tier]int{
	TierBasic: 50,
	TierMid:   100,
	TierHigh:  200,
}

// Trial terms for the one-time trial pack.
var Trial = struct {
	Price     float64
	Leads     int
	DaysValid int
}{Price: 49, Leads: 10, DaysValid: 7}

// IndustryTiers maps canonical industry keys to tiers.
var IndustryTiers = map[string]Tier{
	"restaurants":  TierBasic,
	"salons":       TierBasic,
	"cleaning":     TierBasic,
	"plumbing":     TierBasic,
	"electricians": TierBasic,
	"fitness":      TierMid,
	"real_estate":  TierMid,
	"insurance":    TierMid,
	"saas":         TierMid,
	"law":          TierHigh,
	"consulting":   TierHigh,
}

// GracePeriodDays is how long a client stays active past next_billing_date.
const GracePeriodDays = 5

// AutoDowngrade controls whether the expiry sweep nulls lapsed plans.
const AutoDowngrade = true

// TierFor resolves an industry to its pricing tier. Unknown industries
// fall back to basic.
func TierFor(industry string) Tier {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(industry)), " ", "_")
	if t, ok := IndustryTiers[key]; ok {
		return t
	}
	return TierBasic
}

// BasePrice returns the pay-per-lead price for an industry.
func BasePrice(industry string) float64 {
	return LeadPricing[TierFor(industry)]
}

// PlanPrice applies a plan's discount to the base price for an industry,
// rounded to cents and clamped at zero.
func PlanPrice(industry string, plan Plan) float64 {
	p := BasePrice(industry) * (1 - plan.Discount)
	p = math.Round(p*100) / 100
	if p < 0 {
		return 0
	}
	return p
}
