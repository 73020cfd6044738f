package domain

import (
	"strings"
	"time"
)

// CanonicalTarget normalizes an opt-out/bounce target for comparison:
// lowercased with surrounding whitespace stripped.
func CanonicalTarget(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// OptOut suppresses a target for one channel. Value is always canonical.
// Delivery must short-circuit on a match before any send attempt.
type OptOut struct {
	ID        int64     `json:"id" db:"id"`
	Method    Method    `json:"method" db:"method"`
	Value     string    `json:"value" db:"value"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Bounce records a failed send or a provider-reported bounce.
type Bounce struct {
	ID        int64     `json:"id" db:"id"`
	Method    Method    `json:"method" db:"method"`
	Target    string    `json:"target" db:"target"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
