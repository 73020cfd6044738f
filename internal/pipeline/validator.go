// Package pipeline implements the raw → validated → qualified → enriched
// lead transformation and the scheduled cycle that drives it.
package pipeline

import (
	"net/url"
	"regexp"

	"github.com/ignite/leadflow/internal/domain"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	nonDigit     = regexp.MustCompile(`\D`)
)

// View is the validated projection of a raw lead. Fields that failed
// validation are emptied; callers treat an empty field as unknown.
type View struct {
	RawLeadID   int64
	Name        string
	CompanyName string
	Phone       string
	Email       string
	Website     string
	Industry    string
}

// Validate scrubs one raw lead. It never fails; invalid fields are
// dropped from the view.
func Validate(r *domain.RawLead) View {
	v := View{
		RawLeadID:   r.ID,
		Name:        r.Name,
		CompanyName: r.CompanyName,
		Industry:    r.Industry,
	}
	if validEmail(r.Email) {
		v.Email = r.Email
	}
	if validPhone(r.Phone) {
		v.Phone = r.Phone
	}
	if validWebsite(r.Website) {
		v.Website = r.Website
	}
	return v
}

// ValidateBatch scrubs a batch, preserving order.
func ValidateBatch(leads []*domain.RawLead) []View {
	out := make([]View, 0, len(leads))
	for _, r := range leads {
		out = append(out, Validate(r))
	}
	return out
}

func validEmail(v string) bool {
	return v != "" && emailPattern.MatchString(v)
}

func validPhone(v string) bool {
	if v == "" {
		return false
	}
	return len(nonDigit.ReplaceAllString(v, "")) >= 7
}

func validWebsite(v string) bool {
	if v == "" {
		return false
	}
	if u, err := url.Parse(v); err == nil && u.Scheme != "" && u.Host != "" {
		return true
	}
	u, err := url.Parse("http://" + v)
	return err == nil && u.Host != ""
}
