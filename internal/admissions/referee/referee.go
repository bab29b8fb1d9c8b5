// Package referee checks that a referee email is plausibly institutional.
// A valid result is a heuristic, the address is never verified.
package referee

import (
	"regexp"
	"strings"
)

const (
	ReasonInvalidFormat    = "invalid email format"
	ReasonNotInstitutional = "use an institutional email"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type Result struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

type Validator struct {
	allowed []string
}

// New builds a validator over the given domain substrings.
func New(allowedDomains []string) *Validator {
	allowed := make([]string, 0, len(allowedDomains))
	for _, d := range allowedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			allowed = append(allowed, d)
		}
	}
	return &Validator{allowed: allowed}
}

// Validate checks shape first and the domain allow-list second. An empty
// address is valid for now; the required-field rules catch it later.
func (v *Validator) Validate(email string) Result {
	email = strings.TrimSpace(email)
	if email == "" {
		return Result{Valid: true}
	}
	if !emailPattern.MatchString(email) {
		return Result{Reason: ReasonInvalidFormat}
	}

	domain := strings.ToLower(email[strings.LastIndex(email, "@")+1:])
	for _, suffix := range v.allowed {
		if strings.Contains(domain, suffix) {
			return Result{Valid: true}
		}
	}
	return Result{Reason: ReasonNotInstitutional}
}
