// internal/workers/admissions/validate-admission-draft/models.go
package validateadmissiondraft

import "admissions-portal/internal/models"

type Input struct {
	Draft models.ApplicationDraft `json:"draft"`
	// Mode is "draft" or "final"; drafts only pass the referee email gate.
	Mode string `json:"mode"`
}

type Output struct {
	IsValid bool     `json:"isValid"`
	Mode    string   `json:"mode"`
	Field   string   `json:"field,omitempty"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message,omitempty"`
	Missing []string `json:"missingFields"`
}
