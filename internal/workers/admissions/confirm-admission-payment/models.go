// internal/workers/admissions/confirm-admission-payment/models.go
package confirmadmissionpayment

import "admissions-portal/internal/models"

// RedirectStatus is the only destination after a confirmed payment.
const RedirectStatus = "status"

type Input struct {
	ApplicantID string       `json:"applicantId"`
	Level       models.Level `json:"level"`
	Reference   string       `json:"paymentReference"`
}

type Output struct {
	ApplicationID    string                 `json:"applicationId"`
	Level            string                 `json:"level"`
	HasPaid          bool                   `json:"hasPaid"`
	PaymentReference string                 `json:"paymentReference"`
	RedirectTo       string                 `json:"redirectTo"`
	Referees         []models.RefereeStatus `json:"referees"`
}
