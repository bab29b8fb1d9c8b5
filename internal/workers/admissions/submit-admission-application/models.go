// internal/workers/admissions/submit-admission-application/models.go
package submitadmissionapplication

import "admissions-portal/internal/models"

// Next steps reported to the process.
const (
	NextStepEditing = "editing"
	NextStepPayment = "payment"
	NextStepStatus  = "status"
)

type Input struct {
	Draft models.ApplicationDraft `json:"draft"`
	Mode  string                  `json:"mode"`
	// Version orders snapshot writes of the same application. A lower
	// version never replaces a higher one.
	Version uint64 `json:"version"`
	// Token authenticates the call as the applicant. Empty uses the
	// worker's configured token.
	Token string `json:"token,omitempty"`
}

type Output struct {
	ApplicationID    string                 `json:"applicationId"`
	Level            string                 `json:"level"`
	Mode             string                 `json:"mode"`
	HasPaid          bool                   `json:"hasPaid"`
	NextStep         string                 `json:"nextStep"`
	SnapshotApplied  bool                   `json:"snapshotApplied"`
	AmountMinor      int64                  `json:"amountMinor,omitempty"`
	Currency         string                 `json:"currency,omitempty"`
	PaymentReference string                 `json:"paymentReference,omitempty"`
	PaymentToken     string                 `json:"paymentToken,omitempty"`
	PaymentURL       string                 `json:"paymentUrl,omitempty"`
	Referees         []models.RefereeStatus `json:"referees"`
}
