// Package payment opens the application-fee checkout. Settlement is owned
// by the gateway; success arrives later through Session.PaymentSucceeded.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"admissions-portal/internal/common/config"
	"admissions-portal/internal/models"

	"github.com/google/uuid"
)

var (
	ErrInvalidAmount = errors.New("PAYMENT_INVALID_AMOUNT")
	ErrMissingEmail  = errors.New("PAYMENT_MISSING_EMAIL")
)

// Metadata keys attached to every checkout.
const (
	MetaApplicantID   = "applicant_id"
	MetaApplicationID = "application_id"
	MetaLevel         = "level"
	MetaApplicantType = "applicant_type"
)

type Checkout struct {
	AmountMinor int64
	Currency    string
	Email       string
	Metadata    map[string]string
}

func (c Checkout) validate() error {
	if c.AmountMinor <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, c.AmountMinor)
	}
	if c.Email == "" {
		return ErrMissingEmail
	}
	return nil
}

// Handle describes an opened checkout.
type Handle struct {
	Reference   string
	Token       string
	RedirectURL string
	Checkout    Checkout
	OpenedAt    time.Time
}

type Gateway interface {
	Open(ctx context.Context, c Checkout) (*Handle, error)
}

// FeeSchedule holds the fixed application fees in minor units.
type FeeSchedule struct {
	DomesticMinor         int64
	DomesticCurrency      string
	InternationalMinor    int64
	InternationalCurrency string
}

func FeeScheduleFromConfig(cfg config.FeesConfig) FeeSchedule {
	return FeeSchedule{
		DomesticMinor:         cfg.DomesticMinor,
		DomesticCurrency:      cfg.DomesticCurrency,
		InternationalMinor:    cfg.InternationalMinor,
		InternationalCurrency: cfg.InternationalCurrency,
	}
}

// For returns the fee and currency charged to applicants of type t.
// Anything other than international pays the domestic fee.
func (f FeeSchedule) For(t models.ApplicantType) (int64, string) {
	if t == models.ApplicantInternational {
		return f.InternationalMinor, f.InternationalCurrency
	}
	return f.DomesticMinor, f.DomesticCurrency
}

func newReference() string {
	return "APP-" + uuid.NewString()
}

// RecordingGateway accepts every checkout and keeps it for inspection.
type RecordingGateway struct {
	mu      sync.Mutex
	opened  []Handle
	Err     error
	baseURL string
}

func NewRecordingGateway(redirectBase string) *RecordingGateway {
	return &RecordingGateway{baseURL: redirectBase}
}

func (g *RecordingGateway) Open(_ context.Context, c Checkout) (*Handle, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	ref := newReference()
	h := Handle{
		Reference: ref,
		Token:     ref,
		Checkout:  c,
		OpenedAt:  time.Now().UTC(),
	}
	if g.baseURL != "" {
		h.RedirectURL = g.baseURL + "/" + ref
	}
	g.opened = append(g.opened, h)
	return &h, nil
}

// Opened returns the checkouts seen so far.
func (g *RecordingGateway) Opened() []Handle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Handle(nil), g.opened...)
}
