package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"admissions-portal/internal/common/config"
	"admissions-portal/internal/models"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fees = FeeSchedule{
	DomesticMinor:         2_500_000,
	DomesticCurrency:      "NGN",
	InternationalMinor:    10_000,
	InternationalCurrency: "USD",
}

func TestFeeSchedule_For(t *testing.T) {
	tests := []struct {
		name     string
		in       models.ApplicantType
		amount   int64
		currency string
	}{
		{"domestic", models.ApplicantDomestic, 2_500_000, "NGN"},
		{"international", models.ApplicantInternational, 10_000, "USD"},
		{"unset falls back to domestic", "", 2_500_000, "NGN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, currency := fees.For(tt.in)
			assert.Equal(t, tt.amount, amount)
			assert.Equal(t, tt.currency, currency)
		})
	}
}

func TestFeeScheduleFromConfig(t *testing.T) {
	f := FeeScheduleFromConfig(config.FeesConfig{
		DomesticMinor:         100,
		DomesticCurrency:      "NGN",
		InternationalMinor:    200,
		InternationalCurrency: "USD",
	})
	amount, currency := f.For(models.ApplicantInternational)
	assert.Equal(t, int64(200), amount)
	assert.Equal(t, "USD", currency)
}

func TestRecordingGateway(t *testing.T) {
	g := NewRecordingGateway("https://pay.example.com")
	h, err := g.Open(context.Background(), Checkout{
		AmountMinor: 2_500_000,
		Currency:    "NGN",
		Email:       "chiamaka@example.com",
		Metadata:    map[string]string{MetaApplicantID: "applicant-1"},
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(h.Reference, "APP-"))
	assert.Equal(t, "https://pay.example.com/"+h.Reference, h.RedirectURL)
	require.Len(t, g.Opened(), 1)
	assert.Equal(t, "applicant-1", g.Opened()[0].Checkout.Metadata[MetaApplicantID])
}

func TestRecordingGateway_Rejects(t *testing.T) {
	g := NewRecordingGateway("")

	_, err := g.Open(context.Background(), Checkout{AmountMinor: 0, Email: "a@b.co"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = g.Open(context.Background(), Checkout{AmountMinor: 10})
	assert.ErrorIs(t, err, ErrMissingEmail)

	g.Err = errors.New("widget unavailable")
	_, err = g.Open(context.Background(), Checkout{AmountMinor: 10, Email: "a@b.co"})
	assert.EqualError(t, err, "widget unavailable")
	assert.Empty(t, g.Opened())
}

type fakeSnap struct {
	req  *snap.Request
	resp *snap.Response
	err  *midtrans.Error
}

func (f *fakeSnap) CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error) {
	f.req = req
	return f.resp, f.err
}

func TestMidtransGateway_Open(t *testing.T) {
	api := &fakeSnap{resp: &snap.Response{Token: "tok-123", RedirectURL: "https://app.sandbox.midtrans.com/snap/v2/vtweb/tok-123"}}
	g := NewMidtransGateway(api)

	h, err := g.Open(context.Background(), Checkout{
		AmountMinor: 2_500_000,
		Currency:    "NGN",
		Email:       "chiamaka@example.com",
		Metadata: map[string]string{
			MetaApplicantID:   "applicant-1",
			MetaLevel:         "undergraduate",
			MetaApplicationID: "42",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "tok-123", h.Token)
	assert.Equal(t, api.req.TransactionDetails.OrderID, h.Reference)

	require.NotNil(t, api.req)
	assert.Equal(t, int64(25_000), api.req.TransactionDetails.GrossAmt)
	assert.Equal(t, "chiamaka@example.com", api.req.CustomerDetail.Email)
	assert.Equal(t, "applicant-1", api.req.CustomField1)
	assert.Equal(t, "undergraduate", api.req.CustomField2)
	assert.Equal(t, "42", api.req.CustomField3)
	require.NotNil(t, api.req.Items)
	assert.Equal(t, int64(25_000), (*api.req.Items)[0].Price)
}

func TestMidtransGateway_Error(t *testing.T) {
	api := &fakeSnap{err: &midtrans.Error{Message: "access denied", StatusCode: 401}}
	g := NewMidtransGateway(api)

	_, err := g.Open(context.Background(), Checkout{AmountMinor: 100, Email: "a@b.co"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestMidtransGateway_CancelledContext(t *testing.T) {
	api := &fakeSnap{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMidtransGateway(api).Open(ctx, Checkout{AmountMinor: 100, Email: "a@b.co"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, api.req)
}
