package payment

import (
	"context"
	"fmt"
	"time"

	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// SnapAPI is the part of snap.Client used to open a checkout.
type SnapAPI interface {
	CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
}

// NewSnapClient builds a Snap client for the sandbox or production
// environment.
func NewSnapClient(serverKey string, production bool) *snap.Client {
	var c snap.Client
	if production {
		c.New(serverKey, midtrans.Production)
	} else {
		c.New(serverKey, midtrans.Sandbox)
	}
	return &c
}

// MidtransGateway opens a Snap checkout per application fee.
type MidtransGateway struct {
	api SnapAPI
	now func() time.Time
}

func NewMidtransGateway(api SnapAPI) *MidtransGateway {
	return &MidtransGateway{api: api, now: time.Now}
}

func (g *MidtransGateway) request(orderID string, c Checkout) *snap.Request {
	// Snap amounts are whole currency units.
	gross := c.AmountMinor / 100
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			Email: c.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:       orderID,
				Price:    gross,
				Qty:      1,
				Name:     "Application fee",
				Category: "admissions",
			},
		},
		CustomField1: c.Metadata[MetaApplicantID],
		CustomField2: c.Metadata[MetaLevel],
		CustomField3: c.Metadata[MetaApplicationID],
	}
	return req
}

func (g *MidtransGateway) Open(ctx context.Context, c Checkout) (*Handle, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	orderID := newReference()
	resp, mErr := g.api.CreateTransaction(g.request(orderID, c))
	if mErr != nil {
		return nil, fmt.Errorf("snap create transaction: %s", mErr.Message)
	}
	return &Handle{
		Reference:   orderID,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
		Checkout:    c,
		OpenedAt:    g.now().UTC(),
	}, nil
}
