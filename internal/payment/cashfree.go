package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront-engine/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
)

// ModalPayments is the backend surface the Cashfree gateway depends on.
type ModalPayments interface {
	CreateCashfreePayment(ctx context.Context, token string, req backend.CashfreePaymentRequest) (*backend.CashfreePayment, error)
}

// Cashfree is the modal-style gateway: the session token it returns is
// consumed by the gateway's own client runtime, no redirect URL exists.
type Cashfree struct {
	payments    ModalPayments
	frontendURL string
}

func NewCashfree(payments ModalPayments, frontendURL string) (*Cashfree, error) {
	if payments == nil {
		return nil, fmt.Errorf("payments client required")
	}
	return &Cashfree{payments: payments, frontendURL: frontendURL}, nil
}

func (c *Cashfree) Name() string { return "cashfree" }

func (c *Cashfree) Initiate(ctx context.Context, token string, req InitiateRequest) (*Outcome, error) {
	created, err := c.payments.CreateCashfreePayment(ctx, token, backend.CashfreePaymentRequest{
		OrderID:     req.OrderID,
		UserID:      req.UserID,
		FrontendURL: c.frontendURL,
		CartItems:   req.Items,
	})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(created.SessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "payment response carried no session token")
	}
	return &Outcome{
		Mode:           ModeModal,
		Target:         created.SessionID,
		PaymentID:      created.PaymentID,
		GatewayOrderID: created.GatewayOrderID,
	}, nil
}
