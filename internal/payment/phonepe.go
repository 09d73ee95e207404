package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-engine/pkg/backend"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
)

// RedirectPayments is the backend surface the PhonePe gateway depends on.
type RedirectPayments interface {
	CreatePhonePePayment(ctx context.Context, token string, req backend.PhonePePaymentRequest) (*backend.PhonePePayment, error)
}

// redirectURLPaths is the ordered candidate list scanned for the redirect
// target in the raw gateway response; the first present non-empty string
// wins. The gateway has shipped the URL under different paths across API
// versions, hence the scan.
var redirectURLPaths = []string{
	"data.instrumentResponse.redirectInfo.url",
	"data.instrumentResponse.redirectInfo.redirectUrl",
	"data.redirectUrl",
	"redirectUrl",
	"url",
}

// PhonePe is the redirect-style gateway.
type PhonePe struct {
	payments    RedirectPayments
	frontendURL string
}

func NewPhonePe(payments RedirectPayments, frontendURL string) (*PhonePe, error) {
	if payments == nil {
		return nil, fmt.Errorf("payments client required")
	}
	return &PhonePe{payments: payments, frontendURL: frontendURL}, nil
}

func (p *PhonePe) Name() string { return "phonepe" }

// Initiate creates the payment and extracts the redirect URL from the raw
// gateway response. A response without any candidate URL is fatal.
func (p *PhonePe) Initiate(ctx context.Context, token string, req InitiateRequest) (*Outcome, error) {
	created, err := p.payments.CreatePhonePePayment(ctx, token, backend.PhonePePaymentRequest{
		OrderID:     req.OrderID,
		UserID:      req.UserID,
		MUID:        "MUID-" + uuid.NewString(),
		FrontendURL: p.frontendURL,
	})
	if err != nil {
		return nil, err
	}

	target, ok := scanRedirectURL(created.GatewayResponse)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "payment response carried no redirect url")
	}
	return &Outcome{
		Mode:      ModeRedirect,
		Target:    target,
		PaymentID: created.PaymentID,
	}, nil
}

func scanRedirectURL(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", false
	}
	for _, path := range redirectURLPaths {
		if url, ok := lookupPath(doc, path); ok {
			return url, true
		}
	}
	return "", false
}

func lookupPath(doc map[string]any, path string) (string, bool) {
	current := any(doc)
	for _, key := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = node[key]
		if !ok {
			return "", false
		}
	}
	url, ok := current.(string)
	if !ok || strings.TrimSpace(url) == "" {
		return "", false
	}
	return url, true
}
