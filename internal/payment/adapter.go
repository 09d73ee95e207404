// Package payment normalizes the two gateway integration styles behind one
// initiate contract: redirect gateways hand back a URL to navigate to, modal
// gateways hand back a session token for the gateway's own client runtime.
package payment

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-engine/pkg/backend"
	"github.com/angelmondragon/storefront-engine/pkg/config"
)

// Mode tells the caller how to act on the initiation outcome.
type Mode string

const (
	ModeRedirect Mode = "redirect"
	ModeModal    Mode = "modal"
)

// InitiateRequest carries everything any gateway needs; each gateway picks
// the fields it cares about.
type InitiateRequest struct {
	OrderID string
	UserID  string
	Items   []backend.OrderItem
}

// Outcome is the normalized initiation result. Target is a redirect URL in
// redirect mode and a checkout session token in modal mode.
type Outcome struct {
	Mode           Mode
	Target         string
	PaymentID      string
	GatewayOrderID string
}

// Gateway initiates a payment for an already-created order.
type Gateway interface {
	Name() string
	Initiate(ctx context.Context, token string, req InitiateRequest) (*Outcome, error)
}

// New builds the configured gateway.
func New(cfg config.GatewayConfig, client *backend.Client) (Gateway, error) {
	switch cfg.NormalizedProvider() {
	case config.GatewayPhonePe:
		return NewPhonePe(client, cfg.FrontendURL)
	case config.GatewayCashfree:
		return NewCashfree(client, cfg.FrontendURL)
	default:
		return nil, fmt.Errorf("unknown payment gateway %q", cfg.Provider)
	}
}
