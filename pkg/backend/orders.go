package backend

import (
	"context"
	"encoding/json"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/shopspring/decimal"
)

// OrderItem is one priced line of the order payload; bulk and non-bulk lines
// use the same shape.
type OrderItem struct {
	ProductID   string          `json:"productId"`
	Name        string          `json:"name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	IsBulkOrder bool            `json:"isBulkOrder"`
	BulkRange   string          `json:"bulkRange,omitempty"`
}

// OrderInput is the order/new request body.
type OrderInput struct {
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"items"`
	ShippingAddress string          `json:"shippingAddress"`
	City            string          `json:"city,omitempty"`
	State           string          `json:"state,omitempty"`
	Pincode         string          `json:"pincode"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	CouponDiscount  decimal.Decimal `json:"couponDiscount"`
	TaxAmount       decimal.Decimal `json:"taxAmount"`
	ShippingFee     decimal.Decimal `json:"shippingFee"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
}

// CreateOrder creates the order and returns its id. A success response with
// no order id is treated as fatal.
func (c *Client) CreateOrder(ctx context.Context, token string, order OrderInput) (string, error) {
	if len(order.Items) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	payload := struct {
		Order OrderInput `json:"order"`
	}{Order: order}

	var resp struct {
		Data struct {
			Order struct {
				ID string `json:"_id"`
			} `json:"order"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/order/new", token, payload, &resp); err != nil {
		return "", err
	}
	orderID := strings.TrimSpace(resp.Data.Order.ID)
	if orderID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "order created without an id")
	}
	return orderID, nil
}

// PhonePePaymentRequest is the create-phonepe-payment request body.
type PhonePePaymentRequest struct {
	OrderID     string `json:"orderId"`
	UserID      string `json:"userId"`
	MUID        string `json:"MUID"`
	FrontendURL string `json:"FRONTEND_URL"`
}

// PhonePePayment is the created payment plus the raw gateway response, kept
// raw so the adapter can scan candidate redirect paths.
type PhonePePayment struct {
	PaymentID       string
	GatewayResponse json.RawMessage
}

// CreatePhonePePayment creates a redirect-style payment on the backend.
func (c *Client) CreatePhonePePayment(ctx context.Context, token string, req PhonePePaymentRequest) (*PhonePePayment, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Response struct {
				Payment struct {
					ID string `json:"_id"`
				} `json:"payment"`
				PhonePeResponse json.RawMessage `json:"phonepeResponse"`
			} `json:"response"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/payment/create-phonepe-payment", token, req, &resp); err != nil {
		return nil, asGatewayError(err)
	}
	return &PhonePePayment{
		PaymentID:       resp.Data.Response.Payment.ID,
		GatewayResponse: resp.Data.Response.PhonePeResponse,
	}, nil
}

// CashfreePaymentRequest is the create-cashfree-payment request body.
type CashfreePaymentRequest struct {
	OrderID     string      `json:"orderId"`
	UserID      string      `json:"userId"`
	FrontendURL string      `json:"FRONTEND_URL"`
	CartItems   []OrderItem `json:"cart_items"`
}

// CashfreePayment is the modal-style payment session handed to the gateway's
// client runtime.
type CashfreePayment struct {
	PaymentID      string
	SessionID      string
	GatewayOrderID string
}

// CreateCashfreePayment creates a modal-style payment on the backend.
func (c *Client) CreateCashfreePayment(ctx context.Context, token string, req CashfreePaymentRequest) (*CashfreePayment, error) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var resp struct {
		Data struct {
			Response struct {
				Payment struct {
					ID string `json:"_id"`
				} `json:"payment"`
				CashfreeResponse struct {
					PaymentSessionID string `json:"payment_session_id"`
					OrderID          string `json:"order_id"`
				} `json:"cashfreeResponse"`
			} `json:"response"`
		} `json:"data"`
	}
	if err := c.postJSON(ctx, "/payment/create-cashfree-payment", token, req, &resp); err != nil {
		return nil, asGatewayError(err)
	}
	return &CashfreePayment{
		PaymentID:      resp.Data.Response.Payment.ID,
		SessionID:      resp.Data.Response.CashfreeResponse.PaymentSessionID,
		GatewayOrderID: resp.Data.Response.CashfreeResponse.OrderID,
	}, nil
}

// asGatewayError reclassifies dependency failures from the payment endpoints
// so callers surface them as "payment service unavailable"; auth failures
// keep their code so the login redirect still triggers.
func asGatewayError(err error) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		return err
	}
	switch typed.Code() {
	case pkgerrors.CodeUnauthorized, pkgerrors.CodeValidation:
		return err
	}
	if typed.Code() == pkgerrors.CodeDependency {
		return pkgerrors.Wrap(pkgerrors.CodeGateway, err, "payment creation failed")
	}
	return err
}
