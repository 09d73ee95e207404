// Package shiprate calls the third-party courier rate API used to price
// delivery for a parcel between two pincodes.
package shiprate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-engine/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	ratePath                   = "/rate/check.json"
	orderTypePrepaid           = "forward"
	paymentMethodPrepaid       = "prepaid"
	requestBodyReadLimit int64 = 1024
)

var errBaseURLRequired = errors.New("rate api base url is required")

// Client calls the courier rate endpoint.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	accessToken string
	secretKey   string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the rate client from config.
func NewClient(cfg config.RateAPIConfig, opts ...Option) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errBaseURLRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:     strings.TrimRight(base, "/"),
		accessToken: cfg.AccessToken,
		secretKey:   cfg.SecretKey,
		httpClient:  &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Request describes the parcel and route being priced.
type Request struct {
	FromPincode string
	ToPincode   string
	LengthCM    float64
	WidthCM     float64
	HeightCM    float64
	WeightKG    float64
	ProductMRP  decimal.Decimal
}

// Rate is one courier/service offer.
type Rate struct {
	LogisticName string          `json:"logistic_name"`
	ServiceType  string          `json:"service_type"`
	Rate         decimal.Decimal `json:"rate"`
}

// Quote is the full rate response.
type Quote struct {
	Rates                []Rate `json:"data"`
	ExpectedDeliveryDate string `json:"expected_delivery_date"`
}

// Check fetches courier rates for the parcel.
func (c *Client) Check(ctx context.Context, req Request) (*Quote, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "rate client not configured")
	}
	if strings.TrimSpace(req.FromPincode) == "" || strings.TrimSpace(req.ToPincode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "both pincodes are required")
	}

	payload := map[string]any{
		"data": map[string]any{
			"from_pincode":        req.FromPincode,
			"to_pincode":          req.ToPincode,
			"shipping_length_cms": req.LengthCM,
			"shipping_width_cms":  req.WidthCM,
			"shipping_height_cms": req.HeightCM,
			"shipping_weight_kg":  req.WeightKG,
			"order_type":          orderTypePrepaid,
			"payment_method":      paymentMethodPrepaid,
			"product_mrp":         req.ProductMRP,
			"access_token":        c.accessToken,
			"secret_key":          c.secretKey,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal rate request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ratePath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build rate request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute rate request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "rate request failed")
	}

	var quote Quote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode rate response")
	}
	return &quote, nil
}

// Pick selects the preferred courier/service pair when the quote offers it,
// falling back to the first offered rate.
func (q *Quote) Pick(preferredCourier, preferredService string) (Rate, bool) {
	if q == nil || len(q.Rates) == 0 {
		return Rate{}, false
	}
	for _, rate := range q.Rates {
		if strings.EqualFold(rate.LogisticName, preferredCourier) && strings.EqualFold(rate.ServiceType, preferredService) {
			return rate, true
		}
	}
	return q.Rates[0], true
}
