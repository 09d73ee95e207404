// Package backend is the typed client for the storefront REST API. The
// engine never talks to a database of its own; catalog, users, orders and
// payment creation all live behind this contract.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/shopspring/decimal"
)

const requestBodyReadLimit int64 = 1024

var errBaseURLRequired = errors.New("backend base url is required")

// Client calls the storefront backend API.
type Client struct {
	httpClient *http.Client
	baseURL    string
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

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds the backend client for the given base URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Product is the catalog entry shape the engine consumes.
type Product struct {
	ID              string          `json:"_id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice"`
	Stock           int             `json:"stock"`
	WeightKG        float64         `json:"shippingWeightKg,omitempty"`
	LengthCM        float64         `json:"lengthCm,omitempty"`
	WidthCM         float64         `json:"widthCm,omitempty"`
	HeightCM        float64         `json:"heightCm,omitempty"`
}

// ProductListRequest mirrors the paging/filtering payload of /product/list.
type ProductListRequest struct {
	PageNum  int            `json:"pageNum"`
	PageSize int            `json:"pageSize"`
	Filters  map[string]any `json:"filters,omitempty"`
}

// ProductList is the page of catalog entries plus the total match count.
type ProductList struct {
	Products []Product `json:"productList"`
	Count    int       `json:"productCount"`
}

// User is the backend's user record; Addresses holds the raw free-text
// address strings that the address book parses.
type User struct {
	Addresses   []string `json:"address"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	CompanyName string   `json:"companyName"`
	GSTNumber   string   `json:"gstNumber"`
}

// AddressUpdate writes one slot of the user's address list. The backend keys
// the write by position, not by a stable id; an empty AddressValue clears the
// slot without deleting it.
type AddressUpdate struct {
	AddressIndex int    `json:"address_index"`
	AddressValue string `json:"address_value"`
	CompanyName  string `json:"companyName,omitempty"`
	GSTNumber    string `json:"gstNumber,omitempty"`
}

// ListProducts fetches a catalog page.
func (c *Client) ListProducts(ctx context.Context, req ProductListRequest) (*ProductList, error) {
	var resp struct {
		Data ProductList `json:"data"`
	}
	if err := c.postJSON(ctx, "/product/list", "", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// GetProduct fetches the current catalog state of one product, including the
// live stock figure used by checkout stock validation.
func (c *Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	trimmed := strings.TrimSpace(productID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	var resp struct {
		Data struct {
			Product Product `json:"product"`
		} `json:"data"`
	}
	path := "/product/" + url.PathEscape(trimmed)
	if err := c.getJSON(ctx, path, "", &resp); err != nil {
		return nil, err
	}
	if resp.Data.Product.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &resp.Data.Product, nil
}

// GetUser fetches the user record with its raw address strings.
func (c *Client) GetUser(ctx context.Context, token, userID string) (*User, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	var resp struct {
		Data struct {
			User User `json:"user"`
		} `json:"data"`
	}
	path := "/user/" + url.PathEscape(trimmed)
	if err := c.getJSON(ctx, path, token, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.User, nil
}

// UpdateAddress writes one positional address slot back to the backend.
func (c *Client) UpdateAddress(ctx context.Context, token, userID string, update AddressUpdate) error {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if update.AddressIndex < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "address index must not be negative")
	}
	payload := struct {
		User AddressUpdate `json:"user"`
	}{User: update}

	var resp struct {
		Status string `json:"status"`
	}
	path := "/user/" + url.PathEscape(trimmed) + "/update-address"
	if err := c.postJSON(ctx, path, token, payload, &resp); err != nil {
		return err
	}
	if !strings.EqualFold(resp.Status, "Success") {
		return pkgerrors.New(pkgerrors.CodeDependency, "address update rejected by backend")
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path, token string, dest any) error {
	return c.do(ctx, http.MethodGet, path, token, nil, dest)
}

func (c *Client) postJSON(ctx context.Context, path, token string, body, dest any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal backend request")
	}
	return c.do(ctx, http.MethodPost, path, token, payload, dest)
}

func (c *Client) do(ctx context.Context, method, path, token string, payload []byte, dest any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "backend client not configured")
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build backend request")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute backend request")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "backend rejected credentials")
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "backend resource not found")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "backend request failed")
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode backend response")
	}
	return nil
}
