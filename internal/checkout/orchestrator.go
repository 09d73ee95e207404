// Package checkout sequences the checkout flow: reactive shipping-rate
// lookups while the user edits cart and address, then on submit a strict
// stock-validate, create-order, initiate-payment pipeline.
package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-engine/internal/payment"
	"github.com/angelmondragon/storefront-engine/internal/pricing"
	"github.com/angelmondragon/storefront-engine/pkg/backend"
	"github.com/angelmondragon/storefront-engine/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/metrics"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

// CartSource is the cart surface the orchestrator reads.
type CartSource interface {
	Lines() []types.CartLine
	Subscribe() <-chan struct{}
}

// AddressSource is the address-book surface the orchestrator reads.
type AddressSource interface {
	Selected() (types.Address, bool)
	Subscribe() <-chan struct{}
}

// Catalog fetches live product state for stock validation.
type Catalog interface {
	GetProduct(ctx context.Context, productID string) (*backend.Product, error)
}

// OrderCreator creates the order on the backend.
type OrderCreator interface {
	CreateOrder(ctx context.Context, token string, order backend.OrderInput) (string, error)
}

// PendingMarkers stores the pending-payment marker written before a redirect.
type PendingMarkers interface {
	Save(ctx context.Context, userID string, marker types.PendingPayment) error
}

// Deps wires the orchestrator's collaborators.
type Deps struct {
	UserID  string
	Cart    CartSource
	Book    AddressSource
	Catalog Catalog
	Orders  OrderCreator
	Rates   RateSource
	RateCfg config.RateAPIConfig
	Gateway payment.Gateway
	Markers PendingMarkers
	Metrics *metrics.CheckoutMetrics
	Logger  *logger.Logger
}

// Orchestrator runs one user's checkout flow.
type Orchestrator struct {
	mu sync.Mutex

	userID  string
	cart    CartSource
	book    AddressSource
	catalog Catalog
	orders  OrderCreator
	rates   RateSource
	rateCfg config.RateAPIConfig
	gateway payment.Gateway
	markers PendingMarkers
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger

	state      State
	processing bool
	// rateGen stamps each rate lookup; only the result carrying the latest
	// stamp may update the fee, so a slow lookup for a previously selected
	// address can never overwrite the current one.
	rateGen          uint64
	shippingFee      decimal.Decimal
	expectedDelivery string
	coupon           decimal.Decimal
	orderID          string
	paymentID        string
	lastErr          error
}

// NewOrchestrator validates the wiring and returns an orchestrator in the
// loading state.
func NewOrchestrator(deps Deps) (*Orchestrator, error) {
	if deps.UserID == "" {
		return nil, fmt.Errorf("user id required")
	}
	if deps.Cart == nil || deps.Book == nil {
		return nil, fmt.Errorf("cart and address book required")
	}
	if deps.Catalog == nil || deps.Orders == nil {
		return nil, fmt.Errorf("catalog and order clients required")
	}
	if deps.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if deps.Markers == nil {
		return nil, fmt.Errorf("pending-payment store required")
	}
	return &Orchestrator{
		userID:      deps.UserID,
		cart:        deps.Cart,
		book:        deps.Book,
		catalog:     deps.Catalog,
		orders:      deps.Orders,
		rates:       deps.Rates,
		rateCfg:     deps.RateCfg,
		gateway:     deps.Gateway,
		markers:     deps.Markers,
		metrics:     deps.Metrics,
		logg:        deps.Logger,
		state:       StateLoadingAddresses,
		shippingFee: decimal.Zero,
		coupon:      decimal.Zero,
	}, nil
}

// Ready marks the address book loaded and prices the initial rate.
func (o *Orchestrator) Ready(ctx context.Context) {
	o.mu.Lock()
	o.state = StateAddressReady
	o.mu.Unlock()
	o.RefreshRate(ctx)
}

// Watch refreshes the shipping rate whenever the cart or the selected
// address changes, until ctx is cancelled.
func (o *Orchestrator) Watch(ctx context.Context) {
	cartCh := o.cart.Subscribe()
	bookCh := o.book.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case <-cartCh:
		case <-bookCh:
		}
		go o.RefreshRate(ctx)
	}
}

// ApplyCoupon sets the flat coupon amount subtracted before tax.
func (o *Orchestrator) ApplyCoupon(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon discount must not be negative")
	}
	o.mu.Lock()
	o.coupon = amount
	o.mu.Unlock()
	return nil
}

// Summary is the priced view of the session.
type Summary struct {
	Subtotal         decimal.Decimal `json:"subtotal"`
	TotalMRP         decimal.Decimal `json:"total_mrp"`
	CouponDiscount   decimal.Decimal `json:"coupon_discount"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	ShippingFee      decimal.Decimal `json:"shipping_fee"`
	Total            decimal.Decimal `json:"total"`
	CartPageTotal    decimal.Decimal `json:"cart_page_total"`
	ExpectedDelivery string          `json:"expected_delivery,omitempty"`
}

// Summarize recomputes all derived figures from the current cart, coupon and
// shipping fee.
func (o *Orchestrator) Summarize() Summary {
	lines := o.cart.Lines()

	o.mu.Lock()
	coupon := o.coupon
	fee := o.shippingFee
	expected := o.expectedDelivery
	o.mu.Unlock()

	subtotal := pricing.TotalDiscounted(lines)
	return Summary{
		Subtotal:         subtotal,
		TotalMRP:         pricing.TotalMRP(lines),
		CouponDiscount:   coupon,
		TaxAmount:        pricing.TaxAmount(subtotal, coupon),
		ShippingFee:      fee,
		Total:            pricing.CheckoutTotal(subtotal, coupon, fee),
		CartPageTotal:    pricing.CartPageTotal(subtotal, fee),
		ExpectedDelivery: expected,
	}
}

// Result is a successful submission: how to hand the user to the gateway.
type Result struct {
	Outcome *payment.Outcome
	OrderID string
	Summary Summary
}

// Submit runs stock validation, order creation and payment initiation. The
// whole pipeline is all-or-nothing up to order creation; once an order
// exists, payment failures leave it in place for RetryPayment.
func (o *Orchestrator) Submit(ctx context.Context, token string) (*Result, error) {
	o.mu.Lock()
	if o.processing {
		o.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")
	}
	if !o.state.Submittable() {
		state := o.state
		o.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("cannot submit from state %s", state))
	}
	addr, ok := o.book.Selected()
	if !ok {
		o.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "select a delivery address first")
	}
	lines := o.cart.Lines()
	if len(lines) == 0 {
		o.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	o.processing = true
	o.state = StateStockValidating
	coupon := o.coupon
	fee := o.shippingFee
	o.mu.Unlock()

	if err := o.validateStock(ctx, lines); err != nil {
		return nil, o.fail("stock_validation", err)
	}

	o.setState(StateOrderCreating)
	orderID, err := o.createOrder(ctx, token, lines, addr, coupon, fee)
	if err != nil {
		return nil, o.fail("order_creation", err)
	}
	o.mu.Lock()
	o.orderID = orderID
	o.mu.Unlock()

	return o.initiatePayment(ctx, token, orderID, lines)
}

// RetryPayment re-initiates payment for the order created by an earlier
// submission whose payment step failed. The order is never recreated.
func (o *Orchestrator) RetryPayment(ctx context.Context, token string) (*Result, error) {
	o.mu.Lock()
	if o.processing {
		o.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")
	}
	orderID := o.orderID
	if orderID == "" {
		o.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no order awaiting payment")
	}
	o.processing = true
	o.mu.Unlock()

	return o.initiatePayment(ctx, token, orderID, o.cart.Lines())
}

func (o *Orchestrator) initiatePayment(ctx context.Context, token, orderID string, lines []types.CartLine) (*Result, error) {
	o.setState(StatePaymentInitiating)

	outcome, err := o.gateway.Initiate(ctx, token, payment.InitiateRequest{
		OrderID: orderID,
		UserID:  o.userID,
		Items:   orderItems(lines),
	})
	if err != nil {
		return nil, o.fail("payment_initiation", err)
	}

	summary := o.Summarize()
	if outcome.Mode == payment.ModeRedirect {
		marker := types.PendingPayment{
			OrderID:   orderID,
			PaymentID: outcome.PaymentID,
			Amount:    summary.Total,
			Timestamp: time.Now().UTC(),
		}
		if err := o.markers.Save(ctx, o.userID, marker); err != nil {
			return nil, o.fail("payment_marker", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record pending payment"))
		}
	}

	o.mu.Lock()
	o.paymentID = outcome.PaymentID
	o.state = StateRedirecting
	o.processing = false
	o.lastErr = nil
	o.mu.Unlock()

	o.metrics.IncSuccess(o.gateway.Name())
	if o.logg != nil {
		o.logg.Info(o.logg.WithOrderID(ctx, orderID), "checkout handed off to gateway")
	}
	return &Result{Outcome: outcome, OrderID: orderID, Summary: summary}, nil
}

// validateStock checks every line sequentially against live catalog stock.
// The first failing line aborts the whole submission; nothing is reserved.
func (o *Orchestrator) validateStock(ctx context.Context, lines []types.CartLine) error {
	for _, line := range lines {
		product, err := o.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if product.Stock <= 0 || line.Quantity > product.Stock {
			name := line.Name
			if name == "" {
				name = line.ProductID
			}
			return pkgerrors.New(pkgerrors.CodeStock, fmt.Sprintf("insufficient stock for %s", name)).
				WithDetails(map[string]any{
					"product_id": line.ProductID,
					"requested":  line.Quantity,
					"available":  product.Stock,
				})
		}
	}
	return nil
}

func (o *Orchestrator) createOrder(ctx context.Context, token string, lines []types.CartLine, addr types.Address, coupon, fee decimal.Decimal) (string, error) {
	subtotal := pricing.TotalDiscounted(lines)
	return o.orders.CreateOrder(ctx, token, backend.OrderInput{
		UserID:          o.userID,
		Items:           orderItems(lines),
		ShippingAddress: addr.FullAddress,
		City:            addr.City,
		State:           addr.State,
		Pincode:         addr.PostalCode,
		Subtotal:        subtotal,
		CouponDiscount:  coupon,
		TaxAmount:       pricing.TaxAmount(subtotal, coupon),
		ShippingFee:     fee,
		TotalAmount:     pricing.CheckoutTotal(subtotal, coupon, fee),
	})
}

// fail unwinds a submission: the error is recorded, the flow returns to an
// addressable state, and the step is counted.
func (o *Orchestrator) fail(step string, err error) error {
	o.mu.Lock()
	o.state = StateFailed
	o.processing = false
	o.lastErr = err
	o.mu.Unlock()

	o.metrics.IncFailure(step)
	if o.logg != nil {
		o.logg.Error(context.Background(), fmt.Sprintf("checkout failed at %s", step), err)
	}
	return err
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()
}

// State returns the current flow position.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Processing reports whether a submission is in flight; callers disable the
// submit action while it is set.
func (o *Orchestrator) Processing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processing
}

// LastError returns the error that sent the flow to the failed state.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// OrderID returns the created order id, empty until order creation succeeds.
func (o *Orchestrator) OrderID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.orderID
}

func orderItems(lines []types.CartLine) []backend.OrderItem {
	items := make([]backend.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, backend.OrderItem{
			ProductID:   line.ProductID,
			Name:        line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			IsBulkOrder: line.IsBulkOrder,
			BulkRange:   line.BulkRange,
		})
	}
	return items
}
