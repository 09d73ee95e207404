package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-engine/internal/payment"
	"github.com/angelmondragon/storefront-engine/pkg/backend"
	"github.com/angelmondragon/storefront-engine/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/shiprate"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

type stubCart struct {
	mu    sync.Mutex
	lines []types.CartLine
}

func (s *stubCart) Lines() []types.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *stubCart) Subscribe() <-chan struct{} { return make(chan struct{}) }

type stubBook struct {
	mu   sync.Mutex
	addr *types.Address
}

func (s *stubBook) Selected() (types.Address, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addr == nil {
		return types.Address{}, false
	}
	return *s.addr, true
}

func (s *stubBook) Subscribe() <-chan struct{} { return make(chan struct{}) }

func (s *stubBook) selectAddr(addr types.Address) {
	s.mu.Lock()
	s.addr = &addr
	s.mu.Unlock()
}

type stubCatalog struct {
	mu       sync.Mutex
	products map[string]*backend.Product
	fetched  []string
}

func (s *stubCatalog) GetProduct(_ context.Context, productID string) (*backend.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched = append(s.fetched, productID)
	if product, ok := s.products[productID]; ok {
		return product, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

type stubOrders struct {
	mu     sync.Mutex
	orders []backend.OrderInput
	err    error
}

func (s *stubOrders) CreateOrder(_ context.Context, _ string, order backend.OrderInput) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, order)
	return fmt.Sprintf("order-%d", len(s.orders)), nil
}

type stubGateway struct {
	mu      sync.Mutex
	mode    payment.Mode
	err     error
	started []payment.InitiateRequest
}

func (s *stubGateway) Name() string { return "stub" }

func (s *stubGateway) Initiate(_ context.Context, _ string, req payment.InitiateRequest) (*payment.Outcome, error) {
	s.mu.Lock()
	s.started = append(s.started, req)
	err := s.err
	mode := s.mode
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if mode == "" {
		mode = payment.ModeRedirect
	}
	return &payment.Outcome{Mode: mode, Target: "https://pay.example/redirect", PaymentID: "pay1"}, nil
}

type stubMarkers struct {
	mu     sync.Mutex
	saved  []types.PendingPayment
	err    error
	userID string
}

func (s *stubMarkers) Save(_ context.Context, userID string, marker types.PendingPayment) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.saved = append(s.saved, marker)
	return nil
}

type fixedRates struct {
	quote *shiprate.Quote
	err   error
	last  shiprate.Request
}

func (f *fixedRates) Check(_ context.Context, req shiprate.Request) (*shiprate.Quote, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.quote, nil
}

type fixture struct {
	orch    *Orchestrator
	cart    *stubCart
	book    *stubBook
	catalog *stubCatalog
	orders  *stubOrders
	gateway *stubGateway
	markers *stubMarkers
	rates   *fixedRates
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cart: &stubCart{lines: []types.CartLine{
			{ProductID: "p1", Name: "Widget", Quantity: 2, UnitPrice: decimal.NewFromInt(1000)},
		}},
		book:    &stubBook{},
		catalog: &stubCatalog{products: map[string]*backend.Product{"p1": {ID: "p1", Stock: 10}}},
		orders:  &stubOrders{},
		gateway: &stubGateway{},
		markers: &stubMarkers{},
		rates:   &fixedRates{quote: &shiprate.Quote{Rates: []shiprate.Rate{{LogisticName: "Delhivery", ServiceType: "Surface", Rate: decimal.NewFromInt(50)}}}},
	}
	f.book.selectAddr(types.Address{ID: 1, FullAddress: "123 Main St, Pune, Maharashtra, 411001", City: "Pune", State: "Maharashtra", PostalCode: "411001"})

	orch, err := NewOrchestrator(Deps{
		UserID:  "u1",
		Cart:    f.cart,
		Book:    f.book,
		Catalog: f.catalog,
		Orders:  f.orders,
		Rates:   f.rates,
		RateCfg: config.RateAPIConfig{OriginPincode: "560001", PreferredCourier: "Delhivery", PreferredService: "Surface"},
		Gateway: f.gateway,
		Markers: f.markers,
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	f.orch = orch
	orch.Ready(context.Background())
	return f
}

func TestSubmitRedirectFlow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if err := f.orch.ApplyCoupon(decimal.NewFromInt(100)); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}

	result, err := f.orch.Submit(ctx, "tok")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Outcome.Mode != payment.ModeRedirect || result.Outcome.Target == "" {
		t.Fatalf("unexpected outcome %+v", result.Outcome)
	}
	if f.orch.State() != StateRedirecting {
		t.Fatalf("expected redirecting state, got %s", f.orch.State())
	}
	if f.orch.Processing() {
		t.Fatal("processing flag must clear at the terminal state")
	}

	if len(f.orders.orders) != 1 {
		t.Fatalf("expected one order, got %d", len(f.orders.orders))
	}
	order := f.orders.orders[0]
	// (2000-100)*1.18+50
	if !order.TotalAmount.Equal(decimal.NewFromInt(2292)) {
		t.Fatalf("unexpected order total %s", order.TotalAmount)
	}
	if order.Pincode != "411001" {
		t.Fatalf("order must carry the selected address pincode, got %s", order.Pincode)
	}

	if len(f.markers.saved) != 1 {
		t.Fatalf("expected one pending-payment marker, got %d", len(f.markers.saved))
	}
	marker := f.markers.saved[0]
	if marker.OrderID != result.OrderID || marker.PaymentID != "pay1" {
		t.Fatalf("unexpected marker %+v", marker)
	}
	if !marker.Amount.Equal(decimal.NewFromInt(2292)) {
		t.Fatalf("marker amount must match the charged total, got %s", marker.Amount)
	}
}

func TestSubmitModalFlowSkipsMarker(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.gateway.mode = payment.ModeModal

	result, err := f.orch.Submit(context.Background(), "tok")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Outcome.Mode != payment.ModeModal {
		t.Fatalf("unexpected mode %s", result.Outcome.Mode)
	}
	if len(f.markers.saved) != 0 {
		t.Fatal("modal flow must not write a redirect marker")
	}
}

func TestSubmitAbortsOnFirstStockFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.cart.lines = []types.CartLine{
		{ProductID: "p1", Name: "Widget", Quantity: 1, UnitPrice: decimal.NewFromInt(100)},
		{ProductID: "p2", Name: "Gadget", Quantity: 5, UnitPrice: decimal.NewFromInt(200)},
		{ProductID: "p3", Name: "Gizmo", Quantity: 1, UnitPrice: decimal.NewFromInt(300)},
	}
	f.catalog.products = map[string]*backend.Product{
		"p1": {ID: "p1", Stock: 10},
		"p2": {ID: "p2", Stock: 2},
		"p3": {ID: "p3", Stock: 10},
	}

	_, err := f.orch.Submit(context.Background(), "tok")
	if !pkgerrors.HasCode(err, pkgerrors.CodeStock) {
		t.Fatalf("expected stock error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Gadget") {
		t.Fatalf("stock error must name the failing product, got %q", err.Error())
	}
	if len(f.orders.orders) != 0 {
		t.Fatal("no order may be created after a stock failure")
	}
	if got := f.catalog.fetched; len(got) != 2 {
		t.Fatalf("validation must stop at the first failing line, fetched %v", got)
	}
	if len(f.cart.Lines()) != 3 {
		t.Fatal("cart lines must be left untouched")
	}
	if f.orch.State() != StateFailed {
		t.Fatalf("expected failed state, got %s", f.orch.State())
	}
	if f.orch.Processing() {
		t.Fatal("processing flag must clear on failure")
	}
}

func TestRetryPaymentReusesOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.gateway.err = pkgerrors.New(pkgerrors.CodeGateway, "payment creation failed")
	_, err := f.orch.Submit(ctx, "tok")
	if !pkgerrors.HasCode(err, pkgerrors.CodeGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}
	if len(f.orders.orders) != 1 {
		t.Fatalf("order must exist after the payment step failed, got %d", len(f.orders.orders))
	}
	orderID := f.orch.OrderID()
	if orderID == "" {
		t.Fatal("order id must be retained for retry")
	}

	f.gateway.err = nil
	result, err := f.orch.RetryPayment(ctx, "tok")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if result.OrderID != orderID {
		t.Fatalf("retry must reuse order %s, got %s", orderID, result.OrderID)
	}
	if len(f.orders.orders) != 1 {
		t.Fatalf("retry must not recreate the order, got %d orders", len(f.orders.orders))
	}
	if len(f.gateway.started) != 2 {
		t.Fatalf("expected two initiation attempts, got %d", len(f.gateway.started))
	}
}

func TestRetryPaymentWithoutOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	_, err := f.orch.RetryPayment(context.Background(), "tok")
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSubmitGuards(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	f.book.mu.Lock()
	f.book.addr = nil
	f.book.mu.Unlock()
	if _, err := f.orch.Submit(ctx, "tok"); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error without an address, got %v", err)
	}

	f.book.selectAddr(types.Address{ID: 1, PostalCode: "411001"})
	f.cart.mu.Lock()
	f.cart.lines = nil
	f.cart.mu.Unlock()
	if _, err := f.orch.Submit(ctx, "tok"); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error with an empty cart, got %v", err)
	}
}

func TestSubmitConflictsAfterRedirect(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.orch.Submit(ctx, "tok"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := f.orch.Submit(ctx, "tok"); !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict from redirecting state, got %v", err)
	}
}

func TestMarkerFailureFailsCheckout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.markers.err = errors.New("redis down")

	_, err := f.orch.Submit(context.Background(), "tok")
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if f.orch.State() != StateFailed {
		t.Fatalf("expected failed state, got %s", f.orch.State())
	}
}

func TestSummarizeTotals(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if err := f.orch.ApplyCoupon(decimal.NewFromInt(100)); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}

	summary := f.orch.Summarize()
	if !summary.Subtotal.Equal(decimal.NewFromInt(2000)) {
		t.Fatalf("unexpected subtotal %s", summary.Subtotal)
	}
	if !summary.ShippingFee.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected fee 50 from the initial lookup, got %s", summary.ShippingFee)
	}
	if !summary.Total.Equal(decimal.NewFromInt(2292)) {
		t.Fatalf("unexpected checkout total %s", summary.Total)
	}
	// 2000+50-15, per the cart-page formula
	if !summary.CartPageTotal.Equal(decimal.NewFromInt(2035)) {
		t.Fatalf("unexpected cart-page total %s", summary.CartPageTotal)
	}
}

func TestApplyCouponRejectsNegative(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	err := f.orch.ApplyCoupon(decimal.NewFromInt(-5))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}
