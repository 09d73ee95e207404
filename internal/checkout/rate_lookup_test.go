package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-engine/pkg/shiprate"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

// blockingRates parks each Check call until the test resolves it, so lookup
// ordering can be controlled explicitly.
type blockingRates struct {
	mu    sync.Mutex
	calls []chan *shiprate.Quote
}

func (b *blockingRates) Check(_ context.Context, _ shiprate.Request) (*shiprate.Quote, error) {
	ch := make(chan *shiprate.Quote)
	b.mu.Lock()
	b.calls = append(b.calls, ch)
	b.mu.Unlock()
	quote := <-ch
	if quote == nil {
		return nil, errors.New("rate api down")
	}
	return quote, nil
}

func (b *blockingRates) pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *blockingRates) resolve(i int, quote *shiprate.Quote) {
	b.mu.Lock()
	ch := b.calls[i]
	b.mu.Unlock()
	ch <- quote
}

func quoteWithRate(rate int64) *shiprate.Quote {
	return &shiprate.Quote{Rates: []shiprate.Rate{{LogisticName: "Delhivery", ServiceType: "Surface", Rate: decimal.NewFromInt(rate)}}}
}

func TestStaleRateLookupIsDiscarded(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	blocking := &blockingRates{}
	f.orch.rates = blocking
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	// Lookup for address A starts first and resolves last.
	go func() {
		defer wg.Done()
		f.orch.RefreshRate(ctx)
	}()
	waitFor(t, func() bool { return blocking.pending() == 1 }, "first lookup never started")

	f.book.selectAddr(types.Address{ID: 2, PostalCode: "400001"})
	go func() {
		defer wg.Done()
		f.orch.RefreshRate(ctx)
	}()
	waitFor(t, func() bool { return blocking.pending() == 2 }, "second lookup never started")

	blocking.resolve(1, quoteWithRate(80))
	waitFor(t, func() bool { return f.orch.ShippingFee().Equal(decimal.NewFromInt(80)) }, "second lookup result never published")

	blocking.resolve(0, quoteWithRate(30))
	wg.Wait()

	if got := f.orch.ShippingFee(); !got.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("stale result overwrote the current rate: %s", got)
	}
}

func TestRateLookupFailureFallsBackToZero(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.rates.err = errors.New("rate api down")

	f.orch.RefreshRate(context.Background())

	if got := f.orch.ShippingFee(); !got.IsZero() {
		t.Fatalf("expected zero-fee fallback, got %s", got)
	}
	if f.orch.State() != StateAddressReady {
		t.Fatalf("fallback is non-fatal, expected address_ready, got %s", f.orch.State())
	}
}

func TestRateLookupSkippedWithoutAddressOrLines(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.cart.mu.Lock()
	f.cart.lines = nil
	f.cart.mu.Unlock()
	f.rates.last = shiprate.Request{}

	f.orch.RefreshRate(context.Background())

	if got := f.orch.ShippingFee(); !got.IsZero() {
		t.Fatalf("empty cart must price shipping at zero, got %s", got)
	}
	if f.rates.last.ToPincode != "" {
		t.Fatal("no lookup should be issued for an empty cart")
	}
}

func TestRateLookupTargetsSelectedPincode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	f.orch.RefreshRate(context.Background())

	if f.rates.last.FromPincode != "560001" || f.rates.last.ToPincode != "411001" {
		t.Fatalf("unexpected route %s -> %s", f.rates.last.FromPincode, f.rates.last.ToPincode)
	}
}

func TestParcelAggregation(t *testing.T) {
	t.Parallel()
	lines := []types.CartLine{
		{ProductID: "p1", Quantity: 2, UnitPrice: decimal.NewFromInt(100), WeightKG: 0.5, LengthCM: 20, WidthCM: 15, HeightCM: 8},
		{ProductID: "p2", Quantity: 3, UnitPrice: decimal.NewFromInt(50)},
	}

	req := parcelFor(lines)
	// 0.5*2 for the first line plus the 0.1 per-line default for the second
	if req.WeightKG != 1.1 {
		t.Fatalf("unexpected weight %v", req.WeightKG)
	}
	if req.LengthCM != 30 {
		t.Fatalf("lengths must stack, got %v", req.LengthCM)
	}
	if req.WidthCM != 15 || req.HeightCM != 8 {
		t.Fatalf("width/height must take the max, got %v x %v", req.WidthCM, req.HeightCM)
	}
	if !req.ProductMRP.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("unexpected mrp %s", req.ProductMRP)
	}
}
