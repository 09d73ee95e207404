package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

type memorySnapshots struct {
	saved   map[string]types.Cart
	saveErr error
	deletes int
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{saved: map[string]types.Cart{}}
}

func (m *memorySnapshots) Save(_ context.Context, userID string, cart types.Cart) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved[userID] = cart
	return nil
}

func (m *memorySnapshots) Load(_ context.Context, userID string) (*types.Cart, error) {
	cart, ok := m.saved[userID]
	if !ok {
		return nil, nil
	}
	return &cart, nil
}

func (m *memorySnapshots) Delete(_ context.Context, userID string) error {
	m.deletes++
	delete(m.saved, userID)
	return nil
}

func line(productID string, qty int, price string) types.CartLine {
	return types.CartLine{
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: decimal.RequireFromString(price),
	}
}

func newTestStore(t *testing.T) (*Store, *memorySnapshots) {
	t.Helper()
	snaps := newMemorySnapshots()
	store, err := NewStore("u1", snaps, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, snaps
}

func TestAddMergesOnCompositeKey(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, line("p1", 2, "100")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Add(ctx, line("p1", 3, "100")); err != nil {
		t.Fatalf("add: %v", err)
	}

	lines := store.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected single merged line, got %d", len(lines))
	}
	if lines[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", lines[0].Quantity)
	}
}

func TestAddBulkVariantIsSeparateLine(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, line("p1", 1, "100")); err != nil {
		t.Fatalf("add: %v", err)
	}
	bulk := line("p1", 10, "90")
	bulk.IsBulkOrder = true
	bulk.BulkRange = "10-20"
	if err := store.Add(ctx, bulk); err != nil {
		t.Fatalf("add bulk: %v", err)
	}

	if got := len(store.Lines()); got != 2 {
		t.Fatalf("expected 2 distinct lines, got %d", got)
	}
}

func TestAddDefaultsQuantityToOne(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)

	if err := store.Add(context.Background(), line("p1", 0, "100")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := store.Lines()[0].Quantity; got != 1 {
		t.Fatalf("expected default quantity 1, got %d", got)
	}
}

func TestAddKeepsExistingPriceWhenIncomingIsZero(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, line("p1", 1, "100")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Add(ctx, line("p1", 1, "0")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := store.Lines()[0].UnitPrice; !got.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("expected price preserved at 100, got %s", got)
	}

	if err := store.Add(ctx, line("p1", 1, "85")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := store.Lines()[0].UnitPrice; !got.Equal(decimal.RequireFromString("85")) {
		t.Fatalf("expected price overwritten to 85, got %s", got)
	}
}

func TestAddRejectsInvalidLines(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.Add(ctx, line("", 1, "100"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for empty product id, got %v", err)
	}

	err = store.Add(ctx, line("p1", -1, "100"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative quantity, got %v", err)
	}
}

func TestRemoveDropsAllVariantsOfProduct(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, line("p1", 1, "100")); err != nil {
		t.Fatalf("add: %v", err)
	}
	bulk := line("p1", 10, "90")
	bulk.IsBulkOrder = true
	bulk.BulkRange = "10-20"
	if err := store.Add(ctx, bulk); err != nil {
		t.Fatalf("add bulk: %v", err)
	}
	if err := store.Add(ctx, line("p2", 1, "50")); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := store.Remove(ctx, "p1"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	lines := store.Lines()
	if len(lines) != 1 || lines[0].ProductID != "p2" {
		t.Fatalf("expected only p2 to survive, got %+v", lines)
	}
}

func TestIncreaseQuantityRespectsStockCeiling(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()

	ceiling := 3
	item := line("p1", 3, "100")
	item.StockCeiling = &ceiling
	if err := store.Add(ctx, item); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := store.IncreaseQuantity(ctx, "p1"); err != nil {
		t.Fatalf("increase: %v", err)
	}
	if got := store.Lines()[0].Quantity; got != 3 {
		t.Fatalf("expected quantity pinned at ceiling 3, got %d", got)
	}
}

func TestDecreaseQuantityFloorsAtOne(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, line("p1", 1, "100")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.DecreaseQuantity(ctx, "p1"); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if got := store.Lines()[0].Quantity; got != 1 {
		t.Fatalf("expected quantity floored at 1, got %d", got)
	}
}

func TestClearDeletesSnapshot(t *testing.T) {
	t.Parallel()
	store, snaps := newTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, line("p1", 2, "100")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(store.Lines()) != 0 {
		t.Fatal("expected empty cart after clear")
	}
	if snaps.deletes != 1 {
		t.Fatalf("expected one snapshot delete, got %d", snaps.deletes)
	}
}

func TestHydrateReplaysSnapshot(t *testing.T) {
	t.Parallel()
	snaps := newMemorySnapshots()
	snaps.saved["u1"] = types.Cart{Lines: []types.CartLine{
		line("p1", 4, "100"),
		line("p2", 1, "250"),
	}}
	store, err := NewStore("u1", snaps, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := store.Hydrate(context.Background()); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	lines := store.Lines()
	if len(lines) != 2 {
		t.Fatalf("expected 2 hydrated lines, got %d", len(lines))
	}
	if lines[0].ProductID != "p1" || lines[0].Quantity != 4 {
		t.Fatalf("unexpected first line: %+v", lines[0])
	}
}

func TestMutationsKeepEvenWhenPersistFails(t *testing.T) {
	t.Parallel()
	snaps := newMemorySnapshots()
	snaps.saveErr = errors.New("redis down")
	store, err := NewStore("u1", snaps, nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	err = store.Add(context.Background(), line("p1", 1, "100"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if len(store.Lines()) != 1 {
		t.Fatal("expected in-memory line to survive persist failure")
	}
}

func TestSubscribeSignalsMutations(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ch := store.Subscribe()

	if err := store.Add(context.Background(), line("p1", 1, "100")); err != nil {
		t.Fatalf("add: %v", err)
	}

	select {
	case <-ch:
	default:
		t.Fatal("expected a mutation signal")
	}
}

func TestTotalsDeriveFromLines(t *testing.T) {
	t.Parallel()
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Add(ctx, line("p1", 2, "100")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Add(ctx, line("p2", 3, "50")); err != nil {
		t.Fatalf("add: %v", err)
	}

	totals := store.Totals()
	if totals.TotalItems != 5 {
		t.Fatalf("expected 5 items, got %d", totals.TotalItems)
	}
	if totals.UniqueLineCount != 2 {
		t.Fatalf("expected 2 unique lines, got %d", totals.UniqueLineCount)
	}
	if !totals.TotalAmount.Equal(decimal.RequireFromString("350")) {
		t.Fatalf("expected total 350, got %s", totals.TotalAmount)
	}
}
