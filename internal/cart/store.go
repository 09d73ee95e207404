// Package cart owns the shopping cart line items for one user. Mutations
// merge on the composite line key, persist a durable snapshot after every
// change, and notify subscribers so dependent state (shipping rates) can
// react.
package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/angelmondragon/storefront-engine/internal/pricing"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

// Snapshotter persists the durable cart snapshot.
type Snapshotter interface {
	Save(ctx context.Context, userID string, cart types.Cart) error
	Load(ctx context.Context, userID string) (*types.Cart, error)
	Delete(ctx context.Context, userID string) error
}

// Store holds one user's cart.
type Store struct {
	mu        sync.Mutex
	userID    string
	lines     []types.CartLine
	snapshots Snapshotter
	logg      *logger.Logger
	subs      []chan struct{}
}

// NewStore builds a cart store for the given user.
func NewStore(userID string, snapshots Snapshotter, logg *logger.Logger) (*Store, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("user id required")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("snapshotter required")
	}
	return &Store{userID: userID, snapshots: snapshots, logg: logg}, nil
}

// Hydrate replays the stored snapshot through the merge path. Stored lines
// already have unique keys, so replay is idempotent; a corrupted snapshot
// with duplicate keys would merge silently.
func (s *Store) Hydrate(ctx context.Context) error {
	snapshot, err := s.snapshots.Load(ctx, s.userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart snapshot")
	}
	if snapshot == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	for _, line := range snapshot.Lines {
		if err := s.mergeLocked(line); err != nil {
			return err
		}
	}
	return nil
}

// Add merges the line into the cart: an existing line with the same
// composite key absorbs the quantity, and its price is overwritten when the
// incoming line carries one. A zero quantity defaults to 1.
func (s *Store) Add(ctx context.Context, line types.CartLine) error {
	s.mu.Lock()
	if err := s.mergeLocked(line); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	return s.persistAndNotify(ctx)
}

// Remove drops every line for the product, including all bulk variants.
// This is deliberately coarser than the add key.
func (s *Store) Remove(ctx context.Context, productID string) error {
	s.mu.Lock()
	kept := s.lines[:0]
	removed := false
	for _, line := range s.lines {
		if line.ProductID == productID {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	s.lines = kept
	s.mu.Unlock()

	if !removed {
		return nil
	}
	return s.persistAndNotify(ctx)
}

// IncreaseQuantity bumps the first line matching the product. The bump is
// refused once the quantity reaches the line's stock ceiling.
func (s *Store) IncreaseQuantity(ctx context.Context, productID string) error {
	s.mu.Lock()
	changed := false
	for i := range s.lines {
		if s.lines[i].ProductID != productID {
			continue
		}
		if ceiling := s.lines[i].StockCeiling; ceiling != nil && s.lines[i].Quantity >= *ceiling {
			break
		}
		s.lines[i].Quantity++
		changed = true
		break
	}
	s.mu.Unlock()

	if !changed {
		return nil
	}
	return s.persistAndNotify(ctx)
}

// DecreaseQuantity lowers the first line matching the product, never below 1.
func (s *Store) DecreaseQuantity(ctx context.Context, productID string) error {
	s.mu.Lock()
	changed := false
	for i := range s.lines {
		if s.lines[i].ProductID != productID {
			continue
		}
		if s.lines[i].Quantity <= 1 {
			break
		}
		s.lines[i].Quantity--
		changed = true
		break
	}
	s.mu.Unlock()

	if !changed {
		return nil
	}
	return s.persistAndNotify(ctx)
}

// Clear empties the cart and removes the durable snapshot.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()

	if err := s.snapshots.Delete(ctx, s.userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart snapshot")
	}
	s.notify()
	return nil
}

// Lines returns a defensive copy in insertion order.
func (s *Store) Lines() []types.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Totals recomputes the derived figures from the current lines.
func (s *Store) Totals() types.CartTotals {
	return pricing.Totals(s.Lines())
}

// Subscribe returns a channel that receives a signal after each mutation.
// Notifications are best-effort; a slow subscriber coalesces signals.
func (s *Store) Subscribe() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.subs = append(s.subs, ch)
	return ch
}

func (s *Store) mergeLocked(line types.CartLine) error {
	if strings.TrimSpace(line.ProductID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if line.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if line.UnitPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative")
	}
	if line.Quantity == 0 {
		line.Quantity = 1
	}

	key := line.Key()
	for i := range s.lines {
		if s.lines[i].Key() != key {
			continue
		}
		s.lines[i].Quantity += line.Quantity
		if !line.UnitPrice.IsZero() {
			s.lines[i].UnitPrice = line.UnitPrice
		}
		if line.OriginalUnitPrice != nil {
			s.lines[i].OriginalUnitPrice = line.OriginalUnitPrice
		}
		if line.StockCeiling != nil {
			s.lines[i].StockCeiling = line.StockCeiling
		}
		if line.Name != "" {
			s.lines[i].Name = line.Name
		}
		return nil
	}

	s.lines = append(s.lines, line)
	return nil
}

func (s *Store) persistAndNotify(ctx context.Context) error {
	snapshot := types.Cart{Lines: s.Lines()}
	err := s.snapshots.Save(ctx, s.userID, snapshot)
	s.notify()
	if err != nil {
		// The in-memory mutation stands; only durability is at risk.
		if s.logg != nil {
			s.logg.Error(ctx, "cart snapshot write failed", err)
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart snapshot")
	}
	return nil
}

func (s *Store) notify() {
	s.mu.Lock()
	subs := s.subs
	s.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
