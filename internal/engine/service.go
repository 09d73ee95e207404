// Package engine assembles the per-user commerce session: the cart store,
// the address book and the checkout orchestrator, wired to the shared
// backend, rate and redis clients.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/storefront-engine/internal/address"
	"github.com/angelmondragon/storefront-engine/internal/cart"
	"github.com/angelmondragon/storefront-engine/internal/checkout"
	"github.com/angelmondragon/storefront-engine/internal/payment"
	"github.com/angelmondragon/storefront-engine/pkg/backend"
	"github.com/angelmondragon/storefront-engine/pkg/config"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/metrics"
	"github.com/angelmondragon/storefront-engine/pkg/redis"
	"github.com/angelmondragon/storefront-engine/pkg/shiprate"
	"github.com/angelmondragon/storefront-engine/pkg/types"
)

// Session is one user's live commerce state.
type Session struct {
	UserID   string
	Cart     *cart.Store
	Book     *address.Book
	Checkout *checkout.Orchestrator

	cancel context.CancelFunc
}

// Params groups dependencies for the engine service.
type Params struct {
	Backend *backend.Client
	Rates   *shiprate.Client
	RateCfg config.RateAPIConfig
	Gateway payment.Gateway
	Redis   *redis.Client
	Metrics *metrics.CheckoutMetrics
	Logger  *logger.Logger
}

// Service owns all live sessions, one per user.
type Service struct {
	mu       sync.Mutex
	sessions map[string]*Session

	backend   *backend.Client
	rates     *shiprate.Client
	rateCfg   config.RateAPIConfig
	gateway   payment.Gateway
	snapshots *cart.RedisSnapshots
	markers   *checkout.RedisMarkers
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
}

// NewService validates the wiring and builds the session manager.
func NewService(p Params) (*Service, error) {
	if p.Backend == nil {
		return nil, fmt.Errorf("backend client required")
	}
	if p.Gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if p.Redis == nil {
		return nil, fmt.Errorf("redis client required")
	}
	snapshots, err := cart.NewRedisSnapshots(p.Redis)
	if err != nil {
		return nil, err
	}
	markers, err := checkout.NewRedisMarkers(p.Redis)
	if err != nil {
		return nil, err
	}
	return &Service{
		sessions:  map[string]*Session{},
		backend:   p.Backend,
		rates:     p.Rates,
		rateCfg:   p.RateCfg,
		gateway:   p.Gateway,
		snapshots: snapshots,
		markers:   markers,
		metrics:   p.Metrics,
		logg:      p.Logger,
	}, nil
}

// Session returns the user's live session, building and hydrating it on
// first use: the cart replays its durable snapshot and the address book
// loads the backend's address list.
func (s *Service) Session(ctx context.Context, userID, token string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[userID]; ok {
		return session, nil
	}

	store, err := cart.NewStore(userID, s.snapshots, s.logg)
	if err != nil {
		return nil, err
	}
	if err := store.Hydrate(ctx); err != nil {
		return nil, err
	}

	book, err := address.NewBook(userID, s.backend, s.logg)
	if err != nil {
		return nil, err
	}
	if err := book.Load(ctx, token); err != nil {
		return nil, err
	}

	orch, err := checkout.NewOrchestrator(checkout.Deps{
		UserID:  userID,
		Cart:    store,
		Book:    book,
		Catalog: s.backend,
		Orders:  s.backend,
		Rates:   s.rates,
		RateCfg: s.rateCfg,
		Gateway: s.gateway,
		Markers: s.markers,
		Metrics: s.metrics,
		Logger:  s.logg,
	})
	if err != nil {
		return nil, err
	}

	watchCtx, cancel := context.WithCancel(context.Background())
	session := &Session{
		UserID:   userID,
		Cart:     store,
		Book:     book,
		Checkout: orch,
		cancel:   cancel,
	}
	s.sessions[userID] = session

	orch.Ready(ctx)
	go orch.Watch(watchCtx)

	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, userID), "commerce session started")
	}
	return session, nil
}

// PendingPayment returns the user's pending-payment marker, nil when none.
func (s *Service) PendingPayment(ctx context.Context, userID string) (*types.PendingPayment, error) {
	return s.markers.Load(ctx, userID)
}

// ClearPendingPayment drops the marker once reconciled.
func (s *Service) ClearPendingPayment(ctx context.Context, userID string) error {
	return s.markers.Clear(ctx, userID)
}

// EndSession stops the user's rate watcher and forgets the session. The
// durable cart snapshot is left in place for the next session.
func (s *Service) EndSession(userID string) {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	if ok {
		delete(s.sessions, userID)
	}
	s.mu.Unlock()
	if ok {
		session.cancel()
	}
}

// Close stops every live session.
func (s *Service) Close() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = map[string]*Session{}
	s.mu.Unlock()
	for _, session := range sessions {
		session.cancel()
	}
}
