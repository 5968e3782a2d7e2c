package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/cart"
	"github.com/knwn/storefront/internal/domain/catalog"
	"github.com/knwn/storefront/internal/domain/shared"
)

// Session is one browser session's cart. Mutations are serialized by the
// session lock; remote mirroring happens after the lock is released.
type Session struct {
	id     string
	svc    *Service
	logger *zap.Logger
	sync   *Synchronizer

	// lastSeen is guarded by the service lock
	lastSeen time.Time

	mu   sync.Mutex
	cart *cart.Cart
	// savedAt is the SavedAt of the snapshot last written or loaded
	savedAt time.Time
}

// ID returns the session ID
func (s *Session) ID() string {
	return s.id
}

// Add puts one unit of an item on the cart for a service day. Past days are
// rejected by the cart itself and raise a notice; other days must be open
// for ordering.
func (s *Session) Add(ctx context.Context, req AddItemRequest) (*CartView, error) {
	now := s.svc.clock.Now()
	item := catalog.MenuItem{ID: req.ItemID}

	if s.svc.calendar.StatusOf(now, req.Date) != availability.StatusPast {
		if !s.svc.calendar.IsOrderable(now, req.Date, s.svc.config.AllowPreviewOrders) {
			return nil, ErrDateNotOrderable
		}
		var err error
		item, err = catalog.FindItem(s.svc.menu, req.Date, req.ItemID)
		if err != nil {
			return nil, err
		}
		if err := req.Customization.Validate(item.Options); err != nil {
			return nil, err
		}
	}

	return s.mutate(ctx, func(c *cart.Cart) error {
		_, err := c.Add(item, req.Date, req.Customization)
		return err
	})
}

// Remove deletes a line
func (s *Session) Remove(ctx context.Context, key cart.LineKey) (*CartView, error) {
	return s.mutate(ctx, func(c *cart.Cart) error {
		if !c.Remove(key) {
			return cart.ErrLineNotFound
		}
		return nil
	})
}

// UpdateQuantity changes a line's quantity by delta
func (s *Session) UpdateQuantity(ctx context.Context, key cart.LineKey, delta int) (*CartView, error) {
	return s.mutate(ctx, func(c *cart.Cart) error {
		if _, ok := c.UpdateQuantity(key, delta); !ok {
			return cart.ErrLineNotFound
		}
		return nil
	})
}

// Clear empties the cart
func (s *Session) Clear(ctx context.Context) (*CartView, error) {
	return s.mutate(ctx, func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

// View returns the current cart state
func (s *Session) View() *CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Lines returns a copy of the cart lines
func (s *Session) Lines() []cart.Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Lines()
}

// Syncing reports whether a checkout handoff resync is in flight
func (s *Session) Syncing() bool {
	return s.sync != nil && s.sync.Syncing()
}

// WaitForSync blocks until queued remote intents are applied
func (s *Session) WaitForSync(ctx context.Context) error {
	if s.sync == nil {
		return nil
	}
	return s.sync.Wait(ctx)
}

// CheckoutHandoff rebuilds the remote cart from the local one and returns
// where to send the browser. A failed rebuild is returned so the caller can
// block the redirect.
func (s *Session) CheckoutHandoff(ctx context.Context) (*HandoffResult, error) {
	s.mu.Lock()
	if s.cart.IsEmpty() {
		s.mu.Unlock()
		return nil, shared.NewDomainError("EMPTY_CART", "Cart is empty")
	}
	if s.sync == nil {
		s.mu.Unlock()
		return &HandoffResult{CheckoutURL: s.svc.config.CheckoutURL}, nil
	}
	resync, err := s.sync.BeginResync()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	lines := s.cart.Lines()
	s.mu.Unlock()

	result, err := resync.Run(ctx, lines)
	if result != nil {
		// the remote cart was cleared, so only the re-added lines keep a key
		s.mu.Lock()
		for _, l := range lines {
			s.cart.AttachRemoteKey(l.Key(), result.Keys[l.Key()])
		}
		s.persistLocked(ctx)
		s.mu.Unlock()
	}
	if err != nil {
		return nil, err
	}

	return &HandoffResult{
		CheckoutURL: s.svc.config.CheckoutURL,
		Synced:      result.Synced,
		Skipped:     result.Skipped,
	}, nil
}

func (s *Session) mutate(ctx context.Context, fn func(c *cart.Cart) error) (*CartView, error) {
	s.mu.Lock()
	err := fn(s.cart)
	events := s.cart.PullDomainEvents()
	if len(events) > 0 {
		s.persistLocked(ctx)
	}
	view := s.viewLocked()
	s.mu.Unlock()

	if s.sync != nil {
		s.sync.Enqueue(IntentsFromEvents(events)...)
	}

	var pastErr *cart.PastDateError
	if errors.As(err, &pastErr) {
		s.logger.Debug("rejected past-date add",
			zap.String("day", pastErr.Day.Key()),
			zap.String("today", pastErr.Today.Key()),
		)
	}
	return view, err
}

// persistLocked saves the snapshot. Storage failures are logged; the
// in-memory cart stays authoritative for the session.
func (s *Session) persistLocked(ctx context.Context) {
	snap := s.cart.Snapshot()
	if err := s.svc.saveSnapshot(ctx, s.id, snap); err != nil {
		s.logger.Error("failed to persist cart", zap.Error(err))
		return
	}
	s.savedAt = snap.SavedAt
}

// refresh replaces the cached cart when storage holds a newer snapshot
// written elsewhere. Read failures keep the cached cart.
func (s *Session) refresh(ctx context.Context) {
	snap, err := s.svc.readSnapshot(ctx, s.id)
	if err != nil {
		if !errors.Is(err, shared.ErrKeyNotFound) {
			s.logger.Warn("failed to refresh cart snapshot", zap.Error(err))
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !snap.SavedAt.After(s.savedAt) {
		return
	}
	s.cart = cart.Restore(s.id, snap, s.svc.calendar, s.svc.clock, cart.WithNoticeTTL(s.svc.config.NoticeTTL))
	s.savedAt = snap.SavedAt
	if s.sync != nil {
		s.sync.Seed(s.cart.Lines())
	}
	s.logger.Debug("reloaded newer cart snapshot")
}

func (s *Session) attachRemoteKey(key cart.LineKey, remoteKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cart.AttachRemoteKey(key, remoteKey) {
		s.persistLocked(context.Background())
	}
}

func (s *Session) viewLocked() *CartView {
	now := s.svc.clock.Now()
	view := &CartView{
		SessionID:   s.id,
		Total:       s.cart.Total(),
		ItemCount:   s.cart.ItemCount(),
		Syncing:     s.Syncing(),
		ActiveOrder: s.svc.calendar.ActiveOrder(now),
	}
	for _, l := range s.cart.Lines() {
		view.Lines = append(view.Lines, newLineView(l))
	}
	if notice, ok := s.cart.Notice(); ok {
		view.Notice = &notice
	}
	return view
}
