package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/cart"
	"github.com/knwn/storefront/internal/domain/catalog"
	"github.com/knwn/storefront/internal/domain/integration"
	"github.com/knwn/storefront/internal/domain/shared"
)

// ErrDateNotOrderable rejects adds for days outside the order window
var ErrDateNotOrderable = shared.NewDomainError("DATE_NOT_ORDERABLE", "This date is not open for ordering")

// ServiceConfig holds session cart settings
type ServiceConfig struct {
	NoticeTTL          time.Duration
	RemoteTimeout      time.Duration
	AllowPreviewOrders bool
	// CheckoutURL is where the browser is sent after a successful handoff
	CheckoutURL string
	// IdleTTL is how long an untouched session stays in memory
	IdleTTL time.Duration
}

// DefaultIdleTTL is used when ServiceConfig.IdleTTL is unset
const DefaultIdleTTL = 30 * time.Minute

// Service owns the per-session carts. Each session is loaded from durable
// storage on first access and cached until it has been idle for IdleTTL.
// A cached session is reloaded when storage holds a newer snapshot, so
// replicas sharing a store see each other's writes.
type Service struct {
	calendar *availability.Calendar
	clock    availability.Clock
	menu     catalog.MenuProvider
	store    shared.KeyValueStore
	remotes  integration.RemoteCartFactory
	mapper   integration.ProductMapper
	config   ServiceConfig
	logger   *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService creates a Service. A nil remotes factory disables remote
// mirroring.
func NewService(
	calendar *availability.Calendar,
	clock availability.Clock,
	menu catalog.MenuProvider,
	store shared.KeyValueStore,
	remotes integration.RemoteCartFactory,
	mapper integration.ProductMapper,
	config ServiceConfig,
	logger *zap.Logger,
) *Service {
	if config.NoticeTTL <= 0 {
		config.NoticeTTL = cart.DefaultNoticeTTL
	}
	if config.RemoteTimeout <= 0 {
		config.RemoteTimeout = DefaultRemoteTimeout
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultIdleTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		calendar: calendar,
		clock:    clock,
		menu:     menu,
		store:    store,
		remotes:  remotes,
		mapper:   mapper,
		config:   config,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Session returns the cart session for id, loading it on first access
func (s *Service) Session(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, shared.NewDomainError("INVALID_SESSION", "Session ID is required")
	}

	now := s.clock.Now()
	s.mu.Lock()
	if sess, ok := s.sessions[id]; ok {
		sess.lastSeen = now
		s.mu.Unlock()
		sess.refresh(ctx)
		return sess, nil
	}
	defer s.mu.Unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.lastSeen = now
	s.sessions[id] = sess
	return sess, nil
}

// Len returns the number of sessions held in memory
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdle drops sessions untouched for longer than the idle TTL whose
// remote mirroring has settled. Their snapshots stay in storage and are
// reloaded on the next access.
func (s *Service) EvictIdle() int {
	cutoff := s.clock.Now().Add(-s.config.IdleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.After(cutoff) {
			continue
		}
		if sess.sync != nil && !sess.sync.Idle() {
			continue
		}
		delete(s.sessions, id)
		evicted++
	}
	return evicted
}

// RunEvictor calls EvictIdle every interval until ctx is done
func (s *Service) RunEvictor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.EvictIdle(); n > 0 {
				s.logger.Debug("evicted idle cart sessions", zap.Int("count", n))
			}
		}
	}
}

// Forget drops a session from memory and storage, after its pending remote
// intents have drained
func (s *Service) Forget(ctx context.Context, id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok && sess.sync != nil {
		if err := sess.sync.Wait(ctx); err != nil {
			return err
		}
	}
	if err := s.store.Delete(ctx, shared.SessionKey(id, shared.StorageKeyCart)); err != nil {
		return fmt.Errorf("delete cart snapshot: %w", err)
	}
	return nil
}

// Drain waits for every session's pending remote intents
func (s *Service) Drain(ctx context.Context) error {
	s.mu.Lock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		if sess.sync == nil {
			continue
		}
		if err := sess.sync.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*Session, error) {
	log := s.logger.With(zap.String("session_id", id))
	opts := []cart.Option{cart.WithNoticeTTL(s.config.NoticeTTL)}

	snap, found, err := s.loadSnapshot(ctx, id, log)
	if err != nil {
		return nil, err
	}

	var agg *cart.Cart
	if found {
		agg = cart.Restore(id, snap, s.calendar, s.clock, opts...)
	} else {
		agg = cart.New(id, s.calendar, s.clock, opts...)
	}

	sess := &Session{id: id, svc: s, cart: agg, logger: log}
	if found {
		sess.savedAt = snap.SavedAt
	}
	if s.remotes != nil {
		sess.sync = NewSynchronizer(id, s.remotes.ForSession(id), s.mapper, s.logger,
			WithRemoteTimeout(s.config.RemoteTimeout),
			WithKeySink(sess.attachRemoteKey),
		)
		sess.sync.Seed(agg.Lines())
	}
	return sess, nil
}

// loadSnapshot reads the current snapshot, migrating the legacy key when
// only that one exists
func (s *Service) loadSnapshot(ctx context.Context, id string, log *zap.Logger) (cart.Snapshot, bool, error) {
	data, err := s.store.Load(ctx, shared.SessionKey(id, shared.StorageKeyCart))
	switch {
	case err == nil:
		var snap cart.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			log.Warn("discarding unreadable cart snapshot", zap.Error(err))
			return cart.Snapshot{}, false, nil
		}
		return snap, true, nil
	case !errors.Is(err, shared.ErrKeyNotFound):
		return cart.Snapshot{}, false, fmt.Errorf("load cart snapshot: %w", err)
	}

	legacyKey := shared.SessionKey(id, shared.StorageKeyLegacyCart)
	data, err = s.store.Load(ctx, legacyKey)
	if errors.Is(err, shared.ErrKeyNotFound) {
		return cart.Snapshot{}, false, nil
	}
	if err != nil {
		return cart.Snapshot{}, false, fmt.Errorf("load legacy cart: %w", err)
	}

	snap, dropped, err := DecodeLegacyCart(data, s.calendar.Today(s.clock.Now()))
	if err != nil {
		log.Warn("discarding unreadable legacy cart", zap.Error(err))
		return cart.Snapshot{}, false, nil
	}
	snap.SavedAt = s.clock.Now()
	if err := s.saveSnapshot(ctx, id, snap); err != nil {
		return cart.Snapshot{}, false, err
	}
	if err := s.store.Delete(ctx, legacyKey); err != nil {
		log.Warn("failed to delete legacy cart", zap.Error(err))
	}
	log.Info("migrated legacy cart",
		zap.Int("lines", len(snap.Lines)),
		zap.Int("dropped", dropped),
	)
	return snap, true, nil
}

// readSnapshot loads the stored snapshot without legacy migration
func (s *Service) readSnapshot(ctx context.Context, id string) (cart.Snapshot, error) {
	data, err := s.store.Load(ctx, shared.SessionKey(id, shared.StorageKeyCart))
	if err != nil {
		return cart.Snapshot{}, err
	}
	var snap cart.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return cart.Snapshot{}, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return snap, nil
}

func (s *Service) saveSnapshot(ctx context.Context, id string, snap cart.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	if err := s.store.Save(ctx, shared.SessionKey(id, shared.StorageKeyCart), data); err != nil {
		return fmt.Errorf("save cart snapshot: %w", err)
	}
	return nil
}
