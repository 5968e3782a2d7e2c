package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/knwn/storefront/internal/domain/cart"
	"github.com/knwn/storefront/internal/domain/integration"
	"github.com/knwn/storefront/internal/domain/shared"
)

// DefaultRemoteTimeout bounds every remote cart call
const DefaultRemoteTimeout = 10 * time.Second

// Resync errors
var (
	ErrResyncInProgress = shared.NewDomainError("RESYNC_IN_PROGRESS", "Cart is already being synchronized")
	ErrResyncFailed     = shared.NewDomainError("RESYNC_FAILED", "Could not synchronize cart with the store, please try again")
)

// IntentKind is the remote operation an intent asks for
type IntentKind string

const (
	IntentAdd         IntentKind = "add"
	IntentSetQuantity IntentKind = "set_quantity"
	IntentRemove      IntentKind = "remove"
	IntentClear       IntentKind = "clear"
)

// Intent is one queued remote mutation
type Intent struct {
	Kind IntentKind
	Line cart.Line
	// Quantity is the target quantity for IntentSetQuantity
	Quantity int

	generation uint64
}

// IntentsFromEvents translates cart events into remote intents, in order
func IntentsFromEvents(events []shared.DomainEvent) []Intent {
	intents := make([]Intent, 0, len(events))
	for _, e := range events {
		switch ev := e.(type) {
		case *cart.LineAdded:
			if ev.IsNew {
				intents = append(intents, Intent{Kind: IntentAdd, Line: ev.Line, Quantity: ev.Line.Quantity})
			} else {
				intents = append(intents, Intent{Kind: IntentSetQuantity, Line: ev.Line, Quantity: ev.Line.Quantity})
			}
		case *cart.QuantityChanged:
			intents = append(intents, Intent{Kind: IntentSetQuantity, Line: ev.Line, Quantity: ev.Line.Quantity})
		case *cart.LineRemoved:
			intents = append(intents, Intent{Kind: IntentRemove, Line: ev.Line})
		case *cart.CartCleared:
			intents = append(intents, Intent{Kind: IntentClear})
		}
	}
	return intents
}

// KeySink receives correlation keys assigned by incremental adds
type KeySink func(key cart.LineKey, remoteKey string)

// SyncStats counts outcomes of incremental intents
type SyncStats struct {
	Applied int64
	Failed  int64
	Skipped int64
}

// ResyncResult reports a successful full resync
type ResyncResult struct {
	// Keys maps every mirrored line to its fresh correlation key
	Keys map[cart.LineKey]string
	// Synced lines were re-added remotely
	Synced int
	// Skipped lines have no remote product mapping
	Skipped int
	// Dropped is the number of pending intents discarded
	Dropped int
}

// SynchronizerOption configures a Synchronizer
type SynchronizerOption func(*Synchronizer)

// WithRemoteTimeout overrides the per-call timeout
func WithRemoteTimeout(d time.Duration) SynchronizerOption {
	return func(s *Synchronizer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithKeySink registers a callback for correlation keys learned by
// incremental adds. It runs on the drain goroutine.
func WithKeySink(sink KeySink) SynchronizerOption {
	return func(s *Synchronizer) {
		s.sink = sink
	}
}

// Synchronizer mirrors one session's cart into the remote cart.
//
// Incremental intents are queued and drained in order by a single goroutine
// started on demand; their failures are logged and swallowed. FullResync
// rebuilds the remote cart from a list of local lines and reports failure.
// At most one remote call is in flight per session.
type Synchronizer struct {
	sessionID string
	remote    integration.RemoteCart
	mapper    integration.ProductMapper
	logger    *zap.Logger
	timeout   time.Duration
	sink      KeySink

	mu         sync.Mutex
	queue      []Intent
	draining   bool
	idle       chan struct{}
	generation uint64
	keys       map[cart.LineKey]string

	// opMu serializes remote calls between the drain loop and resyncs
	opMu    sync.Mutex
	syncing atomic.Bool

	applied atomic.Int64
	failed  atomic.Int64
	skipped atomic.Int64
}

// NewSynchronizer creates a Synchronizer for a session's remote cart
func NewSynchronizer(
	sessionID string,
	remote integration.RemoteCart,
	mapper integration.ProductMapper,
	logger *zap.Logger,
	opts ...SynchronizerOption,
) *Synchronizer {
	if mapper == nil {
		mapper = integration.LineMapping
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Synchronizer{
		sessionID: sessionID,
		remote:    remote,
		mapper:    mapper,
		logger:    logger.With(zap.String("session_id", sessionID)),
		timeout:   DefaultRemoteTimeout,
		keys:      make(map[cart.LineKey]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed replaces the known correlation keys with those of restored lines
func (s *Synchronizer) Seed(lines []cart.Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.keys)
	for _, l := range lines {
		if l.RemoteKey != "" {
			s.keys[l.Key()] = l.RemoteKey
		}
	}
}

// RemoteKey returns the correlation key known for a line
func (s *Synchronizer) RemoteKey(key cart.LineKey) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rk, ok := s.keys[key]
	return rk, ok
}

// Idle reports whether no intent is queued or being applied and no resync
// is in flight
func (s *Synchronizer) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.draining && len(s.queue) == 0 && !s.syncing.Load()
}

// Syncing reports whether a full resync is in flight
func (s *Synchronizer) Syncing() bool {
	return s.syncing.Load()
}

// Stats returns counters for incremental intents
func (s *Synchronizer) Stats() SyncStats {
	return SyncStats{
		Applied: s.applied.Load(),
		Failed:  s.failed.Load(),
		Skipped: s.skipped.Load(),
	}
}

// Enqueue queues intents and makes sure a drain goroutine is running. It
// never blocks on the remote cart.
func (s *Synchronizer) Enqueue(intents ...Intent) {
	if len(intents) == 0 {
		return
	}
	s.mu.Lock()
	for _, in := range intents {
		in.generation = s.generation
		s.queue = append(s.queue, in)
	}
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.idle = make(chan struct{})
	s.mu.Unlock()

	go s.drain()
}

// Wait blocks until the queue is empty and no intent is being applied
func (s *Synchronizer) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if !s.draining {
			s.mu.Unlock()
			return nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Synchronizer) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			close(s.idle)
			s.mu.Unlock()
			return
		}
		in := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.opMu.Lock()
		s.apply(in)
		s.opMu.Unlock()
	}
}

// apply runs one intent. It must be called with opMu held.
func (s *Synchronizer) apply(in Intent) {
	s.mu.Lock()
	stale := in.generation != s.generation
	s.mu.Unlock()
	if stale {
		return
	}

	if in.Kind == IntentClear {
		err := s.call(func(ctx context.Context) error { return s.remote.ClearAll(ctx) })
		s.mu.Lock()
		clear(s.keys)
		s.mu.Unlock()
		s.record(in, err)
		return
	}

	key := in.Line.Key()
	productID, mapped := s.mapper.RemoteProductID(in.Line)
	if !mapped {
		s.skipped.Add(1)
		s.logger.Debug("skipping remote sync for unmapped line",
			zap.String("line", key.String()),
			zap.String("intent", string(in.Kind)),
		)
		return
	}

	remoteKey, known := s.RemoteKey(key)

	switch in.Kind {
	case IntentAdd:
		s.addLine(in, key, productID, in.Quantity)
	case IntentSetQuantity:
		if !known {
			// The original add never reached the store; mirror the whole line
			s.addLine(in, key, productID, in.Quantity)
			return
		}
		err := s.call(func(ctx context.Context) error { return s.remote.SetQuantity(ctx, remoteKey, in.Quantity) })
		s.record(in, err)
	case IntentRemove:
		s.mu.Lock()
		delete(s.keys, key)
		s.mu.Unlock()
		if !known {
			s.skipped.Add(1)
			return
		}
		err := s.call(func(ctx context.Context) error { return s.remote.RemoveItem(ctx, remoteKey) })
		s.record(in, err)
	}
}

func (s *Synchronizer) addLine(in Intent, key cart.LineKey, productID int64, quantity int) {
	var remoteKey string
	err := s.call(func(ctx context.Context) error {
		var err error
		remoteKey, err = s.remote.AddItem(ctx, productID, max(quantity, 1), in.Line.Attributes())
		return err
	})
	if err == nil && remoteKey != "" {
		s.mu.Lock()
		s.keys[key] = remoteKey
		s.mu.Unlock()
		if s.sink != nil {
			s.sink(key, remoteKey)
		}
	}
	s.record(in, err)
}

func (s *Synchronizer) call(fn func(ctx context.Context) error) error {
	return s.callCtx(context.Background(), fn)
}

func (s *Synchronizer) record(in Intent, err error) {
	if err == nil {
		s.applied.Add(1)
		return
	}
	s.failed.Add(1)
	fields := []zap.Field{
		zap.String("intent", string(in.Kind)),
		zap.Bool("transient", integration.IsTransient(err)),
		zap.Error(err),
	}
	if in.Kind != IntentClear {
		fields = append(fields, zap.String("line", in.Line.Key().String()))
	}
	s.logger.Warn("remote cart sync failed", fields...)
}

// Resync is a full resync that has claimed the session but not yet touched
// the remote cart.
type Resync struct {
	s       *Synchronizer
	dropped int
	done    atomic.Bool
}

// BeginResync claims the single resync slot and discards every pending
// intent, including ones already dequeued but not yet applied. Callers
// capture the local lines after BeginResync returns and pass them to Run.
func (s *Synchronizer) BeginResync() (*Resync, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return nil, ErrResyncInProgress
	}
	s.mu.Lock()
	dropped := len(s.queue)
	s.queue = nil
	s.generation++
	s.mu.Unlock()
	if dropped > 0 {
		s.logger.Debug("dropped pending intents for resync", zap.Int("dropped", dropped))
	}
	return &Resync{s: s, dropped: dropped}, nil
}

// Run clears the remote cart and re-adds every mapped line with its full
// quantity and customizations, in order. Any failure aborts the rebuild
// and is returned wrapped in ErrResyncFailed. Once the remote cart has been
// cleared a failure also returns the partial result: lines missing from its
// Keys no longer exist remotely. Run releases the resync slot and must be
// called exactly once.
func (r *Resync) Run(ctx context.Context, lines []cart.Line) (*ResyncResult, error) {
	if !r.done.CompareAndSwap(false, true) {
		return nil, errors.New("cart: resync already run")
	}
	s := r.s
	defer s.syncing.Store(false)

	s.opMu.Lock()
	defer s.opMu.Unlock()

	started := time.Now()
	if err := s.callCtx(ctx, s.remote.ClearAll); err != nil {
		return nil, s.resyncFailed("clear remote cart", err)
	}
	s.mu.Lock()
	clear(s.keys)
	s.mu.Unlock()

	result := &ResyncResult{Keys: make(map[cart.LineKey]string, len(lines)), Dropped: r.dropped}
	for _, line := range lines {
		productID, mapped := s.mapper.RemoteProductID(line)
		if !mapped {
			result.Skipped++
			continue
		}
		var remoteKey string
		err := s.callCtx(ctx, func(ctx context.Context) error {
			var err error
			remoteKey, err = s.remote.AddItem(ctx, productID, line.Quantity, line.Attributes())
			return err
		})
		if err != nil {
			return result, s.resyncFailed(fmt.Sprintf("re-add %s", line.Key()), err)
		}
		key := line.Key()
		result.Keys[key] = remoteKey
		result.Synced++
		s.mu.Lock()
		s.keys[key] = remoteKey
		s.mu.Unlock()
	}

	s.logger.Info("remote cart resynced",
		zap.Int("synced", result.Synced),
		zap.Int("skipped", result.Skipped),
		zap.Duration("duration", time.Since(started)),
	)
	return result, nil
}

// FullResync begins and runs a resync over lines
func (s *Synchronizer) FullResync(ctx context.Context, lines []cart.Line) (*ResyncResult, error) {
	r, err := s.BeginResync()
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, lines)
}

func (s *Synchronizer) callCtx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return fn(ctx)
}

func (s *Synchronizer) resyncFailed(step string, err error) error {
	s.logger.Error("remote cart resync failed", zap.String("step", step), zap.Error(err))
	return fmt.Errorf("%w: %s: %w", ErrResyncFailed, step, err)
}
