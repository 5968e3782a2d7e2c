package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/cart"
	"github.com/knwn/storefront/internal/domain/integration"
)

type syncFixture struct {
	clock  *availability.FixedClock
	cart   *cart.Cart
	remote *fakeRemoteCart
	sync   *Synchronizer
	keys   map[cart.LineKey]string
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	cfg := availability.DefaultCalendarConfig()
	cal := availability.MustNewCalendar(cfg)
	clock := availability.NewFixedClock(time.Date(2026, 10, 14, 9, 0, 0, 0, cfg.Location))
	f := &syncFixture{
		clock:  clock,
		cart:   cart.New("s1", cal, clock),
		remote: newFakeRemoteCart(),
		keys:   make(map[cart.LineKey]string),
	}
	f.sync = NewSynchronizer("s1", f.remote, integration.LineMapping, zap.NewNop(),
		WithRemoteTimeout(time.Second),
		WithKeySink(func(key cart.LineKey, remoteKey string) { f.keys[key] = remoteKey }),
	)
	return f
}

// flush forwards pending cart events to the synchronizer and waits
func (f *syncFixture) flush(t *testing.T) {
	t.Helper()
	f.sync.Enqueue(IntentsFromEvents(f.cart.PullDomainEvents())...)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.sync.Wait(ctx))
}

func (f *syncFixture) add(t *testing.T, itemID string, date string, c cart.Customization) cart.Line {
	t.Helper()
	item, ok := testMenu.MenuFor(availability.MustParseServiceDay(date))
	require.True(t, ok)
	menuItem, ok := item.Item(itemID)
	require.True(t, ok)
	line, err := f.cart.Add(menuItem, availability.MustParseServiceDay(date), c)
	require.NoError(t, err)
	return line
}

// remoteMatchesLocal checks remote lines against local lines by product,
// attributes and quantity
func remoteMatchesLocal(t *testing.T, remote []integration.RemoteLine, local []cart.Line) {
	t.Helper()
	var mapped []cart.Line
	for _, l := range local {
		if l.HasRemoteProduct() {
			mapped = append(mapped, l)
		}
	}
	require.Len(t, remote, len(mapped))
	for i, l := range mapped {
		assert.Equal(t, l.RemoteProductID, remote[i].ProductID)
		assert.Equal(t, l.Quantity, remote[i].Quantity)
		assert.Equal(t, l.Attributes(), remote[i].Attributes)
	}
}

func TestIntentsFromEvents(t *testing.T) {
	f := newSyncFixture(t)
	line := f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
	f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
	f.cart.UpdateQuantity(line.Key(), 3)
	f.cart.UpdateQuantity(line.Key(), -10)
	f.cart.Clear()

	intents := IntentsFromEvents(f.cart.PullDomainEvents())
	kinds := make([]IntentKind, len(intents))
	for i, in := range intents {
		kinds[i] = in.Kind
	}
	assert.Equal(t, []IntentKind{IntentAdd, IntentSetQuantity, IntentSetQuantity, IntentRemove, IntentClear}, kinds)
	assert.Equal(t, 2, intents[1].Quantity)
	assert.Equal(t, 5, intents[2].Quantity)
}

func TestSynchronizer_AddThenMerge(t *testing.T) {
	f := newSyncFixture(t)
	rice := cart.Customization{Base: "rice"}

	f.add(t, "bowl-a", "2026-10-19", rice)
	f.flush(t)
	f.add(t, "bowl-a", "2026-10-19", rice)
	f.flush(t)

	assert.Equal(t, []string{"add", "set"}, f.remote.callLog())
	remote := f.remote.snapshot()
	require.Len(t, remote, 1)
	assert.Equal(t, int64(101), remote[0].ProductID)
	assert.Equal(t, 2, remote[0].Quantity)
	assert.Equal(t, []cart.Attribute{
		{Key: cart.LabelServiceDate, Value: "Monday, Oct 19"},
		{Key: cart.LabelBase, Value: "rice"},
	}, remote[0].Attributes)

	key := cart.NewLineKey("bowl-a", availability.MustParseServiceDay("2026-10-19"), rice)
	rk, ok := f.sync.RemoteKey(key)
	require.True(t, ok)
	assert.Equal(t, remote[0].Key, rk)
	assert.Equal(t, rk, f.keys[key])
}

func TestSynchronizer_QueuedMergeUsesKeyFromEarlierAdd(t *testing.T) {
	f := newSyncFixture(t)

	f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
	f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
	f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
	f.flush(t)

	assert.Equal(t, []string{"add", "set", "set"}, f.remote.callLog())
	remoteMatchesLocal(t, f.remote.snapshot(), f.cart.Lines())
}

func TestSynchronizer_QuantityAndRemove(t *testing.T) {
	f := newSyncFixture(t)
	a := f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
	b := f.add(t, "bowl-b", "2026-10-19", cart.Customization{})
	f.flush(t)

	f.cart.UpdateQuantity(a.Key(), 2)
	f.flush(t)
	remoteMatchesLocal(t, f.remote.snapshot(), f.cart.Lines())

	// Reaching zero removes rather than setting zero
	f.cart.UpdateQuantity(a.Key(), -3)
	f.flush(t)
	assert.Equal(t, []string{"add", "add", "set", "remove"}, f.remote.callLog())
	remoteMatchesLocal(t, f.remote.snapshot(), f.cart.Lines())

	f.cart.Remove(b.Key())
	f.flush(t)
	assert.Empty(t, f.remote.snapshot())
	_, ok := f.sync.RemoteKey(b.Key())
	assert.False(t, ok)
}

func TestSynchronizer_Clear(t *testing.T) {
	f := newSyncFixture(t)
	f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
	f.add(t, "bowl-b", "2026-10-20", cart.Customization{})
	f.flush(t)

	f.cart.Clear()
	f.flush(t)

	assert.Empty(t, f.remote.snapshot())
	assert.Equal(t, "clear", f.remote.callLog()[2])
}

func TestSynchronizer_SkipsUnmappedLines(t *testing.T) {
	f := newSyncFixture(t)
	s := f.add(t, "soup", "2026-10-19", cart.Customization{})
	f.add(t, "soup", "2026-10-19", cart.Customization{})
	f.cart.Remove(s.Key())
	f.flush(t)

	assert.Empty(t, f.remote.callLog())
	assert.Equal(t, int64(3), f.sync.Stats().Skipped)
}

func TestSynchronizer_SwallowsFailures(t *testing.T) {
	f := newSyncFixture(t)
	f.remote.fail("add", integration.ErrRemoteUnavailable)

	f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
	f.flush(t)

	assert.Equal(t, 1, f.cart.Len())
	assert.Empty(t, f.remote.snapshot())
	assert.Equal(t, int64(1), f.sync.Stats().Failed)

	// The next merge finds no correlation key and mirrors the whole line
	f.remote.fail("add", nil)
	f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
	f.flush(t)

	remote := f.remote.snapshot()
	require.Len(t, remote, 1)
	assert.Equal(t, 2, remote[0].Quantity)
}

func TestSynchronizer_FullResyncRebuildsRemote(t *testing.T) {
	f := newSyncFixture(t)
	f.remote.seed(
		integration.RemoteLine{Key: "stale-1", ProductID: 999, Quantity: 4},
		integration.RemoteLine{Key: "stale-2", ProductID: 101, Quantity: 1},
	)
	f.add(t, "bowl-a", "2026-10-19", cart.Customization{Base: "rice", Vegetarian: true, VegInstructions: "tofu"})
	f.add(t, "bowl-a", "2026-10-19", cart.Customization{Base: "rice", Vegetarian: true, VegInstructions: "tofu"})
	f.add(t, "soup", "2026-10-19", cart.Customization{})
	f.add(t, "bowl-b", "2026-10-20", cart.Customization{Avoid: "peanuts"})
	f.cart.PullDomainEvents()

	result, err := f.sync.FullResync(context.Background(), f.cart.Lines())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 1, result.Skipped)
	assert.Len(t, result.Keys, 2)
	assert.Equal(t, 3, f.cart.Len())
	assert.Equal(t, "49.70", f.cart.Total().StringFixed(2))

	remote := f.remote.snapshot()
	remoteMatchesLocal(t, remote, f.cart.Lines())
	assert.Equal(t, 2, remote[0].Quantity)
	assert.False(t, f.sync.Syncing())
}

func TestSynchronizer_FullResyncIsRepeatable(t *testing.T) {
	f := newSyncFixture(t)
	f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
	f.add(t, "bowl-b", "2026-10-19", cart.Customization{})
	f.flush(t)

	_, err := f.sync.FullResync(context.Background(), f.cart.Lines())
	require.NoError(t, err)
	_, err = f.sync.FullResync(context.Background(), f.cart.Lines())
	require.NoError(t, err)

	remoteMatchesLocal(t, f.remote.snapshot(), f.cart.Lines())
}

func TestSynchronizer_FullResyncFailure(t *testing.T) {
	tests := []struct {
		name        string
		op          string
		wantPartial bool
	}{
		{"clear fails", "clear", false},
		{"re-add fails", "add", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSyncFixture(t)
			f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
			f.cart.PullDomainEvents()
			f.remote.fail(tt.op, integration.ErrRemoteUnavailable)

			result, err := f.sync.FullResync(context.Background(), f.cart.Lines())

			if tt.wantPartial {
				require.NotNil(t, result)
				assert.Empty(t, result.Keys)
			} else {
				assert.Nil(t, result)
			}
			assert.ErrorIs(t, err, ErrResyncFailed)
			assert.ErrorIs(t, err, integration.ErrRemoteUnavailable)
			assert.False(t, f.sync.Syncing())
			assert.Equal(t, 1, f.cart.Len())
		})
	}
}

func TestSynchronizer_SingleResyncInFlight(t *testing.T) {
	f := newSyncFixture(t)
	f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
	f.cart.PullDomainEvents()

	r, err := f.sync.BeginResync()
	require.NoError(t, err)
	assert.True(t, f.sync.Syncing())

	_, err = f.sync.FullResync(context.Background(), f.cart.Lines())
	assert.ErrorIs(t, err, ErrResyncInProgress)
	_, err = f.sync.BeginResync()
	assert.ErrorIs(t, err, ErrResyncInProgress)

	_, err = r.Run(context.Background(), f.cart.Lines())
	require.NoError(t, err)
	assert.False(t, f.sync.Syncing())

	_, err = r.Run(context.Background(), f.cart.Lines())
	assert.Error(t, err)
}

func TestSynchronizer_ResyncDiscardsPendingIntents(t *testing.T) {
	f := newSyncFixture(t)
	f.remote.gate = make(chan struct{})

	f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
	f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
	f.add(t, "bowl-b", "2026-10-19", cart.Customization{})
	f.sync.Enqueue(IntentsFromEvents(f.cart.PullDomainEvents())...)

	r, err := f.sync.BeginResync()
	require.NoError(t, err)
	close(f.remote.gate)

	result, err := r.Run(context.Background(), f.cart.Lines())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Synced)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.sync.Wait(ctx))

	remoteMatchesLocal(t, f.remote.snapshot(), f.cart.Lines())
}

func TestSynchronizer_SeedAndWaitContext(t *testing.T) {
	f := newSyncFixture(t)
	line := f.add(t, "bowl-a", "2026-10-19", cart.Customization{})
	f.cart.PullDomainEvents()
	line.RemoteKey = "wc-restored"
	f.sync.Seed([]cart.Line{line})

	rk, ok := f.sync.RemoteKey(line.Key())
	require.True(t, ok)
	assert.Equal(t, "wc-restored", rk)

	f.remote.gate = make(chan struct{})
	defer close(f.remote.gate)
	f.sync.Enqueue(Intent{Kind: IntentClear})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.sync.Wait(ctx), context.DeadlineExceeded)
}
