package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/cart"
	"github.com/knwn/storefront/internal/domain/catalog"
	"github.com/knwn/storefront/internal/domain/integration"
	"github.com/knwn/storefront/internal/domain/shared"
)

type serviceFixture struct {
	clock   *availability.FixedClock
	store   *memoryStore
	remotes *fakeRemoteFactory
	svc     *Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	cfg := availability.DefaultCalendarConfig()
	f := &serviceFixture{
		clock:   availability.NewFixedClock(time.Date(2026, 10, 14, 9, 0, 0, 0, cfg.Location)),
		store:   newMemoryStore(),
		remotes: newFakeRemoteFactory(),
	}
	f.svc = f.newService(availability.MustNewCalendar(cfg))
	return f
}

func (f *serviceFixture) newService(cal *availability.Calendar) *Service {
	return NewService(cal, f.clock, testMenu, f.store, f.remotes, integration.LineMapping, ServiceConfig{
		RemoteTimeout: time.Second,
		CheckoutURL:   "https://shop.example.com/checkout",
	}, zap.NewNop())
}

func (f *serviceFixture) session(t *testing.T, id string) *Session {
	t.Helper()
	sess, err := f.svc.Session(context.Background(), id)
	require.NoError(t, err)
	return sess
}

func day(s string) availability.ServiceDay {
	return availability.MustParseServiceDay(s)
}

func drain(t *testing.T, sess *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sess.WaitForSync(ctx))
}

func TestSession_AddActiveDay(t *testing.T) {
	f := newServiceFixture(t)
	sess := f.session(t, "s1")
	ctx := context.Background()

	req := AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-14"), Customization: cart.Customization{Base: "rice"}}
	_, err := sess.Add(ctx, req)
	require.NoError(t, err)
	view, err := sess.Add(ctx, req)
	require.NoError(t, err)

	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	assert.Equal(t, "25.80", view.Total.StringFixed(2))
	assert.Equal(t, 2, view.ItemCount)
	assert.Equal(t, "Wednesday, Oct 14", view.ActiveOrder.Display)

	drain(t, sess)
	remote := f.remotes.cart("s1").snapshot()
	require.Len(t, remote, 1)
	assert.Equal(t, 2, remote[0].Quantity)
	assert.True(t, sess.View().Lines[0].Synced)
}

func TestSession_AddRejections(t *testing.T) {
	f := newServiceFixture(t)
	sess := f.session(t, "s1")
	ctx := context.Background()

	tests := []struct {
		name    string
		req     AddItemRequest
		wantErr error
	}{
		{"weekend", AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-17")}, ErrDateNotOrderable},
		{"preview", AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-16")}, ErrDateNotOrderable},
		{"unknown item", AddItemRequest{ItemID: "pizza", Date: day("2026-10-14")}, catalog.ErrItemNotFound},
		{"unlisted base", AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-14"), Customization: cart.Customization{Base: "pasta"}}, cart.ErrInvalidCustomization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sess.Add(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, sess.View().Lines)
		})
	}
}

func TestSession_AddPastDateRaisesNotice(t *testing.T) {
	f := newServiceFixture(t)
	sess := f.session(t, "s1")

	view, err := sess.Add(context.Background(), AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-13")})

	var pastErr *cart.PastDateError
	require.ErrorAs(t, err, &pastErr)
	require.NotNil(t, view)
	require.NotNil(t, view.Notice)
	assert.Equal(t, cart.PastDateMessage, view.Notice.Message)
	assert.Empty(t, view.Lines)
	assert.False(t, f.store.has(shared.SessionKey("s1", shared.StorageKeyCart)))

	f.clock.Advance(cart.DefaultNoticeTTL)
	assert.Nil(t, sess.View().Notice)
}

func TestSession_AllowPreviewOrders(t *testing.T) {
	f := newServiceFixture(t)
	f.svc.config.AllowPreviewOrders = true
	sess := f.session(t, "s1")

	_, err := sess.Add(context.Background(), AddItemRequest{ItemID: "bowl-b", Date: day("2026-10-16")})
	assert.NoError(t, err)
}

func TestSession_UpdateRemoveClear(t *testing.T) {
	f := newServiceFixture(t)
	sess := f.session(t, "s1")
	ctx := context.Background()

	_, err := sess.Add(ctx, AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-14")})
	require.NoError(t, err)
	_, err = sess.Add(ctx, AddItemRequest{ItemID: "bowl-b", Date: day("2026-10-14")})
	require.NoError(t, err)

	keyA := cart.NewLineKey("bowl-a", day("2026-10-14"), cart.Customization{})
	view, err := sess.UpdateQuantity(ctx, keyA, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, view.ItemCount)

	_, err = sess.UpdateQuantity(ctx, cart.NewLineKey("nope", day("2026-10-14"), cart.Customization{}), 1)
	assert.ErrorIs(t, err, cart.ErrLineNotFound)

	view, err = sess.Remove(ctx, keyA)
	require.NoError(t, err)
	assert.Len(t, view.Lines, 1)

	_, err = sess.Remove(ctx, keyA)
	assert.ErrorIs(t, err, cart.ErrLineNotFound)

	view, err = sess.Clear(ctx)
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	assert.True(t, view.Total.IsZero())

	drain(t, sess)
	assert.Empty(t, f.remotes.cart("s1").snapshot())
}

func TestService_PersistsAcrossRestarts(t *testing.T) {
	f := newServiceFixture(t)
	sess := f.session(t, "s1")
	ctx := context.Background()

	_, err := sess.Add(ctx, AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-14"), Customization: cart.Customization{Base: "quinoa"}})
	require.NoError(t, err)
	_, err = sess.Add(ctx, AddItemRequest{ItemID: "soup", Date: day("2026-10-14")})
	require.NoError(t, err)
	drain(t, sess)

	restarted := f.newService(availability.MustNewCalendar(availability.DefaultCalendarConfig()))
	again, err := restarted.Session(ctx, "s1")
	require.NoError(t, err)

	lines := again.Lines()
	require.Len(t, lines, 2)
	for i, l := range sess.Lines() {
		assert.Equal(t, l.Key(), lines[i].Key())
		assert.Equal(t, l.Quantity, lines[i].Quantity)
		assert.Equal(t, l.RemoteKey, lines[i].RemoteKey)
		assert.True(t, l.Price.Equals(lines[i].Price))
	}
	assert.NotEmpty(t, lines[0].RemoteKey)

	// The restored correlation key is reused for merges
	_, err = again.Add(ctx, AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-14"), Customization: cart.Customization{Base: "quinoa"}})
	require.NoError(t, err)
	drain(t, again)
	remote := f.remotes.cart("s1").snapshot()
	require.Len(t, remote, 1)
	assert.Equal(t, 2, remote[0].Quantity)
}

func TestService_MigratesLegacyCart(t *testing.T) {
	f := newServiceFixture(t)
	legacy := `[
		{"id":"bowl-a","name":"Bowl A","price":12.9,"quantity":2,"serviceDate":"Monday, Oct 19",
		 "customizations":{"base":"rice","isVegetarian":true,"vegInstructions":"tofu"},"_wooProductId":101,"_wooItemKey":"wc-old"},
		{"id":"bowl-b","name":"Bowl B","price":15.9,"quantity":1,"serviceDate":"Someday"}
	]`
	require.NoError(t, f.store.Save(context.Background(), shared.SessionKey("s1", shared.StorageKeyLegacyCart), []byte(legacy)))

	sess := f.session(t, "s1")
	lines := sess.Lines()

	require.Len(t, lines, 1)
	assert.Equal(t, day("2026-10-19"), lines[0].Day)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.Equal(t, "wc-old", lines[0].RemoteKey)
	assert.Equal(t, cart.Customization{Base: "rice", Vegetarian: true, VegInstructions: "tofu"}, lines[0].Customization)
	assert.Equal(t, "25.80", sess.View().Total.StringFixed(2))

	assert.False(t, f.store.has(shared.SessionKey("s1", shared.StorageKeyLegacyCart)))
	assert.True(t, f.store.has(shared.SessionKey("s1", shared.StorageKeyCart)))
}

func TestService_DiscardsCorruptSnapshot(t *testing.T) {
	f := newServiceFixture(t)
	require.NoError(t, f.store.Save(context.Background(), shared.SessionKey("s1", shared.StorageKeyCart), []byte("{not json")))

	sess := f.session(t, "s1")
	assert.Empty(t, sess.Lines())
}

func TestService_SessionRequiresID(t *testing.T) {
	f := newServiceFixture(t)
	_, err := f.svc.Session(context.Background(), "")
	assert.Error(t, err)
}

func TestService_StorageFailureKeepsLocalState(t *testing.T) {
	f := newServiceFixture(t)
	sess := f.session(t, "s1")
	f.store.setErr(errBoom)
	defer f.store.setErr(nil)

	view, err := sess.Add(context.Background(), AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-14")})
	require.NoError(t, err)
	assert.Len(t, view.Lines, 1)
	drain(t, sess)
}

func TestSession_CheckoutHandoff(t *testing.T) {
	f := newServiceFixture(t)
	sess := f.session(t, "s1")
	ctx := context.Background()
	remote := f.remotes.cart("s1")
	remote.seed(integration.RemoteLine{Key: "orphan", ProductID: 555, Quantity: 9})

	// Remote is down while the cart is built
	remote.fail("add", integration.ErrRemoteUnavailable)
	for _, id := range []string{"bowl-a", "bowl-b", "soup"} {
		_, err := sess.Add(ctx, AddItemRequest{ItemID: id, Date: day("2026-10-14")})
		require.NoError(t, err)
	}
	drain(t, sess)
	remote.fail("add", nil)

	result, err := sess.CheckoutHandoff(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com/checkout", result.CheckoutURL)
	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, 1, result.Skipped)

	remoteMatchesLocal(t, remote.snapshot(), sess.Lines())
	for _, l := range sess.Lines() {
		assert.Equal(t, l.HasRemoteProduct(), l.RemoteKey != "")
	}

	var snap cart.Snapshot
	data, err := f.store.Load(ctx, shared.SessionKey("s1", shared.StorageKeyCart))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.NotEmpty(t, snap.Lines[0].RemoteKey)
}

func TestSession_CheckoutHandoffFailure(t *testing.T) {
	f := newServiceFixture(t)
	sess := f.session(t, "s1")
	ctx := context.Background()

	_, err := sess.CheckoutHandoff(ctx)
	assert.Error(t, err)

	_, err = sess.Add(ctx, AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-14")})
	require.NoError(t, err)
	drain(t, sess)

	f.remotes.cart("s1").fail("clear", integration.ErrRemoteUnavailable)
	_, err = sess.CheckoutHandoff(ctx)
	assert.ErrorIs(t, err, ErrResyncFailed)
	assert.False(t, sess.Syncing())
	assert.Len(t, sess.Lines(), 1)
}

func TestSession_CheckoutHandoffFailureDropsStaleKeys(t *testing.T) {
	f := newServiceFixture(t)
	sess := f.session(t, "s1")
	ctx := context.Background()
	for _, id := range []string{"bowl-a", "bowl-b"} {
		_, err := sess.Add(ctx, AddItemRequest{ItemID: id, Date: day("2026-10-14")})
		require.NoError(t, err)
	}
	drain(t, sess)
	for _, l := range sess.Lines() {
		require.NotEmpty(t, l.RemoteKey)
	}

	f.remotes.cart("s1").fail("add", integration.ErrRemoteUnavailable)
	_, err := sess.CheckoutHandoff(ctx)
	require.ErrorIs(t, err, ErrResyncFailed)

	for _, l := range sess.Lines() {
		assert.Empty(t, l.RemoteKey, "remote line was cleared")
	}
	var snap cart.Snapshot
	data, err := f.store.Load(ctx, shared.SessionKey("s1", shared.StorageKeyCart))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &snap))
	for _, l := range snap.Lines {
		assert.Empty(t, l.RemoteKey)
	}
}

func TestSession_CheckoutHandoffClearFailureKeepsKeys(t *testing.T) {
	f := newServiceFixture(t)
	sess := f.session(t, "s1")
	ctx := context.Background()
	_, err := sess.Add(ctx, AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-14")})
	require.NoError(t, err)
	drain(t, sess)

	f.remotes.cart("s1").fail("clear", integration.ErrRemoteUnavailable)
	_, err = sess.CheckoutHandoff(ctx)
	require.ErrorIs(t, err, ErrResyncFailed)
	assert.NotEmpty(t, sess.Lines()[0].RemoteKey)
}

func TestService_ForgetAndDrain(t *testing.T) {
	f := newServiceFixture(t)
	sess := f.session(t, "s1")
	ctx := context.Background()
	_, err := sess.Add(ctx, AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-14")})
	require.NoError(t, err)

	require.NoError(t, f.svc.Drain(ctx))
	require.NoError(t, f.svc.Forget(ctx, "s1"))
	assert.False(t, f.store.has(shared.SessionKey("s1", shared.StorageKeyCart)))

	fresh := f.session(t, "s1")
	assert.NotSame(t, sess, fresh)
	assert.Empty(t, fresh.Lines())
}

func TestService_EvictIdle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	kept := f.session(t, "kept")
	_, err := kept.Add(ctx, AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-14")})
	require.NoError(t, err)
	drain(t, kept)
	for i := range 100 {
		f.session(t, fmt.Sprintf("anon-%d", i))
	}
	require.Equal(t, 101, f.svc.Len())

	f.clock.Advance(DefaultIdleTTL - time.Minute)
	f.session(t, "anon-0")
	f.clock.Advance(2 * time.Minute)

	assert.Equal(t, 100, f.svc.EvictIdle())
	assert.Equal(t, 1, f.svc.Len())

	// evicted sessions come back from storage
	reloaded := f.session(t, "kept")
	assert.NotSame(t, kept, reloaded)
	assert.Len(t, reloaded.Lines(), 1)
}

func TestService_EvictIdleKeepsSessionsWithPendingSync(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	gate := make(chan struct{})
	f.remotes.cart("busy").gate = gate

	sess := f.session(t, "busy")
	_, err := sess.Add(ctx, AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-14")})
	require.NoError(t, err)

	f.clock.Advance(DefaultIdleTTL + time.Minute)
	assert.Zero(t, f.svc.EvictIdle())

	close(gate)
	drain(t, sess)
	assert.Equal(t, 1, f.svc.EvictIdle())
	assert.Zero(t, f.svc.Len())
}

func TestService_RunEvictorStopsWithContext(t *testing.T) {
	f := newServiceFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RunEvictor(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("evictor did not stop")
	}
}

func TestService_SharedStoreSeesOtherWrites(t *testing.T) {
	f := newServiceFixture(t)
	other := f.newService(availability.MustNewCalendar(availability.DefaultCalendarConfig()))
	ctx := context.Background()

	a := f.session(t, "s1")
	b, err := other.Session(ctx, "s1")
	require.NoError(t, err)

	_, err = a.Add(ctx, AddItemRequest{ItemID: "bowl-a", Date: day("2026-10-14")})
	require.NoError(t, err)
	drain(t, a)
	f.clock.Advance(time.Second)

	b, err = other.Session(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, b.Lines(), 1, "picks up the line added elsewhere")
	_, err = b.Add(ctx, AddItemRequest{ItemID: "bowl-b", Date: day("2026-10-14")})
	require.NoError(t, err)
	drain(t, b)
	f.clock.Advance(time.Second)

	a = f.session(t, "s1")
	assert.Len(t, a.Lines(), 2)

	fresh := f.newService(availability.MustNewCalendar(availability.DefaultCalendarConfig()))
	sess, err := fresh.Session(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, sess.Lines(), 2)
}

func TestDecodeLegacyCart_InfersYear(t *testing.T) {
	tests := []struct {
		name    string
		display string
		today   string
		want    string
	}{
		{"same year", "Monday, Oct 19", "2026-10-14", "2026-10-19"},
		{"next year across new year", "Monday, Jan 4", "2026-12-30", "2027-01-04"},
		{"previous year", "Wednesday, Dec 30", "2027-01-02", "2026-12-30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := []byte(`[{"id":"x","price":"1.00","quantity":1,"serviceDate":"` + tt.display + `"}]`)
			snap, dropped, err := DecodeLegacyCart(data, day(tt.today))
			require.NoError(t, err)
			assert.Zero(t, dropped)
			require.Len(t, snap.Lines, 1)
			assert.Equal(t, day(tt.want), snap.Lines[0].Day)
		})
	}

	_, _, err := DecodeLegacyCart([]byte("nope"), day("2026-10-14"))
	assert.Error(t, err)
}
