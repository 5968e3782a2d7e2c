package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/cart"
	"github.com/knwn/storefront/internal/domain/catalog"
	"github.com/knwn/storefront/internal/domain/integration"
	"github.com/knwn/storefront/internal/domain/shared"
	"github.com/knwn/storefront/internal/domain/shared/valueobject"
)

// fakeRemoteCart is an in-memory remote cart that records calls
type fakeRemoteCart struct {
	mu     sync.Mutex
	lines  []integration.RemoteLine
	next   int
	calls  []string
	failOn map[string]error
	// gate, when set, blocks every call until it is closed
	gate chan struct{}
}

func newFakeRemoteCart() *fakeRemoteCart {
	return &fakeRemoteCart{failOn: make(map[string]error)}
}

func (f *fakeRemoteCart) begin(ctx context.Context, op string) error {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *fakeRemoteCart) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failOn, op)
		return
	}
	f.failOn[op] = err
}

func (f *fakeRemoteCart) AddItem(ctx context.Context, productID int64, quantity int, attrs []cart.Attribute) (string, error) {
	if err := f.begin(ctx, "add"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	key := fmt.Sprintf("wc-%d", f.next)
	f.lines = append(f.lines, integration.RemoteLine{Key: key, ProductID: productID, Quantity: quantity, Attributes: attrs})
	return key, nil
}

func (f *fakeRemoteCart) SetQuantity(ctx context.Context, key string, quantity int) error {
	if err := f.begin(ctx, "set"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.lines {
		if f.lines[i].Key == key {
			f.lines[i].Quantity = quantity
			return nil
		}
	}
	return integration.ErrRemoteLineNotFound
}

func (f *fakeRemoteCart) RemoveItem(ctx context.Context, key string) error {
	if err := f.begin(ctx, "remove"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.lines {
		if f.lines[i].Key == key {
			f.lines = slices.Delete(f.lines, i, i+1)
			return nil
		}
	}
	return integration.ErrRemoteLineNotFound
}

func (f *fakeRemoteCart) ClearAll(ctx context.Context) error {
	if err := f.begin(ctx, "clear"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = nil
	return nil
}

func (f *fakeRemoteCart) Items(ctx context.Context) ([]integration.RemoteLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.lines), nil
}

func (f *fakeRemoteCart) snapshot() []integration.RemoteLine {
	lines, _ := f.Items(context.Background())
	return lines
}

func (f *fakeRemoteCart) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// seed puts stale lines on the remote side
func (f *fakeRemoteCart) seed(lines ...integration.RemoteLine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, lines...)
}

type fakeRemoteFactory struct {
	mu    sync.Mutex
	carts map[string]*fakeRemoteCart
}

func newFakeRemoteFactory() *fakeRemoteFactory {
	return &fakeRemoteFactory{carts: make(map[string]*fakeRemoteCart)}
}

func (f *fakeRemoteFactory) ForSession(id string) integration.RemoteCart {
	return f.cart(id)
}

func (f *fakeRemoteFactory) cart(id string) *fakeRemoteCart {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[id]
	if !ok {
		c = newFakeRemoteCart()
		f.carts[id] = c
	}
	return c
}

// memoryStore is a map-backed KeyValueStore
type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (m *memoryStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, shared.ErrKeyNotFound
	}
	return slices.Clone(v), nil
}

func (m *memoryStore) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = slices.Clone(value)
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryStore) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *memoryStore) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// staticMenu serves the same items every open day
type staticMenu struct {
	items []catalog.MenuItem
}

func (m staticMenu) MenuFor(day availability.ServiceDay) (*catalog.DayMenu, bool) {
	if day.IsWeekend() {
		return nil, false
	}
	return &catalog.DayMenu{
		Weekday:    day.WeekdayKey(),
		Categories: []catalog.Category{{Name: "Bowls", Items: m.items}},
	}, true
}

var (
	bowlA = catalog.MenuItem{
		ID:              "bowl-a",
		Name:            "Bowl A",
		Price:           valueobject.USDFromCents(1290),
		RemoteProductID: 101,
		Options:         &catalog.CustomizationOptions{Bases: []string{"rice", "quinoa"}},
	}
	bowlB = catalog.MenuItem{ID: "bowl-b", Name: "Bowl B", Price: valueobject.USDFromCents(1590), RemoteProductID: 102}
	// soup has no remote product
	soup = catalog.MenuItem{ID: "soup", Name: "Soup", Price: valueobject.USDFromCents(800)}

	testMenu = staticMenu{items: []catalog.MenuItem{bowlA, bowlB, soup}}
)

var errBoom = errors.New("connection refused")
