package woocommerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knwn/storefront/internal/domain/cart"
	"github.com/knwn/storefront/internal/domain/integration"
	"github.com/knwn/storefront/internal/domain/shared"
	"github.com/knwn/storefront/internal/infrastructure/cache"
)

// storeServer is a scripted Store API
type storeServer struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   []map[string]any
	handler  func(w http.ResponseWriter, r *http.Request, body map[string]any)
}

func (s *storeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	s.requests = append(s.requests, r)
	s.bodies = append(s.bodies, body)
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	s.handler(w, r, body)
}

func (s *storeServer) last() (*http.Request, map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1], s.bodies[len(s.bodies)-1]
}

func newTestCart(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, body map[string]any)) (*SessionCart, *storeServer, *TokenStore) {
	t.Helper()
	srv := &storeServer{handler: handler}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	tokens := NewTokenStore(cache.NewMemoryStore())
	client, err := NewCartClient(Config{StoreURL: ts.URL, Timeout: 2 * time.Second}, tokens)
	require.NoError(t, err)
	return client.ForSession("s-1").(*SessionCart), srv, tokens
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ---------------------------------------------------------------------------
// AddItem
// ---------------------------------------------------------------------------

func TestSessionCart_AddItem_PersistsRotatedToken(t *testing.T) {
	ctx := context.Background()
	var calls atomic.Int32
	sc, srv, tokens := newTestCart(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		n := calls.Add(1)
		w.Header().Set("Cart-Token", "tok-"+string(rune('0'+n)))
		writeJSON(w, http.StatusCreated, map[string]any{
			"items": []map[string]any{{"key": "line-a", "id": 101, "quantity": 1}},
		})
	})

	key, err := sc.AddItem(ctx, 101, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "line-a", key)

	req, body := srv.last()
	assert.Equal(t, "/wp-json/wc/store/v1/cart/add-item", req.URL.Path)
	assert.Empty(t, req.Header.Get("Cart-Token"))
	assert.EqualValues(t, 101, body["id"])
	assert.EqualValues(t, 1, body["quantity"])

	token, err := tokens.LoadToken(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	_, err = sc.AddItem(ctx, 101, 1, nil)
	require.NoError(t, err)
	req, _ = srv.last()
	assert.Equal(t, "tok-1", req.Header.Get("Cart-Token"))

	token, _ = tokens.LoadToken(ctx, "s-1")
	assert.Equal(t, "tok-2", token)
}

func TestSessionCart_AddItem_PicksMatchingLine(t *testing.T) {
	attrs := []cart.Attribute{{Key: cart.LabelServiceDate, Value: "Wednesday, Oct 14"}, {Key: cart.LabelBase, Value: "Rice"}}
	sc, srv, _ := newTestCart(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		writeJSON(w, http.StatusCreated, map[string]any{
			"items": []map[string]any{
				{"key": "other", "id": 202, "quantity": 1},
				{"key": "plain", "id": 101, "quantity": 1, "item_data": []map[string]string{{"key": cart.LabelServiceDate, "value": "Wednesday, Oct 14"}}},
				{"key": "rice", "id": 101, "quantity": 2, "item_data": []map[string]string{
					{"key": cart.LabelBase, "value": "Rice"},
					{"key": cart.LabelServiceDate, "value": "Wednesday, Oct 14"},
				}},
			},
		})
	})

	key, err := sc.AddItem(context.Background(), 101, 2, attrs)
	require.NoError(t, err)
	assert.Equal(t, "rice", key)

	_, body := srv.last()
	data := body["item_data"].([]any)
	require.Len(t, data, 2)
	assert.Equal(t, map[string]any{"key": cart.LabelServiceDate, "value": "Wednesday, Oct 14"}, data[0])
}

func TestSessionCart_AddItem_LegacyItemResponse(t *testing.T) {
	sc, _, _ := newTestCart(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		writeJSON(w, http.StatusCreated, map[string]any{"item_key": "legacy-key", "id": 101, "quantity": map[string]int{"value": 1}})
	})

	key, err := sc.AddItem(context.Background(), 101, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", key)
}

func TestSessionCart_AddItem_NoMatchingLine(t *testing.T) {
	sc, _, _ := newTestCart(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		writeJSON(w, http.StatusCreated, map[string]any{"items": []any{}})
	})

	_, err := sc.AddItem(context.Background(), 101, 1, nil)
	assert.ErrorIs(t, err, integration.ErrRemoteInvalidResponse)
}

func TestSessionCart_Validation(t *testing.T) {
	sc, srv, _ := newTestCart(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		t.Error("no request expected")
	})
	ctx := context.Background()

	_, err := sc.AddItem(ctx, 0, 1, nil)
	assert.ErrorIs(t, err, integration.ErrInvalidProductID)
	_, err = sc.AddItem(ctx, 101, 0, nil)
	assert.ErrorIs(t, err, integration.ErrInvalidQuantity)
	assert.ErrorIs(t, sc.SetQuantity(ctx, "", 1), integration.ErrMissingCorrelation)
	assert.ErrorIs(t, sc.SetQuantity(ctx, "k", 0), integration.ErrInvalidQuantity)
	assert.ErrorIs(t, sc.RemoveItem(ctx, ""), integration.ErrMissingCorrelation)
	assert.Empty(t, srv.requests)
}

// ---------------------------------------------------------------------------
// SetQuantity / RemoveItem / ClearAll
// ---------------------------------------------------------------------------

func TestSessionCart_Mutations(t *testing.T) {
	ctx := context.Background()
	sc, srv, _ := newTestCart(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		if r.URL.Path == "/wp-json/wc/store/v1/cart/remove-item" && body["key"] == "gone" {
			writeJSON(w, http.StatusConflict, map[string]string{"code": "woocommerce_rest_cart_invalid_key", "message": "Cart item does not exist."})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
	})

	require.NoError(t, sc.SetQuantity(ctx, "line-a", 3))
	req, body := srv.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/wp-json/wc/store/v1/cart/update-item", req.URL.Path)
	assert.Equal(t, "line-a", body["key"])
	assert.EqualValues(t, 3, body["quantity"])

	require.NoError(t, sc.RemoveItem(ctx, "line-a"))
	req, body = srv.last()
	assert.Equal(t, "/wp-json/wc/store/v1/cart/remove-item", req.URL.Path)
	assert.Equal(t, "line-a", body["key"])

	assert.NoError(t, sc.RemoveItem(ctx, "gone"), "removing a missing line succeeds")

	require.NoError(t, sc.ClearAll(ctx))
	req, _ = srv.last()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/wp-json/wc/store/v1/cart/items", req.URL.Path)
}

func TestSessionCart_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "server error", status: http.StatusBadGateway, want: integration.ErrRemoteUnavailable},
		{name: "rate limited", status: http.StatusTooManyRequests, want: integration.ErrRemoteRateLimited},
		{name: "forbidden", status: http.StatusForbidden, want: integration.ErrRemoteAuthFailed},
		{name: "bad request", status: http.StatusBadRequest, want: integration.ErrRemoteRequestFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, _, _ := newTestCart(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
				writeJSON(w, tt.status, map[string]string{"code": "x", "message": "y"})
			})
			err := sc.SetQuantity(context.Background(), "k", 1)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSessionCart_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client, err := NewCartClient(Config{StoreURL: url}, NewTokenStore(cache.NewMemoryStore()))
	require.NoError(t, err)
	err = client.ForSession("s-1").ClearAll(context.Background())
	assert.ErrorIs(t, err, integration.ErrRemoteUnavailable)
	assert.True(t, integration.IsTransient(err))
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

func TestSessionCart_Items_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	sc, _, _ := newTestCart(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": []map[string]any{
				{"key": "a", "id": 101, "quantity": 2, "item_data": []map[string]string{{"key": "Base", "value": "Rice"}}},
				{"item_key": "b", "id": 102, "quantity": map[string]int{"value": 1}},
			},
		})
	})

	lines, err := sc.Items(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	require.Len(t, lines, 2)
	assert.Equal(t, integration.RemoteLine{Key: "a", ProductID: 101, Quantity: 2, Attributes: []cart.Attribute{{Key: "Base", Value: "Rice"}}}, lines[0])
	assert.Equal(t, "b", lines[1].Key)
	assert.Equal(t, 1, lines[1].Quantity)
}

func TestSessionCart_Items_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	sc, _, _ := newTestCart(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		calls.Add(1)
		writeJSON(w, http.StatusBadRequest, map[string]string{})
	})

	_, err := sc.Items(context.Background())
	assert.ErrorIs(t, err, integration.ErrRemoteRequestFailed)
	assert.Equal(t, int32(1), calls.Load())
}

// ---------------------------------------------------------------------------
// Nonce
// ---------------------------------------------------------------------------

func TestSessionCart_NonceFromEndpoint(t *testing.T) {
	mux := http.NewServeMux()
	var nonceCalls atomic.Int32
	var seen []string
	var mu sync.Mutex
	mux.HandleFunc("/wp-json/knwn/v1/nonce", func(w http.ResponseWriter, r *http.Request) {
		nonceCalls.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"nonce": "n-1"})
	})
	mux.HandleFunc("/wp-json/wc/store/v1/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Nonce")+"|"+r.Header.Get("X-WC-Store-API-Nonce"))
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client, err := NewCartClient(Config{StoreURL: ts.URL, NonceURL: ts.URL + "/wp-json/knwn/v1/nonce"}, NewTokenStore(cache.NewMemoryStore()))
	require.NoError(t, err)
	sc := client.ForSession("s-1")

	require.NoError(t, sc.SetQuantity(context.Background(), "k", 1))
	require.NoError(t, sc.SetQuantity(context.Background(), "k", 2))

	assert.Equal(t, int32(1), nonceCalls.Load(), "nonce is cached")
	assert.Equal(t, []string{"n-1|n-1", "n-1|n-1"}, seen)
}

func TestSessionCart_RejectedNonceIsRefreshed(t *testing.T) {
	var calls atomic.Int32
	sc, srv, _ := newTestCart(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		w.Header().Set("Nonce", "fresh")
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "woocommerce_rest_missing_nonce"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": []any{}})
	})

	require.NoError(t, sc.SetQuantity(context.Background(), "k", 1))
	assert.Equal(t, int32(2), calls.Load())
	req, _ := srv.last()
	assert.Equal(t, "fresh", req.Header.Get("Nonce"))
}

func TestSessionCart_ClearAll_SendsNonce(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/knwn/v1/nonce", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"nonce": "n-1"})
	})
	var method, nonce string
	mux.HandleFunc("/wp-json/wc/store/v1/cart/items", func(w http.ResponseWriter, r *http.Request) {
		method, nonce = r.Method, r.Header.Get("Nonce")
		if nonce == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "woocommerce_rest_missing_nonce"})
			return
		}
		writeJSON(w, http.StatusOK, []any{})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client, err := NewCartClient(Config{StoreURL: ts.URL, NonceURL: ts.URL + "/wp-json/knwn/v1/nonce"}, NewTokenStore(cache.NewMemoryStore()))
	require.NoError(t, err)

	require.NoError(t, client.ForSession("s-1").ClearAll(context.Background()))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "n-1", nonce)
}

func TestSessionCart_ClearAll_RejectedNonceIsRefreshed(t *testing.T) {
	var calls atomic.Int32
	sc, srv, _ := newTestCart(t, func(w http.ResponseWriter, r *http.Request, body map[string]any) {
		w.Header().Set("Nonce", "fresh")
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"code": "woocommerce_rest_invalid_nonce"})
			return
		}
		writeJSON(w, http.StatusOK, []any{})
	})

	require.NoError(t, sc.ClearAll(context.Background()))
	assert.Equal(t, int32(2), calls.Load())
	req, _ := srv.last()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "fresh", req.Header.Get("Nonce"))
}

// ---------------------------------------------------------------------------
// TokenStore
// ---------------------------------------------------------------------------

func TestTokenStore(t *testing.T) {
	ctx := context.Background()
	kv := cache.NewMemoryStore()
	ts := NewTokenStore(kv)

	token, err := ts.LoadToken(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, ts.SaveToken(ctx, "s-1", "tok"))
	raw, err := kv.Load(ctx, shared.SessionKey("s-1", shared.StorageKeyCartToken))
	require.NoError(t, err)
	assert.Equal(t, "tok", string(raw))

	require.NoError(t, ts.SaveToken(ctx, "s-1", ""))
	_, err = kv.Load(ctx, shared.SessionKey("s-1", shared.StorageKeyCartToken))
	assert.ErrorIs(t, err, shared.ErrKeyNotFound)
}
