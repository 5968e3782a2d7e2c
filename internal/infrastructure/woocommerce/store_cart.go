package woocommerce

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/knwn/storefront/internal/domain/cart"
	"github.com/knwn/storefront/internal/domain/integration"
	"github.com/knwn/storefront/internal/infrastructure/telemetry"
)

// Store API session headers
const (
	headerCartToken   = "Cart-Token"
	headerNonce       = "Nonce"
	headerLegacyNonce = "X-WC-Store-API-Nonce"
)

// Option configures a client
type Option func(*options)

type options struct {
	transport http.RoundTripper
	logger    *zap.Logger
}

// WithTransport replaces the HTTP transport
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// CartClient opens Store API carts. Each session's cart is identified by
// the Cart-Token kept in the token store.
type CartClient struct {
	config Config
	http   *http.Client
	tokens integration.TokenStore
	logger *zap.Logger
}

var _ integration.RemoteCartFactory = (*CartClient)(nil)

// NewCartClient creates a Store API client
func NewCartClient(cfg Config, tokens integration.TokenStore, opts ...Option) (*CartClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		return nil, errors.New("woocommerce: token store is required")
	}
	o := buildOptions(opts)
	return &CartClient{
		config: cfg,
		http:   newHTTPClient(cfg.Timeout, o.transport),
		tokens: tokens,
		logger: o.logger.Named("woocommerce"),
	}, nil
}

// ForSession implements integration.RemoteCartFactory
func (c *CartClient) ForSession(sessionID string) integration.RemoteCart {
	return &SessionCart{client: c, sessionID: sessionID}
}

// SessionCart is one session's Store API cart
type SessionCart struct {
	client    *CartClient
	sessionID string

	mu    sync.Mutex
	nonce string
}

var _ integration.RemoteCart = (*SessionCart)(nil)

// ---------------------------------------------------------------------------
// RemoteCart
// ---------------------------------------------------------------------------

// AddItem implements integration.RemoteCart
func (s *SessionCart) AddItem(ctx context.Context, productID int64, quantity int, attrs []cart.Attribute) (string, error) {
	if productID <= 0 {
		return "", integration.ErrInvalidProductID
	}
	if quantity <= 0 {
		return "", integration.ErrInvalidQuantity
	}

	data := toItemData(attrs)
	r, err := s.mutate(ctx, "add_item", http.MethodPost, "cart/add-item", addItemRequest{ID: productID, Quantity: quantity, ItemData: data},
		attribute.Int64("woocommerce.product_id", productID))
	if err != nil {
		return "", err
	}

	var c storeCart
	if err := decode(r, &c); err != nil {
		return "", err
	}
	if len(c.Items) == 0 {
		// older stores answer with the added line itself
		var item storeCartItem
		if err := decode(r, &item); err == nil && item.lineKey() != "" {
			c.Items = []storeCartItem{item}
		}
	}
	key := pickLine(c.Items, productID, data)
	if key == "" {
		return "", integration.ErrRemoteInvalidResponse
	}
	return key, nil
}

// SetQuantity implements integration.RemoteCart
func (s *SessionCart) SetQuantity(ctx context.Context, key string, quantity int) error {
	if key == "" {
		return integration.ErrMissingCorrelation
	}
	if quantity <= 0 {
		return integration.ErrInvalidQuantity
	}
	_, err := s.mutate(ctx, "update_item", http.MethodPost, "cart/update-item", updateItemRequest{Key: key, Quantity: quantity})
	return err
}

// RemoveItem implements integration.RemoteCart. Removing a line the store
// no longer has succeeds.
func (s *SessionCart) RemoveItem(ctx context.Context, key string) error {
	if key == "" {
		return integration.ErrMissingCorrelation
	}
	_, err := s.mutate(ctx, "remove_item", http.MethodPost, "cart/remove-item", removeItemRequest{Key: key})
	if isNotFound(err) {
		return nil
	}
	return err
}

// ClearAll implements integration.RemoteCart
func (s *SessionCart) ClearAll(ctx context.Context) error {
	_, err := s.mutate(ctx, "clear", http.MethodDelete, "cart/items", nil)
	return err
}

// Items implements integration.RemoteCart
func (s *SessionCart) Items(ctx context.Context) ([]integration.RemoteLine, error) {
	r, err := retryRead(ctx, func() (*reply, error) {
		return s.send(ctx, "get_cart", http.MethodGet, "cart", nil)
	})
	if err != nil {
		return nil, err
	}
	var c storeCart
	if err := decode(r, &c); err != nil {
		return nil, err
	}

	lines := make([]integration.RemoteLine, 0, len(c.Items))
	for _, it := range c.Items {
		attrs := make([]cart.Attribute, 0, len(it.ItemData))
		for _, d := range it.ItemData {
			attrs = append(attrs, cart.Attribute{Key: d.Key, Value: d.Value})
		}
		lines = append(lines, integration.RemoteLine{
			Key:        it.lineKey(),
			ProductID:  it.ID,
			Quantity:   int(it.Quantity),
			Attributes: attrs,
		})
	}
	return lines, nil
}

// ---------------------------------------------------------------------------
// transport
// ---------------------------------------------------------------------------

// mutate sends a cart mutation. A rejected nonce is refreshed from the
// response and the call retried once.
func (s *SessionCart) mutate(ctx context.Context, operation, method, path string, in any, attrs ...attribute.KeyValue) (*reply, error) {
	s.ensureNonce(ctx)
	sent := s.currentNonce()

	r, err := s.send(ctx, operation, method, path, in, attrs...)
	if errors.Is(err, integration.ErrRemoteAuthFailed) && s.currentNonce() != sent {
		return s.send(ctx, operation, method, path, in, attrs...)
	}
	return r, err
}

// send performs one Store API call carrying the session's cart token and
// nonce, then persists any rotated token before returning
func (s *SessionCart) send(ctx context.Context, operation, method, path string, in any, attrs ...attribute.KeyValue) (r *reply, err error) {
	ctx, span := telemetry.StartSpan(ctx, "woocommerce", operation,
		append(attrs, attribute.String("session.id", s.sessionID))...)
	defer func() { telemetry.Finish(span, err) }()

	log := s.client.logger.With(zap.String("session_id", s.sessionID), zap.String("operation", operation))

	token, err := s.client.tokens.LoadToken(ctx, s.sessionID)
	if err != nil {
		log.Warn("failed to load cart token", zap.Error(err))
		token = ""
	}

	header := http.Header{}
	if token != "" {
		header.Set(headerCartToken, token)
	}
	if nonce := s.currentNonce(); nonce != "" {
		header.Set(headerNonce, nonce)
		header.Set(headerLegacyNonce, nonce)
	}

	r, err = doJSON(ctx, s.client.http, method, s.client.config.storeEndpoint(path), header, in)
	if r != nil {
		s.capture(ctx, log, token, r.header)
	}
	if err != nil {
		log.Debug("store api call failed", zap.Error(err))
		return nil, err
	}
	return r, nil
}

// capture records the nonce and persists a rotated cart token
func (s *SessionCart) capture(ctx context.Context, log *zap.Logger, sentToken string, h http.Header) {
	if nonce := h.Get(headerNonce); nonce != "" {
		s.setNonce(nonce)
	}
	rotated := h.Get(headerCartToken)
	if rotated == "" || rotated == sentToken {
		return
	}
	if err := s.client.tokens.SaveToken(ctx, s.sessionID, rotated); err != nil {
		log.Warn("failed to persist rotated cart token", zap.Error(err))
	}
}

// ensureNonce fetches a nonce from the configured endpoint when none is
// cached. Failures leave the nonce empty.
func (s *SessionCart) ensureNonce(ctx context.Context) {
	if s.currentNonce() != "" || s.client.config.NonceURL == "" {
		return
	}
	header := http.Header{}
	if token, err := s.client.tokens.LoadToken(ctx, s.sessionID); err == nil && token != "" {
		header.Set(headerCartToken, token)
	}
	r, err := doJSON(ctx, s.client.http, http.MethodGet, s.client.config.NonceURL, header, nil)
	if err != nil {
		s.client.logger.Debug("nonce fetch failed", zap.String("session_id", s.sessionID), zap.Error(err))
		return
	}
	var n nonceResponse
	if decode(r, &n) == nil && n.Nonce != "" {
		s.setNonce(n.Nonce)
	}
}

func (s *SessionCart) currentNonce() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonce
}

func (s *SessionCart) setNonce(n string) {
	s.mu.Lock()
	s.nonce = n
	s.mu.Unlock()
}

func toItemData(attrs []cart.Attribute) []itemData {
	if len(attrs) == 0 {
		return nil
	}
	data := make([]itemData, len(attrs))
	for i, a := range attrs {
		data[i] = itemData{Key: a.Key, Value: a.Value}
	}
	return data
}

// pickLine finds the key of the line matching productID, preferring the one
// whose item data equals data
func pickLine(items []storeCartItem, productID int64, data []itemData) string {
	var fallback string
	for _, it := range items {
		if it.ID != productID {
			continue
		}
		if sameItemData(it.ItemData, data) {
			return it.lineKey()
		}
		fallback = it.lineKey()
	}
	return fallback
}

func sameItemData(a, b []itemData) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[itemData]int, len(a))
	for _, d := range a {
		seen[d]++
	}
	for _, d := range b {
		if seen[d] == 0 {
			return false
		}
		seen[d]--
	}
	return true
}
