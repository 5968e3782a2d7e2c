package woocommerce

import (
	"context"
	"errors"

	"github.com/knwn/storefront/internal/domain/integration"
	"github.com/knwn/storefront/internal/domain/shared"
)

// TokenStore keeps each session's Cart-Token in the session store under
// wc_cart_token
type TokenStore struct {
	store shared.KeyValueStore
}

var _ integration.TokenStore = (*TokenStore)(nil)

// NewTokenStore creates a TokenStore over store
func NewTokenStore(store shared.KeyValueStore) *TokenStore {
	return &TokenStore{store: store}
}

// LoadToken implements integration.TokenStore
func (t *TokenStore) LoadToken(ctx context.Context, sessionID string) (string, error) {
	v, err := t.store.Load(ctx, shared.SessionKey(sessionID, shared.StorageKeyCartToken))
	if errors.Is(err, shared.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// SaveToken implements integration.TokenStore. An empty token forgets the
// session's remote cart.
func (t *TokenStore) SaveToken(ctx context.Context, sessionID, token string) error {
	key := shared.SessionKey(sessionID, shared.StorageKeyCartToken)
	if token == "" {
		return t.store.Delete(ctx, key)
	}
	return t.store.Save(ctx, key, []byte(token))
}
