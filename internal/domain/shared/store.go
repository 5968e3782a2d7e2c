package shared

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KeyValueStore.Load for missing keys
var ErrKeyNotFound = errors.New("store: key not found")

// KeyValueStore is durable local storage for session snapshots. Save must
// replace the value atomically.
type KeyValueStore interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Storage key names used per session
const (
	StorageKeyCart       = "cart_v2"
	StorageKeyLegacyCart = "cart"
	StorageKeyUser       = "user"
	StorageKeyCartToken  = "wc_cart_token"
)

// SessionKey namespaces a storage key under a session
func SessionKey(sessionID, name string) string {
	return "session:" + sessionID + ":" + name
}
