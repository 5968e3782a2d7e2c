package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers the keys of operations that must run at most
// once, such as turning a payment intent into orders
type IdempotencyStore interface {
	// Claim records key for ttl. It reports false when key is already
	// claimed and unexpired.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
