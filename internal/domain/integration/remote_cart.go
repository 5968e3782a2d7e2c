package integration

import (
	"context"

	"github.com/knwn/storefront/internal/domain/cart"
)

// ---------------------------------------------------------------------------
// RemoteLine
// ---------------------------------------------------------------------------

// RemoteLine is one line of the remote cart as reported by the store
type RemoteLine struct {
	// Key is the correlation key the store assigned to the line
	Key string
	// ProductID is the remote product identifier
	ProductID int64
	// Quantity on the remote side
	Quantity int
	// Attributes are the (label, value) pairs sent with the line
	Attributes []cart.Attribute
}

// ---------------------------------------------------------------------------
// RemoteCart Port Interface
// ---------------------------------------------------------------------------

// RemoteCart is the remote commerce cart bound to one session. Session
// continuity (the cart token) is the adapter's concern: it replays the stored
// token on every call and persists rotated tokens before returning.
type RemoteCart interface {
	// AddItem adds a product and returns the correlation key of the new line
	AddItem(ctx context.Context, productID int64, quantity int, attrs []cart.Attribute) (string, error)

	// SetQuantity sets the quantity of the line identified by key
	SetQuantity(ctx context.Context, key string, quantity int) error

	// RemoveItem removes the line identified by key
	RemoveItem(ctx context.Context, key string) error

	// ClearAll removes every line from the remote cart
	ClearAll(ctx context.Context) error

	// Items lists the remote lines
	Items(ctx context.Context) ([]RemoteLine, error)
}

// RemoteCartFactory opens the remote cart for a session
type RemoteCartFactory interface {
	ForSession(sessionID string) RemoteCart
}

// TokenStore persists the opaque remote cart token per session
type TokenStore interface {
	// LoadToken returns the stored token, or "" when none was stored
	LoadToken(ctx context.Context, sessionID string) (string, error)

	// SaveToken replaces the stored token
	SaveToken(ctx context.Context, sessionID, token string) error
}
