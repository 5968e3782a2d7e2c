// Package cart holds the session's authoritative line-item state.
//
// The Cart aggregate enforces one rule on additions (no dates strictly before
// today in the service timezone) and merges identical selections by their
// LineKey. Every mutation records a domain event; the application layer
// drains those events into the remote cart synchronizer.
package cart

import (
	"slices"
	"time"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/catalog"
	"github.com/knwn/storefront/internal/domain/shared"
	"github.com/knwn/storefront/internal/domain/shared/valueobject"
)

// DefaultNoticeTTL is how long a rejection notice stays visible
const DefaultNoticeTTL = 3500 * time.Millisecond

// Notice is a transient, user-facing message on the cart
type Notice struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Cart is the aggregate root. It is not safe for concurrent use; callers
// serialize access per session.
type Cart struct {
	shared.BaseAggregateRoot

	id        string
	lines     []*Line
	calendar  *availability.Calendar
	clock     availability.Clock
	noticeTTL time.Duration
	notice    *Notice
}

var _ shared.AggregateRoot = (*Cart)(nil)

// Option configures a Cart
type Option func(*Cart)

// WithNoticeTTL overrides how long rejection notices stay visible
func WithNoticeTTL(d time.Duration) Option {
	return func(c *Cart) {
		if d > 0 {
			c.noticeTTL = d
		}
	}
}

// New creates an empty cart for a session
func New(id string, cal *availability.Calendar, clock availability.Clock, opts ...Option) *Cart {
	c := &Cart{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		id:                id,
		calendar:          cal,
		clock:             clock,
		noticeTTL:         DefaultNoticeTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the owning session ID
func (c *Cart) ID() string {
	return c.id
}

func (c *Cart) find(key LineKey) (int, *Line) {
	for i, l := range c.lines {
		if l.Key() == key {
			return i, l
		}
	}
	return -1, nil
}

// Add puts one unit of item for day into the cart. A date strictly before
// today is rejected with a *PastDateError, a transient notice is raised, and
// the cart is left unchanged. An identical (item, day, customization) merges
// into the existing line.
func (c *Cart) Add(item catalog.MenuItem, day availability.ServiceDay, custom Customization) (Line, error) {
	now := c.clock.Now()
	today := c.calendar.Today(now)
	if day.Before(today) {
		err := &PastDateError{Day: day, Today: today}
		c.notice = &Notice{Message: PastDateMessage, ExpiresAt: now.Add(c.noticeTTL)}
		return Line{}, err
	}
	if item.ID == "" {
		return Line{}, ErrInvalidItem
	}

	key := NewLineKey(item.ID, day, custom)
	if _, existing := c.find(key); existing != nil {
		existing.Quantity++
		c.IncrementVersion()
		c.AddDomainEvent(newLineAdded(c.id, now, *existing, false))
		return *existing, nil
	}

	line := &Line{
		ItemID:          item.ID,
		Name:            item.Name,
		Price:           item.Price,
		Image:           item.Image,
		RemoteProductID: item.RemoteProductID,
		Day:             day,
		Customization:   key.Customization,
		Quantity:        1,
	}
	c.lines = append(c.lines, line)
	c.IncrementVersion()
	c.AddDomainEvent(newLineAdded(c.id, now, *line, true))
	return *line, nil
}

// Remove deletes the line matching key. Removing a missing line is a no-op
// and reports false.
func (c *Cart) Remove(key LineKey) bool {
	key.Customization = key.Customization.Normalize()
	i, line := c.find(key)
	if line == nil {
		return false
	}
	c.lines = slices.Delete(c.lines, i, i+1)
	c.IncrementVersion()
	c.AddDomainEvent(newLineRemoved(c.id, c.clock.Now(), *line))
	return true
}

// UpdateQuantity adds delta to the matching line's quantity, flooring at
// zero. Reaching zero removes the line. It returns the resulting line and
// whether a line matched; a removed line is returned with Quantity 0.
func (c *Cart) UpdateQuantity(key LineKey, delta int) (Line, bool) {
	key.Customization = key.Customization.Normalize()
	i, line := c.find(key)
	if line == nil {
		return Line{}, false
	}
	if delta == 0 {
		return *line, true
	}

	old := line.Quantity
	next := max(old+delta, 0)
	now := c.clock.Now()
	if next == 0 {
		c.lines = slices.Delete(c.lines, i, i+1)
		c.IncrementVersion()
		c.AddDomainEvent(newLineRemoved(c.id, now, *line))
		removed := *line
		removed.Quantity = 0
		return removed, true
	}

	line.Quantity = next
	c.IncrementVersion()
	c.AddDomainEvent(newQuantityChanged(c.id, now, *line, old))
	return *line, true
}

// Clear empties the cart
func (c *Cart) Clear() {
	removed := c.Lines()
	c.lines = nil
	c.IncrementVersion()
	c.AddDomainEvent(newCartCleared(c.id, c.clock.Now(), removed))
}

// AttachRemoteKey records the remote correlation key for a line. It does not
// count as a mutation and raises no event.
func (c *Cart) AttachRemoteKey(key LineKey, remoteKey string) bool {
	key.Customization = key.Customization.Normalize()
	_, line := c.find(key)
	if line == nil {
		return false
	}
	line.RemoteKey = remoteKey
	return true
}

// Lines returns a copy of the lines in insertion order
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	for i, l := range c.lines {
		out[i] = *l
	}
	return out
}

// Line returns the line matching key
func (c *Cart) Line(key LineKey) (Line, bool) {
	key.Customization = key.Customization.Normalize()
	_, line := c.find(key)
	if line == nil {
		return Line{}, false
	}
	return *line, true
}

// Len returns the number of distinct lines
func (c *Cart) Len() int {
	return len(c.lines)
}

// Total is the sum of price times quantity, before tax and tip
func (c *Cart) Total() valueobject.Money {
	total := valueobject.Zero(valueobject.DefaultCurrency)
	for _, l := range c.lines {
		total = total.MustAdd(l.Subtotal())
	}
	return total
}

// ItemCount is the sum of quantities
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Notice returns the current transient notice, if it has not expired.
// Expired notices are dropped.
func (c *Cart) Notice() (Notice, bool) {
	if c.notice == nil {
		return Notice{}, false
	}
	if !c.clock.Now().Before(c.notice.ExpiresAt) {
		c.notice = nil
		return Notice{}, false
	}
	return *c.notice, true
}
