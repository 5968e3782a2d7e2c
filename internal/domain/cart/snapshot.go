package cart

import (
	"time"

	"github.com/knwn/storefront/internal/domain/availability"
)

// SnapshotVersion is the current persisted layout
const SnapshotVersion = 2

// Snapshot is the durable form of a cart
type Snapshot struct {
	Version int       `json:"version"`
	Lines   []Line    `json:"lines"`
	SavedAt time.Time `json:"saved_at"`
}

// Snapshot captures the cart for persistence
func (c *Cart) Snapshot() Snapshot {
	return Snapshot{
		Version: SnapshotVersion,
		Lines:   c.Lines(),
		SavedAt: c.clock.Now(),
	}
}

// Restore rebuilds a cart from a snapshot. Lines with a non-positive
// quantity or no item are dropped, and lines whose keys collide after
// normalization are merged. No events are recorded.
func Restore(id string, snap Snapshot, cal *availability.Calendar, clock availability.Clock, opts ...Option) *Cart {
	c := New(id, cal, clock, opts...)
	for _, l := range snap.Lines {
		if l.Quantity < 1 || l.ItemID == "" || l.Day.IsZero() {
			continue
		}
		l.Customization = l.Customization.Normalize()
		if _, existing := c.find(l.Key()); existing != nil {
			existing.Quantity += l.Quantity
			if existing.RemoteKey == "" {
				existing.RemoteKey = l.RemoteKey
			}
			continue
		}
		line := l
		c.lines = append(c.lines, &line)
	}
	return c
}
