package cart

import (
	"time"

	"github.com/knwn/storefront/internal/domain/shared"
)

// Event types
const (
	EventTypeLineAdded       = "cart.line_added"
	EventTypeQuantityChanged = "cart.quantity_changed"
	EventTypeLineRemoved     = "cart.line_removed"
	EventTypeCartCleared     = "cart.cleared"
)

// LineAdded is raised by Add. IsNew is false when the add merged into an
// existing line, in which case Line.Quantity is the merged total.
type LineAdded struct {
	shared.BaseDomainEvent
	Line  Line `json:"line"`
	IsNew bool `json:"is_new"`
}

// QuantityChanged is raised when UpdateQuantity leaves a line with quantity >= 1
type QuantityChanged struct {
	shared.BaseDomainEvent
	Line        Line `json:"line"`
	OldQuantity int  `json:"old_quantity"`
}

// LineRemoved is raised by Remove, or by UpdateQuantity reaching zero
type LineRemoved struct {
	shared.BaseDomainEvent
	Line Line `json:"line"`
}

// CartCleared is raised by Clear
type CartCleared struct {
	shared.BaseDomainEvent
	Lines []Line `json:"lines"`
}

func newLineAdded(cartID string, at time.Time, line Line, isNew bool) *LineAdded {
	return &LineAdded{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLineAdded, cartID, at),
		Line:            line,
		IsNew:           isNew,
	}
}

func newQuantityChanged(cartID string, at time.Time, line Line, old int) *QuantityChanged {
	return &QuantityChanged{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeQuantityChanged, cartID, at),
		Line:            line,
		OldQuantity:     old,
	}
}

func newLineRemoved(cartID string, at time.Time, line Line) *LineRemoved {
	return &LineRemoved{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLineRemoved, cartID, at),
		Line:            line,
	}
}

func newCartCleared(cartID string, at time.Time, lines []Line) *CartCleared {
	return &CartCleared{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCartCleared, cartID, at),
		Lines:           lines,
	}
}
