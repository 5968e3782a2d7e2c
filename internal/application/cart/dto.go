package cart

import (
	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/cart"
	"github.com/knwn/storefront/internal/domain/shared/valueobject"
)

// AddItemRequest asks for one unit of a menu item
type AddItemRequest struct {
	ItemID        string
	Date          availability.ServiceDay
	Customization cart.Customization
}

// LineView is a cart line for display
type LineView struct {
	ItemID         string                  `json:"item_id"`
	Name           string                  `json:"name"`
	Image          string                  `json:"image,omitempty"`
	Date           availability.ServiceDay `json:"date"`
	DateLabel      string                  `json:"date_label"`
	Customizations cart.Customization      `json:"customizations"`
	Attributes     []cart.Attribute        `json:"attributes"`
	Quantity       int                     `json:"quantity"`
	Price          valueobject.Money       `json:"price"`
	Subtotal       valueobject.Money       `json:"subtotal"`
	Synced         bool                    `json:"synced"`
}

func newLineView(l cart.Line) LineView {
	return LineView{
		ItemID:         l.ItemID,
		Name:           l.Name,
		Image:          l.Image,
		Date:           l.Day,
		DateLabel:      l.Day.Display(),
		Customizations: l.Customization,
		Attributes:     l.Customization.Attributes(),
		Quantity:       l.Quantity,
		Price:          l.Price,
		Subtotal:       l.Subtotal(),
		Synced:         l.RemoteKey != "",
	}
}

// CartView is the cart as returned to clients
type CartView struct {
	SessionID   string                   `json:"session_id"`
	Lines       []LineView               `json:"lines"`
	Total       valueobject.Money        `json:"total"`
	ItemCount   int                      `json:"item_count"`
	Notice      *cart.Notice             `json:"notice,omitempty"`
	Syncing     bool                     `json:"syncing"`
	ActiveOrder availability.ActiveOrder `json:"active_order"`
}

// HandoffResult tells the client where to complete checkout
type HandoffResult struct {
	CheckoutURL string `json:"checkout_url"`
	Synced      int    `json:"synced"`
	Skipped     int    `json:"skipped"`
}
