package cart

import (
	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/shared/valueobject"
)

// LineKey is the merge key of a cart line: item, service day and canonical
// customization. It is comparable and may be used as a map key.
type LineKey struct {
	ItemID        string
	Day           availability.ServiceDay
	Customization Customization
}

// NewLineKey builds a key with the customization normalized
func NewLineKey(itemID string, day availability.ServiceDay, c Customization) LineKey {
	return LineKey{ItemID: itemID, Day: day, Customization: c.Normalize()}
}

// String identifies the key in logs. Customizations are omitted.
func (k LineKey) String() string {
	return k.ItemID + "@" + k.Day.Key()
}

// Line is one entry in the cart. Item fields are a snapshot taken when the
// line was created.
type Line struct {
	ItemID          string                  `json:"item_id"`
	Name            string                  `json:"name"`
	Price           valueobject.Money       `json:"price"`
	Image           string                  `json:"image,omitempty"`
	RemoteProductID int64                   `json:"remote_product_id,omitempty"`
	Day             availability.ServiceDay `json:"service_date"`
	Customization   Customization           `json:"customizations"`
	Quantity        int                     `json:"quantity"`
	// RemoteKey correlates the line with its mirror in the remote cart
	RemoteKey string `json:"remote_key,omitempty"`
}

// Key returns the merge key
func (l Line) Key() LineKey {
	return NewLineKey(l.ItemID, l.Day, l.Customization)
}

// Subtotal is price times quantity
func (l Line) Subtotal() valueobject.Money {
	return l.Price.MultiplyByInt(int64(l.Quantity))
}

// HasRemoteProduct reports whether the line can be mirrored remotely
func (l Line) HasRemoteProduct() bool {
	return l.RemoteProductID > 0
}

// Attributes returns the service date followed by the customization pairs
func (l Line) Attributes() []Attribute {
	attrs := []Attribute{{Key: LabelServiceDate, Value: l.Day.Display()}}
	return append(attrs, l.Customization.Attributes()...)
}
