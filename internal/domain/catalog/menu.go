// Package catalog models the weekly menu the storefront sells from. The menu
// is read-only reference data owned by the menu collaborator.
package catalog

import (
	"errors"
	"slices"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/shared/valueobject"
)

// ErrItemNotFound is returned when an item is not on the menu for a day
var ErrItemNotFound = errors.New("catalog: item not on the menu for that day")

// VegetarianOption describes the "make it vegetarian" toggle
type VegetarianOption struct {
	Label        string `json:"label"`
	Instructions string `json:"instructions,omitempty"`
}

// CustomizationOptions is the schema of choices an item offers
type CustomizationOptions struct {
	Bases      []string          `json:"bases,omitempty"`
	Sauces     []string          `json:"sauces,omitempty"`
	Proteins   []string          `json:"proteins,omitempty"`
	Swaps      []string          `json:"swaps,omitempty"`
	Vegetarian *VegetarianOption `json:"vegetarian,omitempty"`
	Dislikes   []string          `json:"dislikes,omitempty"`
}

// OffersBase reports whether v is one of the listed bases
func (o *CustomizationOptions) OffersBase(v string) bool {
	return o != nil && slices.Contains(o.Bases, v)
}

// OffersSauce reports whether v is one of the listed sauces
func (o *CustomizationOptions) OffersSauce(v string) bool {
	return o != nil && slices.Contains(o.Sauces, v)
}

// OffersProtein reports whether v is one of the listed proteins
func (o *CustomizationOptions) OffersProtein(v string) bool {
	return o != nil && slices.Contains(o.Proteins, v)
}

// OffersSwap reports whether v is one of the listed swaps
func (o *CustomizationOptions) OffersSwap(v string) bool {
	return o != nil && slices.Contains(o.Swaps, v)
}

// OffersVegetarian reports whether the item can be made vegetarian
func (o *CustomizationOptions) OffersVegetarian() bool {
	return o != nil && o.Vegetarian != nil
}

// MenuItem is a catalog entry
type MenuItem struct {
	ID              string                `json:"id"`
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	Price           valueobject.Money     `json:"price"`
	Image           string                `json:"image,omitempty"`
	Tags            []string              `json:"tags,omitempty"`
	Calories        int                   `json:"calories,omitempty"`
	Popular         bool                  `json:"popular,omitempty"`
	RemoteProductID int64                 `json:"remote_product_id,omitempty"`
	Options         *CustomizationOptions `json:"customization,omitempty"`
}

// HasRemoteProduct reports whether the item is mapped to a commerce product
func (m MenuItem) HasRemoteProduct() bool {
	return m.RemoteProductID > 0
}

// Category groups items on a day's menu
type Category struct {
	Name  string     `json:"name"`
	Items []MenuItem `json:"items"`
}

// DayMenu is the menu served on one weekday
type DayMenu struct {
	Weekday    string     `json:"weekday"`
	Categories []Category `json:"categories"`
}

// Item finds an item by ID
func (m *DayMenu) Item(id string) (MenuItem, bool) {
	for _, c := range m.Categories {
		for _, it := range c.Items {
			if it.ID == id {
				return it, true
			}
		}
	}
	return MenuItem{}, false
}

// Items returns every item in category order
func (m *DayMenu) Items() []MenuItem {
	var items []MenuItem
	for _, c := range m.Categories {
		items = append(items, c.Items...)
	}
	return items
}

// MenuProvider looks up the menu for a service day. Absent means nothing is
// served that day.
type MenuProvider interface {
	MenuFor(day availability.ServiceDay) (*DayMenu, bool)
}

// FindItem resolves an item on the menu for day
func FindItem(p MenuProvider, day availability.ServiceDay, itemID string) (MenuItem, error) {
	menu, ok := p.MenuFor(day)
	if !ok {
		return MenuItem{}, ErrItemNotFound
	}
	item, ok := menu.Item(itemID)
	if !ok {
		return MenuItem{}, ErrItemNotFound
	}
	return item, nil
}
