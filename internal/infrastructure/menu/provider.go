// Package menu serves the weekly menu embedded in the binary. Each weekday
// has its own categories; items carry the WooCommerce product they mirror.
package menu

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/cart"
	"github.com/knwn/storefront/internal/domain/catalog"
	"github.com/knwn/storefront/internal/domain/integration"
	"github.com/knwn/storefront/internal/domain/shared/valueobject"
)

//go:embed menus.json
var embeddedMenus []byte

// Errors for menu data
var (
	ErrDuplicateItem = errors.New("menu: duplicate item id")
	ErrInvalidPrice  = errors.New("menu: item price must be positive")
)

type menuFile struct {
	Currency string                  `json:"currency"`
	Weekdays map[string]weekdayEntry `json:"weekdays"`
}

type weekdayEntry struct {
	Categories []categoryEntry `json:"categories"`
}

type categoryEntry struct {
	Name  string      `json:"name"`
	Items []itemEntry `json:"items"`
}

type itemEntry struct {
	ID              string                        `json:"id"`
	Name            string                        `json:"name"`
	Description     string                        `json:"description"`
	Price           string                        `json:"price"`
	Image           string                        `json:"image"`
	Tags            []string                      `json:"tags"`
	Calories        int                           `json:"calories"`
	Popular         bool                          `json:"popular"`
	RemoteProductID int64                         `json:"remote_product_id"`
	Customization   *catalog.CustomizationOptions `json:"customization"`
}

// Provider implements catalog.MenuProvider over a fixed weekly table
type Provider struct {
	menus    map[time.Weekday]*catalog.DayMenu
	products map[string]int64
	caser    cases.Caser
}

var _ catalog.MenuProvider = (*Provider)(nil)

// Load parses the embedded weekly menu
func Load() (*Provider, error) {
	return Parse(embeddedMenus)
}

// Parse builds a Provider from menu JSON. Weekday keys accept full or
// three-letter names; an item id maps to one product across the week.
func Parse(data []byte) (*Provider, error) {
	var f menuFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("menu: invalid menu data: %w", err)
	}
	currency := valueobject.Currency(strings.ToUpper(f.Currency))
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	p := &Provider{
		menus:    make(map[time.Weekday]*catalog.DayMenu, len(f.Weekdays)),
		products: make(map[string]int64),
		caser:    cases.Title(language.English),
	}
	for key, entry := range f.Weekdays {
		wd, err := availability.ParseWeekday(key)
		if err != nil {
			return nil, fmt.Errorf("menu: %w", err)
		}
		if _, dup := p.menus[wd]; dup {
			return nil, fmt.Errorf("menu: weekday %s listed twice", wd)
		}
		menu, err := p.buildDay(wd, entry, currency)
		if err != nil {
			return nil, err
		}
		p.menus[wd] = menu
	}
	return p, nil
}

func (p *Provider) buildDay(wd time.Weekday, entry weekdayEntry, currency valueobject.Currency) (*catalog.DayMenu, error) {
	menu := &catalog.DayMenu{Weekday: strings.ToLower(wd.String())}
	seen := make(map[string]bool)

	for _, c := range entry.Categories {
		category := catalog.Category{Name: c.Name, Items: make([]catalog.MenuItem, 0, len(c.Items))}
		for _, it := range c.Items {
			if seen[it.ID] {
				return nil, fmt.Errorf("%w: %s on %s", ErrDuplicateItem, it.ID, wd)
			}
			seen[it.ID] = true

			item, err := toMenuItem(it, currency)
			if err != nil {
				return nil, fmt.Errorf("menu: item %s on %s: %w", it.ID, wd, err)
			}
			if prev, ok := p.products[it.ID]; ok && prev != it.RemoteProductID {
				return nil, fmt.Errorf("menu: item %s maps to products %d and %d", it.ID, prev, it.RemoteProductID)
			}
			p.products[it.ID] = it.RemoteProductID
			category.Items = append(category.Items, item)
		}
		menu.Categories = append(menu.Categories, category)
	}
	return menu, nil
}

func toMenuItem(it itemEntry, currency valueobject.Currency) (catalog.MenuItem, error) {
	if it.ID == "" || it.Name == "" {
		return catalog.MenuItem{}, errors.New("id and name are required")
	}
	price, err := valueobject.USDFromString(it.Price)
	if err != nil {
		return catalog.MenuItem{}, err
	}
	if !price.IsPositive() {
		return catalog.MenuItem{}, ErrInvalidPrice
	}
	if currency != valueobject.DefaultCurrency {
		if price, err = valueobject.NewMoney(price.Amount(), currency); err != nil {
			return catalog.MenuItem{}, err
		}
	}
	return catalog.MenuItem{
		ID:              it.ID,
		Name:            it.Name,
		Description:     it.Description,
		Price:           price,
		Image:           it.Image,
		Tags:            it.Tags,
		Calories:        it.Calories,
		Popular:         it.Popular,
		RemoteProductID: it.RemoteProductID,
		Options:         it.Customization,
	}, nil
}

// MenuFor implements catalog.MenuProvider. Days without a menu are absent.
func (p *Provider) MenuFor(day availability.ServiceDay) (*catalog.DayMenu, bool) {
	m, ok := p.menus[day.Weekday()]
	return m, ok
}

// FindItem resolves an item on the menu served on day
func (p *Provider) FindItem(day availability.ServiceDay, itemID string) (catalog.MenuItem, error) {
	return catalog.FindItem(p, day, itemID)
}

// Label returns the display name of a weekday key, "monday" → "Monday"
func (p *Provider) Label(weekdayKey string) string {
	return p.caser.String(weekdayKey)
}

// Mapper returns the product mapper derived from the menu. Items the menu
// does not know fall back to the product captured on the line.
func (p *Provider) Mapper() integration.ProductMapper {
	return integration.ProductMapperFunc(func(line cart.Line) (int64, bool) {
		if id, ok := p.products[line.ItemID]; ok {
			return id, id > 0
		}
		return integration.LineMapping.RemoteProductID(line)
	})
}
