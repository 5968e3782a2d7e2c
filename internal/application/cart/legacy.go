package cart

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/cart"
	"github.com/knwn/storefront/internal/domain/shared/valueobject"
)

// legacyMonthDayLayout follows the weekday in older carts' service dates,
// e.g. "Monday, Oct 19"
const legacyMonthDayLayout = "Jan 2"

type legacyCustomization struct {
	Base            string `json:"base"`
	Sauce           string `json:"sauce"`
	Protein         string `json:"protein"`
	IsVegetarian    bool   `json:"isVegetarian"`
	VegInstructions string `json:"vegInstructions"`
	Avoid           string `json:"avoid"`
	Swap            string `json:"swap"`
}

type legacyItem struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Price          decimal.Decimal      `json:"price"`
	Image          string               `json:"image"`
	Quantity       int                  `json:"quantity"`
	ServiceDate    string               `json:"serviceDate"`
	Customizations *legacyCustomization `json:"customizations"`
	WooProductID   int64                `json:"_wooProductId"`
	WooItemKey     string               `json:"_wooItemKey"`
}

// DecodeLegacyCart converts a cart stored under the legacy key into a
// snapshot. Legacy service dates carry no year; the year whose weekday
// matches and that lies closest to today is chosen. Unparseable items are
// dropped.
func DecodeLegacyCart(data []byte, today availability.ServiceDay) (cart.Snapshot, int, error) {
	var items []legacyItem
	if err := json.Unmarshal(data, &items); err != nil {
		return cart.Snapshot{}, 0, fmt.Errorf("decode legacy cart: %w", err)
	}

	snap := cart.Snapshot{Version: cart.SnapshotVersion}
	dropped := 0
	for _, it := range items {
		day, ok := inferLegacyDay(it.ServiceDate, today)
		if !ok || it.ID == "" || it.Quantity < 1 {
			dropped++
			continue
		}
		line := cart.Line{
			ItemID:          it.ID,
			Name:            it.Name,
			Price:           valueobject.USDFromDecimal(it.Price),
			Image:           it.Image,
			RemoteProductID: it.WooProductID,
			Day:             day,
			Quantity:        it.Quantity,
			RemoteKey:       it.WooItemKey,
		}
		if c := it.Customizations; c != nil {
			line.Customization = cart.Customization{
				Base:            c.Base,
				Sauce:           c.Sauce,
				Protein:         c.Protein,
				Vegetarian:      c.IsVegetarian,
				VegInstructions: c.VegInstructions,
				Avoid:           c.Avoid,
				Swap:            c.Swap,
			}.Normalize()
		}
		snap.Lines = append(snap.Lines, line)
	}
	return snap, dropped, nil
}

func inferLegacyDay(display string, today availability.ServiceDay) (availability.ServiceDay, bool) {
	name, monthDay, ok := strings.Cut(display, ",")
	if !ok {
		return availability.ServiceDay{}, false
	}
	weekday, err := availability.ParseWeekday(name)
	if err != nil {
		return availability.ServiceDay{}, false
	}
	t, err := time.Parse(legacyMonthDayLayout, strings.TrimSpace(monthDay))
	if err != nil {
		return availability.ServiceDay{}, false
	}

	var best availability.ServiceDay
	bestDistance := -1
	for _, year := range []int{today.Year() - 1, today.Year(), today.Year() + 1} {
		candidate := availability.NewServiceDay(year, t.Month(), t.Day())
		if candidate.Month() != t.Month() || candidate.Weekday() != weekday {
			continue
		}
		distance := daysBetween(today, candidate)
		if bestDistance < 0 || distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}
	return best, bestDistance >= 0
}

func daysBetween(a, b availability.ServiceDay) int {
	ta := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	tb := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	d := int(tb.Sub(ta).Hours() / 24)
	if d < 0 {
		return -d
	}
	return d
}
