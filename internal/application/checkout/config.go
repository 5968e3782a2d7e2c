package checkout

import (
	"time"

	"github.com/shopspring/decimal"
)

// Defaults mirrored from the storefront
const (
	DefaultFreeCouponCode = "REALFOOD113"
	DefaultCity           = "Miami"
	DefaultState          = "FL"
	DefaultCountry        = "US"
	DefaultOrderSource    = "knwn-storefront"
)

// Config holds pricing and order defaults
type Config struct {
	TaxRate        decimal.Decimal
	TipOptions     []decimal.Decimal
	DefaultTip     decimal.Decimal
	FreeCouponCode string
	City           string
	State          string
	Country        string
	OrderSource    string
	// MaxParallelOrders bounds concurrent order submissions
	MaxParallelOrders int
	// ClaimTTL is how long a payment intent stays claimed after checkout
	ClaimTTL time.Duration
}

// DefaultConfig returns 2% tax and 0/8/10/15% tips with 10% preselected
func DefaultConfig() Config {
	return Config{
		TaxRate: decimal.NewFromFloat(0.02),
		TipOptions: []decimal.Decimal{
			decimal.Zero,
			decimal.NewFromFloat(0.08),
			decimal.NewFromFloat(0.10),
			decimal.NewFromFloat(0.15),
		},
		DefaultTip:        decimal.NewFromFloat(0.10),
		FreeCouponCode:    DefaultFreeCouponCode,
		City:              DefaultCity,
		State:             DefaultState,
		Country:           DefaultCountry,
		OrderSource:       DefaultOrderSource,
		MaxParallelOrders: 4,
		ClaimTTL:          24 * time.Hour,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if len(c.TipOptions) == 0 {
		c.TipOptions = d.TipOptions
		c.DefaultTip = d.DefaultTip
	}
	if c.City == "" {
		c.City = d.City
	}
	if c.State == "" {
		c.State = d.State
	}
	if c.Country == "" {
		c.Country = d.Country
	}
	if c.OrderSource == "" {
		c.OrderSource = d.OrderSource
	}
	if c.MaxParallelOrders <= 0 {
		c.MaxParallelOrders = d.MaxParallelOrders
	}
	if c.ClaimTTL <= 0 {
		c.ClaimTTL = d.ClaimTTL
	}
	return c
}

// IsTipOption reports whether rate is one of the offered tips
func (c Config) IsTipOption(rate decimal.Decimal) bool {
	for _, t := range c.TipOptions {
		if t.Equal(rate) {
			return true
		}
	}
	return false
}
