package integration

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType is how a coupon's amount applies
type DiscountType string

const (
	// DiscountTypePercent takes a percentage off the subtotal
	DiscountTypePercent DiscountType = "percent"
	// DiscountTypeFixedCart takes a fixed amount off the subtotal
	DiscountTypeFixedCart DiscountType = "fixed_cart"
)

// IsValid returns true for supported discount types
func (t DiscountType) IsValid() bool {
	return t == DiscountTypePercent || t == DiscountTypeFixedCart
}

// Coupon is a coupon as defined in the commerce backend
type Coupon struct {
	Code         string
	DiscountType DiscountType
	Amount       decimal.Decimal
	ExpiresAt    *time.Time
	UsageCount   int
	// UsageLimit of 0 means unlimited
	UsageLimit int
}

// IsExpired reports whether the coupon expired before now
func (c *Coupon) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// IsExhausted reports whether the usage limit has been reached
func (c *Coupon) IsExhausted() bool {
	return c.UsageLimit > 0 && c.UsageCount >= c.UsageLimit
}

// Check returns the reason the coupon cannot be used at now, if any
func (c *Coupon) Check(now time.Time) error {
	if c.IsExpired(now) {
		return ErrCouponExpired
	}
	if c.IsExhausted() {
		return ErrCouponExhausted
	}
	return nil
}

// CouponLookup finds coupons by code. Missing coupons yield ErrCouponNotFound.
type CouponLookup interface {
	FindCoupon(ctx context.Context, code string) (*Coupon, error)
}
