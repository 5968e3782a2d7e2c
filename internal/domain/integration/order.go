package integration

import (
	"context"

	"github.com/knwn/storefront/internal/domain/cart"
)

// PaymentMethod identifies how an order was paid
type PaymentMethod string

const (
	// PaymentMethodFreeCoupon marks orders fully covered by a 100% coupon
	PaymentMethodFreeCoupon PaymentMethod = "free_coupon"
	// PaymentMethodStripe marks card orders paid through Stripe
	PaymentMethodStripe PaymentMethod = "stripe"
)

// Title returns the label shown on the order in the store admin
func (m PaymentMethod) Title() string {
	switch m {
	case PaymentMethodFreeCoupon:
		return "Free (100% Promo)"
	case PaymentMethodStripe:
		return "Credit Card (Stripe)"
	default:
		return string(m)
	}
}

// Address is a billing or shipping address
type Address struct {
	FirstName string
	LastName  string
	Address1  string
	City      string
	State     string
	Postcode  string
	Country   string
	Email     string
	Phone     string
}

// MetaData is a free-form key/value pair attached to an order
type MetaData struct {
	Key   string
	Value string
}

// OrderRequest describes a single-line order to submit
type OrderRequest struct {
	// Line is the cart line the order is for
	Line cart.Line
	// ProductID is the remote product for the line, 0 if unmapped
	ProductID       int64
	Billing         Address
	Shipping        Address
	PaymentMethod   PaymentMethod
	CouponCode      string
	CustomerNote    string
	PaymentIntentID string
	Meta            []MetaData
}

// PlacedOrder is the store's record of a created order
type PlacedOrder struct {
	ID       int64
	OrderKey string
	Status   string
}

// OrderGateway submits orders to the commerce backend
type OrderGateway interface {
	CreateOrder(ctx context.Context, req *OrderRequest) (*PlacedOrder, error)
}
