package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/knwn/storefront/internal/domain/integration"
	"github.com/knwn/storefront/internal/domain/shared/valueobject"
)

// CouponResult is a validated coupon
type CouponResult struct {
	Code          string                   `json:"code"`
	DiscountType  integration.DiscountType `json:"discount_type"`
	DiscountValue decimal.Decimal          `json:"discount_value"`
	IsFree        bool                     `json:"is_free"`
}

// Quote is the priced checkout summary
type Quote struct {
	Subtotal valueobject.Money `json:"subtotal"`
	Discount valueobject.Money `json:"discount"`
	Tax      valueobject.Money `json:"tax"`
	TipRate  decimal.Decimal   `json:"tip_rate"`
	Tip      valueobject.Money `json:"tip"`
	Total    valueobject.Money `json:"total"`
	IsFree   bool              `json:"is_free"`
	// AmountCents is what a payment intent must be created for
	AmountCents int64 `json:"amount_cents"`
}

// PaymentIntentResult is returned to the browser to confirm a card payment
type PaymentIntentResult struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	AmountCents  int64  `json:"amount_cents"`
}

// CustomerInfo is the checkout form
type CustomerInfo struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Street string `json:"street"`
	City   string `json:"city"`
	Zip    string `json:"zip"`
	Notes  string `json:"notes"`
}

// CompleteOrderRequest finalizes a session's cart
type CompleteOrderRequest struct {
	SessionID string
	Customer  CustomerInfo
	// TipRate must match the one quoted for the payment intent; nil means
	// the default tip
	TipRate         *decimal.Decimal
	CouponCode      string
	PaymentIntentID string
}

// OrderResult is the outcome for one cart line
type OrderResult struct {
	ItemID         string `json:"item_id"`
	ItemName       string `json:"item_name"`
	OrderID        string `json:"order_id"`
	RemoteOrderID  int64  `json:"remote_order_id,omitempty"`
	RemoteOrderKey string `json:"remote_order_key,omitempty"`
}

// CompleteOrderResult lists one order per cart line
type CompleteOrderResult struct {
	Orders      []OrderResult `json:"orders"`
	ServiceDate string        `json:"service_date"`
	Free        bool          `json:"free"`
}
