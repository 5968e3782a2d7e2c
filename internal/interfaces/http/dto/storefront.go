package dto

import (
	"github.com/shopspring/decimal"

	"github.com/knwn/storefront/internal/application/checkout"
	"github.com/knwn/storefront/internal/domain/cart"
)

// LineRequest identifies a cart line: item, service day and customization
type LineRequest struct {
	ItemID         string             `json:"item_id" binding:"required,max=100"`
	Date           string             `json:"date" binding:"required"`
	Customizations cart.Customization `json:"customizations"`
}

// UpdateQuantityRequest changes a line's quantity by Delta
type UpdateQuantityRequest struct {
	LineRequest
	Delta int `json:"delta" binding:"required,min=-99,max=99"`
}

// CouponRequest validates a coupon code
type CouponRequest struct {
	Code string `json:"code" binding:"required,max=64"`
}

// QuoteRequest prices the session cart
type QuoteRequest struct {
	TipRate    *decimal.Decimal `json:"tip_rate"`
	CouponCode string           `json:"coupon_code" binding:"max=64"`
}

// PaymentIntentRequest starts a card payment for the quoted total
type PaymentIntentRequest struct {
	QuoteRequest
	Email string `json:"email" binding:"omitempty,email"`
}

// CustomerRequest is the checkout contact and delivery form
type CustomerRequest struct {
	Name   string `json:"name" binding:"required,max=200"`
	Email  string `json:"email" binding:"required,email"`
	Phone  string `json:"phone" binding:"required,max=32"`
	Street string `json:"street" binding:"required,max=200"`
	City   string `json:"city" binding:"required,max=100"`
	Zip    string `json:"zip" binding:"required,max=10"`
	Notes  string `json:"notes" binding:"max=1000"`
}

// ToCustomerInfo converts the form to the checkout model
func (r CustomerRequest) ToCustomerInfo() checkout.CustomerInfo {
	return checkout.CustomerInfo{
		Name:   r.Name,
		Email:  r.Email,
		Phone:  r.Phone,
		Street: r.Street,
		City:   r.City,
		Zip:    r.Zip,
		Notes:  r.Notes,
	}
}

// CompleteOrderRequest places the session's orders
type CompleteOrderRequest struct {
	Customer        CustomerRequest  `json:"customer"`
	TipRate         *decimal.Decimal `json:"tip_rate"`
	CouponCode      string           `json:"coupon_code" binding:"max=64"`
	PaymentIntentID string           `json:"payment_intent_id" binding:"max=255"`
}

// HealthResponse reports service liveness and storage reachability
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Uptime  string `json:"uptime"`
}
