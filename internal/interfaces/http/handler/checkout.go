package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/knwn/storefront/internal/application/checkout"
	"github.com/knwn/storefront/internal/interfaces/http/dto"
	"github.com/knwn/storefront/internal/interfaces/http/middleware"
)

// CheckoutOptions are the pricing choices offered on the checkout page
type CheckoutOptions struct {
	TaxRate    decimal.Decimal   `json:"tax_rate"`
	TipOptions []decimal.Decimal `json:"tip_options"`
	DefaultTip decimal.Decimal   `json:"default_tip"`
}

// CheckoutHandler serves coupons, quotes, payments and order completion
type CheckoutHandler struct {
	BaseHandler
	checkout *checkout.Service
}

// NewCheckoutHandler creates a CheckoutHandler
func NewCheckoutHandler(svc *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{checkout: svc}
}

// GetOptions returns the tax rate and tip choices
// GET /api/v1/checkout/options
func (h *CheckoutHandler) GetOptions(c *gin.Context) {
	cfg := h.checkout.Config()
	h.Success(c, CheckoutOptions{
		TaxRate:    cfg.TaxRate,
		TipOptions: cfg.TipOptions,
		DefaultTip: cfg.DefaultTip,
	})
}

// ValidateCoupon checks a coupon code
// POST /api/v1/checkout/coupon
func (h *CheckoutHandler) ValidateCoupon(c *gin.Context) {
	var req dto.CouponRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.checkout.ValidateCoupon(c.Request.Context(), req.Code)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Quote prices the session cart with tip and coupon
// POST /api/v1/checkout/quote
func (h *CheckoutHandler) Quote(c *gin.Context) {
	var req dto.QuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}
	quote, err := h.checkout.QuoteSession(c.Request.Context(), middleware.GetSessionID(c), req.TipRate, req.CouponCode)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// CreatePaymentIntent starts a card payment for the quoted total. The
// amount is always priced server side from the session cart.
// POST /api/v1/checkout/payment-intent
func (h *CheckoutHandler) CreatePaymentIntent(c *gin.Context) {
	var req dto.PaymentIntentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	quote, err := h.checkout.QuoteSession(ctx, middleware.GetSessionID(c), req.TipRate, req.CouponCode)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	intent, err := h.checkout.CreatePaymentIntent(ctx, middleware.GetSessionID(c), quote.AmountCents, req.Email)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, intent)
}

// CompleteOrder places one order per cart line and clears the cart
// POST /api/v1/checkout/complete
func (h *CheckoutHandler) CompleteOrder(c *gin.Context) {
	var req dto.CompleteOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.checkout.CompleteOrder(c.Request.Context(), checkout.CompleteOrderRequest{
		SessionID:       middleware.GetSessionID(c),
		Customer:        req.Customer.ToCustomerInfo(),
		TipRate:         req.TipRate,
		CouponCode:      req.CouponCode,
		PaymentIntentID: req.PaymentIntentID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
