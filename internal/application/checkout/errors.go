package checkout

import "github.com/knwn/storefront/internal/domain/shared"

// Checkout errors
var (
	ErrEmptyCart           = shared.NewDomainError("EMPTY_CART", "No items in order")
	ErrCouponRequired      = shared.NewDomainError("COUPON_REQUIRED", "Coupon code is required")
	ErrCouponNotFound      = shared.NewDomainError("COUPON_NOT_FOUND", "Coupon not found")
	ErrCouponExpired       = shared.NewDomainError("COUPON_EXPIRED", "This coupon has expired")
	ErrCouponExhausted     = shared.NewDomainError("COUPON_EXHAUSTED", "This coupon has reached its usage limit")
	ErrCouponUnavailable   = shared.NewDomainError("COUPON_UNAVAILABLE", "Unable to validate coupon. Please try again.")
	ErrInvalidTip          = shared.NewDomainError("INVALID_TIP", "Tip option is not offered")
	ErrInvalidAmount       = shared.NewDomainError("INVALID_AMOUNT", "A valid amount greater than $0 is required")
	ErrPaymentRequired     = shared.NewDomainError("PAYMENT_REQUIRED", "Payment confirmation is required")
	ErrPaymentNotConfirmed = shared.NewDomainError("PAYMENT_NOT_CONFIRMED", "Payment not confirmed")
	ErrPaymentUnavailable  = shared.NewDomainError("PAYMENT_UNAVAILABLE", "Payment system not configured")
	ErrOrderAlreadyPlaced  = shared.NewDomainError("ORDER_ALREADY_PLACED", "Orders for this payment were already placed")
	ErrPaymentMismatch     = shared.NewDomainError("PAYMENT_MISMATCH", "Your cart changed after payment was started. Please review your order.")
)
