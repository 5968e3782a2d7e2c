package integration

import "errors"

var (
	// Remote platform errors
	ErrRemoteNotConfigured   = errors.New("integration: remote store not configured")
	ErrRemoteUnavailable     = errors.New("integration: remote store temporarily unavailable")
	ErrRemoteRequestFailed   = errors.New("integration: remote store request failed")
	ErrRemoteInvalidResponse = errors.New("integration: invalid remote store response")
	ErrRemoteAuthFailed      = errors.New("integration: remote store authentication failed")
	ErrRemoteRateLimited     = errors.New("integration: remote store rate limited")

	// Remote cart errors
	ErrRemoteLineNotFound = errors.New("integration: remote cart line not found")
	ErrMissingCorrelation = errors.New("integration: line has no remote correlation key")
	ErrInvalidProductID   = errors.New("integration: invalid remote product ID")
	ErrInvalidQuantity    = errors.New("integration: quantity must be positive")

	// Coupon errors
	ErrCouponNotFound  = errors.New("integration: coupon not found")
	ErrCouponExpired   = errors.New("integration: coupon has expired")
	ErrCouponExhausted = errors.New("integration: coupon has reached its usage limit")

	// Payment errors
	ErrPaymentInvalidAmount = errors.New("integration: payment amount must be greater than zero")
	ErrPaymentFailed        = errors.New("integration: payment request failed")
)

// IsTransient reports whether err is worth retrying later
func IsTransient(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable) || errors.Is(err, ErrRemoteRateLimited)
}
