package dto

import "net/http"

// Transport error codes. Domain errors keep the code they were raised with.
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeInvalidDate     = "INVALID_DATE"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
	ErrCodeItemNotFound    = "ITEM_NOT_FOUND"
	ErrCodeNoMenu          = "NO_MENU"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeUnavailable     = "UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	// Malformed or invalid input -> 400 Bad Request
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodeInvalidDate:      http.StatusBadRequest,
	"INVALID_INPUT":         http.StatusBadRequest,
	"INVALID_SESSION":       http.StatusBadRequest,
	"INVALID_CUSTOMIZATION": http.StatusBadRequest,
	"INVALID_ITEM":          http.StatusBadRequest,
	"INVALID_EMAIL":         http.StatusBadRequest,
	"INVALID_PHONE":         http.StatusBadRequest,
	"INVALID_ZIP":           http.StatusBadRequest,
	"INVALID_TIP":           http.StatusBadRequest,
	"INVALID_AMOUNT":        http.StatusBadRequest,
	"COUPON_REQUIRED":       http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,

	// Payment problems -> 402 Payment Required
	"PAYMENT_REQUIRED":      http.StatusPaymentRequired,
	"PAYMENT_NOT_CONFIRMED": http.StatusPaymentRequired,
	"PAYMENT_FAILED":        http.StatusPaymentRequired,

	// Missing resources -> 404 Not Found
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeRouteNotFound: http.StatusNotFound,
	ErrCodeItemNotFound:  http.StatusNotFound,
	ErrCodeNoMenu:        http.StatusNotFound,
	"LINE_NOT_FOUND":     http.StatusNotFound,
	"PROFILE_NOT_FOUND":  http.StatusNotFound,
	"COUPON_NOT_FOUND":   http.StatusNotFound,

	// Conflicts with work already done or in flight -> 409 Conflict
	"ORDER_ALREADY_PLACED": http.StatusConflict,
	"PAYMENT_MISMATCH":     http.StatusConflict,
	"RESYNC_IN_PROGRESS":   http.StatusConflict,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Business rule violations -> 422 Unprocessable Entity
	"PAST_DATE":          http.StatusUnprocessableEntity,
	"DATE_NOT_ORDERABLE": http.StatusUnprocessableEntity,
	"EMPTY_CART":         http.StatusUnprocessableEntity,
	"COUPON_EXPIRED":     http.StatusUnprocessableEntity,
	"COUPON_EXHAUSTED":   http.StatusUnprocessableEntity,
	"INVALID_STATE":      http.StatusUnprocessableEntity,

	ErrCodeRateLimited: http.StatusTooManyRequests,

	// The commerce backend could not be reached
	"RESYNC_FAILED":       http.StatusBadGateway,
	ErrCodeUnavailable:    http.StatusServiceUnavailable,
	"COUPON_UNAVAILABLE":  http.StatusServiceUnavailable,
	"PAYMENT_UNAVAILABLE": http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
