package cart

import (
	"fmt"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/shared"
)

// PastDateMessage is the customer-facing text for a rejected past-date add
const PastDateMessage = "Selection is not available for past dates."

// Cart errors
var (
	ErrPastDate             = shared.NewDomainError("PAST_DATE", PastDateMessage)
	ErrInvalidCustomization = shared.NewDomainError("INVALID_CUSTOMIZATION", "Customization is not offered for this item")
	ErrInvalidItem          = shared.NewDomainError("INVALID_ITEM", "Menu item is incomplete")
	ErrLineNotFound         = shared.NewDomainError("LINE_NOT_FOUND", "Cart line not found")
)

// PastDateError rejects an add for a date strictly before today in the
// service timezone.
type PastDateError struct {
	Day   availability.ServiceDay
	Today availability.ServiceDay
}

func (e *PastDateError) Error() string {
	return fmt.Sprintf("%s (requested %s, today is %s)", PastDateMessage, e.Day, e.Today)
}

// Unwrap exposes the PAST_DATE domain error
func (e *PastDateError) Unwrap() error {
	return ErrPastDate
}

func invalidCustomization(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidCustomization, fmt.Sprintf(format, args...))
}
