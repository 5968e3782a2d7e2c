// Package profile holds the customer registration record kept per session.
package profile

import (
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/knwn/storefront/internal/domain/shared"
)

// Profile errors
var (
	ErrInvalidEmail = shared.NewDomainError("INVALID_EMAIL", "A valid email address is required")
	ErrInvalidPhone = shared.NewDomainError("INVALID_PHONE", "A valid phone number is required")
	ErrInvalidZip   = shared.NewDomainError("INVALID_ZIP", "A valid ZIP code is required")
	ErrNotFound     = shared.NewDomainError("PROFILE_NOT_FOUND", "No profile registered for this session")
)

var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// Profile is the customer's contact details
type Profile struct {
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Zip          string    `json:"zip"`
	RegisteredAt time.Time `json:"registered_at"`
}

// New validates and normalizes a registration
func New(email, phone, zip string, at time.Time) (*Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, ErrInvalidEmail
	}

	phone = normalizePhone(phone)
	if len(phone) < 10 || len(phone) > 15 {
		return nil, ErrInvalidPhone
	}

	zip = strings.TrimSpace(zip)
	if !zipPattern.MatchString(zip) {
		return nil, ErrInvalidZip
	}

	return &Profile{Email: email, Phone: phone, Zip: zip, RegisteredAt: at}, nil
}

// normalizePhone keeps digits and a leading plus
func normalizePhone(s string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
