// Package payment implements the card payment gateway on Stripe
// PaymentIntents.
package payment

import (
	"fmt"
	"strings"
)

// StripeConfig holds configuration for Stripe integration
type StripeConfig struct {
	// SecretKey is the Stripe secret API key (sk_test_xxx or sk_live_xxx)
	SecretKey string
	// Currency of every intent, lowercase ISO code
	Currency string
	// TestMode requires a test key
	TestMode bool
}

// Validate validates the Stripe configuration
func (c *StripeConfig) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("stripe: secret key is required")
	}

	if c.TestMode {
		if !strings.HasPrefix(c.SecretKey, "sk_test") && !strings.HasPrefix(c.SecretKey, "rk_test") {
			return fmt.Errorf("stripe: test mode enabled but secret key is not a test key")
		}
	} else if strings.HasPrefix(c.SecretKey, "sk_test") || strings.HasPrefix(c.SecretKey, "rk_test") {
		return fmt.Errorf("stripe: live mode enabled but secret key is a test key")
	}

	c.Currency = strings.ToLower(strings.TrimSpace(c.Currency))
	if c.Currency == "" {
		c.Currency = "usd"
	}
	return nil
}
