package woocommerce

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/knwn/storefront/internal/domain/integration"
)

const (
	// StoreAPIPath is the Store API root below the site URL
	StoreAPIPath = "/wp-json/wc/store/v1"
	// RESTAPIPath is the REST API root below the REST URL
	RESTAPIPath = "/wc/v3"
	// DefaultTimeout bounds every call to the store
	DefaultTimeout = 10 * time.Second
)

// Errors for WooCommerce configuration
var (
	ErrConfigMissingStoreURL    = errors.New("woocommerce: store URL is required")
	ErrConfigMissingCredentials = errors.New("woocommerce: consumer key and secret are required")
)

// Config holds the endpoints and credentials of one WooCommerce site
type Config struct {
	// StoreURL is the site root, e.g. https://shop.example.com
	StoreURL string
	// RESTURL is the WordPress REST root, defaults to StoreURL/wp-json
	RESTURL        string
	ConsumerKey    string
	ConsumerSecret string
	// NonceURL optionally serves a fresh Store API nonce as {"nonce": "..."}
	NonceURL string
	Timeout  time.Duration
}

// Validate checks the Store API settings and fills defaults
func (c *Config) Validate() error {
	c.StoreURL = strings.TrimRight(strings.TrimSpace(c.StoreURL), "/")
	if c.StoreURL == "" {
		return fmt.Errorf("%w: %w", integration.ErrRemoteNotConfigured, ErrConfigMissingStoreURL)
	}
	if _, err := url.ParseRequestURI(c.StoreURL); err != nil {
		return fmt.Errorf("woocommerce: invalid store URL: %w", err)
	}
	if c.RESTURL == "" {
		c.RESTURL = c.StoreURL + "/wp-json"
	}
	c.RESTURL = strings.TrimRight(c.RESTURL, "/")
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}

// ValidateREST additionally requires REST API credentials
func (c *Config) ValidateREST() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.ConsumerKey == "" || c.ConsumerSecret == "" {
		return fmt.Errorf("%w: %w", integration.ErrRemoteNotConfigured, ErrConfigMissingCredentials)
	}
	return nil
}

func (c *Config) storeEndpoint(path string) string {
	return c.StoreURL + StoreAPIPath + "/" + strings.TrimLeft(path, "/")
}

func (c *Config) restEndpoint(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("consumer_key", c.ConsumerKey)
	query.Set("consumer_secret", c.ConsumerSecret)
	return c.RESTURL + RESTAPIPath + "/" + strings.TrimLeft(path, "/") + "?" + query.Encode()
}
