package woocommerce

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knwn/storefront/internal/domain/integration"
)

func TestConfig_Validate(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		cfg := Config{StoreURL: " https://shop.example.com/ "}
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "https://shop.example.com", cfg.StoreURL)
		assert.Equal(t, "https://shop.example.com/wp-json", cfg.RESTURL)
		assert.Equal(t, DefaultTimeout, cfg.Timeout)
	})

	t.Run("missing store URL", func(t *testing.T) {
		cfg := Config{}
		err := cfg.Validate()
		assert.ErrorIs(t, err, integration.ErrRemoteNotConfigured)
		assert.ErrorIs(t, err, ErrConfigMissingStoreURL)
	})

	t.Run("relative store URL", func(t *testing.T) {
		cfg := Config{StoreURL: "shop.example.com"}
		assert.Error(t, cfg.Validate())
	})
}

func TestConfig_Endpoints(t *testing.T) {
	cfg := Config{StoreURL: "https://shop.example.com", RESTURL: "https://api.example.com/wp-json/", ConsumerKey: "ck", ConsumerSecret: "cs"}
	require.NoError(t, cfg.ValidateREST())

	assert.Equal(t, "https://shop.example.com/wp-json/wc/store/v1/cart/add-item", cfg.storeEndpoint("/cart/add-item"))

	u, err := url.Parse(cfg.restEndpoint("coupons", url.Values{"code": {"A B"}}))
	require.NoError(t, err)
	assert.Equal(t, "/wp-json/wc/v3/coupons", u.Path)
	assert.Equal(t, "api.example.com", u.Host)
	assert.Equal(t, "A B", u.Query().Get("code"))
	assert.Equal(t, "ck", u.Query().Get("consumer_key"))
}
