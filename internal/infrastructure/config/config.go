package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/cart"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Service     ServiceConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Session     SessionConfig
	WooCommerce WooCommerceConfig
	Sync        SyncConfig
	Stripe      StripeConfig
	Checkout    CheckoutConfig
	Telemetry   TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether the app runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// ServiceConfig describes the kitchen's operating calendar
type ServiceConfig struct {
	Timezone           string
	CutoffHour         int
	OpenWeekdays       []string
	HorizonDays        int
	NoticeTTL          time.Duration
	AllowPreviewOrders bool
	// SessionIdleTTL is how long an untouched cart session stays in memory
	SessionIdleTTL time.Duration
}

// Calendar builds a validated availability calendar configuration
func (s ServiceConfig) Calendar() (availability.CalendarConfig, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return availability.CalendarConfig{}, fmt.Errorf("service.timezone %q: %w", s.Timezone, err)
	}
	seen := make(map[time.Weekday]bool, len(s.OpenWeekdays))
	weekdays := make([]time.Weekday, 0, len(s.OpenWeekdays))
	for _, name := range s.OpenWeekdays {
		wd, err := availability.ParseWeekday(name)
		if err != nil {
			return availability.CalendarConfig{}, fmt.Errorf("service.open_weekdays: %w", err)
		}
		if seen[wd] {
			return availability.CalendarConfig{}, fmt.Errorf("service.open_weekdays: duplicate %s", wd)
		}
		seen[wd] = true
		weekdays = append(weekdays, wd)
	}
	cfg := availability.CalendarConfig{
		Location:     loc,
		CutoffHour:   s.CutoffHour,
		OpenWeekdays: weekdays,
	}
	if err := cfg.Validate(); err != nil {
		return availability.CalendarConfig{}, err
	}
	return cfg, nil
}

// Storage drivers
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// StorageConfig selects the durable store for session snapshots
type StorageConfig struct {
	Driver     string
	SQLitePath string
	KeyPrefix  string
	// Retention is how long an untouched snapshot is kept. Zero keeps
	// snapshots forever.
	Retention time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// SessionConfig holds the signed session cookie settings
type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Issuer     string
	Secure     bool
	Domain     string
	SameSite   string // strict, lax, none
}

// WooCommerceConfig holds the commerce backend endpoints and credentials
type WooCommerceConfig struct {
	StoreURL       string
	RESTURL        string
	ConsumerKey    string
	ConsumerSecret string
	CheckoutURL    string
	// NonceURL serves a fresh Store API nonce. Empty means the nonce is
	// taken from Store API responses only.
	NonceURL string
	Timeout  time.Duration
}

// Enabled reports whether a store endpoint is configured
func (w WooCommerceConfig) Enabled() bool {
	return w.StoreURL != ""
}

// SyncConfig tunes the remote cart synchronizer
type SyncConfig struct {
	RemoteTimeout time.Duration
}

// StripeConfig holds payment gateway settings
type StripeConfig struct {
	SecretKey string
	Currency  string
	TestMode  bool
}

// Enabled reports whether a secret key is configured
func (s StripeConfig) Enabled() bool {
	return s.SecretKey != ""
}

// CheckoutConfig holds pricing and order defaults
type CheckoutConfig struct {
	TaxRate           float64
	TipOptions        []float64
	DefaultTip        float64
	FreeCouponCode    string
	City              string
	State             string
	Country           string
	OrderSource       string
	MaxParallelOrders int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with KNWN_ prefix (e.g., KNWN_STRIPE_SECRET_KEY)
// 2. .env file in the working directory
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("KNWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Zero is a meaningful value for these keys, so they cannot be filled
	// by applyDefaults.
	v.SetDefault("service.cutoff_hour", availability.DefaultCutoffHour)
	v.SetDefault("checkout.tax_rate", 0.02)
	v.SetDefault("checkout.default_tip", 0.10)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Service: ServiceConfig{
			Timezone:           v.GetString("service.timezone"),
			CutoffHour:         v.GetInt("service.cutoff_hour"),
			OpenWeekdays:       v.GetStringSlice("service.open_weekdays"),
			HorizonDays:        v.GetInt("service.horizon_days"),
			NoticeTTL:          v.GetDuration("service.notice_ttl"),
			AllowPreviewOrders: v.GetBool("service.allow_preview_orders"),
			SessionIdleTTL:     v.GetDuration("service.session_idle_ttl"),
		},
		Storage: StorageConfig{
			Driver:     v.GetString("storage.driver"),
			SQLitePath: v.GetString("storage.sqlite_path"),
			KeyPrefix:  v.GetString("storage.key_prefix"),
			Retention:  v.GetDuration("storage.retention"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Session: SessionConfig{
			Secret:     v.GetString("session.secret"),
			CookieName: v.GetString("session.cookie_name"),
			TTL:        v.GetDuration("session.ttl"),
			Issuer:     v.GetString("session.issuer"),
			Secure:     v.GetBool("session.secure"),
			Domain:     v.GetString("session.domain"),
			SameSite:   v.GetString("session.same_site"),
		},
		WooCommerce: WooCommerceConfig{
			StoreURL:       v.GetString("woocommerce.store_url"),
			RESTURL:        v.GetString("woocommerce.rest_url"),
			ConsumerKey:    v.GetString("woocommerce.consumer_key"),
			ConsumerSecret: v.GetString("woocommerce.consumer_secret"),
			CheckoutURL:    v.GetString("woocommerce.checkout_url"),
			NonceURL:       v.GetString("woocommerce.nonce_url"),
			Timeout:        v.GetDuration("woocommerce.timeout"),
		},
		Sync: SyncConfig{
			RemoteTimeout: v.GetDuration("sync.remote_timeout"),
		},
		Stripe: StripeConfig{
			SecretKey: v.GetString("stripe.secret_key"),
			Currency:  v.GetString("stripe.currency"),
			TestMode:  v.GetBool("stripe.test_mode"),
		},
		Checkout: CheckoutConfig{
			TaxRate:           v.GetFloat64("checkout.tax_rate"),
			TipOptions:        float64Slice(v.GetStringSlice("checkout.tip_options")),
			DefaultTip:        v.GetFloat64("checkout.default_tip"),
			FreeCouponCode:    v.GetString("checkout.free_coupon_code"),
			City:              v.GetString("checkout.city"),
			State:             v.GetString("checkout.state"),
			Country:           v.GetString("checkout.country"),
			OrderSource:       v.GetString("checkout.order_source"),
			MaxParallelOrders: v.GetInt("checkout.max_parallel_orders"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func float64Slice(values []string) []float64 {
	var out []float64
	for _, s := range values {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			out = append(out, f)
		}
	}
	return out
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "knwn-storefront"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	// CORS origins stay empty: no cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Session-ID"}
	}
	if cfg.Service.Timezone == "" {
		cfg.Service.Timezone = availability.DefaultTimezone
	}
	if len(cfg.Service.OpenWeekdays) == 0 {
		cfg.Service.OpenWeekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
	}
	if cfg.Service.HorizonDays == 0 {
		cfg.Service.HorizonDays = availability.DefaultHorizonDays
	}
	if cfg.Service.NoticeTTL == 0 {
		cfg.Service.NoticeTTL = cart.DefaultNoticeTTL
	}
	if cfg.Service.SessionIdleTTL == 0 {
		cfg.Service.SessionIdleTTL = 30 * time.Minute
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageMemory
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "storefront.db"
	}
	if cfg.Storage.KeyPrefix == "" {
		cfg.Storage.KeyPrefix = "knwn:"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "storefront"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "knwn_session"
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 30 * 24 * time.Hour
	}
	if cfg.Session.Issuer == "" {
		cfg.Session.Issuer = cfg.App.Name
	}
	if cfg.Session.SameSite == "" {
		cfg.Session.SameSite = "lax"
	}
	if cfg.WooCommerce.Timeout == 0 {
		cfg.WooCommerce.Timeout = 10 * time.Second
	}
	if cfg.WooCommerce.RESTURL == "" && cfg.WooCommerce.StoreURL != "" {
		cfg.WooCommerce.RESTURL = strings.TrimRight(cfg.WooCommerce.StoreURL, "/") + "/wp-json"
	}
	if cfg.WooCommerce.CheckoutURL == "" && cfg.WooCommerce.StoreURL != "" {
		cfg.WooCommerce.CheckoutURL = strings.TrimRight(cfg.WooCommerce.StoreURL, "/") + "/checkout"
	}
	if cfg.Sync.RemoteTimeout == 0 {
		cfg.Sync.RemoteTimeout = 10 * time.Second
	}
	if cfg.Stripe.Currency == "" {
		cfg.Stripe.Currency = "usd"
	}
	if len(cfg.Checkout.TipOptions) == 0 {
		cfg.Checkout.TipOptions = []float64{0, 0.08, 0.10, 0.15}
	}
	if cfg.Checkout.FreeCouponCode == "" {
		cfg.Checkout.FreeCouponCode = "REALFOOD113"
	}
	if cfg.Checkout.City == "" {
		cfg.Checkout.City = "Miami"
	}
	if cfg.Checkout.State == "" {
		cfg.Checkout.State = "FL"
	}
	if cfg.Checkout.Country == "" {
		cfg.Checkout.Country = "US"
	}
	if cfg.Checkout.OrderSource == "" {
		cfg.Checkout.OrderSource = cfg.App.Name
	}
	if cfg.Checkout.MaxParallelOrders == 0 {
		cfg.Checkout.MaxParallelOrders = 4
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if _, err := c.Service.Calendar(); err != nil {
		return err
	}
	if err := availability.ValidateHorizon(c.Service.HorizonDays); err != nil {
		return fmt.Errorf("service.horizon_days: %w", err)
	}
	if c.Service.NoticeTTL < 0 {
		return fmt.Errorf("service.notice_ttl cannot be negative")
	}
	if c.Service.SessionIdleTTL < 0 {
		return fmt.Errorf("service.session_idle_ttl cannot be negative")
	}

	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite, StoragePostgres, StorageRedis:
	default:
		return fmt.Errorf("storage.driver must be one of memory, sqlite, postgres, redis; got %q", c.Storage.Driver)
	}
	if c.Storage.Retention < 0 {
		return fmt.Errorf("storage.retention cannot be negative")
	}

	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Checkout.TaxRate < 0 || c.Checkout.TaxRate >= 1 {
		return fmt.Errorf("checkout.tax_rate must be in [0, 1), got %f", c.Checkout.TaxRate)
	}
	for _, tip := range c.Checkout.TipOptions {
		if tip < 0 || tip >= 1 {
			return fmt.Errorf("checkout.tip_options must be in [0, 1), got %f", tip)
		}
	}
	if c.Checkout.MaxParallelOrders <= 0 {
		return fmt.Errorf("checkout.max_parallel_orders must be positive")
	}

	if c.Sync.RemoteTimeout <= 0 {
		return fmt.Errorf("sync.remote_timeout must be positive")
	}

	if c.WooCommerce.Enabled() {
		if _, err := url.ParseRequestURI(c.WooCommerce.StoreURL); err != nil {
			return fmt.Errorf("woocommerce.store_url: %w", err)
		}
	}

	switch c.Session.SameSite {
	case "strict", "lax", "none":
	default:
		return fmt.Errorf("session.same_site must be strict, lax or none; got %q", c.Session.SameSite)
	}

	if c.App.IsProduction() {
		if c.Session.Secret == "" {
			return fmt.Errorf("session.secret is required in production")
		}
		if len(c.Session.Secret) < 32 {
			return fmt.Errorf("session.secret must be at least 32 characters in production")
		}
		if !c.Session.Secure {
			return fmt.Errorf("session.secure must be true in production (HTTPS required for secure cookies)")
		}
		if c.Storage.Driver == StorageMemory {
			return fmt.Errorf("storage.driver=memory loses carts on restart and is not allowed in production")
		}
		if c.Storage.Driver == StoragePostgres && c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Session.SameSite == "none" && !c.Session.Secure {
		return fmt.Errorf("session.same_site=none requires session.secure=true")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
