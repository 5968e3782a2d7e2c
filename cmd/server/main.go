package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appcart "github.com/knwn/storefront/internal/application/cart"
	"github.com/knwn/storefront/internal/application/checkout"
	"github.com/knwn/storefront/internal/application/profile"
	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/integration"
	"github.com/knwn/storefront/internal/infrastructure/auth"
	"github.com/knwn/storefront/internal/infrastructure/config"
	"github.com/knwn/storefront/internal/infrastructure/logger"
	"github.com/knwn/storefront/internal/infrastructure/menu"
	"github.com/knwn/storefront/internal/infrastructure/payment"
	"github.com/knwn/storefront/internal/infrastructure/storage"
	"github.com/knwn/storefront/internal/infrastructure/telemetry"
	"github.com/knwn/storefront/internal/infrastructure/woocommerce"
	"github.com/knwn/storefront/internal/interfaces/http/handler"
	"github.com/knwn/storefront/internal/interfaces/http/middleware"
	"github.com/knwn/storefront/internal/interfaces/http/router"
)

const serviceVersion = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storefront",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    serviceVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}

	stores, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open storage", zap.Error(err))
	}
	go stores.RunJanitor(ctx, storage.DefaultJanitorInterval)

	calendarCfg, err := cfg.Service.Calendar()
	if err != nil {
		log.Fatal("Invalid service calendar", zap.Error(err))
	}
	calendar := availability.MustNewCalendar(calendarCfg)
	clock := availability.SystemClock{}

	menus, err := menu.Load()
	if err != nil {
		log.Fatal("Failed to load menu", zap.Error(err))
	}

	wooCfg := woocommerce.Config{
		StoreURL:       cfg.WooCommerce.StoreURL,
		RESTURL:        cfg.WooCommerce.RESTURL,
		ConsumerKey:    cfg.WooCommerce.ConsumerKey,
		ConsumerSecret: cfg.WooCommerce.ConsumerSecret,
		NonceURL:       cfg.WooCommerce.NonceURL,
		Timeout:        cfg.WooCommerce.Timeout,
	}

	var remotes integration.RemoteCartFactory
	var coupons integration.CouponLookup
	var orders integration.OrderGateway
	if cfg.WooCommerce.Enabled() {
		cartClient, err := woocommerce.NewCartClient(wooCfg, woocommerce.NewTokenStore(stores.Snapshots),
			woocommerce.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create store cart client", zap.Error(err))
		}
		remotes = cartClient

		rest, err := woocommerce.NewRESTClient(wooCfg, woocommerce.WithLogger(log))
		if err != nil {
			log.Warn("Store REST API disabled, orders get local references", zap.Error(err))
		} else {
			coupons, orders = rest, rest
		}
	} else {
		log.Warn("Store URL not configured, carts stay local")
	}

	var payments integration.PaymentGateway
	if cfg.Stripe.Enabled() {
		gateway, err := payment.NewStripeGateway(payment.StripeConfig{
			SecretKey: cfg.Stripe.SecretKey,
			Currency:  cfg.Stripe.Currency,
			TestMode:  cfg.Stripe.TestMode,
		}, log)
		if err != nil {
			log.Fatal("Failed to create payment gateway", zap.Error(err))
		}
		payments = gateway
	} else {
		log.Warn("Stripe not configured, only free checkouts can complete")
	}

	carts := appcart.NewService(calendar, clock, menus, stores.Snapshots, remotes, menus.Mapper(),
		appcart.ServiceConfig{
			NoticeTTL:          cfg.Service.NoticeTTL,
			RemoteTimeout:      cfg.Sync.RemoteTimeout,
			AllowPreviewOrders: cfg.Service.AllowPreviewOrders,
			CheckoutURL:        cfg.WooCommerce.CheckoutURL,
			IdleTTL:            cfg.Service.SessionIdleTTL,
		}, log)
	go carts.RunEvictor(ctx, time.Minute)

	checkoutSvc := checkout.NewService(carts, coupons, payments, orders, calendar, clock,
		checkoutConfig(cfg.Checkout), log).WithIdempotency(stores.Claims)

	profiles := profile.NewService(stores.Snapshots, clock, log)

	sessionCfg := cfg.Session
	if sessionCfg.Secret == "" {
		sessionCfg.Secret = randomSecret()
		log.Warn("session.secret not set, sessions will not survive a restart")
	}
	sessions, err := auth.NewSessionService(sessionCfg)
	if err != nil {
		log.Fatal("Failed to create session service", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	securityCfg := middleware.DefaultSecurityConfig()
	securityCfg.HSTSEnabled = cfg.App.IsProduction()

	r, err := router.New(router.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		CORS:           corsCfg,
		Security:       securityCfg,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		SessionCookie: middleware.SessionCookieConfig{
			Name:     cfg.Session.CookieName,
			Domain:   cfg.Session.Domain,
			Secure:   cfg.Session.Secure,
			SameSite: cfg.Session.SameSite,
		},
	}, sessions, router.Handlers{
		Availability: handler.NewAvailabilityHandler(calendar, clock, cfg.Service.HorizonDays, cfg.Service.AllowPreviewOrders),
		Menu:         handler.NewMenuHandler(menus, calendar, clock, cfg.Service.AllowPreviewOrders),
		Cart:         handler.NewCartHandler(carts),
		Checkout:     handler.NewCheckoutHandler(checkoutSvc),
		Profile:      handler.NewProfileHandler(profiles),
		Health:       handler.NewHealthHandler(stores),
	}, log)
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        r.Engine(),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// pending remote mirroring must finish before the snapshot store closes
	if err := carts.Drain(shutdownCtx); err != nil {
		log.Warn("Remote cart sync did not drain", zap.Error(err))
	}
	r.Close()
	if err := stores.Close(); err != nil {
		log.Error("Error closing storage", zap.Error(err))
	}
	if err := tracer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func checkoutConfig(c config.CheckoutConfig) checkout.Config {
	tips := make([]decimal.Decimal, 0, len(c.TipOptions))
	for _, t := range c.TipOptions {
		tips = append(tips, decimal.NewFromFloat(t))
	}
	return checkout.Config{
		TaxRate:           decimal.NewFromFloat(c.TaxRate),
		TipOptions:        tips,
		DefaultTip:        decimal.NewFromFloat(c.DefaultTip),
		FreeCouponCode:    c.FreeCouponCode,
		City:              c.City,
		State:             c.State,
		Country:           c.Country,
		OrderSource:       c.OrderSource,
		MaxParallelOrders: c.MaxParallelOrders,
		ClaimTTL:          24 * time.Hour,
	}
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	return hex.EncodeToString(b)
}
