// Package router assembles the storefront gin engine: middleware chain,
// route groups and the 404 fallback.
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/knwn/storefront/internal/infrastructure/auth"
	"github.com/knwn/storefront/internal/infrastructure/logger"
	"github.com/knwn/storefront/internal/interfaces/http/dto"
	"github.com/knwn/storefront/internal/interfaces/http/handler"
	"github.com/knwn/storefront/internal/interfaces/http/middleware"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Config holds the HTTP surface settings
type Config struct {
	ServiceName    string
	APIVersion     string
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	MaxBodySize    int64
	TrustedProxies []string
	SessionCookie  middleware.SessionCookieConfig
	// CouponAttempts per CouponWindow bounds coupon guessing per session
	CouponAttempts int
	CouponWindow   time.Duration
}

// Handlers are the endpoint implementations
type Handlers struct {
	Availability *handler.AvailabilityHandler
	Menu         *handler.MenuHandler
	Cart         *handler.CartHandler
	Checkout     *handler.CheckoutHandler
	Profile      *handler.ProfileHandler
	Health       *handler.HealthHandler
}

// Router owns the gin engine and the middleware state that must be
// released on shutdown
type Router struct {
	engine        *gin.Engine
	couponLimiter *middleware.RateLimiter
}

// New builds the engine. Every API route runs with a request id, a session
// and a bounded body; /health skips the session so probes do not mint
// cookies.
func New(cfg Config, sessions *auth.SessionService, h Handlers, log *zap.Logger) (*Router, error) {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v1"
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = 1 << 20
	}
	if cfg.CouponAttempts <= 0 {
		cfg.CouponAttempts = 10
	}
	if cfg.CouponWindow <= 0 {
		cfg.CouponWindow = time.Minute
	}

	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}
	engine.HandleMethodNotAllowed = true
	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(cfg.ServiceName),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.SecureWithConfig(cfg.Security),
		middleware.CORSWithConfig(cfg.CORS),
	)
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeRouteNotFound, "Route not found", middleware.GetRequestID(c)))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeBadRequest, "Method not allowed", middleware.GetRequestID(c)))
	})

	engine.GET("/health", h.Health.Health)

	r := &Router{
		engine:        engine,
		couponLimiter: middleware.NewRateLimiter(cfg.CouponAttempts, cfg.CouponWindow),
	}

	api := engine.Group("/api/" + cfg.APIVersion)
	api.Use(
		middleware.BodyLimit(cfg.MaxBodySize),
		middleware.Session(sessions, cfg.SessionCookie, log),
		middleware.SpanAttributes(),
	)
	for _, registrar := range r.groups(h) {
		registrar.RegisterRoutes(api)
	}
	return r, nil
}

func (r *Router) groups(h Handlers) []RouteRegistrar {
	availability := NewDomainGroup("availability", "/availability").
		GET("", h.Availability.GetAvailability)

	menu := NewDomainGroup("menu", "/menu").
		GET("/:date", h.Menu.GetMenu)

	cart := NewDomainGroup("cart", "/cart").
		GET("", h.Cart.GetCart).
		DELETE("", h.Cart.ClearCart).
		POST("/items", h.Cart.AddItem).
		PATCH("/items", h.Cart.UpdateQuantity).
		DELETE("/items", h.Cart.RemoveItem).
		POST("/checkout", h.Cart.Checkout)

	checkout := NewDomainGroup("checkout", "/checkout").
		GET("/options", h.Checkout.GetOptions).
		POST("/coupon", middleware.RateLimit(r.couponLimiter, middleware.KeyBySession), h.Checkout.ValidateCoupon).
		POST("/quote", h.Checkout.Quote).
		POST("/payment-intent", h.Checkout.CreatePaymentIntent).
		POST("/complete", h.Checkout.CompleteOrder)

	profile := NewDomainGroup("profile", "/profile").
		GET("", h.Profile.GetProfile).
		PUT("", h.Profile.PutProfile).
		DELETE("", h.Profile.DeleteProfile)

	return []RouteRegistrar{availability, menu, cart, checkout, profile}
}

// Engine returns the gin engine to serve
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Close releases middleware background work
func (r *Router) Close() {
	r.couponLimiter.Close()
}
