package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appcart "github.com/knwn/storefront/internal/application/cart"
	"github.com/knwn/storefront/internal/domain/availability"
	"github.com/knwn/storefront/internal/domain/cart"
	"github.com/knwn/storefront/internal/domain/integration"
	"github.com/knwn/storefront/internal/domain/shared"
	"github.com/knwn/storefront/internal/domain/shared/valueobject"
)

var hundred = decimal.NewFromInt(100)

// metaSessionID ties a payment intent to the session whose cart it pays for
const metaSessionID = "session_id"

// CartSessions resolves a session's cart
type CartSessions interface {
	Session(ctx context.Context, id string) (*appcart.Session, error)
}

// Service prices carts, validates coupons and turns carts into orders.
// Coupons, payments and orders are optional collaborators; without them the
// matching operations degrade the way the storefront always has: no coupon
// is found, paid checkout is unavailable, and orders get local references.
type Service struct {
	carts    CartSessions
	coupons  integration.CouponLookup
	payments integration.PaymentGateway
	orders   integration.OrderGateway
	claims   shared.IdempotencyStore
	calendar *availability.Calendar
	clock    availability.Clock
	config   Config
	logger   *zap.Logger
}

// NewService creates a checkout Service
func NewService(
	carts CartSessions,
	coupons integration.CouponLookup,
	payments integration.PaymentGateway,
	orders integration.OrderGateway,
	calendar *availability.Calendar,
	clock availability.Clock,
	config Config,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		carts:    carts,
		coupons:  coupons,
		payments: payments,
		orders:   orders,
		calendar: calendar,
		clock:    clock,
		config:   config.withDefaults(),
		logger:   logger,
	}
}

// WithIdempotency makes paid checkouts claim their payment intent so a
// resubmitted checkout cannot place the same orders twice
func (s *Service) WithIdempotency(store shared.IdempotencyStore) *Service {
	s.claims = store
	return s
}

// Config returns the effective configuration
func (s *Service) Config() Config {
	return s.config
}

// ValidateCoupon resolves a coupon code. The configured free code always
// validates at 100% off; other codes are checked against the store for
// expiry and usage limits.
func (s *Service) ValidateCoupon(ctx context.Context, code string) (*CouponResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrCouponRequired
	}

	if s.config.FreeCouponCode != "" && code == strings.ToUpper(s.config.FreeCouponCode) {
		return &CouponResult{
			Code:          code,
			DiscountType:  integration.DiscountTypePercent,
			DiscountValue: hundred,
			IsFree:        true,
		}, nil
	}

	if s.coupons == nil {
		return nil, ErrCouponNotFound
	}
	coupon, err := s.coupons.FindCoupon(ctx, code)
	if err != nil {
		if errors.Is(err, integration.ErrCouponNotFound) {
			return nil, ErrCouponNotFound
		}
		s.logger.Warn("coupon lookup failed", zap.String("code", code), zap.Error(err))
		return nil, ErrCouponUnavailable
	}

	switch err := coupon.Check(s.clock.Now()); {
	case errors.Is(err, integration.ErrCouponExpired):
		return nil, ErrCouponExpired
	case errors.Is(err, integration.ErrCouponExhausted):
		return nil, ErrCouponExhausted
	}

	discountType := coupon.DiscountType
	if !discountType.IsValid() {
		discountType = integration.DiscountTypeFixedCart
	}
	return &CouponResult{
		Code:          code,
		DiscountType:  discountType,
		DiscountValue: coupon.Amount,
		IsFree:        discountType == integration.DiscountTypePercent && coupon.Amount.GreaterThanOrEqual(hundred),
	}, nil
}

// Quote prices a subtotal. The discount comes off first; tax and tip are
// computed on the discounted subtotal. A free coupon zeroes everything.
func (s *Service) Quote(subtotal valueobject.Money, tipRate *decimal.Decimal, coupon *CouponResult) (*Quote, error) {
	rate := s.config.DefaultTip
	if tipRate != nil {
		rate = *tipRate
	}
	if !s.config.IsTipOption(rate) {
		return nil, ErrInvalidTip
	}

	zero := valueobject.Zero(valueobject.DefaultCurrency)
	q := &Quote{Subtotal: subtotal, Discount: zero, TipRate: rate}

	if coupon != nil {
		switch coupon.DiscountType {
		case integration.DiscountTypePercent:
			q.Discount = subtotal.CalculatePercentage(decimal.Min(coupon.DiscountValue, hundred)).Round(2)
		case integration.DiscountTypeFixedCart:
			q.Discount = valueobject.USDFromDecimal(coupon.DiscountValue)
		}
		if q.Discount.GreaterThan(subtotal) {
			q.Discount = subtotal
		}
		q.IsFree = coupon.IsFree
	}

	discounted, err := subtotal.Subtract(q.Discount)
	if err != nil {
		return nil, err
	}
	discounted = discounted.ClampZero()
	if q.IsFree || discounted.IsZero() {
		q.IsFree = true
		q.Tax, q.Tip, q.Total = zero, zero, zero
		return q, nil
	}

	q.Tax = discounted.Multiply(s.config.TaxRate).Round(2)
	q.Tip = discounted.Multiply(rate).Round(2)
	q.Total = discounted.MustAdd(q.Tax).MustAdd(q.Tip).Round(2)
	q.AmountCents = q.Total.Cents()
	return q, nil
}

// QuoteSession prices a session's cart
func (s *Service) QuoteSession(ctx context.Context, sessionID string, tipRate *decimal.Decimal, couponCode string) (*Quote, error) {
	sess, err := s.carts.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var coupon *CouponResult
	if strings.TrimSpace(couponCode) != "" {
		if coupon, err = s.ValidateCoupon(ctx, couponCode); err != nil {
			return nil, err
		}
	}
	return s.Quote(sess.View().Total, tipRate, coupon)
}

// CreatePaymentIntent starts a card payment of amountCents for a session's
// cart
func (s *Service) CreatePaymentIntent(ctx context.Context, sessionID string, amountCents int64, email string) (*PaymentIntentResult, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if s.payments == nil {
		return nil, ErrPaymentUnavailable
	}
	intent, err := s.payments.CreatePaymentIntent(ctx, &integration.PaymentIntentRequest{
		AmountCents:  amountCents,
		ReceiptEmail: strings.TrimSpace(email),
		Metadata:     map[string]string{"source": s.config.OrderSource, metaSessionID: sessionID},
	})
	if err != nil {
		if errors.Is(err, integration.ErrPaymentInvalidAmount) {
			return nil, ErrInvalidAmount
		}
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &PaymentIntentResult{ID: intent.ID, ClientSecret: intent.ClientSecret, AmountCents: intent.AmountCents}, nil
}

// CompleteOrder turns the session's cart into one order per line. Paid
// checkouts verify once, before any order is created, that the payment
// intent succeeded, belongs to the session and covers the cart as it is now.
// A line whose order cannot be created still gets a local reference. The
// cart is cleared afterwards.
func (s *Service) CompleteOrder(ctx context.Context, req CompleteOrderRequest) (*CompleteOrderResult, error) {
	sess, err := s.carts.Session(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	lines := sess.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	var coupon *CouponResult
	if strings.TrimSpace(req.CouponCode) != "" {
		if coupon, err = s.ValidateCoupon(ctx, req.CouponCode); err != nil {
			return nil, err
		}
	}
	free := coupon != nil && coupon.IsFree

	var amountCents int64
	if !free {
		quote, err := s.Quote(linesSubtotal(lines), req.TipRate, coupon)
		if err != nil {
			return nil, err
		}
		// a fixed discount covering the whole cart leaves nothing to charge
		free, amountCents = quote.IsFree, quote.AmountCents
	}
	if !free {
		if err := s.verifyPayment(ctx, req.PaymentIntentID, req.SessionID, amountCents); err != nil {
			return nil, err
		}
		if err := s.claimPayment(ctx, req.PaymentIntentID); err != nil {
			return nil, err
		}
	}

	active := s.calendar.ActiveOrder(s.clock.Now())
	method := integration.PaymentMethodStripe
	if free {
		method = integration.PaymentMethodFreeCoupon
	}
	template := s.orderTemplate(req, coupon, method, active)

	results := make([]OrderResult, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.MaxParallelOrders)
	for i, line := range lines {
		g.Go(func() error {
			results[i] = s.placeLine(gctx, template, line)
			return nil
		})
	}
	_ = g.Wait()

	if _, err := sess.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear cart after checkout", zap.String("session_id", req.SessionID), zap.Error(err))
	}

	s.logger.Info("checkout completed",
		zap.String("session_id", req.SessionID),
		zap.Int("orders", len(results)),
		zap.Bool("free", free),
	)
	return &CompleteOrderResult{Orders: results, ServiceDate: active.Display, Free: free}, nil
}

func (s *Service) verifyPayment(ctx context.Context, intentID, sessionID string, amountCents int64) error {
	if strings.TrimSpace(intentID) == "" {
		return ErrPaymentRequired
	}
	if s.payments == nil {
		return ErrPaymentUnavailable
	}
	intent, err := s.payments.GetPaymentIntent(ctx, intentID)
	if err != nil {
		s.logger.Warn("payment verification failed", zap.String("payment_intent", intentID), zap.Error(err))
		return ErrPaymentNotConfirmed
	}
	if !intent.Succeeded() {
		return fmt.Errorf("%w (status: %s)", ErrPaymentNotConfirmed, intent.Status)
	}
	if intent.Metadata[metaSessionID] != sessionID {
		s.logger.Warn("payment intent belongs to another session",
			zap.String("payment_intent", intentID), zap.String("session_id", sessionID))
		return ErrPaymentNotConfirmed
	}
	if intent.AmountCents != amountCents {
		s.logger.Warn("payment amount does not match cart",
			zap.String("payment_intent", intentID),
			zap.Int64("paid_cents", intent.AmountCents),
			zap.Int64("cart_cents", amountCents),
		)
		return ErrPaymentMismatch
	}
	return nil
}

func linesSubtotal(lines []cart.Line) valueobject.Money {
	total := valueobject.Zero(valueobject.DefaultCurrency)
	for _, l := range lines {
		total = total.MustAdd(l.Subtotal())
	}
	return total
}

// claimPayment fails with ErrOrderAlreadyPlaced when the intent was already
// turned into orders. An unreachable store does not block checkout.
func (s *Service) claimPayment(ctx context.Context, intentID string) error {
	if s.claims == nil {
		return nil
	}
	ok, err := s.claims.Claim(ctx, "checkout:"+intentID, s.config.ClaimTTL)
	if err != nil {
		s.logger.Warn("payment claim unavailable", zap.String("payment_intent", intentID), zap.Error(err))
		return nil
	}
	if !ok {
		s.logger.Warn("duplicate checkout rejected", zap.String("payment_intent", intentID))
		return ErrOrderAlreadyPlaced
	}
	return nil
}

func (s *Service) orderTemplate(req CompleteOrderRequest, coupon *CouponResult, method integration.PaymentMethod, active availability.ActiveOrder) integration.OrderRequest {
	first, last, _ := strings.Cut(strings.TrimSpace(req.Customer.Name), " ")
	city := req.Customer.City
	if city == "" {
		city = s.config.City
	}
	address := integration.Address{
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		Address1:  req.Customer.Street,
		City:      city,
		State:     s.config.State,
		Postcode:  req.Customer.Zip,
		Country:   s.config.Country,
	}
	billing := address
	billing.Email = req.Customer.Email
	billing.Phone = req.Customer.Phone

	intentRef := req.PaymentIntentID
	if method == integration.PaymentMethodFreeCoupon {
		intentRef = "N/A (free order)"
	}
	var couponCode string
	if coupon != nil {
		couponCode = coupon.Code
	}

	return integration.OrderRequest{
		Billing:         billing,
		Shipping:        address,
		PaymentMethod:   method,
		CouponCode:      couponCode,
		CustomerNote:    req.Customer.Notes,
		PaymentIntentID: req.PaymentIntentID,
		Meta: []integration.MetaData{
			{Key: "order_source", Value: s.config.OrderSource},
			{Key: "stripe_payment_intent", Value: intentRef},
			{Key: "active_service_day", Value: active.Display},
		},
	}
}

func (s *Service) placeLine(ctx context.Context, template integration.OrderRequest, line cart.Line) OrderResult {
	result := OrderResult{ItemID: line.ItemID, ItemName: line.Name}
	if s.orders != nil {
		req := template
		req.Line = line
		req.ProductID = line.RemoteProductID
		placed, err := s.orders.CreateOrder(ctx, &req)
		if err == nil {
			result.OrderID = fmt.Sprintf("WC-%d", placed.ID)
			result.RemoteOrderID = placed.ID
			result.RemoteOrderKey = placed.OrderKey
			return result
		}
		s.logger.Error("order creation failed",
			zap.String("item_id", line.ItemID),
			zap.String("line", line.Key().String()),
			zap.Error(err),
		)
	}
	result.OrderID = LocalOrderReference()
	return result
}

// LocalOrderReference returns a KNWN-XXXXXXX reference for orders the store
// did not accept
func LocalOrderReference() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "KNWN-" + id[:7]
}
