package payment

import (
	"context"
	"fmt"
	"maps"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/knwn/storefront/internal/domain/integration"
	"github.com/knwn/storefront/internal/infrastructure/telemetry"
)

// StripeGateway implements integration.PaymentGateway with PaymentIntents
type StripeGateway struct {
	api      *client.API
	currency string
	logger   *zap.Logger
}

var _ integration.PaymentGateway = (*StripeGateway)(nil)

// Option configures a StripeGateway
type Option func(*gatewayOptions)

type gatewayOptions struct {
	backends *stripe.Backends
}

// WithBackends replaces the Stripe HTTP backends
func WithBackends(b *stripe.Backends) Option {
	return func(o *gatewayOptions) { o.backends = b }
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(config StripeConfig, logger *zap.Logger, opts ...Option) (*StripeGateway, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var o gatewayOptions
	for _, opt := range opts {
		opt(&o)
	}

	return &StripeGateway{
		api:      client.New(config.SecretKey, o.backends),
		currency: config.Currency,
		logger:   logger.Named("stripe"),
	}, nil
}

// CreatePaymentIntent implements integration.PaymentGateway. Automatic
// payment methods are enabled so the client confirms with whatever the
// account allows.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, req *integration.PaymentIntentRequest) (intent *integration.PaymentIntent, err error) {
	if req.AmountCents <= 0 {
		return nil, integration.ErrPaymentInvalidAmount
	}

	ctx, span := telemetry.StartSpan(ctx, "stripe", "create_payment_intent",
		attribute.Int64("payment.amount_cents", req.AmountCents))
	defer func() { telemetry.Finish(span, err) }()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountCents),
		Currency: stripe.String(g.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.ReceiptEmail != "" {
		params.ReceiptEmail = stripe.String(req.ReceiptEmail)
	}
	if len(req.Metadata) > 0 {
		params.Metadata = maps.Clone(req.Metadata)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		g.logger.Error("Failed to create payment intent",
			zap.Int64("amount_cents", req.AmountCents),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", integration.ErrPaymentFailed, err)
	}

	g.logger.Info("Created payment intent",
		zap.String("payment_intent", pi.ID),
		zap.Int64("amount_cents", pi.Amount))
	return toPaymentIntent(pi), nil
}

// GetPaymentIntent implements integration.PaymentGateway
func (g *StripeGateway) GetPaymentIntent(ctx context.Context, id string) (intent *integration.PaymentIntent, err error) {
	ctx, span := telemetry.StartSpan(ctx, "stripe", "get_payment_intent",
		attribute.String("payment.intent_id", id))
	defer func() { telemetry.Finish(span, err) }()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.Get(id, params)
	if err != nil {
		g.logger.Warn("Failed to get payment intent",
			zap.String("payment_intent", id),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", integration.ErrPaymentFailed, err)
	}
	return toPaymentIntent(pi), nil
}

func toPaymentIntent(pi *stripe.PaymentIntent) *integration.PaymentIntent {
	return &integration.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       integration.PaymentIntentStatus(pi.Status),
		Metadata:     pi.Metadata,
	}
}
