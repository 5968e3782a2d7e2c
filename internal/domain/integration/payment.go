package integration

import "context"

// PaymentIntentStatus mirrors the Stripe PaymentIntent lifecycle
type PaymentIntentStatus string

const (
	PaymentIntentStatusRequiresPaymentMethod PaymentIntentStatus = "requires_payment_method"
	PaymentIntentStatusRequiresConfirmation  PaymentIntentStatus = "requires_confirmation"
	PaymentIntentStatusRequiresAction        PaymentIntentStatus = "requires_action"
	PaymentIntentStatusProcessing            PaymentIntentStatus = "processing"
	PaymentIntentStatusCanceled              PaymentIntentStatus = "canceled"
	PaymentIntentStatusSucceeded             PaymentIntentStatus = "succeeded"
)

// PaymentIntentRequest asks for a new card payment
type PaymentIntentRequest struct {
	// AmountCents in the smallest currency unit, must be > 0
	AmountCents  int64
	ReceiptEmail string
	Metadata     map[string]string
}

// PaymentIntent is the gateway's view of a payment
type PaymentIntent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
	Status       PaymentIntentStatus
	Metadata     map[string]string
}

// Succeeded reports whether the funds were captured
func (p *PaymentIntent) Succeeded() bool {
	return p.Status == PaymentIntentStatusSucceeded
}

// PaymentGateway creates and inspects card payments
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, req *PaymentIntentRequest) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, id string) (*PaymentIntent, error)
}
