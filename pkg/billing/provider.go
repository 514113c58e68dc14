package billing

import (
	"context"
	"time"
)

// Provider defines the minimal interface to the payment provider. The
// service only ever performs direct calls for checkout creation, cancel,
// reactivate and billing-portal links; everything else arrives through
// webhooks. Direct calls take a bounded-timeout context and are never
// retried automatically: a partially accepted state change must surface to
// the caller rather than be applied twice.
type Provider interface {
	// CreateCheckoutSession creates a hosted checkout for a monthly
	// recurring price.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// CancelAtPeriodEnd schedules the subscription to stop renewing at the
	// next billing boundary while keeping access until then.
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error

	// Reactivate clears a scheduled cancellation.
	Reactivate(ctx context.Context, subscriptionID string) error

	// CreatePortalSession returns a pre-authenticated customer portal link.
	CreatePortalSession(ctx context.Context, customerID string, subscriptionIDs []string) (*PortalLink, error)

	// ParseWebhook verifies the payload signature against the configured
	// secret and decodes it into a normalized Event. Signature failure
	// yields ErrSignatureVerification; nothing is processed in that case.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}

// CheckoutRequest contains the data needed to create a checkout session.
type CheckoutRequest struct {
	PriceID    string // provider's recurring price identifier
	UserID     string // internal user ID, echoed back in webhook custom data
	SuccessURL string // redirect after successful payment
	CancelURL  string // redirect if the customer abandons checkout
}

// CheckoutSession represents a hosted checkout created at the provider.
type CheckoutSession struct {
	URL       string
	SessionID string
	Amount    int64 // smallest currency unit
	Currency  string
	ExpiresAt time.Time
}

// PortalLink represents a customer portal session.
type PortalLink struct {
	URL       string    `json:"portal_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
