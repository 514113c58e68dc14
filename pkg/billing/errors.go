package billing

import "errors"

var (
	// ErrNotConfigured indicates missing or placeholder provider
	// credentials. Checkout creation fails closed on it rather than
	// silently degrading.
	ErrNotConfigured = errors.New("billing provider is not configured")

	ErrMissingAPIKey        = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret = errors.New("billing provider webhook secret is required")
	ErrInvalidEnvironment   = errors.New("invalid billing provider environment")

	// ErrSignatureVerification indicates the webhook payload failed the
	// authenticity check. The payload must never be processed.
	ErrSignatureVerification = errors.New("webhook signature verification failed")

	// ErrProvider wraps network or API failures from direct provider calls.
	// Surfaced to the caller, never retried automatically.
	ErrProvider = errors.New("billing provider request failed")

	ErrNoCheckoutURL = errors.New("no checkout URL returned from provider")
	ErrNoPortalURL   = errors.New("no portal URL returned from provider")
)
