package subscription

import "errors"

var (
	// ErrAlreadySubscribed rejects checkout creation while an active
	// subscription has no cancellation in flight.
	ErrAlreadySubscribed = errors.New("user already has an active subscription")

	// ErrNoSubscription rejects cancel/reactivate/portal actions for users
	// who never completed a checkout.
	ErrNoSubscription = errors.New("user has no provider subscription")

	// ErrPriceNotConfigured fails checkout creation closed when the
	// recurring price identifier is missing or a placeholder.
	ErrPriceNotConfigured = errors.New("subscription price is not configured")

	// ErrMissingEventID rejects webhook payloads without an event ID; the
	// ledger cannot guarantee idempotency for them.
	ErrMissingEventID = errors.New("webhook event has no event id")
)
