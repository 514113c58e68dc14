package billing

import "time"

// EventType is the closed set of normalized billing events the
// reconciliation processor dispatches on. Provider implementations map
// their own event names onto these variants at the parse boundary so no
// raw-payload branching leaks into business logic.
type EventType string

const (
	// EventCheckoutCompleted is the first confirmation of a paid checkout
	// session.
	EventCheckoutCompleted EventType = "checkout_completed"
	// EventSubscriptionUpdated carries a refreshed subscription snapshot
	// (status, scheduled cancellation, billing period).
	EventSubscriptionUpdated EventType = "subscription_updated"
	// EventSubscriptionDeleted signals the subscription ended at the
	// provider.
	EventSubscriptionDeleted EventType = "subscription_deleted"
	// EventInvoicePaid confirms a successful renewal payment.
	EventInvoicePaid EventType = "invoice_paid"
	// EventPaymentFailed signals a failed renewal payment.
	EventPaymentFailed EventType = "payment_failed"
	// EventIgnored covers provider events this subsystem does not act on.
	EventIgnored EventType = "ignored"
)

// Event is a normalized, signature-verified provider event. Target users
// are resolved from the IDs carried here, never from caller-supplied
// identity.
type Event struct {
	ID            string    // provider event ID, the ledger idempotency key
	Type          EventType // normalized type
	ProviderEvent string    // original provider event name, kept for the ledger
	OccurredAt    time.Time

	SessionID      string // checkout/transaction ID, set for checkout events
	SubscriptionID string // provider subscription ID
	CustomerID     string // provider customer ID
	UserID         string // internal user ID echoed from checkout custom data

	Status            string // raw provider subscription status
	CancelAtPeriodEnd bool

	PeriodStartAt *time.Time
	PeriodEndAt   *time.Time
	NextBillingAt *time.Time

	Amount   int64
	Currency string
}
