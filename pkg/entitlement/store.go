package entitlement

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists entitlement records.
//
// Update must be a single atomic conditional write keyed on the record's
// Version so a concurrent webhook-driven transition is never clobbered by
// a stale countdown sync or vice versa.
type Store interface {
	// Get retrieves a record by user ID. Returns ErrRecordNotFound if the
	// user has no record.
	Get(ctx context.Context, userID uuid.UUID) (*Record, error)

	// GetByProviderCustomer resolves a record via the provider customer ID.
	GetByProviderCustomer(ctx context.Context, customerID string) (*Record, error)

	// GetByProviderSubscription resolves a record via the provider
	// subscription ID.
	GetByProviderSubscription(ctx context.Context, subscriptionID string) (*Record, error)

	// Create inserts a new record. Returns ErrRecordAlreadyExists if one
	// exists for the user.
	Create(ctx context.Context, r *Record) error

	// Update writes the record only if the stored version still matches
	// r.Version, then increments it. Returns ErrVersionConflict on a lost
	// race so the caller can re-read and re-apply.
	Update(ctx context.Context, r *Record) error

	// SyncCountdown persists refreshed countdown cache fields guarded by
	// the sync day: the write succeeds at most once per UTC day per user,
	// whichever concurrent caller gets there first. Returns false when the
	// day was already synced.
	SyncCountdown(ctx context.Context, userID uuid.UUID, day string, daysLeft int, active, expired bool) (bool, error)
}

// CheckoutStatus is the lifecycle of a locally tracked checkout session.
type CheckoutStatus string

const (
	CheckoutPending CheckoutStatus = "pending"
	CheckoutPaid    CheckoutStatus = "paid"
	CheckoutFailed  CheckoutStatus = "failed"
	CheckoutExpired CheckoutStatus = "expired"
)

// CheckoutSession is the ephemeral record of a provider-hosted checkout,
// keyed by the provider's session ID. Sessions are never deleted; resolved
// rows are retained for audit and idempotency lookups.
type CheckoutSession struct {
	SessionID          string         `json:"session_id"`
	UserID             uuid.UUID      `json:"user_id"`
	Status             CheckoutStatus `json:"status"`
	Amount             int64          `json:"amount"`
	Currency           string         `json:"currency"`
	AutoRenewRequested bool           `json:"auto_renew_requested"`
	CreatedAt          time.Time      `json:"created_at"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
}

// CheckoutStore persists checkout sessions (append plus single status flip).
type CheckoutStore interface {
	// Create inserts a new pending session.
	Create(ctx context.Context, s *CheckoutSession) error

	// Get retrieves a session by provider session ID. Returns
	// ErrSessionNotFound if unknown.
	Get(ctx context.Context, sessionID string) (*CheckoutSession, error)

	// Resolve flips a pending session to a terminal status. Resolving an
	// already resolved session to the same status is a no-op so webhook
	// redelivery stays idempotent.
	Resolve(ctx context.Context, sessionID string, status CheckoutStatus, at time.Time) error
}

// LedgerEntry records one received provider event. The existence of a
// processed entry for an event ID is the idempotency guard against
// redelivery.
type LedgerEntry struct {
	EventID     string     `json:"event_id"`
	EventType   string     `json:"event_type"`
	ReceivedAt  time.Time  `json:"received_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	Outcome     string     `json:"outcome,omitempty"`
}

// EventLedger persists webhook event entries.
type EventLedger interface {
	// Claim atomically inserts an unprocessed entry for the event ID if
	// absent. It reports alreadyProcessed=true when a processed entry
	// exists, in which case the event must not be reapplied. An existing
	// unprocessed entry (a previously failed attempt) claims successfully
	// so redelivery can retry.
	Claim(ctx context.Context, eventID, eventType string, now time.Time) (alreadyProcessed bool, err error)

	// MarkProcessed stamps the entry processed with an outcome. Never
	// called when applying the event failed, so redelivery retries.
	MarkProcessed(ctx context.Context, eventID, outcome string, now time.Time) error

	// Get retrieves a ledger entry. Returns ErrEventNotFound if absent.
	Get(ctx context.Context, eventID string) (*LedgerEntry, error)
}
