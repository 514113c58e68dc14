package entitlement

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Status represents the subscription side of an entitlement record.
type Status string

const (
	StatusNone              Status = "none"
	StatusTrialing          Status = "trialing"
	StatusActive            Status = "active"
	StatusPastDue           Status = "past_due"
	StatusCanceledScheduled Status = "canceled_scheduled"
	StatusCanceled          Status = "canceled"
)

// IsTerminal reports whether the status only leaves via a new checkout.
func (s Status) IsTerminal() bool {
	return s == StatusCanceled
}

const (
	// TrialDuration is the fixed access window granted at registration.
	TrialDuration = 7 * 24 * time.Hour

	// DayLayout is the day-granularity format used for the countdown sync guard.
	DayLayout = "2006-01-02"
)

// Record is the persisted per-user entitlement state. It is owned by the
// user aggregate and mutated only through the subscription service: the
// webhook processor is the authoritative writer of subscription-derived
// fields, direct user actions write optimistically pending webhook
// confirmation.
type Record struct {
	UserID uuid.UUID `json:"user_id"`

	// Trial window, fixed at registration and immutable afterwards.
	TrialStartAt time.Time `json:"trial_start_at"`
	TrialEndAt   time.Time `json:"trial_end_at"`

	// Cached trial countdown, recomputed at most once per UTC day.
	// Display-only: access decisions always derive from TrialEndAt.
	TrialDaysLeft          int    `json:"trial_days_left"`
	TrialActive            bool   `json:"trial_active"`
	TrialExpired           bool   `json:"trial_expired"`
	TrialCountdownSyncedOn string `json:"trial_countdown_synced_on,omitempty"`

	Status Status `json:"subscription_status"`

	// Opaque foreign keys into the payment provider, set once the first
	// checkout completes and stable thereafter.
	ProviderCustomerID     string `json:"provider_customer_id,omitempty"`
	ProviderSubscriptionID string `json:"provider_subscription_id,omitempty"`

	CancelAtPeriodEnd bool `json:"cancel_at_period_end"`

	SubscriptionStartAt *time.Time `json:"subscription_start_at,omitempty"`
	SubscriptionEndAt   *time.Time `json:"subscription_end_at,omitempty"`
	NextBillingAt       *time.Time `json:"next_billing_at,omitempty"`

	// AutoRenewRequested is captured at checkout time and consumed by the
	// webhook processor to decide whether to schedule cancellation right
	// after the first payment confirmation.
	AutoRenewRequested bool `json:"auto_renew_requested"`

	// Version guards conditional writes so concurrent webhook and
	// countdown-sync updates never clobber each other.
	Version int64 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRecord seeds an entitlement record at registration time.
// Registration is the none -> trialing transition.
func NewRecord(userID uuid.UUID, now time.Time) *Record {
	now = now.UTC()
	r := &Record{
		UserID:       userID,
		TrialStartAt: now,
		TrialEndAt:   now.Add(TrialDuration),
		Status:       StatusTrialing,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.RefreshCountdown(now)
	return r
}

// TrialDaysLeftAt returns the whole days remaining in the trial at a given
// time, rounded up so a partially elapsed day still counts.
func (r *Record) TrialDaysLeftAt(now time.Time) int {
	remaining := r.TrialEndAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

// IsTrialActiveAt reports whether the trial window covers the given time.
func (r *Record) IsTrialActiveAt(now time.Time) bool {
	return now.Before(r.TrialEndAt)
}

// RefreshCountdown recomputes the cached countdown fields as of now and
// stamps the sync guard with the current UTC day.
func (r *Record) RefreshCountdown(now time.Time) {
	now = now.UTC()
	r.TrialDaysLeft = r.TrialDaysLeftAt(now)
	r.TrialActive = r.IsTrialActiveAt(now)
	r.TrialExpired = !r.TrialActive && (r.Status == StatusNone || r.Status == StatusTrialing)
	r.TrialCountdownSyncedOn = now.Format(DayLayout)
}

// CountdownSyncedOn reports whether the cached countdown was already
// recomputed on the given UTC day.
func (r *Record) CountdownSyncedOn(day string) bool {
	return r.TrialCountdownSyncedOn == day
}
