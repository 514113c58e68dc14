package entitlement

import (
	"math"
	"time"
)

// billingCycle approximates one monthly billing period for the display-only
// next-billing backfill.
const billingCycle = 30 * 24 * time.Hour

// BillingPeriod carries the billing-cycle timestamps extracted from a
// provider payload. Nil fields were omitted by the provider and leave the
// corresponding record fields untouched.
type BillingPeriod struct {
	StartAt       *time.Time
	EndAt         *time.Time
	NextBillingAt *time.Time
}

func (r *Record) applyPeriod(p BillingPeriod) {
	if p.StartAt != nil {
		r.SubscriptionStartAt = p.StartAt
	}
	if p.EndAt != nil {
		r.SubscriptionEndAt = p.EndAt
	}
	if p.NextBillingAt != nil {
		// A genuine provider-supplied date always overwrites a local backfill.
		r.NextBillingAt = p.NextBillingAt
	}
}

// AdoptProviderIDs records provider identifiers the first time an event
// carries them. Once set they are stable; later payloads never rewrite
// them. Returns true when a field was filled in.
//
// Provider events arrive in no guaranteed order, so a subscription event
// may activate the record before the checkout transaction lands; every
// transition adopts IDs so whichever event arrives first pins them.
func (r *Record) AdoptProviderIDs(customerID, subscriptionID string) bool {
	adopted := false
	if customerID != "" && r.ProviderCustomerID == "" {
		r.ProviderCustomerID = customerID
		adopted = true
	}
	if subscriptionID != "" && r.ProviderSubscriptionID == "" {
		r.ProviderSubscriptionID = subscriptionID
		adopted = true
	}
	return adopted
}

// ApplyCheckoutCompleted records the first confirmation of a paid checkout
// session: trialing|canceled -> active. Returns false when the record is
// already in a paid state and the event carries nothing new, which makes
// event redelivery a no-op.
func (r *Record) ApplyCheckoutCompleted(customerID, subscriptionID string, period BillingPeriod, now time.Time) bool {
	now = now.UTC()

	switch r.Status {
	case StatusNone, StatusTrialing, StatusCanceled:
	default:
		// A subscription event already activated the record; keep any
		// newly learned provider IDs and ignore the rest.
		if r.AdoptProviderIDs(customerID, subscriptionID) {
			r.UpdatedAt = now
			return true
		}
		return false
	}

	r.Status = StatusActive
	r.CancelAtPeriodEnd = false
	// A completed checkout names the subscription it created, replacing
	// whatever a prior canceled subscription left behind.
	if customerID != "" {
		r.ProviderCustomerID = customerID
	}
	if subscriptionID != "" {
		r.ProviderSubscriptionID = subscriptionID
	}
	if period.StartAt == nil {
		period.StartAt = &now
	}
	r.applyPeriod(period)
	r.UpdatedAt = now
	return true
}

// ApplySubscriptionUpdated refreshes the scheduled-cancellation flag and
// billing timestamps from a provider subscription snapshot and maps the
// provider status onto the local one.
func (r *Record) ApplySubscriptionUpdated(status Status, cancelAtPeriodEnd bool, period BillingPeriod, now time.Time) bool {
	if r.Status.IsTerminal() {
		return false
	}

	switch status {
	case StatusActive, StatusPastDue:
		r.Status = status
	default:
		return false
	}
	if cancelAtPeriodEnd {
		r.Status = StatusCanceledScheduled
	}
	r.CancelAtPeriodEnd = cancelAtPeriodEnd
	r.applyPeriod(period)
	r.UpdatedAt = now.UTC()
	return true
}

// ApplyInvoicePaid refreshes billing timestamps on a successful renewal
// payment and recovers a past-due subscription back to active. A payment
// arriving before the checkout confirmation only records the timestamps;
// the status change is left to the checkout event, whichever order the
// provider delivers them in.
func (r *Record) ApplyInvoicePaid(period BillingPeriod, now time.Time) bool {
	if r.Status.IsTerminal() {
		return false
	}
	if r.Status == StatusPastDue {
		r.Status = StatusActive
	}
	r.applyPeriod(period)
	r.UpdatedAt = now.UTC()
	return true
}

// ApplyPaymentFailed moves an active subscription to past_due.
func (r *Record) ApplyPaymentFailed(now time.Time) bool {
	if r.Status != StatusActive {
		return false
	}
	r.Status = StatusPastDue
	r.UpdatedAt = now.UTC()
	return true
}

// ApplySubscriptionDeleted moves any non-terminal paid state to canceled.
func (r *Record) ApplySubscriptionDeleted(now time.Time) bool {
	switch r.Status {
	case StatusActive, StatusPastDue, StatusCanceledScheduled:
	default:
		return false
	}
	r.Status = StatusCanceled
	r.CancelAtPeriodEnd = false
	r.UpdatedAt = now.UTC()
	return true
}

// ScheduleCancellation optimistically mirrors a cancel-at-period-end
// request ahead of the confirming webhook.
func (r *Record) ScheduleCancellation(now time.Time) bool {
	switch r.Status {
	case StatusActive, StatusPastDue:
	default:
		return false
	}
	r.Status = StatusCanceledScheduled
	r.CancelAtPeriodEnd = true
	r.UpdatedAt = now.UTC()
	return true
}

// ClearScheduledCancellation optimistically restores an active subscription
// after a reactivate request.
func (r *Record) ClearScheduledCancellation(now time.Time) bool {
	if r.Status != StatusCanceledScheduled {
		return false
	}
	r.Status = StatusActive
	r.CancelAtPeriodEnd = false
	r.UpdatedAt = now.UTC()
	return true
}

// BackfillNextBilling fills a missing next-billing date with a local
// approximation: subscription start plus whole 30-day cycles covering now.
// Display-only; it never feeds entitlement decisions and any provider-
// supplied date later seen overwrites it.
func (r *Record) BackfillNextBilling(now time.Time) bool {
	if r.NextBillingAt != nil || r.SubscriptionStartAt == nil {
		return false
	}
	switch r.Status {
	case StatusActive, StatusPastDue, StatusCanceledScheduled:
	default:
		return false
	}

	elapsed := now.UTC().Sub(*r.SubscriptionStartAt)
	cycles := math.Ceil(elapsed.Hours() / billingCycle.Hours())
	if cycles < 1 {
		cycles = 1
	}
	next := r.SubscriptionStartAt.Add(time.Duration(cycles) * billingCycle)
	r.NextBillingAt = &next
	return true
}
