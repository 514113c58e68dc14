package entitlement

import "time"

// AccessStatus is a point-in-time entitlement decision derived from a
// record and the current time. It carries the display fields the UI needs
// alongside the boolean gate decision.
type AccessStatus struct {
	HasAccess          bool   `json:"has_access"`
	TrialActive        bool   `json:"trial_active"`
	TrialExpired       bool   `json:"trial_expired"`
	TrialDaysLeft      int    `json:"trial_days_left"`
	SubscriptionActive bool   `json:"subscription_active"`
	Reason             string `json:"reason"`
}

// Access decision reasons.
const (
	ReasonTrial                = "trial_active"
	ReasonSubscription         = "subscription_active"
	ReasonTrialExpired         = "trial_expired"
	ReasonSubscriptionInactive = "subscription_inactive"
)

// Evaluator derives access decisions. It is pure: no I/O, no clock reads,
// no mutation of the record. The set of subscription statuses that keep
// access is configurable because the grace policy for past-due and
// scheduled-cancellation states is a product decision, not a hard rule.
type Evaluator struct {
	grace map[Status]struct{}
}

// EvaluatorOption configures an Evaluator.
type EvaluatorOption func(*Evaluator)

// WithGraceStatuses overrides the statuses treated as subscription-active.
// StatusActive always grants access regardless of this setting.
func WithGraceStatuses(statuses ...Status) EvaluatorOption {
	return func(e *Evaluator) {
		e.grace = make(map[Status]struct{}, len(statuses))
		for _, s := range statuses {
			e.grace[s] = struct{}{}
		}
	}
}

// NewEvaluator returns an Evaluator with the default grace policy:
// a scheduled-but-not-yet-effective cancellation or a payment lapse does
// not immediately revoke access.
func NewEvaluator(opts ...EvaluatorOption) *Evaluator {
	e := &Evaluator{
		grace: map[Status]struct{}{
			StatusPastDue:           {},
			StatusCanceledScheduled: {},
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate computes the access decision for a record as of now.
// Evaluation always derives from the immutable TrialEndAt, never from the
// cached countdown fields, so cache staleness cannot leak into the gate.
func (e *Evaluator) Evaluate(r *Record, now time.Time) AccessStatus {
	now = now.UTC()

	trialActive := r.IsTrialActiveAt(now)
	trialExpired := !trialActive && (r.Status == StatusNone || r.Status == StatusTrialing)
	subscriptionActive := e.subscriptionActive(r.Status)

	st := AccessStatus{
		HasAccess:          trialActive || subscriptionActive,
		TrialActive:        trialActive,
		TrialExpired:       trialExpired,
		TrialDaysLeft:      r.TrialDaysLeftAt(now),
		SubscriptionActive: subscriptionActive,
	}

	switch {
	case subscriptionActive:
		st.Reason = ReasonSubscription
	case trialActive:
		st.Reason = ReasonTrial
	case trialExpired:
		st.Reason = ReasonTrialExpired
	default:
		st.Reason = ReasonSubscriptionInactive
	}
	return st
}

func (e *Evaluator) subscriptionActive(s Status) bool {
	if s == StatusActive {
		return true
	}
	_, ok := e.grace[s]
	return ok
}
