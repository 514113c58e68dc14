package entitlement_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/platemind/entitlements/pkg/entitlement"
)

func TestEvaluate(t *testing.T) {
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	inTrial := start.Add(3 * 24 * time.Hour)
	afterTrial := start.Add(8 * 24 * time.Hour)

	eval := entitlement.NewEvaluator()

	tests := []struct {
		name      string
		status    entitlement.Status
		at        time.Time
		hasAccess bool
		subActive bool
		trialAct  bool
		trialExp  bool
		reason    string
	}{
		{"trialing inside window", entitlement.StatusTrialing, inTrial, true, false, true, false, entitlement.ReasonTrial},
		{"trialing after window", entitlement.StatusTrialing, afterTrial, false, false, false, true, entitlement.ReasonTrialExpired},
		{"none inside window", entitlement.StatusNone, inTrial, true, false, true, false, entitlement.ReasonTrial},
		{"none after window", entitlement.StatusNone, afterTrial, false, false, false, true, entitlement.ReasonTrialExpired},
		{"active inside window", entitlement.StatusActive, inTrial, true, true, true, false, entitlement.ReasonSubscription},
		{"active after window", entitlement.StatusActive, afterTrial, true, true, false, false, entitlement.ReasonSubscription},
		{"past_due inside window", entitlement.StatusPastDue, inTrial, true, true, true, false, entitlement.ReasonSubscription},
		{"past_due keeps access", entitlement.StatusPastDue, afterTrial, true, true, false, false, entitlement.ReasonSubscription},
		{"canceled_scheduled inside window", entitlement.StatusCanceledScheduled, inTrial, true, true, true, false, entitlement.ReasonSubscription},
		{"canceled_scheduled keeps access", entitlement.StatusCanceledScheduled, afterTrial, true, true, false, false, entitlement.ReasonSubscription},
		{"canceled after window", entitlement.StatusCanceled, afterTrial, false, false, false, false, entitlement.ReasonSubscriptionInactive},
		{"canceled inside window falls back to trial", entitlement.StatusCanceled, inTrial, true, false, true, false, entitlement.ReasonTrial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := entitlement.NewRecord(uuid.New(), start)
			r.Status = tt.status

			got := eval.Evaluate(r, tt.at)

			assert.Equal(t, tt.hasAccess, got.HasAccess)
			assert.Equal(t, tt.subActive, got.SubscriptionActive)
			assert.Equal(t, tt.trialAct, got.TrialActive)
			assert.Equal(t, tt.trialExp, got.TrialExpired)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestEvaluateTrialDaysLeft(t *testing.T) {
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r := entitlement.NewRecord(uuid.New(), start)
	eval := entitlement.NewEvaluator()

	got := eval.Evaluate(r, start.Add(3*24*time.Hour))
	assert.Equal(t, 4, got.TrialDaysLeft)

	got = eval.Evaluate(r, start.Add(10*24*time.Hour))
	assert.Zero(t, got.TrialDaysLeft)
}

func TestEvaluateIgnoresStaleCache(t *testing.T) {
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	r := entitlement.NewRecord(uuid.New(), start)

	// Cache says the trial is healthy, but the window has passed. The gate
	// must derive from TrialEndAt.
	r.TrialDaysLeft = 7
	r.TrialActive = true
	r.TrialExpired = false

	got := entitlement.NewEvaluator().Evaluate(r, start.Add(9*24*time.Hour))
	assert.False(t, got.HasAccess)
	assert.True(t, got.TrialExpired)
}

func TestWithGraceStatuses(t *testing.T) {
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	afterTrial := start.Add(8 * 24 * time.Hour)

	strict := entitlement.NewEvaluator(entitlement.WithGraceStatuses())

	r := entitlement.NewRecord(uuid.New(), start)
	r.Status = entitlement.StatusPastDue
	assert.False(t, strict.Evaluate(r, afterTrial).HasAccess)

	// StatusActive grants access regardless of the grace set.
	r.Status = entitlement.StatusActive
	assert.True(t, strict.Evaluate(r, afterTrial).HasAccess)
}
