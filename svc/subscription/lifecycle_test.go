package subscription_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/platemind/entitlements/pkg/billing"
	"github.com/platemind/entitlements/pkg/entitlement"
	"github.com/platemind/entitlements/svc/subscription"
)

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("schedules cancellation optimistically", func(t *testing.T) {
		env := newTestEnv()
		userID := uuid.New()
		subscribe(t, env, userID, true)

		env.provider.On("CancelAtPeriodEnd", mock.Anything, "sub_"+userID.String()).Return(nil).Once()

		snap, err := env.svc.Cancel(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.StatusCanceledScheduled, snap.Record.Status)
		assert.True(t, snap.Access.HasAccess, "access runs to period end")

		stored, err := env.records.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.StatusCanceledScheduled, stored.Status)
	})

	t.Run("provider failure leaves record untouched", func(t *testing.T) {
		env := newTestEnv()
		userID := uuid.New()
		subscribe(t, env, userID, true)

		env.provider.On("CancelAtPeriodEnd", mock.Anything, "sub_"+userID.String()).
			Return(billing.ErrProvider).Once()

		_, err := env.svc.Cancel(ctx, userID)
		assert.ErrorIs(t, err, billing.ErrProvider)

		stored, err := env.records.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.StatusActive, stored.Status)
	})

	t.Run("no subscription", func(t *testing.T) {
		env := newTestEnv()
		userID := uuid.New()
		_, err := env.svc.Register(ctx, userID)
		require.NoError(t, err)

		_, err = env.svc.Cancel(ctx, userID)
		assert.ErrorIs(t, err, subscription.ErrNoSubscription)
		env.provider.AssertNotCalled(t, "CancelAtPeriodEnd")
	})
}

func TestReactivate(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel then reactivate restores active", func(t *testing.T) {
		env := newTestEnv()
		userID := uuid.New()
		subscribe(t, env, userID, true)

		env.provider.On("CancelAtPeriodEnd", mock.Anything, "sub_"+userID.String()).Return(nil).Once()
		env.provider.On("Reactivate", mock.Anything, "sub_"+userID.String()).Return(nil).Once()

		_, err := env.svc.Cancel(ctx, userID)
		require.NoError(t, err)

		snap, err := env.svc.Reactivate(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.StatusActive, snap.Record.Status)
		assert.False(t, snap.Record.CancelAtPeriodEnd)

		env.provider.AssertExpectations(t)
	})

	t.Run("nothing scheduled is a no-op", func(t *testing.T) {
		env := newTestEnv()
		userID := uuid.New()
		subscribe(t, env, userID, true)

		env.provider.On("Reactivate", mock.Anything, "sub_"+userID.String()).Return(nil).Once()

		snap, err := env.svc.Reactivate(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, entitlement.StatusActive, snap.Record.Status)
	})
}

func TestBillingPortal(t *testing.T) {
	ctx := context.Background()

	t.Run("returns portal link", func(t *testing.T) {
		env := newTestEnv()
		userID := uuid.New()
		subscribe(t, env, userID, true)

		env.provider.On("CreatePortalSession", mock.Anything, "ctm_"+userID.String(), []string{"sub_" + userID.String()}).
			Return(&billing.PortalLink{URL: "https://portal.example.com/s1"}, nil).Once()

		link, err := env.svc.BillingPortal(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "https://portal.example.com/s1", link.URL)
	})

	t.Run("no provider customer", func(t *testing.T) {
		env := newTestEnv()
		userID := uuid.New()
		_, err := env.svc.Register(ctx, userID)
		require.NoError(t, err)

		_, err = env.svc.BillingPortal(ctx, userID)
		assert.ErrorIs(t, err, subscription.ErrNoSubscription)
	})
}
