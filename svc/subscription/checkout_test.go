package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/platemind/entitlements/pkg/billing"
	"github.com/platemind/entitlements/pkg/entitlement"
	"github.com/platemind/entitlements/svc/subscription"
)

func TestCreateCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending session", func(t *testing.T) {
		env := newTestEnv()
		userID := uuid.New()
		_, err := env.svc.Register(ctx, userID)
		require.NoError(t, err)

		env.provider.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(req billing.CheckoutRequest) bool {
			return req.PriceID == "pri_01monthly" &&
				req.UserID == userID.String() &&
				req.SuccessURL == "https://app.example.com/billing/success" &&
				req.CancelURL == "https://app.example.com/billing/canceled"
		})).Return(&billing.CheckoutSession{
			URL:       "https://checkout.example.com/txn_01",
			SessionID: "txn_01",
			Amount:    999,
			Currency:  "USD",
			ExpiresAt: env.clock.Now().Add(24 * time.Hour),
		}, nil)

		intent, err := env.svc.CreateCheckout(ctx, userID, "https://app.example.com", true)
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.example.com/txn_01", intent.CheckoutURL)
		assert.Equal(t, "txn_01", intent.SessionID)

		status, err := env.svc.CheckoutStatus(ctx, "txn_01")
		require.NoError(t, err)
		assert.Equal(t, entitlement.CheckoutPending, status)

		env.provider.AssertExpectations(t)
	})

	t.Run("records auto renew opt-out", func(t *testing.T) {
		env := newTestEnv()
		userID := uuid.New()
		_, err := env.svc.Register(ctx, userID)
		require.NoError(t, err)

		env.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(&billing.CheckoutSession{URL: "https://checkout.example.com/txn_02", SessionID: "txn_02"}, nil)

		_, err = env.svc.CreateCheckout(ctx, userID, "https://app.example.com", false)
		require.NoError(t, err)

		session, err := env.checkouts.Get(ctx, "txn_02")
		require.NoError(t, err)
		assert.False(t, session.AutoRenewRequested)
		// Provider returned no totals; config price fills the gap.
		assert.Equal(t, int64(999), session.Amount)
		assert.Equal(t, "USD", session.Currency)
	})

	t.Run("rejects active subscriber", func(t *testing.T) {
		env := newTestEnv()
		userID := uuid.New()
		_, err := env.svc.Register(ctx, userID)
		require.NoError(t, err)

		rec, err := env.records.Get(ctx, userID)
		require.NoError(t, err)
		require.True(t, rec.ApplyCheckoutCompleted("ctm_1", "sub_1", entitlement.BillingPeriod{}, env.clock.Now()))
		require.NoError(t, env.records.Update(ctx, rec))

		_, err = env.svc.CreateCheckout(ctx, userID, "https://app.example.com", true)
		assert.ErrorIs(t, err, subscription.ErrAlreadySubscribed)
	})

	t.Run("allows checkout while cancellation scheduled", func(t *testing.T) {
		env := newTestEnv()
		userID := uuid.New()
		_, err := env.svc.Register(ctx, userID)
		require.NoError(t, err)

		rec, err := env.records.Get(ctx, userID)
		require.NoError(t, err)
		require.True(t, rec.ApplyCheckoutCompleted("ctm_1", "sub_1", entitlement.BillingPeriod{}, env.clock.Now()))
		require.True(t, rec.ScheduleCancellation(env.clock.Now()))
		require.NoError(t, env.records.Update(ctx, rec))

		env.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(&billing.CheckoutSession{URL: "https://checkout.example.com/txn_03", SessionID: "txn_03"}, nil)

		_, err = env.svc.CreateCheckout(ctx, userID, "https://app.example.com", true)
		assert.NoError(t, err)
	})

	t.Run("fails closed on placeholder price", func(t *testing.T) {
		env := newTestEnv()
		userID := uuid.New()
		_, err := env.svc.Register(ctx, userID)
		require.NoError(t, err)

		misconfigured := subscription.New(
			subscription.Config{PriceID: "YOUR_PRICE_ID"},
			env.provider, env.records, env.checkouts, env.ledger,
		)

		_, err = misconfigured.CreateCheckout(ctx, userID, "https://app.example.com", true)
		require.Error(t, err)
		assert.ErrorIs(t, err, billing.ErrNotConfigured)
		assert.ErrorIs(t, err, subscription.ErrPriceNotConfigured)
		env.provider.AssertNotCalled(t, "CreateCheckoutSession")
	})

	t.Run("provider failure leaves no session row", func(t *testing.T) {
		env := newTestEnv()
		userID := uuid.New()
		_, err := env.svc.Register(ctx, userID)
		require.NoError(t, err)

		env.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything).
			Return(nil, billing.ErrProvider)

		_, err = env.svc.CreateCheckout(ctx, userID, "https://app.example.com", true)
		assert.ErrorIs(t, err, billing.ErrProvider)

		_, err = env.svc.CheckoutStatus(ctx, "txn_01")
		assert.ErrorIs(t, err, entitlement.ErrSessionNotFound)
	})
}

func TestCheckoutStatusUnknownSession(t *testing.T) {
	env := newTestEnv()
	_, err := env.svc.CheckoutStatus(context.Background(), "txn_missing")
	assert.ErrorIs(t, err, entitlement.ErrSessionNotFound)
}
