package subscription_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/platemind/entitlements/pkg/billing"
	"github.com/platemind/entitlements/svc/subscription"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if s := args.Get(0); s != nil {
		return s.(*billing.CheckoutSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

func (m *mockProvider) Reactivate(ctx context.Context, subscriptionID string) error {
	return m.Called(ctx, subscriptionID).Error(0)
}

func (m *mockProvider) CreatePortalSession(ctx context.Context, customerID string, subscriptionIDs []string) (*billing.PortalLink, error) {
	args := m.Called(ctx, customerID, subscriptionIDs)
	if l := args.Get(0); l != nil {
		return l.(*billing.PortalLink), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.Event, error) {
	args := m.Called(ctx, payload, signature)
	if e := args.Get(0); e != nil {
		return e.(*billing.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

// testClock is a mutable time source shared with the service under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock {
	return &testClock{now: now}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	svc       *subscription.Service
	provider  *mockProvider
	records   *subscription.MemoryRecordStore
	checkouts *subscription.MemoryCheckoutStore
	ledger    *subscription.MemoryEventLedger
	clock     *testClock
}

func newTestEnv(opts ...subscription.Option) *testEnv {
	env := &testEnv{
		provider:  &mockProvider{},
		records:   subscription.NewMemoryRecordStore(),
		checkouts: subscription.NewMemoryCheckoutStore(),
		ledger:    subscription.NewMemoryEventLedger(),
		clock:     newTestClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)),
	}

	cfg := subscription.Config{
		PriceID:       "pri_01monthly",
		PriceAmount:   999,
		PriceCurrency: "USD",
		SuccessPath:   "/billing/success",
		CancelPath:    "/billing/canceled",
	}

	opts = append([]subscription.Option{subscription.WithClock(env.clock.Now)}, opts...)
	env.svc = subscription.New(cfg, env.provider, env.records, env.checkouts, env.ledger, opts...)
	return env
}
