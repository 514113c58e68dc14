package subscription

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/platemind/entitlements/pkg/billing"
	"github.com/platemind/entitlements/pkg/entitlement"
	"github.com/platemind/entitlements/pkg/logger"
)

// Config holds the subscription service configuration. The price is a
// single fixed monthly recurring price at the provider.
type Config struct {
	PriceID       string `env:"PADDLE_PRICE_ID"`
	PriceAmount   int64  `env:"SUBSCRIPTION_PRICE_AMOUNT" envDefault:"999"`
	PriceCurrency string `env:"SUBSCRIPTION_PRICE_CURRENCY" envDefault:"USD"`
	SuccessPath   string `env:"CHECKOUT_SUCCESS_PATH" envDefault:"/billing/success"`
	CancelPath    string `env:"CHECKOUT_CANCEL_PATH" envDefault:"/billing/canceled"`
}

// Service owns the entitlement subsystem: the access gate, the checkout
// session lifecycle, direct user billing actions and webhook
// reconciliation. It is constructed once per process with explicit
// dependencies and passed into request handlers.
type Service struct {
	cfg       Config
	provider  billing.Provider
	records   entitlement.Store
	checkouts entitlement.CheckoutStore
	ledger    entitlement.EventLedger
	eval      *entitlement.Evaluator
	log       *slog.Logger
	now       func() time.Time
}

// Option configures optional Service settings.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithEvaluator overrides the access evaluator, e.g. to change the grace
// policy for past-due and scheduled-cancellation states.
func WithEvaluator(eval *entitlement.Evaluator) Option {
	return func(s *Service) {
		if eval != nil {
			s.eval = eval
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates the subscription service. Panics on nil required
// dependencies to fail fast during initialization.
func New(cfg Config, provider billing.Provider, records entitlement.Store, checkouts entitlement.CheckoutStore, ledger entitlement.EventLedger, opts ...Option) *Service {
	if provider == nil {
		panic("subscription: billing.Provider is required")
	}
	if records == nil {
		panic("subscription: entitlement.Store is required")
	}
	if checkouts == nil {
		panic("subscription: entitlement.CheckoutStore is required")
	}
	if ledger == nil {
		panic("subscription: entitlement.EventLedger is required")
	}

	s := &Service{
		cfg:       cfg,
		provider:  provider,
		records:   records,
		checkouts: checkouts,
		ledger:    ledger,
		eval:      entitlement.NewEvaluator(),
		log:       slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StatusSnapshot is the evaluator output plus the raw record display fields.
type StatusSnapshot struct {
	Access entitlement.AccessStatus `json:"access"`
	Record *entitlement.Record      `json:"record"`
}

// Register seeds the entitlement record for a freshly registered user,
// starting the 7-day trial clock. Registering an existing user returns the
// existing record unchanged.
func (s *Service) Register(ctx context.Context, userID uuid.UUID) (*entitlement.Record, error) {
	rec := entitlement.NewRecord(userID, s.now())
	err := s.records.Create(ctx, rec)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, entitlement.ErrRecordAlreadyExists) {
		return s.records.Get(ctx, userID)
	}
	return nil, err
}

// Status returns the current access decision and record for a user.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*StatusSnapshot, error) {
	rec, access, err := s.evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.snapshot(rec, access), nil
}

// evaluate loads the record, derives the access decision and performs the
// best-effort once-per-day countdown cache sync. The sync failing never
// fails the access check.
func (s *Service) evaluate(ctx context.Context, userID uuid.UUID) (*entitlement.Record, entitlement.AccessStatus, error) {
	rec, err := s.records.Get(ctx, userID)
	if err != nil {
		return nil, entitlement.AccessStatus{}, err
	}

	now := s.now()
	access := s.eval.Evaluate(rec, now)
	s.syncCountdown(ctx, rec, access, now)
	return rec, access, nil
}

func (s *Service) syncCountdown(ctx context.Context, rec *entitlement.Record, access entitlement.AccessStatus, now time.Time) {
	day := now.UTC().Format(entitlement.DayLayout)
	if rec.CountdownSyncedOn(day) {
		return
	}
	synced, err := s.records.SyncCountdown(ctx, rec.UserID, day, access.TrialDaysLeft, access.TrialActive, access.TrialExpired)
	if err != nil {
		s.log.WarnContext(ctx, "trial countdown sync failed",
			logger.UserID(rec.UserID), logger.Error(err))
		return
	}
	if synced {
		rec.TrialDaysLeft = access.TrialDaysLeft
		rec.TrialActive = access.TrialActive
		rec.TrialExpired = access.TrialExpired
		rec.TrialCountdownSyncedOn = day
	}
}

// snapshot builds the status response. The next-billing backfill runs on a
// copy: it is a display approximation and must never be persisted over
// what the webhook processor writes.
func (s *Service) snapshot(rec *entitlement.Record, access entitlement.AccessStatus) *StatusSnapshot {
	display := *rec
	display.BackfillNextBilling(s.now())
	return &StatusSnapshot{Access: access, Record: &display}
}

// mutateRecord loads a record through fetch, applies the transition and
// persists it with a conditional write. A lost version race re-reads and
// re-applies once; transitions are written to be safely reapplicable.
func (s *Service) mutateRecord(ctx context.Context, fetch func(context.Context) (*entitlement.Record, error), apply func(*entitlement.Record) bool) (*entitlement.Record, bool, error) {
	for attempt := 0; ; attempt++ {
		rec, err := fetch(ctx)
		if err != nil {
			return nil, false, err
		}
		if !apply(rec) {
			return rec, false, nil
		}
		err = s.records.Update(ctx, rec)
		if err == nil {
			return rec, true, nil
		}
		if errors.Is(err, entitlement.ErrVersionConflict) && attempt == 0 {
			continue
		}
		return nil, false, err
	}
}
