package subscription

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/platemind/entitlements/pkg/billing"
	"github.com/platemind/entitlements/pkg/entitlement"
	"github.com/platemind/entitlements/pkg/logger"
)

// Cancel schedules the user's subscription to stop renewing at the period
// end. The provider call goes first; the local record is then updated
// optimistically and the confirming webhook either agrees (no-op) or
// overrides. A local persist failure after the provider accepted the
// change is logged and left for the next webhook rather than rolled back.
func (s *Service) Cancel(ctx context.Context, userID uuid.UUID) (*StatusSnapshot, error) {
	return s.lifecycleAction(ctx, userID, "cancel",
		s.provider.CancelAtPeriodEnd,
		func(r *entitlement.Record) bool { return r.ScheduleCancellation(s.now()) },
	)
}

// Reactivate clears a scheduled cancellation and optimistically restores
// the record to active.
func (s *Service) Reactivate(ctx context.Context, userID uuid.UUID) (*StatusSnapshot, error) {
	return s.lifecycleAction(ctx, userID, "reactivate",
		s.provider.Reactivate,
		func(r *entitlement.Record) bool { return r.ClearScheduledCancellation(s.now()) },
	)
}

func (s *Service) lifecycleAction(ctx context.Context, userID uuid.UUID, action string, call func(context.Context, string) error, apply func(*entitlement.Record) bool) (*StatusSnapshot, error) {
	rec, err := s.records.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec.ProviderSubscriptionID == "" {
		return nil, ErrNoSubscription
	}

	// Synchronous provider call, bounded timeout, no automatic retry: a
	// partially accepted change must surface, not be applied twice.
	if err := call(ctx, rec.ProviderSubscriptionID); err != nil {
		s.log.ErrorContext(ctx, "provider lifecycle action failed",
			slog.String("action", action), logger.UserID(userID), logger.Error(err))
		return nil, err
	}

	if apply(rec) {
		if err := s.records.Update(ctx, rec); err != nil {
			// Provider-side change already took effect; the stale local
			// record is corrected by the confirming webhook.
			s.log.WarnContext(ctx, "optimistic update failed, awaiting webhook",
				slog.String("action", action), logger.UserID(userID), logger.Error(err))
		}
	}

	return s.snapshot(rec, s.eval.Evaluate(rec, s.now())), nil
}

// BillingPortal returns a pre-authenticated customer portal link for the
// user's provider customer.
func (s *Service) BillingPortal(ctx context.Context, userID uuid.UUID) (*billing.PortalLink, error) {
	rec, err := s.records.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec.ProviderCustomerID == "" {
		return nil, ErrNoSubscription
	}

	var subIDs []string
	if rec.ProviderSubscriptionID != "" {
		subIDs = []string{rec.ProviderSubscriptionID}
	}
	return s.provider.CreatePortalSession(ctx, rec.ProviderCustomerID, subIDs)
}
