package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/platemind/entitlements/pkg/billing"
	"github.com/platemind/entitlements/pkg/entitlement"
	"github.com/platemind/entitlements/pkg/logger"
)

// Webhook processing outcomes recorded in the event ledger.
const (
	outcomeApplied   = "applied"
	outcomeIgnored   = "ignored"
	outcomeSkipped   = "skipped"
	outcomeUnmatched = "unmatched"
)

// HandleWebhook is the webhook reconciliation entry point and the sole
// writer of subscription-derived record fields.
//
// Sequence: verify signature (reject without any ledger write), claim the
// event ID in the ledger (atomic insert-if-absent; a processed entry makes
// redelivery a success no-op), apply the transition, persist, mark
// processed. A persistence failure leaves the ledger entry unprocessed so
// the provider's redelivery retries the whole sequence.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}
	if event.ID == "" {
		return ErrMissingEventID
	}

	alreadyProcessed, err := s.ledger.Claim(ctx, event.ID, event.ProviderEvent, s.now())
	if err != nil {
		return fmt.Errorf("failed to claim webhook event %s: %w", event.ID, err)
	}
	if alreadyProcessed {
		s.log.DebugContext(ctx, "webhook event already processed", logger.EventID(event.ID))
		return nil
	}

	outcome, err := s.applyEvent(ctx, event)
	if err != nil {
		s.log.ErrorContext(ctx, "webhook event processing failed",
			logger.EventID(event.ID),
			logger.EventType(event.ProviderEvent),
			logger.Error(err))
		return err
	}

	if err := s.ledger.MarkProcessed(ctx, event.ID, outcome, s.now()); err != nil {
		return fmt.Errorf("failed to mark webhook event %s processed: %w", event.ID, err)
	}

	s.log.InfoContext(ctx, "webhook event processed",
		logger.EventID(event.ID),
		logger.EventType(event.ProviderEvent),
		slog.String("outcome", outcome))
	return nil
}

func (s *Service) applyEvent(ctx context.Context, event *billing.Event) (string, error) {
	switch event.Type {
	case billing.EventCheckoutCompleted:
		return s.applyCheckoutCompleted(ctx, event)

	case billing.EventSubscriptionUpdated:
		status := mapProviderStatus(event.Status)
		return s.applyTransition(ctx, event, func(r *entitlement.Record) bool {
			adopted := r.AdoptProviderIDs(event.CustomerID, event.SubscriptionID)
			applied := r.ApplySubscriptionUpdated(status, event.CancelAtPeriodEnd, eventPeriod(event), s.now())
			r.BackfillNextBilling(s.now())
			return applied || adopted
		})

	case billing.EventInvoicePaid:
		return s.applyTransition(ctx, event, func(r *entitlement.Record) bool {
			adopted := r.AdoptProviderIDs(event.CustomerID, event.SubscriptionID)
			applied := r.ApplyInvoicePaid(eventPeriod(event), s.now())
			r.BackfillNextBilling(s.now())
			return applied || adopted
		})

	case billing.EventPaymentFailed:
		return s.applyTransition(ctx, event, func(r *entitlement.Record) bool {
			return r.ApplyPaymentFailed(s.now())
		})

	case billing.EventSubscriptionDeleted:
		return s.applyTransition(ctx, event, func(r *entitlement.Record) bool {
			return r.ApplySubscriptionDeleted(s.now())
		})

	default:
		return outcomeSkipped, nil
	}
}

// applyCheckoutCompleted handles the first confirmation of a paid checkout.
// The target user comes from the locally recorded session row when one
// matches; otherwise the event is resolved like any other subscription
// event, which also covers renewal transactions that carry no session row.
func (s *Service) applyCheckoutCompleted(ctx context.Context, event *billing.Event) (string, error) {
	session, err := s.checkouts.Get(ctx, event.SessionID)
	if err != nil {
		if !errors.Is(err, entitlement.ErrSessionNotFound) {
			return "", err
		}
		// No local session: a renewal payment for an existing subscription.
		return s.applyTransition(ctx, event, func(r *entitlement.Record) bool {
			adopted := r.AdoptProviderIDs(event.CustomerID, event.SubscriptionID)
			applied := r.ApplyInvoicePaid(eventPeriod(event), s.now())
			r.BackfillNextBilling(s.now())
			return applied || adopted
		})
	}

	// The subscription is created as monthly-recurring regardless; when the
	// user opted out of renewal, disable it server-side right after the
	// first confirmation so they are billed once and access still runs to
	// the paid period's end. Failing here leaves the event unprocessed and
	// redelivery retries; the provider call is idempotent.
	if !session.AutoRenewRequested && event.SubscriptionID != "" {
		if err := s.provider.CancelAtPeriodEnd(ctx, event.SubscriptionID); err != nil {
			return "", err
		}
	}

	fetch := func(ctx context.Context) (*entitlement.Record, error) {
		return s.records.Get(ctx, session.UserID)
	}
	rec, applied, err := s.mutateRecord(ctx, fetch, func(r *entitlement.Record) bool {
		applied := r.ApplyCheckoutCompleted(event.CustomerID, event.SubscriptionID, eventPeriod(event), s.now())
		if applied {
			r.AutoRenewRequested = session.AutoRenewRequested
			if !session.AutoRenewRequested {
				r.ScheduleCancellation(s.now())
			}
		}
		r.BackfillNextBilling(s.now())
		return applied
	})
	if err != nil {
		return "", err
	}

	if err := s.checkouts.Resolve(ctx, session.SessionID, entitlement.CheckoutPaid, s.now()); err != nil {
		return "", err
	}

	if !applied {
		return outcomeIgnored, nil
	}
	s.log.InfoContext(ctx, "subscription confirmed",
		logger.UserID(rec.UserID),
		logger.SubscriptionID(rec.ProviderSubscriptionID),
		slog.Bool("auto_renew", rec.AutoRenewRequested))
	return outcomeApplied, nil
}

// applyTransition resolves the target record from the identifiers carried
// in the event payload, never from caller-supplied identity, and persists
// the applied transition. An unresolvable event is recorded as unmatched
// rather than retried forever.
func (s *Service) applyTransition(ctx context.Context, event *billing.Event, apply func(*entitlement.Record) bool) (string, error) {
	_, applied, err := s.mutateRecord(ctx, s.recordResolver(event), apply)
	if err != nil {
		if errors.Is(err, entitlement.ErrRecordNotFound) {
			s.log.WarnContext(ctx, "webhook event matched no entitlement record",
				logger.EventID(event.ID),
				logger.SubscriptionID(event.SubscriptionID),
				slog.String("customer_id", event.CustomerID))
			return outcomeUnmatched, nil
		}
		return "", err
	}
	if !applied {
		return outcomeIgnored, nil
	}
	return outcomeApplied, nil
}

func (s *Service) recordResolver(event *billing.Event) func(context.Context) (*entitlement.Record, error) {
	return func(ctx context.Context) (*entitlement.Record, error) {
		if event.SubscriptionID != "" {
			rec, err := s.records.GetByProviderSubscription(ctx, event.SubscriptionID)
			if err == nil {
				return rec, nil
			}
			if !errors.Is(err, entitlement.ErrRecordNotFound) {
				return nil, err
			}
		}
		if event.CustomerID != "" {
			rec, err := s.records.GetByProviderCustomer(ctx, event.CustomerID)
			if err == nil {
				return rec, nil
			}
			if !errors.Is(err, entitlement.ErrRecordNotFound) {
				return nil, err
			}
		}
		if event.UserID != "" {
			if userID, err := uuid.Parse(event.UserID); err == nil {
				return s.records.Get(ctx, userID)
			}
		}
		return nil, entitlement.ErrRecordNotFound
	}
}

func eventPeriod(event *billing.Event) entitlement.BillingPeriod {
	return entitlement.BillingPeriod{
		StartAt:       event.PeriodStartAt,
		EndAt:         event.PeriodEndAt,
		NextBillingAt: event.NextBillingAt,
	}
}

// mapProviderStatus maps raw provider subscription statuses onto local
// ones. Unknown statuses map to none, which no transition accepts, so an
// unrecognized payload can never grant access.
func mapProviderStatus(status string) entitlement.Status {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing":
		return entitlement.StatusActive
	case "past_due", "unpaid":
		return entitlement.StatusPastDue
	case "canceled", "cancelled":
		return entitlement.StatusCanceled
	default:
		return entitlement.StatusNone
	}
}
