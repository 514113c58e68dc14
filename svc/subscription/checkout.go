package subscription

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/platemind/entitlements/pkg/billing"
	"github.com/platemind/entitlements/pkg/entitlement"
)

// CheckoutIntent is returned to the client for the provider redirect.
type CheckoutIntent struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
}

// CreateCheckout creates a provider-hosted checkout session for the fixed
// monthly price and records it locally in pending status.
//
// The eligibility check and the session creation are deliberately not
// transactional: racing tabs can create two pending sessions, but only the
// first completed payment transitions the subscription and the other row
// is simply abandoned.
func (s *Service) CreateCheckout(ctx context.Context, userID uuid.UUID, originURL string, autoRenew bool) (*CheckoutIntent, error) {
	if s.cfg.PriceID == "" || strings.HasPrefix(strings.ToLower(s.cfg.PriceID), "your_") {
		return nil, errors.Join(billing.ErrNotConfigured, ErrPriceNotConfigured)
	}

	rec, err := s.records.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Re-subscribing is only meaningful once a cancellation is in flight
	// or completed.
	if rec.Status == entitlement.StatusActive && !rec.CancelAtPeriodEnd {
		return nil, ErrAlreadySubscribed
	}

	originURL = strings.TrimSuffix(originURL, "/")
	session, err := s.provider.CreateCheckoutSession(ctx, billing.CheckoutRequest{
		PriceID:    s.cfg.PriceID,
		UserID:     userID.String(),
		SuccessURL: originURL + s.cfg.SuccessPath,
		CancelURL:  originURL + s.cfg.CancelPath,
	})
	if err != nil {
		return nil, err
	}

	amount, currency := session.Amount, session.Currency
	if amount == 0 {
		amount = s.cfg.PriceAmount
	}
	if currency == "" {
		currency = s.cfg.PriceCurrency
	}

	if err := s.checkouts.Create(ctx, &entitlement.CheckoutSession{
		SessionID:          session.SessionID,
		UserID:             userID,
		Status:             entitlement.CheckoutPending,
		Amount:             amount,
		Currency:           currency,
		AutoRenewRequested: autoRenew,
		CreatedAt:          s.now(),
	}); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "checkout session created",
		"user_id", userID, "session_id", session.SessionID, "auto_renew", autoRenew)

	return &CheckoutIntent{CheckoutURL: session.URL, SessionID: session.SessionID}, nil
}

// CheckoutStatus returns the locally recorded session status as a polling
// fallback right after the provider redirect. Advisory only: the webhook
// processor remains the authority that flips the entitlement record.
func (s *Service) CheckoutStatus(ctx context.Context, sessionID string) (entitlement.CheckoutStatus, error) {
	session, err := s.checkouts.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return session.Status, nil
}
