package subscription

import (
	"context"

	"github.com/google/uuid"

	"github.com/platemind/entitlements/pkg/entitlement"
)

// CheckAccess is the generation gate: every content-generation endpoint
// calls it before doing any work. It returns nil when the trial or a
// subscription grants access and *entitlement.UpgradeRequiredError
// otherwise, carrying the remaining trial days for the upgrade prompt.
//
// The gate guards mutation/generation endpoints only; read-only endpoints
// such as saved-content history are never gated, so existing content stays
// browsable after trial expiry.
func (s *Service) CheckAccess(ctx context.Context, userID uuid.UUID) error {
	_, access, err := s.evaluate(ctx, userID)
	if err != nil {
		return err
	}
	if !access.HasAccess {
		return &entitlement.UpgradeRequiredError{TrialDaysLeft: access.TrialDaysLeft}
	}
	return nil
}
