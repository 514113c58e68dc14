package entitlement

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound      = errors.New("entitlement record not found")
	ErrRecordAlreadyExists = errors.New("entitlement record already exists")
	ErrVersionConflict     = errors.New("entitlement record version conflict")

	ErrSessionNotFound        = errors.New("checkout session not found")
	ErrSessionAlreadyExists   = errors.New("checkout session already exists")
	ErrSessionAlreadyResolved = errors.New("checkout session already resolved")

	ErrEventNotFound = errors.New("webhook event not found in ledger")
)

// UpgradeRequiredError is returned by the generation gate when neither the
// trial nor a subscription grants access. It is distinct from
// authentication and validation failures; read-only history endpoints stay
// accessible regardless.
type UpgradeRequiredError struct {
	TrialDaysLeft int
}

func (e *UpgradeRequiredError) Error() string {
	return fmt.Sprintf("upgrade required: trial days left %d", e.TrialDaysLeft)
}
