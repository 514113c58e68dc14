// Package subscription wires the entitlement subsystem into a service:
// the access gate consulted by every generation endpoint, the checkout
// session orchestrator, direct lifecycle actions (cancel, reactivate,
// billing portal) and the webhook reconciliation processor that is the
// authoritative late-arriving corrector of whatever the optimistic paths
// assumed.
package subscription
