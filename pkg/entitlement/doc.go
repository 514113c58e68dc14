// Package entitlement holds the per-user trial and subscription state
// model for a recipe-generation SaaS and the pure evaluator that turns a
// record plus a point in time into an access decision.
//
// Three independent writers converge on one Record: a locally owned trial
// clock fixed at registration, the payment provider's subscription
// lifecycle delivered through webhooks, and direct user actions that
// update state optimistically until the matching webhook confirms them.
// The package therefore exposes transition methods that are safe to
// reapply (redelivered events become no-ops) and store interfaces whose
// writes are atomic conditional operations.
//
// Access evaluation is lazy: nothing in the system runs a timer to expire
// trials. Every gate check calls Evaluator.Evaluate with the current time,
// and a best-effort countdown cache is persisted at most once per UTC day
// for display purposes only.
package entitlement
