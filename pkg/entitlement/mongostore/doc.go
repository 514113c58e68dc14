// Package mongostore implements the entitlement store interfaces on
// MongoDB. Every mutation is a single-document conditional operation:
// versioned replaces for records, day-guarded updates for the trial
// countdown cache, upsert-if-absent for the webhook event ledger and a
// pending-only status flip for checkout sessions.
package mongostore
