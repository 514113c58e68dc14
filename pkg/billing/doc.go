// Package billing abstracts the payment provider behind a narrow
// interface: hosted checkout creation, cancel/reactivate, customer portal
// links and webhook verification. The Paddle implementation maps provider
// payloads into a closed set of normalized events at the parse boundary.
package billing
