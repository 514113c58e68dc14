package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle billing provider.
// ClientToken is the publishable key handed to the frontend for inline
// checkout; the server only validates its presence.
type PaddleConfig struct {
	APIKey         string        `env:"PADDLE_API_KEY"`
	ClientToken    string        `env:"PADDLE_CLIENT_TOKEN"`
	WebhookSecret  string        `env:"PADDLE_WEBHOOK_SECRET"`
	Environment    string        `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	RequestTimeout time.Duration `env:"PADDLE_REQUEST_TIMEOUT" envDefault:"10s"`
}

// Validate fails closed on missing or placeholder credentials so a
// misdeployed instance refuses checkout creation instead of degrading
// silently.
func (c PaddleConfig) Validate() error {
	if isPlaceholder(c.APIKey) {
		return errors.Join(ErrNotConfigured, ErrMissingAPIKey)
	}
	if isPlaceholder(c.WebhookSecret) {
		return errors.Join(ErrNotConfigured, ErrMissingWebhookSecret)
	}
	switch strings.ToLower(c.Environment) {
	case "sandbox", "production", "":
	default:
		return errors.Join(ErrNotConfigured, fmt.Errorf("%w: %s", ErrInvalidEnvironment, c.Environment))
	}
	return nil
}

func isPlaceholder(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || v == "changeme" || v == "todo" {
		return true
	}
	return strings.HasPrefix(v, "your_") || strings.HasPrefix(v, "your-") || strings.Contains(v, "placeholder")
}

// PaddleProvider implements Provider on top of the Paddle Billing API.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	config   PaddleConfig
}

// NewPaddleProvider creates a new Paddle billing provider.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	default:
		client, err = paddle.New(config.APIKey)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
		config:   config,
	}, nil
}

// CreateCheckoutSession creates a hosted checkout transaction in Paddle.
// The internal user ID travels in transaction custom data and comes back
// in every webhook for that subscription.
func (p *PaddleProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if req.PriceID == "" {
		return nil, errors.New("price ID is required")
	}
	if req.UserID == "" {
		return nil, errors.New("user ID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	transactionReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"user_id": req.UserID,
		},
	}
	if req.SuccessURL != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessURL),
		}
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, errors.Join(ErrProvider, err)
	}

	if transaction.Checkout == nil || transaction.Checkout.URL == nil || *transaction.Checkout.URL == "" {
		return nil, ErrNoCheckoutURL
	}

	session := &CheckoutSession{
		URL:       *transaction.Checkout.URL,
		SessionID: transaction.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour), // Paddle checkout links expire in 24 hours
	}
	session.Amount = parseAmount(transaction.Details.Totals.Total)
	session.Currency = string(transaction.Details.Totals.CurrencyCode)
	return session, nil
}

// CancelAtPeriodEnd schedules the Paddle subscription to cancel at the next
// billing period boundary. Access keeps running until then.
func (p *PaddleProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return errors.New("subscription ID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	_, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: subscriptionID,
		EffectiveFrom:  paddle.PtrTo(paddle.EffectiveFromNextBillingPeriod),
	})
	if err != nil {
		return errors.Join(ErrProvider, err)
	}
	return nil
}

// Reactivate removes a scheduled cancellation from the Paddle subscription.
func (p *PaddleProvider) Reactivate(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return errors.New("subscription ID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	_, err := p.client.SubscriptionsClient.UpdateSubscription(ctx, &paddle.UpdateSubscriptionRequest{
		SubscriptionID:  subscriptionID,
		ScheduledChange: paddle.NewPatchField[*paddle.SubscriptionScheduledChange](nil),
	})
	if err != nil {
		return errors.Join(ErrProvider, err)
	}
	return nil
}

// CreatePortalSession returns a link to Paddle's customer portal.
func (p *PaddleProvider) CreatePortalSession(ctx context.Context, customerID string, subscriptionIDs []string) (*PortalLink, error) {
	if customerID == "" {
		return nil, errors.New("customer ID is required")
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	portalSession, err := p.client.CustomerPortalSessionsClient.CreateCustomerPortalSession(ctx, &paddle.CreateCustomerPortalSessionRequest{
		CustomerID:      customerID,
		SubscriptionIDs: subscriptionIDs,
	})
	if err != nil {
		return nil, errors.Join(ErrProvider, err)
	}

	if portalSession.URLs.General.Overview == "" {
		return nil, ErrNoPortalURL
	}
	return &PortalLink{
		URL:       portalSession.URLs.General.Overview,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

// ParseWebhook verifies the Paddle signature and decodes the payload into
// a normalized Event. Decoding goes through typed per-event-kind structs;
// downstream code never touches raw maps.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for verification: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrSignatureVerification, err)
	}
	if !valid {
		return nil, ErrSignatureVerification
	}

	return decodePaddleEvent(payload)
}

type paddleEnvelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type paddleCustomData struct {
	UserID string `json:"user_id"`
}

type paddleBillingPeriod struct {
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
}

type paddleSubscriptionData struct {
	ID                   string               `json:"id"`
	Status               string               `json:"status"`
	CustomerID           string               `json:"customer_id"`
	CustomData           paddleCustomData     `json:"custom_data"`
	CurrentBillingPeriod *paddleBillingPeriod `json:"current_billing_period"`
	NextBilledAt         *time.Time           `json:"next_billed_at"`
	ScheduledChange      *struct {
		Action      string     `json:"action"`
		EffectiveAt *time.Time `json:"effective_at"`
	} `json:"scheduled_change"`
}

type paddleTransactionData struct {
	ID             string               `json:"id"`
	Status         string               `json:"status"`
	SubscriptionID string               `json:"subscription_id"`
	CustomerID     string               `json:"customer_id"`
	CustomData     paddleCustomData     `json:"custom_data"`
	BillingPeriod  *paddleBillingPeriod `json:"billing_period"`
	Details        *struct {
		Totals *struct {
			Total        string `json:"total"`
			CurrencyCode string `json:"currency_code"`
		} `json:"totals"`
	} `json:"details"`
}

func decodePaddleEvent(payload []byte) (*Event, error) {
	var envelope paddleEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	event := &Event{
		ID:            envelope.EventID,
		Type:          mapPaddleEventType(envelope.EventType),
		ProviderEvent: envelope.EventType,
		OccurredAt:    envelope.OccurredAt,
	}

	switch {
	case strings.HasPrefix(envelope.EventType, "subscription."):
		var data paddleSubscriptionData
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to parse subscription event data: %w", err)
		}
		event.SubscriptionID = data.ID
		event.CustomerID = data.CustomerID
		event.UserID = data.CustomData.UserID
		event.Status = data.Status
		event.NextBillingAt = data.NextBilledAt
		if data.CurrentBillingPeriod != nil {
			event.PeriodStartAt = data.CurrentBillingPeriod.StartsAt
			event.PeriodEndAt = data.CurrentBillingPeriod.EndsAt
		}
		if data.ScheduledChange != nil && data.ScheduledChange.Action == "cancel" {
			event.CancelAtPeriodEnd = true
			if event.PeriodEndAt == nil {
				event.PeriodEndAt = data.ScheduledChange.EffectiveAt
			}
		}

	case strings.HasPrefix(envelope.EventType, "transaction."):
		var data paddleTransactionData
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to parse transaction event data: %w", err)
		}
		event.SessionID = data.ID
		event.SubscriptionID = data.SubscriptionID
		event.CustomerID = data.CustomerID
		event.UserID = data.CustomData.UserID
		event.Status = data.Status
		if data.BillingPeriod != nil {
			event.PeriodStartAt = data.BillingPeriod.StartsAt
			event.PeriodEndAt = data.BillingPeriod.EndsAt
		}
		if data.Details != nil && data.Details.Totals != nil {
			event.Amount = parseAmount(data.Details.Totals.Total)
			event.Currency = data.Details.Totals.CurrencyCode
		}
	}

	return event, nil
}

// mapPaddleEventType maps Paddle event names onto the normalized closed set.
func mapPaddleEventType(name string) EventType {
	switch name {
	case "transaction.completed":
		return EventCheckoutCompleted
	case "transaction.paid":
		return EventInvoicePaid
	case "transaction.payment_failed":
		return EventPaymentFailed
	case "subscription.updated", "subscription.activated", "subscription.resumed", "subscription.past_due":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionDeleted
	default:
		return EventIgnored
	}
}

// parseAmount converts Paddle's string totals (smallest currency unit) to
// int64, tolerating a fractional part just in case.
func parseAmount(total string) int64 {
	if total == "" {
		return 0
	}
	if i := strings.IndexByte(total, '.'); i >= 0 {
		total = total[:i]
	}
	amount, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0
	}
	return amount
}
