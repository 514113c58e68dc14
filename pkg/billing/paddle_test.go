package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaddleConfigValidate(t *testing.T) {
	valid := PaddleConfig{
		APIKey:        "pdl_live_apikey_01abc",
		WebhookSecret: "pdl_ntfset_01abc_secret",
		Environment:   "production",
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("sandbox environment", func(t *testing.T) {
		cfg := valid
		cfg.Environment = "sandbox"
		assert.NoError(t, cfg.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*PaddleConfig)
		want   error
	}{
		{"missing api key", func(c *PaddleConfig) { c.APIKey = "" }, ErrMissingAPIKey},
		{"placeholder api key", func(c *PaddleConfig) { c.APIKey = "your_api_key_here" }, ErrMissingAPIKey},
		{"changeme api key", func(c *PaddleConfig) { c.APIKey = "CHANGEME" }, ErrMissingAPIKey},
		{"missing webhook secret", func(c *PaddleConfig) { c.WebhookSecret = "" }, ErrMissingWebhookSecret},
		{"placeholder webhook secret", func(c *PaddleConfig) { c.WebhookSecret = "todo" }, ErrMissingWebhookSecret},
		{"bad environment", func(c *PaddleConfig) { c.Environment = "qa" }, ErrInvalidEnvironment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotConfigured)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewPaddleProviderRejectsPlaceholders(t *testing.T) {
	_, err := NewPaddleProvider(PaddleConfig{
		APIKey:        "placeholder-key",
		WebhookSecret: "secret",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestMapPaddleEventType(t *testing.T) {
	tests := []struct {
		provider string
		want     EventType
	}{
		{"transaction.completed", EventCheckoutCompleted},
		{"transaction.paid", EventInvoicePaid},
		{"transaction.payment_failed", EventPaymentFailed},
		{"subscription.updated", EventSubscriptionUpdated},
		{"subscription.activated", EventSubscriptionUpdated},
		{"subscription.resumed", EventSubscriptionUpdated},
		{"subscription.past_due", EventSubscriptionUpdated},
		{"subscription.canceled", EventSubscriptionDeleted},
		{"subscription.created", EventIgnored},
		{"address.updated", EventIgnored},
		{"", EventIgnored},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			assert.Equal(t, tt.want, mapPaddleEventType(tt.provider))
		})
	}
}

func TestDecodePaddleEvent(t *testing.T) {
	t.Run("subscription updated with scheduled cancel", func(t *testing.T) {
		payload := []byte(`{
			"event_id": "evt_01",
			"event_type": "subscription.updated",
			"occurred_at": "2026-03-15T10:00:00Z",
			"data": {
				"id": "sub_01",
				"status": "active",
				"customer_id": "ctm_01",
				"custom_data": {"user_id": "7f9c24e5-2500-4d35-8cd8-089b9d4e0001"},
				"current_billing_period": {
					"starts_at": "2026-03-01T00:00:00Z",
					"ends_at": "2026-03-31T00:00:00Z"
				},
				"next_billed_at": "2026-03-31T00:00:00Z",
				"scheduled_change": {"action": "cancel", "effective_at": "2026-03-31T00:00:00Z"}
			}
		}`)

		event, err := decodePaddleEvent(payload)
		require.NoError(t, err)

		assert.Equal(t, "evt_01", event.ID)
		assert.Equal(t, EventSubscriptionUpdated, event.Type)
		assert.Equal(t, "subscription.updated", event.ProviderEvent)
		assert.Equal(t, "sub_01", event.SubscriptionID)
		assert.Equal(t, "ctm_01", event.CustomerID)
		assert.Equal(t, "7f9c24e5-2500-4d35-8cd8-089b9d4e0001", event.UserID)
		assert.Equal(t, "active", event.Status)
		assert.True(t, event.CancelAtPeriodEnd)
		require.NotNil(t, event.PeriodStartAt)
		assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *event.PeriodStartAt)
		require.NotNil(t, event.NextBillingAt)
	})

	t.Run("transaction completed", func(t *testing.T) {
		payload := []byte(`{
			"event_id": "evt_02",
			"event_type": "transaction.completed",
			"occurred_at": "2026-03-15T10:00:00Z",
			"data": {
				"id": "txn_01",
				"status": "completed",
				"subscription_id": "sub_01",
				"customer_id": "ctm_01",
				"custom_data": {"user_id": "7f9c24e5-2500-4d35-8cd8-089b9d4e0001"},
				"billing_period": {
					"starts_at": "2026-03-15T00:00:00Z",
					"ends_at": "2026-04-14T00:00:00Z"
				},
				"details": {"totals": {"total": "999", "currency_code": "USD"}}
			}
		}`)

		event, err := decodePaddleEvent(payload)
		require.NoError(t, err)

		assert.Equal(t, EventCheckoutCompleted, event.Type)
		assert.Equal(t, "txn_01", event.SessionID)
		assert.Equal(t, "sub_01", event.SubscriptionID)
		assert.Equal(t, int64(999), event.Amount)
		assert.Equal(t, "USD", event.Currency)
		require.NotNil(t, event.PeriodEndAt)
	})

	t.Run("unknown event decodes as ignored", func(t *testing.T) {
		payload := []byte(`{
			"event_id": "evt_03",
			"event_type": "customer.updated",
			"occurred_at": "2026-03-15T10:00:00Z",
			"data": {"id": "ctm_01"}
		}`)

		event, err := decodePaddleEvent(payload)
		require.NoError(t, err)
		assert.Equal(t, EventIgnored, event.Type)
		assert.Equal(t, "evt_03", event.ID)
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, err := decodePaddleEvent([]byte(`{not json`))
		assert.Error(t, err)
	})
}

func TestParseAmount(t *testing.T) {
	assert.Equal(t, int64(999), parseAmount("999"))
	assert.Equal(t, int64(999), parseAmount("999.00"))
	assert.Zero(t, parseAmount(""))
	assert.Zero(t, parseAmount("abc"))
}
