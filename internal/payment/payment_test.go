package payment

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
)

func checkoutEvent(eventType, sessionID string) []byte {
	return []byte(fmt.Sprintf(`{
  "id": "evt_test_1",
  "object": "event",
  "api_version": %q,
  "type": %q,
  "data": {"object": {"id": %q, "object": "checkout.session", "payment_status": "paid"}}
}`, stripe.APIVersion, eventType, sessionID))
}

func TestParseWebhookSigned(t *testing.T) {
	payload := checkoutEvent(EventCheckoutCompleted, "cs_test_abc")
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})

	event, err := ParseWebhook(signed.Payload, signed.Header, "whsec_test")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_abc", event.SessionID)
	assert.True(t, event.IsPaymentEvent())
}

func TestParseWebhookBadSignature(t *testing.T) {
	payload := checkoutEvent(EventCheckoutCompleted, "cs_test_abc")

	_, err := ParseWebhook(payload, "t=1,v1=deadbeef", "whsec_test")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParseWebhookUnverifiedMode(t *testing.T) {
	event, err := ParseWebhook(checkoutEvent("payment_intent.created", "pi_123"), "", "")
	require.NoError(t, err)
	assert.Equal(t, "payment_intent.created", event.Type)
	assert.False(t, event.IsPaymentEvent())

	_, err = ParseWebhook([]byte("{not json"), "", "")
	assert.Error(t, err)
}

func TestSessionPaid(t *testing.T) {
	assert.True(t, (&Session{PaymentStatus: PaymentStatusPaid}).Paid())
	assert.False(t, (&Session{PaymentStatus: PaymentStatusUnpaid}).Paid())
	assert.False(t, (&Session{PaymentStatus: "no_payment_required"}).Paid())
}
