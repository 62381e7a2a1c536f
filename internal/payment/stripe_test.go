package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()

	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeGateway_ParseWebhook(t *testing.T) {
	gw := NewStripeGateway("sk_test_dummy", testWebhookSecret, logger.InitializeTestZapLogger())

	completed := []byte(`{
		"id": "evt_1",
		"object": "event",
		"api_version": "2023-10-16",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_abc",
			"object": "checkout.session",
			"payment_status": "paid",
			"payment_intent": "pi_123",
			"metadata": {"bookingId": "b1"}
		}}
	}`)

	intent := []byte(`{
		"id": "evt_2",
		"object": "event",
		"api_version": "2023-10-16",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_456", "object": "payment_intent", "metadata": {}}}
	}`)

	tests := []struct {
		name      string
		payload   []byte
		signature func([]byte) string
		wantErr   error
		check     func(t *testing.T, e *Event)
	}{
		{
			name:      "checkout completed",
			payload:   completed,
			signature: func(p []byte) string { return signPayload(t, p, testWebhookSecret) },
			check: func(t *testing.T, e *Event) {
				if e.Type != EventCheckoutCompleted || e.SessionID != "cs_test_abc" {
					t.Errorf("event = %+v", e)
				}
				if e.PaymentStatus != PaymentStatusPaid || e.Metadata[MetadataBookingID] != "b1" {
					t.Errorf("event = %+v", e)
				}
				if e.PaymentIntentID != "pi_123" {
					t.Errorf("payment intent = %q", e.PaymentIntentID)
				}
			},
		},
		{
			name:      "payment intent succeeded",
			payload:   intent,
			signature: func(p []byte) string { return signPayload(t, p, testWebhookSecret) },
			check: func(t *testing.T, e *Event) {
				if e.Type != EventPaymentIntentSucceeded || e.PaymentIntentID != "pi_456" {
					t.Errorf("event = %+v", e)
				}
			},
		},
		{
			name:      "wrong secret",
			payload:   completed,
			signature: func(p []byte) string { return signPayload(t, p, "whsec_other") },
			wantErr:   ErrInvalidSignature,
		},
		{
			name:      "missing header",
			payload:   completed,
			signature: func([]byte) string { return "" },
			wantErr:   ErrInvalidSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := gw.ParseWebhook(tt.payload, tt.signature(tt.payload))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWebhook: %v", err)
			}
			tt.check(t, evt)
		})
	}
}

func TestSessionIDFromURL(t *testing.T) {
	tests := map[string]string{
		"https://checkout.stripe.com/c/pay/cs_test_a1B2c3#fidkdWxOYHwnPyd1blpxYHZxWjA0": "cs_test_a1B2c3",
		"https://checkout.stripe.com/c/pay/cs_live_ZZ9":                                  "cs_live_ZZ9",
		"https://example.com/no-session":                                                 "",
		"":                                                                               "",
	}

	for in, want := range tests {
		if got := SessionIDFromURL(in); got != want {
			t.Errorf("SessionIDFromURL(%q) = %q, want %q", in, got, want)
		}
	}
}
