package checkout

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	EventCheckoutSessionCompleted      = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// VerifyStripeWebhook checks the Stripe-Signature header against the raw
// request body and decodes the event. An empty secret or header never verifies.
func VerifyStripeWebhook(payload []byte, signatureHeader, secret string, tolerance time.Duration) (*WebhookEvent, error) {
	sig := strings.TrimSpace(signatureHeader)
	secret = strings.TrimSpace(secret)
	if sig == "" || secret == "" {
		return nil, ErrSignatureInvalid
	}
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	out := &WebhookEvent{
		ID:      event.ID,
		Type:    string(event.Type),
		Payload: payload,
	}
	if isCheckoutSessionEvent(out.Type) && event.Data != nil {
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return nil, fmt.Errorf("%w: decode checkout session: %v", ErrInvalidInput, err)
		}
		out.Session = fromStripeSession(&cs)
	}
	return out, nil
}

func isCheckoutSessionEvent(eventType string) bool {
	return strings.HasPrefix(eventType, "checkout.session.")
}

// isCompletionEvent reports whether the event announces a finished payment.
func isCompletionEvent(eventType string) bool {
	switch eventType {
	case EventCheckoutSessionCompleted, EventCheckoutAsyncPaymentSucceeded:
		return true
	default:
		return false
	}
}
