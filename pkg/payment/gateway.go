package payment

import (
	"context"
)

// Event types dispatched by the webhook endpoint. Anything else is
// acknowledged and ignored.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
)

// Intent is the provider-side charge object correlated 1:1 with an order.
type Intent struct {
	ID           string
	ClientSecret string
}

// Event is a verified webhook delivery. Metadata carries the orderId/userId
// correlation embedded at intent creation.
type Event struct {
	ID       string
	Type     string
	IntentID string
	Metadata map[string]string
}

// Gateway is the payment provider contract. VerifyEvent must reject
// malformed or unsigned payloads before any order lookup happens; forged
// completion signals must never reach the reconciliation engine.
type Gateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*Intent, error)
	VerifyEvent(payload []byte, signatureHeader string) (*Event, error)
}
