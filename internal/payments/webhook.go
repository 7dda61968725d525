package payments

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	ErrMissingSignature       = errors.New("no signature")
	ErrWebhookSecretMissing   = errors.New("webhook secret not configured")
	ErrInvalidSignature       = errors.New("webhook signature verification failed")
	ErrMissingProjectMetadata = errors.New("no project_id in metadata")
)

const EventCheckoutCompleted = string(stripe.EventTypeCheckoutSessionCompleted)

// CompletedCheckout is the part of a checkout.session.completed event the
// service acts on.
type CompletedCheckout struct {
	SessionID       string
	ProjectID       string
	UserID          string
	AmountTotal     int64
	PaymentIntentID string
}

type WebhookEvent struct {
	ID       string
	Type     string
	Checkout *CompletedCheckout
}

// ParseWebhook verifies the Stripe-Signature header before decoding anything.
func ParseWebhook(payload []byte, signature, secret string) (*WebhookEvent, error) {
	if signature == "" {
		return nil, ErrMissingSignature
	}
	if secret == "" {
		return nil, ErrWebhookSecretMissing
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if out.Type != EventCheckoutCompleted {
		return out, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}

	checkout := &CompletedCheckout{
		SessionID:   cs.ID,
		ProjectID:   cs.Metadata["project_id"],
		UserID:      cs.Metadata["user_id"],
		AmountTotal: cs.AmountTotal,
	}
	if cs.PaymentIntent != nil {
		checkout.PaymentIntentID = cs.PaymentIntent.ID
	}
	if checkout.ProjectID == "" {
		return nil, ErrMissingProjectMetadata
	}
	out.Checkout = checkout
	return out, nil
}
