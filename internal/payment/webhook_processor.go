package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"flacroncv-backend-go/internal/core"
	"flacroncv-backend-go/internal/models"
)

// ErrInvalidSignature is returned when a webhook payload fails verification.
var ErrInvalidSignature = errors.New("stripe signature invalid")

// WebhookProcessor verifies Stripe webhooks and normalizes them to billing events.
type WebhookProcessor struct {
	secret string
}

var _ core.EventParser = (*WebhookProcessor)(nil)

// NewWebhookProcessor creates a processor for the endpoint's signing secret.
func NewWebhookProcessor(secret string) *WebhookProcessor {
	return &WebhookProcessor{secret: secret}
}

func (p *WebhookProcessor) VerifyAndParse(payload []byte, signature string) (*models.BillingEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &models.BillingEvent{ID: event.ID, ProviderType: string(event.Type), Type: models.EventOther}
	if event.Data == nil {
		return out, nil
	}

	switch event.Type {
	case "checkout.session.completed":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.Type = models.EventCheckoutCompleted
		out.ObjectID = s.ID
		out.Metadata = models.BillingMetadataFromMap(s.Metadata)
		out.PaymentStatus = string(s.PaymentStatus)
		if s.Customer != nil {
			out.CustomerRef = s.Customer.ID
		}

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		switch event.Type {
		case "customer.subscription.created":
			out.Type = models.EventSubscriptionCreated
		case "customer.subscription.updated":
			out.Type = models.EventSubscriptionUpdated
		default:
			out.Type = models.EventSubscriptionDeleted
		}
		out.ObjectID = sub.ID
		out.Metadata = models.BillingMetadataFromMap(sub.Metadata)
		out.ProviderStatus = string(sub.Status)
		out.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		if sub.Customer != nil {
			out.CustomerRef = sub.Customer.ID
		}
		if sub.Items != nil {
			for _, item := range sub.Items.Data {
				if item.Price != nil {
					out.PriceIDs = append(out.PriceIDs, item.Price.ID)
				}
			}
		}

	case "invoice.payment_succeeded":
		out.Type = models.EventPaymentSucceeded
	}
	return out, nil
}
