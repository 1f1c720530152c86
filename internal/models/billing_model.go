package models

import "time"

// BillingEventType is the provider-neutral kind of an inbound billing event.
type BillingEventType string

const (
	EventCheckoutCompleted   BillingEventType = "checkout_completed"
	EventSubscriptionCreated BillingEventType = "subscription_created"
	EventSubscriptionUpdated BillingEventType = "subscription_updated"
	EventSubscriptionDeleted BillingEventType = "subscription_deleted"
	EventPaymentSucceeded    BillingEventType = "payment_succeeded"
	EventOther               BillingEventType = "other"
)

// BillingMetadata is attached by this service to checkout sessions and
// subscriptions so that asynchronous events can be attributed to a user.
type BillingMetadata struct {
	UserID      string `json:"userId"`
	Plan        string `json:"plan"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// Map renders the metadata in the key/value form the provider stores.
func (m BillingMetadata) Map() map[string]string {
	return map[string]string{
		"userId":      m.UserID,
		"plan":        m.Plan,
		"email":       m.Email,
		"displayName": m.DisplayName,
	}
}

// BillingMetadataFromMap reads metadata back from the provider's key/value form.
func BillingMetadataFromMap(m map[string]string) BillingMetadata {
	return BillingMetadata{
		UserID:      m["userId"],
		Plan:        m["plan"],
		Email:       m["email"],
		DisplayName: m["displayName"],
	}
}

// BillingEvent is a verified webhook event normalized away from the provider's
// own object model.
type BillingEvent struct {
	ID                string
	Type              BillingEventType
	ProviderType      string // the provider's raw event type, kept for logging
	ObjectID          string // checkout session ID or subscription ID
	CustomerRef       string
	Metadata          BillingMetadata
	ProviderStatus    string // subscription status as reported by the provider
	CancelAtPeriodEnd bool
	PriceIDs          []string
	PaymentStatus     string
}

// CheckoutSession is the subset of a provider checkout session this service uses.
type CheckoutSession struct {
	ID          string
	URL         string
	CustomerRef string
	Paid        bool
	Metadata    BillingMetadata
}

// CheckoutRequest carries everything needed to open a hosted checkout.
type CheckoutRequest struct {
	CustomerRef string
	PriceID     string
	SuccessURL  string
	CancelURL   string
	Metadata    BillingMetadata
}

// PlanPrice describes one purchasable plan in a given currency.
type PlanPrice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// BillingNotification is the payload sent to the external automation hook.
type BillingNotification struct {
	UserID           string    `json:"userId"`
	Type             string    `json:"type"` // "subscription" or "cancellation"
	Email            string    `json:"email"`
	Plan             string    `json:"plan"`
	DisplayName      string    `json:"displayName"`
	StripeCustomerID string    `json:"stripeCustomerId,omitempty"`
	OccurredAt       time.Time `json:"occurredAt"`
}

// Notification types.
const (
	NotificationSubscription = "subscription"
	NotificationCancellation = "cancellation"
)
