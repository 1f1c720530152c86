// Package payment adapts the Stripe API to the billing interfaces used by the
// subscription service.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"go.uber.org/zap"

	"flacroncv-backend-go/internal/core"
	"flacroncv-backend-go/internal/models"
)

// Gateway errors. Stripe types never leave this package.
var (
	ErrProviderDown     = errors.New("payment provider is currently unavailable")
	ErrResourceMissing  = errors.New("payment provider resource not found")
	ErrProviderRejected = errors.New("payment provider rejected the request")
)

// StripeGateway implements core.BillingProvider on a per-instance Stripe client.
type StripeGateway struct {
	client *client.API
	logger *zap.Logger
}

var _ core.BillingProvider = (*StripeGateway)(nil)

// NewStripeGateway creates a gateway for the given secret key.
func NewStripeGateway(apiKey string, logger *zap.Logger) *StripeGateway {
	sc := &client.API{}
	sc.Init(apiKey, nil)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StripeGateway{client: sc, logger: logger}
}

// CustomerExists treats a resource_missing error or a deleted customer as absent.
func (g *StripeGateway) CustomerExists(ctx context.Context, customerRef string) (bool, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	cus, err := g.client.Customers.Get(customerRef, params)
	if err != nil {
		mapped := mapStripeError(err)
		if errors.Is(mapped, ErrResourceMissing) {
			return false, nil
		}
		return false, mapped
	}
	return !cus.Deleted, nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.AddMetadata("userId", userID)
	params.Context = ctx
	cus, err := g.client.Customers.New(params)
	if err != nil {
		return "", mapStripeError(err)
	}
	g.logger.Info("Stripe customer created", zap.String("userID", userID), zap.String("customerID", cus.ID))
	return cus.ID, nil
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error) {
	meta := req.Metadata.Map()
	params := &stripe.CheckoutSessionParams{
		Customer:           stripe.String(req.CustomerRef),
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(req.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:       stripe.String(req.SuccessURL),
		CancelURL:        stripe.String(req.CancelURL),
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{Metadata: meta},
	}
	for k, v := range meta {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := g.client.CheckoutSessions.New(params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return toCheckoutSession(s), nil
}

func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := g.client.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	return toCheckoutSession(s), nil
}

func toCheckoutSession(s *stripe.CheckoutSession) *models.CheckoutSession {
	out := &models.CheckoutSession{
		ID:       s.ID,
		URL:      s.URL,
		Paid:     s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Metadata: models.BillingMetadataFromMap(s.Metadata),
	}
	if s.Customer != nil {
		out.CustomerRef = s.Customer.ID
	}
	return out
}

func (g *StripeGateway) ActiveSubscriptionID(ctx context.Context, customerRef string) (string, bool, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerRef),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Limit = stripe.Int64(1)
	params.Context = ctx

	it := g.client.Subscriptions.List(params)
	if it.Next() {
		return it.Subscription().ID, true, nil
	}
	if err := it.Err(); err != nil {
		return "", false, mapStripeError(err)
	}
	return "", false, nil
}

func (g *StripeGateway) CancelSubscription(ctx context.Context, subscriptionID string) (string, error) {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	sub, err := g.client.Subscriptions.Cancel(subscriptionID, params)
	if err != nil {
		return "", mapStripeError(err)
	}
	return string(sub.Status), nil
}

func (g *StripeGateway) GetPrice(ctx context.Context, priceID string) (*models.PlanPrice, error) {
	params := &stripe.PriceParams{}
	params.AddExpand("product")
	params.Context = ctx
	p, err := g.client.Prices.Get(priceID, params)
	if err != nil {
		return nil, mapStripeError(err)
	}
	name := p.Nickname
	if p.Product != nil && p.Product.Name != "" {
		name = p.Product.Name
	}
	return &models.PlanPrice{
		ID:       p.ID,
		Name:     name,
		Amount:   p.UnitAmount,
		Currency: strings.ToLower(string(p.Currency)),
	}, nil
}

// mapStripeError converts Stripe errors into gateway errors.
func mapStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrResourceMissing, stripeErr.Msg)
		}
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%w: %s", ErrProviderDown, stripeErr.Msg)
		}
		return fmt.Errorf("%w: %s", ErrProviderRejected, stripeErr.Msg)
	}
	return fmt.Errorf("stripe request failed: %w", err)
}
