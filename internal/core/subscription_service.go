package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"flacroncv-backend-go/internal/db"
	"flacroncv-backend-go/internal/models"
)

const (
	defaultCurrency      = "USD"
	defaultNotifyTimeout = 10 * time.Second
	planCacheKeyPrefix   = "plan-price:"
)

// Provider subscription statuses that drive a local transition.
var (
	providerActiveStatuses   = map[string]bool{"active": true, "trialing": true}
	providerCanceledStatuses = map[string]bool{"canceled": true, "unpaid": true, "incomplete_expired": true}
)

// VerifyResult is returned to the client after it comes back from checkout.
type VerifyResult struct {
	Paid bool   `json:"paid"`
	Plan string `json:"plan,omitempty"`
}

// SubscriptionConfig holds the static inputs of the subscription service.
type SubscriptionConfig struct {
	// PriceTable maps plan -> upper-case currency -> provider price ID.
	PriceTable    map[string]map[string]string
	ClientURL     string
	PlanCacheTTL  time.Duration
	NotifyTimeout time.Duration
}

type subscriptionService struct {
	users    db.UserRepository
	billing  BillingProvider
	notifier Notifier
	audit    AuditService
	cache    PriceCache
	cfg      SubscriptionConfig
	logger   *zap.Logger
}

// NewSubscriptionService wires the subscription synchronizer. notifier, audit
// and cache may be nil.
func NewSubscriptionService(users db.UserRepository, billing BillingProvider, notifier Notifier, audit AuditService, cache PriceCache, cfg SubscriptionConfig, logger *zap.Logger) SubscriptionService {
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = defaultNotifyTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &subscriptionService{
		users:    users,
		billing:  billing,
		notifier: notifier,
		audit:    audit,
		cache:    cache,
		cfg:      cfg,
		logger:   logger,
	}
}

func normalizeCurrency(currency string) string {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if c == "" {
		return defaultCurrency
	}
	return c
}

func (s *subscriptionService) priceFor(plan, currency string) (string, error) {
	byCurrency, ok := s.cfg.PriceTable[strings.ToLower(strings.TrimSpace(plan))]
	if !ok {
		return "", ErrInvalidPlan
	}
	priceID, ok := byCurrency[currency]
	if !ok || priceID == "" {
		return "", ErrPriceNotFound
	}
	return priceID, nil
}

// planForPrices finds the plan owning any of the given price IDs.
func (s *subscriptionService) planForPrices(priceIDs []string) string {
	for _, id := range priceIDs {
		for plan, byCurrency := range s.cfg.PriceTable {
			for _, candidate := range byCurrency {
				if candidate != "" && candidate == id {
					return plan
				}
			}
		}
	}
	return ""
}

func (s *subscriptionService) ListPlans(ctx context.Context, currency string) (map[string]models.PlanPrice, error) {
	currency = normalizeCurrency(currency)
	plans := make([]string, 0, len(s.cfg.PriceTable))
	for plan := range s.cfg.PriceTable {
		plans = append(plans, plan)
	}
	sort.Strings(plans)

	out := make(map[string]models.PlanPrice, len(plans))
	for _, plan := range plans {
		priceID, err := s.priceFor(plan, currency)
		if err != nil {
			continue
		}
		price, err := s.planPrice(ctx, priceID)
		if err != nil {
			s.logger.Warn("Skipping plan, price lookup failed",
				zap.String("plan", plan), zap.String("priceID", priceID), zap.Error(err))
			continue
		}
		if price.Name == "" {
			price.Name = plan
		}
		out[plan] = *price
	}
	return out, nil
}

// planPrice reads a price through the cache. Cache errors degrade to a provider call.
func (s *subscriptionService) planPrice(ctx context.Context, priceID string) (*models.PlanPrice, error) {
	key := planCacheKeyPrefix + priceID
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Debug("Plan cache read failed", zap.String("key", key), zap.Error(err))
		} else if raw != "" {
			var cached models.PlanPrice
			if jsonErr := json.Unmarshal([]byte(raw), &cached); jsonErr == nil {
				return &cached, nil
			}
		}
	}

	price, err := s.billing.GetPrice(ctx, priceID)
	if err != nil {
		return nil, ErrBillingProvider.withCause(err)
	}
	if s.cache != nil {
		if encoded, err := json.Marshal(price); err == nil {
			if err := s.cache.Set(ctx, key, string(encoded), s.cfg.PlanCacheTTL); err != nil {
				s.logger.Debug("Plan cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}
	return price, nil
}

func (s *subscriptionService) CreateCheckout(ctx context.Context, userID, email, plan, currency string) (string, error) {
	plan = strings.ToLower(strings.TrimSpace(plan))
	priceID, err := s.priceFor(plan, normalizeCurrency(currency))
	if err != nil {
		return "", err
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if email == "" {
		email = user.Email
	}

	customerRef, err := s.ensureCustomer(ctx, user, email)
	if err != nil {
		return "", err
	}

	meta := models.BillingMetadata{UserID: user.ID, Plan: plan, Email: email, DisplayName: user.Name()}
	session, err := s.billing.CreateCheckoutSession(ctx, models.CheckoutRequest{
		CustomerRef: customerRef,
		PriceID:     priceID,
		SuccessURL:  s.cfg.ClientURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   s.cfg.ClientURL + "/payment/cancel",
		Metadata:    meta,
	})
	if err != nil {
		return "", ErrBillingProvider.withCause(err)
	}
	s.logger.Info("Checkout session created",
		zap.String("userID", user.ID), zap.String("plan", plan), zap.String("sessionID", session.ID))
	return session.URL, nil
}

// ensureCustomer returns a live billing customer for the user, replacing a
// stored reference the provider no longer recognizes.
func (s *subscriptionService) ensureCustomer(ctx context.Context, user *models.User, email string) (string, error) {
	if user.HasBillingCustomer() {
		ref := *user.BillingCustomerRef
		exists, err := s.billing.CustomerExists(ctx, ref)
		if err != nil {
			return "", ErrBillingProvider.withCause(err)
		}
		if exists {
			return ref, nil
		}
		s.logger.Warn("Stored billing customer is missing at the provider, recreating",
			zap.String("userID", user.ID), zap.String("customerRef", ref))
		if err := s.users.SetBillingCustomerRef(ctx, user.ID, nil); err != nil {
			return "", storeError("clear billing customer", err)
		}
	}

	ref, err := s.billing.CreateCustomer(ctx, email, user.ID)
	if err != nil {
		return "", ErrBillingProvider.withCause(err)
	}
	if err := s.users.SetBillingCustomerRef(ctx, user.ID, &ref); err != nil {
		return "", storeError("store billing customer", err)
	}
	s.recordAudit(ctx, models.AuditLog{
		UserID:     user.ID,
		Action:     models.AuditBillingCustomerLinked,
		TargetType: "USER",
		TargetID:   user.ID,
		Source:     "checkout",
		Details:    map[string]interface{}{"customerRef": ref},
	})
	return ref, nil
}

func (s *subscriptionService) HandleEvent(ctx context.Context, event *models.BillingEvent) error {
	log := s.logger.With(zap.String("eventID", event.ID), zap.String("eventType", event.ProviderType))

	switch event.Type {
	case models.EventCheckoutCompleted:
		meta := event.Metadata
		if meta.UserID == "" || meta.Plan == "" {
			log.Warn("Checkout completed without user or plan metadata, skipping")
			return nil
		}
		if err := s.activate(ctx, meta.UserID, event.ObjectID, meta.Plan, false, "webhook"); err != nil {
			return err
		}
		s.notifyBestEffort(ctx, models.BillingNotification{
			UserID:           meta.UserID,
			Type:             models.NotificationSubscription,
			Email:            meta.Email,
			Plan:             meta.Plan,
			DisplayName:      meta.DisplayName,
			StripeCustomerID: event.CustomerRef,
		})
		return nil

	case models.EventSubscriptionCreated, models.EventSubscriptionUpdated:
		userID := event.Metadata.UserID
		if userID == "" {
			log.Debug("Subscription event without user metadata, ignoring")
			return nil
		}
		switch {
		case providerActiveStatuses[event.ProviderStatus]:
			plan := event.Metadata.Plan
			if plan == "" {
				plan = s.planForPrices(event.PriceIDs)
			}
			if plan == "" {
				log.Warn("Active subscription with unknown plan, ignoring", zap.String("userID", userID))
				return nil
			}
			return s.activate(ctx, userID, event.ObjectID, plan, event.CancelAtPeriodEnd, "webhook")
		case providerCanceledStatuses[event.ProviderStatus]:
			return s.cancel(ctx, userID, "webhook")
		default:
			log.Info("Subscription status needs no local change",
				zap.String("userID", userID), zap.String("status", event.ProviderStatus))
			return nil
		}

	case models.EventSubscriptionDeleted:
		if event.CustomerRef == "" {
			return fmt.Errorf("%w: subscription %s has no customer", ErrOrphanEvent, event.ObjectID)
		}
		user, err := s.users.GetByBillingCustomerRef(ctx, event.CustomerRef)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return fmt.Errorf("%w: customer %s", ErrOrphanEvent, event.CustomerRef)
			}
			return storeError("find user by billing customer", err)
		}
		if err := s.cancel(ctx, user.ID, "webhook"); err != nil {
			return err
		}
		s.notifyBestEffort(ctx, models.BillingNotification{
			UserID:           user.ID,
			Type:             models.NotificationCancellation,
			Email:            user.Email,
			Plan:             user.Subscription.Plan,
			DisplayName:      user.Name(),
			StripeCustomerID: event.CustomerRef,
		})
		return nil

	default:
		log.Info("Billing event acknowledged without action")
		return nil
	}
}

func (s *subscriptionService) VerifyCheckout(ctx context.Context, sessionID string) (*VerifyResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, validationError("Session ID is required")
	}
	session, err := s.billing.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, ErrBillingProvider.withCause(err)
	}
	if !session.Paid {
		return &VerifyResult{Paid: false}, nil
	}

	meta := session.Metadata
	if meta.UserID != "" && meta.Plan != "" {
		if err := s.activate(ctx, meta.UserID, session.ID, meta.Plan, false, "verify"); err != nil {
			s.logger.Error("Checkout paid but subscription could not be stored",
				zap.String("sessionID", session.ID), zap.String("userID", meta.UserID), zap.Error(err))
		}
	}
	return &VerifyResult{Paid: true, Plan: meta.Plan}, nil
}

func (s *subscriptionService) Unsubscribe(ctx context.Context, userID string) (string, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if !user.HasBillingCustomer() {
		return "", ErrNoActiveSubscription
	}

	subID, ok, err := s.billing.ActiveSubscriptionID(ctx, *user.BillingCustomerRef)
	if err != nil {
		return "", ErrBillingProvider.withCause(err)
	}
	if !ok {
		return "", ErrNoActiveSubscription
	}

	status, err := s.billing.CancelSubscription(ctx, subID)
	if err != nil {
		return "", ErrBillingProvider.withCause(err)
	}

	if err := s.cancel(ctx, user.ID, "unsubscribe"); err != nil {
		s.logger.Error("Subscription canceled at provider but local state diverged",
			zap.String("userID", user.ID), zap.String("subscriptionID", subID), zap.Error(err))
		return "", err
	}
	return status, nil
}

func (s *subscriptionService) loadUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, storeError("load user", err)
	}
	return user, nil
}

func (s *subscriptionService) activate(ctx context.Context, userID, referenceID, plan string, cancelAtPeriodEnd bool, source string) error {
	sub := models.ActiveSubscription(referenceID, plan, cancelAtPeriodEnd)
	if err := s.users.SetSubscription(ctx, userID, sub); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: user %s", ErrOrphanEvent, userID)
		}
		return storeError("activate subscription", err)
	}
	s.logger.Info("Subscription activated",
		zap.String("userID", userID), zap.String("plan", plan), zap.String("source", source))
	s.recordAudit(ctx, models.AuditLog{
		UserID:     userID,
		Action:     models.AuditSubscriptionActivated,
		TargetType: "SUBSCRIPTION",
		TargetID:   referenceID,
		Source:     source,
		Details:    map[string]interface{}{"plan": plan, "cancelAtPeriodEnd": cancelAtPeriodEnd},
	})
	return nil
}

func (s *subscriptionService) cancel(ctx context.Context, userID, source string) error {
	if err := s.users.SetSubscription(ctx, userID, models.CanceledSubscription()); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: user %s", ErrOrphanEvent, userID)
		}
		return storeError("cancel subscription", err)
	}
	s.logger.Info("Subscription canceled", zap.String("userID", userID), zap.String("source", source))
	s.recordAudit(ctx, models.AuditLog{
		UserID:     userID,
		Action:     models.AuditSubscriptionCanceled,
		TargetType: "SUBSCRIPTION",
		TargetID:   userID,
		Source:     source,
	})
	return nil
}

func (s *subscriptionService) recordAudit(ctx context.Context, entry models.AuditLog) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("Failed to write audit log",
			zap.String("action", entry.Action), zap.String("userID", entry.UserID), zap.Error(err))
	}
}

// notifyBestEffort dispatches n in the background. Failures are logged only.
func (s *subscriptionService) notifyBestEffort(ctx context.Context, n models.BillingNotification) {
	if s.notifier == nil {
		return
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now().UTC()
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(detached, s.cfg.NotifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, n); err != nil {
			s.logger.Warn("Billing notification failed",
				zap.String("userID", n.UserID), zap.String("type", n.Type), zap.Error(err))
		}
	}()
}
