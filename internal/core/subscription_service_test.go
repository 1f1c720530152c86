package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"flacroncv-backend-go/internal/models"
	"flacroncv-backend-go/internal/testutil"
)

var testPriceTable = map[string]map[string]string{
	"basic": {"USD": "price_basic_usd", "EUR": "price_basic_eur"},
	"pro":   {"USD": "price_pro_usd"},
}

type subscriptionFixture struct {
	svc      SubscriptionService
	users    *testutil.MemoryUserRepo
	billing  *testutil.FakeBillingProvider
	notifier *testutil.RecordingNotifier
	audit    *testutil.MemoryAuditRepo
	cache    *testutil.MemoryPriceCache
}

func newSubscriptionFixture(t *testing.T, users ...*models.User) *subscriptionFixture {
	t.Helper()
	f := &subscriptionFixture{
		users:    testutil.NewMemoryUserRepo(users...),
		billing:  &testutil.FakeBillingProvider{},
		notifier: testutil.NewRecordingNotifier(),
		audit:    &testutil.MemoryAuditRepo{},
		cache:    testutil.NewMemoryPriceCache(),
	}
	f.svc = NewSubscriptionService(f.users, f.billing, f.notifier, NewAuditService(f.audit), f.cache, SubscriptionConfig{
		PriceTable:   testPriceTable,
		ClientURL:    "https://app.example.com",
		PlanCacheTTL: time.Hour,
	}, nil)
	return f
}

func strPtr(s string) *string { return &s }

func checkoutEvent(userID, plan, sessionID string) *models.BillingEvent {
	return &models.BillingEvent{
		ID:       "evt_1",
		Type:     models.EventCheckoutCompleted,
		ObjectID: sessionID,
		Metadata: models.BillingMetadata{UserID: userID, Plan: plan, Email: "a@example.com"},
	}
}

func assertSubscription(t *testing.T, got models.Subscription, status models.SubscriptionStatus, plan string, ref *string) {
	t.Helper()
	if got.Status != status || got.Plan != plan {
		t.Fatalf("subscription = %s/%s, want %s/%s", got.Plan, got.Status, plan, status)
	}
	switch {
	case ref == nil && got.ReferenceID != nil:
		t.Fatalf("referenceId = %q, want nil", *got.ReferenceID)
	case ref != nil && (got.ReferenceID == nil || *got.ReferenceID != *ref):
		t.Fatalf("referenceId = %v, want %q", got.ReferenceID, *ref)
	}
}

func TestHandleEvent_CheckoutCompletedIsIdempotent(t *testing.T) {
	f := newSubscriptionFixture(t, &models.User{ID: "u1", Email: "a@example.com"})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := f.svc.HandleEvent(ctx, checkoutEvent("u1", "pro", "cs_1")); err != nil {
			t.Fatalf("HandleEvent() #%d error = %v", i, err)
		}
	}

	u := f.users.User("u1")
	assertSubscription(t, u.Subscription, models.SubscriptionActive, "pro", strPtr("cs_1"))
	if u.Subscription.CancelAtPeriodEnd {
		t.Error("cancelAtPeriodEnd = true, want false")
	}

	note, ok := f.notifier.Wait(time.Second)
	if !ok {
		t.Fatal("expected a subscription notification")
	}
	if note.Type != models.NotificationSubscription || note.UserID != "u1" || note.Plan != "pro" {
		t.Errorf("notification = %+v", note)
	}
}

func TestHandleEvent_CheckoutCompletedWithoutMetadataIsSkipped(t *testing.T) {
	f := newSubscriptionFixture(t, &models.User{ID: "u1"})

	tests := []*models.BillingEvent{
		checkoutEvent("", "pro", "cs_1"),
		checkoutEvent("u1", "", "cs_1"),
	}
	for _, ev := range tests {
		if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
			t.Fatalf("HandleEvent() error = %v", err)
		}
	}
	if f.users.SubscriptionWrites != 0 {
		t.Errorf("SubscriptionWrites = %d, want 0", f.users.SubscriptionWrites)
	}
	assertSubscription(t, f.users.User("u1").Subscription, models.SubscriptionActive, models.PlanFree, nil)
}

func TestHandleEvent_SubscriptionUpdatedStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		status     string
		metaPlan   string
		priceIDs   []string
		wantStatus models.SubscriptionStatus
		wantPlan   string
		wantRef    *string
		wantWrites int
	}{
		{"active with metadata plan", "active", "pro", nil, models.SubscriptionActive, "pro", strPtr("sub_1"), 1},
		{"trialing resolves plan from price", "trialing", "", []string{"price_basic_eur"}, models.SubscriptionActive, "basic", strPtr("sub_1"), 1},
		{"unpaid cancels", "unpaid", "pro", nil, models.SubscriptionCanceled, models.PlanFree, nil, 1},
		{"incomplete_expired cancels", "incomplete_expired", "pro", nil, models.SubscriptionCanceled, models.PlanFree, nil, 1},
		{"past_due leaves state", "past_due", "pro", nil, models.SubscriptionActive, models.PlanFree, nil, 0},
		{"active with unknown price leaves state", "active", "", []string{"price_other"}, models.SubscriptionActive, models.PlanFree, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSubscriptionFixture(t, &models.User{ID: "u1"})
			ev := &models.BillingEvent{
				Type:           models.EventSubscriptionUpdated,
				ObjectID:       "sub_1",
				ProviderStatus: tt.status,
				PriceIDs:       tt.priceIDs,
				Metadata:       models.BillingMetadata{UserID: "u1", Plan: tt.metaPlan},
			}
			if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
				t.Fatalf("HandleEvent() error = %v", err)
			}
			assertSubscription(t, f.users.User("u1").Subscription, tt.wantStatus, tt.wantPlan, tt.wantRef)
			if f.users.SubscriptionWrites != tt.wantWrites {
				t.Errorf("SubscriptionWrites = %d, want %d", f.users.SubscriptionWrites, tt.wantWrites)
			}
		})
	}
}

func TestHandleEvent_SubscriptionEventWithoutUserIsNoOp(t *testing.T) {
	f := newSubscriptionFixture(t, &models.User{ID: "u1"})
	ev := &models.BillingEvent{Type: models.EventSubscriptionCreated, ObjectID: "sub_1", ProviderStatus: "active"}
	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if f.users.SubscriptionWrites != 0 {
		t.Errorf("SubscriptionWrites = %d, want 0", f.users.SubscriptionWrites)
	}
}

func TestHandleEvent_DeletedOrphanChangesNothing(t *testing.T) {
	f := newSubscriptionFixture(t,
		&models.User{ID: "u1", BillingCustomerRef: strPtr("cus_known"), Subscription: models.ActiveSubscription("sub_1", "pro", false)},
	)
	ev := &models.BillingEvent{Type: models.EventSubscriptionDeleted, CustomerRef: "cus_unknown"}

	err := f.svc.HandleEvent(context.Background(), ev)
	if !errors.Is(err, ErrOrphanEvent) {
		t.Fatalf("HandleEvent() error = %v, want ErrOrphanEvent", err)
	}
	if f.users.SubscriptionWrites != 0 {
		t.Errorf("SubscriptionWrites = %d, want 0", f.users.SubscriptionWrites)
	}
	assertSubscription(t, f.users.User("u1").Subscription, models.SubscriptionActive, "pro", strPtr("sub_1"))
}

func TestHandleEvent_DeletedCancelsAndNotifies(t *testing.T) {
	f := newSubscriptionFixture(t,
		&models.User{ID: "u1", Email: "a@example.com", BillingCustomerRef: strPtr("cus_1"), Subscription: models.ActiveSubscription("sub_1", "pro", false)},
	)
	ev := &models.BillingEvent{Type: models.EventSubscriptionDeleted, CustomerRef: "cus_1"}

	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	u := f.users.User("u1")
	assertSubscription(t, u.Subscription, models.SubscriptionCanceled, models.PlanFree, nil)
	if u.Subscription.EndsAt != nil {
		t.Errorf("endsAt = %v, want nil", u.Subscription.EndsAt)
	}
	note, ok := f.notifier.Wait(time.Second)
	if !ok || note.Type != models.NotificationCancellation || note.StripeCustomerID != "cus_1" {
		t.Errorf("notification = %+v, ok = %v", note, ok)
	}
}

func TestHandleEvent_StoreFailureIsReturned(t *testing.T) {
	f := newSubscriptionFixture(t, &models.User{ID: "u1"})
	f.users.SetSubscriptionErr = errors.New("deadline exceeded")

	err := f.svc.HandleEvent(context.Background(), checkoutEvent("u1", "pro", "cs_1"))
	if !errors.Is(err, ErrExternalService) {
		t.Fatalf("HandleEvent() error = %v, want ErrExternalService", err)
	}
}

func TestHandleEvent_DeletedWithoutCustomerIsOrphan(t *testing.T) {
	f := newSubscriptionFixture(t,
		&models.User{ID: "u1", BillingCustomerRef: strPtr("cus_1"), Subscription: models.ActiveSubscription("sub_1", "pro", false)},
	)
	ev := &models.BillingEvent{Type: models.EventSubscriptionDeleted, ObjectID: "sub_1"}

	err := f.svc.HandleEvent(context.Background(), ev)
	if !errors.Is(err, ErrOrphanEvent) {
		t.Fatalf("HandleEvent() error = %v, want ErrOrphanEvent", err)
	}
	if errors.Is(err, ErrExternalService) {
		t.Errorf("HandleEvent() error = %v, must not be retryable", err)
	}
	assertSubscription(t, f.users.User("u1").Subscription, models.SubscriptionActive, "pro", strPtr("sub_1"))
}

func TestHandleEvent_DeletedStoreFailureSkipsNotification(t *testing.T) {
	f := newSubscriptionFixture(t,
		&models.User{ID: "u1", Email: "a@example.com", BillingCustomerRef: strPtr("cus_1"), Subscription: models.ActiveSubscription("sub_1", "pro", false)},
	)
	f.users.SetSubscriptionErr = errors.New("deadline exceeded")
	ev := &models.BillingEvent{Type: models.EventSubscriptionDeleted, CustomerRef: "cus_1"}

	for i := 0; i < 2; i++ {
		if err := f.svc.HandleEvent(context.Background(), ev); !errors.Is(err, ErrExternalService) {
			t.Fatalf("HandleEvent() error = %v, want ErrExternalService", err)
		}
	}
	if note, ok := f.notifier.Wait(100 * time.Millisecond); ok {
		t.Errorf("unexpected notification %+v", note)
	}
}

func TestHandleEvent_PaymentSucceededIsAcknowledged(t *testing.T) {
	f := newSubscriptionFixture(t, &models.User{ID: "u1"})
	ev := &models.BillingEvent{Type: models.EventPaymentSucceeded, Metadata: models.BillingMetadata{UserID: "u1", Plan: "pro"}}
	if err := f.svc.HandleEvent(context.Background(), ev); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if f.users.SubscriptionWrites != 0 {
		t.Errorf("SubscriptionWrites = %d, want 0", f.users.SubscriptionWrites)
	}
}

func TestCreateCheckout_RecoversStaleCustomer(t *testing.T) {
	f := newSubscriptionFixture(t, &models.User{ID: "u1", Email: "a@example.com", DisplayName: "Ada", BillingCustomerRef: strPtr("cus_stale")})
	f.billing.CustomerExistsFunc = func(_ context.Context, ref string) (bool, error) {
		return ref != "cus_stale", nil
	}
	f.billing.CreateCustomerFunc = func(_ context.Context, _, _ string) (string, error) {
		return "cus_new", nil
	}

	url, err := f.svc.CreateCheckout(context.Background(), "u1", "a@example.com", "Pro", "usd")
	if err != nil {
		t.Fatalf("CreateCheckout() error = %v", err)
	}
	if url == "" {
		t.Fatal("CreateCheckout() returned empty url")
	}

	u := f.users.User("u1")
	if u.BillingCustomerRef == nil || *u.BillingCustomerRef != "cus_new" {
		t.Fatalf("billingCustomerRef = %v, want cus_new", u.BillingCustomerRef)
	}
	if len(f.billing.CheckoutRequests) != 1 {
		t.Fatalf("checkout requests = %d, want 1", len(f.billing.CheckoutRequests))
	}
	req := f.billing.CheckoutRequests[0]
	if req.CustomerRef != "cus_new" || req.PriceID != "price_pro_usd" {
		t.Errorf("checkout request = %+v", req)
	}
	want := models.BillingMetadata{UserID: "u1", Plan: "pro", Email: "a@example.com", DisplayName: "Ada"}
	if req.Metadata != want {
		t.Errorf("metadata = %+v, want %+v", req.Metadata, want)
	}
	if req.SuccessURL != "https://app.example.com/payment/success?session_id={CHECKOUT_SESSION_ID}" {
		t.Errorf("success url = %q", req.SuccessURL)
	}
	if req.CancelURL != "https://app.example.com/payment/cancel" {
		t.Errorf("cancel url = %q", req.CancelURL)
	}
}

func TestCreateCheckout_ReusesLiveCustomer(t *testing.T) {
	f := newSubscriptionFixture(t, &models.User{ID: "u1", BillingCustomerRef: strPtr("cus_live")})
	if _, err := f.svc.CreateCheckout(context.Background(), "u1", "a@example.com", "basic", "EUR"); err != nil {
		t.Fatalf("CreateCheckout() error = %v", err)
	}
	if n := f.billing.CallCount("CreateCustomer"); n != 0 {
		t.Errorf("CreateCustomer calls = %d, want 0", n)
	}
	if got := f.billing.CheckoutRequests[0].PriceID; got != "price_basic_eur" {
		t.Errorf("price = %q, want price_basic_eur", got)
	}
}

func TestCreateCheckout_Errors(t *testing.T) {
	tests := []struct {
		name     string
		userID   string
		plan     string
		currency string
		want     error
	}{
		{"unknown plan", "u1", "enterprise", "USD", ErrInvalidPlan},
		{"missing currency price", "u1", "pro", "EUR", ErrPriceNotFound},
		{"unknown user", "ghost", "pro", "USD", ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSubscriptionFixture(t, &models.User{ID: "u1"})
			_, err := f.svc.CreateCheckout(context.Background(), tt.userID, "", tt.plan, tt.currency)
			if !errors.Is(err, tt.want) {
				t.Fatalf("CreateCheckout() error = %v, want %v", err, tt.want)
			}
			if n := f.billing.CallCount("CreateCheckoutSession"); n != 0 {
				t.Errorf("CreateCheckoutSession calls = %d, want 0", n)
			}
		})
	}
}

func TestUnsubscribe_ConvergesToCanceledFree(t *testing.T) {
	f := newSubscriptionFixture(t,
		&models.User{ID: "u1", BillingCustomerRef: strPtr("cus_1"), Subscription: models.ActiveSubscription("sub_1", "pro", true)},
	)
	f.billing.ActiveSubscriptionIDFunc = func(_ context.Context, ref string) (string, bool, error) {
		return "sub_1", ref == "cus_1", nil
	}

	status, err := f.svc.Unsubscribe(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if status != "canceled" {
		t.Errorf("status = %q, want canceled", status)
	}
	if len(f.billing.CanceledIDs) != 1 || f.billing.CanceledIDs[0] != "sub_1" {
		t.Errorf("canceled IDs = %v", f.billing.CanceledIDs)
	}
	assertSubscription(t, f.users.User("u1").Subscription, models.SubscriptionCanceled, models.PlanFree, nil)
}

func TestUnsubscribe_NoActiveSubscription(t *testing.T) {
	tests := []struct {
		name string
		user *models.User
	}{
		{"no billing customer", &models.User{ID: "u1"}},
		{"no provider subscription", &models.User{ID: "u1", BillingCustomerRef: strPtr("cus_1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSubscriptionFixture(t, tt.user)
			_, err := f.svc.Unsubscribe(context.Background(), "u1")
			if !errors.Is(err, ErrNoActiveSubscription) {
				t.Fatalf("Unsubscribe() error = %v, want ErrNoActiveSubscription", err)
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("error should be a validation error")
			}
			if f.users.SubscriptionWrites != 0 {
				t.Errorf("SubscriptionWrites = %d, want 0", f.users.SubscriptionWrites)
			}
		})
	}
}

func TestUnsubscribe_LocalWriteFailureSurfaces(t *testing.T) {
	f := newSubscriptionFixture(t, &models.User{ID: "u1", BillingCustomerRef: strPtr("cus_1")})
	f.billing.ActiveSubscriptionIDFunc = func(context.Context, string) (string, bool, error) { return "sub_1", true, nil }
	f.users.SetSubscriptionErr = errors.New("unavailable")

	_, err := f.svc.Unsubscribe(context.Background(), "u1")
	if !errors.Is(err, ErrExternalService) {
		t.Fatalf("Unsubscribe() error = %v, want ErrExternalService", err)
	}
	if n := f.billing.CallCount("CancelSubscription"); n != 1 {
		t.Errorf("CancelSubscription calls = %d, want 1", n)
	}
}

func TestVerifyCheckout(t *testing.T) {
	paidSession := &models.CheckoutSession{ID: "cs_1", Paid: true, Metadata: models.BillingMetadata{UserID: "u1", Plan: "basic"}}

	t.Run("paid session activates", func(t *testing.T) {
		f := newSubscriptionFixture(t, &models.User{ID: "u1"})
		f.billing.GetCheckoutSessionFunc = func(context.Context, string) (*models.CheckoutSession, error) { return paidSession, nil }

		res, err := f.svc.VerifyCheckout(context.Background(), "cs_1")
		if err != nil {
			t.Fatalf("VerifyCheckout() error = %v", err)
		}
		if !res.Paid || res.Plan != "basic" {
			t.Errorf("result = %+v", res)
		}
		assertSubscription(t, f.users.User("u1").Subscription, models.SubscriptionActive, "basic", strPtr("cs_1"))
	})

	t.Run("unpaid session leaves state", func(t *testing.T) {
		f := newSubscriptionFixture(t, &models.User{ID: "u1"})
		f.billing.GetCheckoutSessionFunc = func(context.Context, string) (*models.CheckoutSession, error) {
			return &models.CheckoutSession{ID: "cs_1", Metadata: paidSession.Metadata}, nil
		}
		res, err := f.svc.VerifyCheckout(context.Background(), "cs_1")
		if err != nil || res.Paid {
			t.Fatalf("VerifyCheckout() = %+v, %v", res, err)
		}
		if f.users.SubscriptionWrites != 0 {
			t.Errorf("SubscriptionWrites = %d, want 0", f.users.SubscriptionWrites)
		}
	})

	t.Run("store failure still reports paid", func(t *testing.T) {
		f := newSubscriptionFixture(t, &models.User{ID: "u1"})
		f.billing.GetCheckoutSessionFunc = func(context.Context, string) (*models.CheckoutSession, error) { return paidSession, nil }
		f.users.SetSubscriptionErr = errors.New("unavailable")

		res, err := f.svc.VerifyCheckout(context.Background(), "cs_1")
		if err != nil || !res.Paid {
			t.Fatalf("VerifyCheckout() = %+v, %v", res, err)
		}
	})

	t.Run("empty session id", func(t *testing.T) {
		f := newSubscriptionFixture(t)
		if _, err := f.svc.VerifyCheckout(context.Background(), " "); !errors.Is(err, ErrValidation) {
			t.Fatalf("VerifyCheckout() error = %v, want ErrValidation", err)
		}
	})
}

func TestListPlans_UsesCache(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.billing.GetPriceFunc = func(_ context.Context, id string) (*models.PlanPrice, error) {
		if id == "price_basic_usd" {
			return nil, errors.New("provider down")
		}
		return &models.PlanPrice{ID: id, Name: "Pro", Amount: 1999, Currency: "usd"}, nil
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		plans, err := f.svc.ListPlans(ctx, "usd")
		if err != nil {
			t.Fatalf("ListPlans() error = %v", err)
		}
		if _, ok := plans["basic"]; ok {
			t.Error("basic should be skipped when its price lookup fails")
		}
		if got := plans["pro"]; got.Amount != 1999 || got.ID != "price_pro_usd" {
			t.Errorf("pro = %+v", got)
		}
	}
	// basic is retried each time; pro comes from the cache the second time.
	if n := f.billing.CallCount("GetPrice"); n != 3 {
		t.Errorf("GetPrice calls = %d, want 3", n)
	}
}
