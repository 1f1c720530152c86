package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"flacroncv-backend-go/internal/models"
)

// FakeBillingProvider implements core.BillingProvider. Unset Func fields fall
// back to permissive defaults; every call is recorded.
type FakeBillingProvider struct {
	mu sync.Mutex

	CustomerExistsFunc        func(ctx context.Context, customerRef string) (bool, error)
	CreateCustomerFunc        func(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSessionFunc func(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error)
	GetCheckoutSessionFunc    func(ctx context.Context, sessionID string) (*models.CheckoutSession, error)
	ActiveSubscriptionIDFunc  func(ctx context.Context, customerRef string) (string, bool, error)
	CancelSubscriptionFunc    func(ctx context.Context, subscriptionID string) (string, error)
	GetPriceFunc              func(ctx context.Context, priceID string) (*models.PlanPrice, error)

	Calls            []string
	CheckoutRequests []models.CheckoutRequest
	CanceledIDs      []string
}

func (f *FakeBillingProvider) record(call string) {
	f.mu.Lock()
	f.Calls = append(f.Calls, call)
	f.mu.Unlock()
}

// CallCount returns how many times the named method was invoked.
func (f *FakeBillingProvider) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *FakeBillingProvider) CustomerExists(ctx context.Context, customerRef string) (bool, error) {
	f.record("CustomerExists")
	if f.CustomerExistsFunc != nil {
		return f.CustomerExistsFunc(ctx, customerRef)
	}
	return true, nil
}

func (f *FakeBillingProvider) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	f.record("CreateCustomer")
	if f.CreateCustomerFunc != nil {
		return f.CreateCustomerFunc(ctx, email, userID)
	}
	return "cus_" + userID, nil
}

func (f *FakeBillingProvider) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error) {
	f.record("CreateCheckoutSession")
	f.mu.Lock()
	f.CheckoutRequests = append(f.CheckoutRequests, req)
	f.mu.Unlock()
	if f.CreateCheckoutSessionFunc != nil {
		return f.CreateCheckoutSessionFunc(ctx, req)
	}
	return &models.CheckoutSession{
		ID:          "cs_test_1",
		URL:         "https://checkout.example.com/cs_test_1",
		CustomerRef: req.CustomerRef,
		Metadata:    req.Metadata,
	}, nil
}

func (f *FakeBillingProvider) GetCheckoutSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	f.record("GetCheckoutSession")
	if f.GetCheckoutSessionFunc != nil {
		return f.GetCheckoutSessionFunc(ctx, sessionID)
	}
	return nil, fmt.Errorf("checkout session %s not configured", sessionID)
}

func (f *FakeBillingProvider) ActiveSubscriptionID(ctx context.Context, customerRef string) (string, bool, error) {
	f.record("ActiveSubscriptionID")
	if f.ActiveSubscriptionIDFunc != nil {
		return f.ActiveSubscriptionIDFunc(ctx, customerRef)
	}
	return "", false, nil
}

func (f *FakeBillingProvider) CancelSubscription(ctx context.Context, subscriptionID string) (string, error) {
	f.record("CancelSubscription")
	f.mu.Lock()
	f.CanceledIDs = append(f.CanceledIDs, subscriptionID)
	f.mu.Unlock()
	if f.CancelSubscriptionFunc != nil {
		return f.CancelSubscriptionFunc(ctx, subscriptionID)
	}
	return "canceled", nil
}

func (f *FakeBillingProvider) GetPrice(ctx context.Context, priceID string) (*models.PlanPrice, error) {
	f.record("GetPrice")
	if f.GetPriceFunc != nil {
		return f.GetPriceFunc(ctx, priceID)
	}
	return &models.PlanPrice{ID: priceID, Amount: 999, Currency: "usd"}, nil
}

// FakeEnhancer implements core.ContentEnhancer.
type FakeEnhancer struct {
	mu sync.Mutex

	EnhanceResumeFunc        func(ctx context.Context, data map[string]interface{}, lang string) (map[string]interface{}, error)
	EnhanceResumeSummaryFunc func(ctx context.Context, data map[string]interface{}, lang string) (map[string]interface{}, error)
	EnhanceCoverLetterFunc   func(ctx context.Context, data map[string]interface{}, lang string) (map[string]interface{}, error)
	FeedbackFunc             func(ctx context.Context, kind models.DocumentKind, data map[string]interface{}, lang string) (string, error)

	Invocations int
}

func (f *FakeEnhancer) count() {
	f.mu.Lock()
	f.Invocations++
	f.mu.Unlock()
}

// Count returns the number of enhancer calls of any kind.
func (f *FakeEnhancer) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Invocations
}

func (f *FakeEnhancer) EnhanceResume(ctx context.Context, data map[string]interface{}, lang string) (map[string]interface{}, error) {
	f.count()
	if f.EnhanceResumeFunc != nil {
		return f.EnhanceResumeFunc(ctx, data, lang)
	}
	return map[string]interface{}{"summary": "enhanced summary"}, nil
}

func (f *FakeEnhancer) EnhanceResumeSummary(ctx context.Context, data map[string]interface{}, lang string) (map[string]interface{}, error) {
	f.count()
	if f.EnhanceResumeSummaryFunc != nil {
		return f.EnhanceResumeSummaryFunc(ctx, data, lang)
	}
	return map[string]interface{}{"summary": "enhanced summary"}, nil
}

func (f *FakeEnhancer) EnhanceCoverLetter(ctx context.Context, data map[string]interface{}, lang string) (map[string]interface{}, error) {
	f.count()
	if f.EnhanceCoverLetterFunc != nil {
		return f.EnhanceCoverLetterFunc(ctx, data, lang)
	}
	return map[string]interface{}{"enhancedContent": "enhanced letter", "closing": "Sincerely,"}, nil
}

func (f *FakeEnhancer) Feedback(ctx context.Context, kind models.DocumentKind, data map[string]interface{}, lang string) (string, error) {
	f.count()
	if f.FeedbackFunc != nil {
		return f.FeedbackFunc(ctx, kind, data, lang)
	}
	return "Looks good.", nil
}

// RecordingNotifier implements core.Notifier and publishes every notification
// on a buffered channel so tests can wait for asynchronous delivery.
type RecordingNotifier struct {
	C   chan models.BillingNotification
	Err error
}

// NewRecordingNotifier returns a notifier with room for a few notifications.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{C: make(chan models.BillingNotification, 16)}
}

func (n *RecordingNotifier) Notify(_ context.Context, note models.BillingNotification) error {
	n.C <- note
	return n.Err
}

// Wait returns the next notification or false after timeout.
func (n *RecordingNotifier) Wait(timeout time.Duration) (models.BillingNotification, bool) {
	select {
	case note := <-n.C:
		return note, true
	case <-time.After(timeout):
		return models.BillingNotification{}, false
	}
}

// MemoryPriceCache implements core.PriceCache with a map and ignores expiry.
type MemoryPriceCache struct {
	mu     sync.Mutex
	values map[string]string
	Hits   int
}

// NewMemoryPriceCache returns an empty cache.
func NewMemoryPriceCache() *MemoryPriceCache {
	return &MemoryPriceCache{values: make(map[string]string)}
}

func (c *MemoryPriceCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if ok {
		c.Hits++
	}
	return v, nil
}

func (c *MemoryPriceCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case string:
		c.values[key] = v
	case []byte:
		c.values[key] = string(v)
	default:
		c.values[key] = fmt.Sprint(v)
	}
	return nil
}

// StaticTokenIssuer implements core.TokenIssuer with a predictable token.
type StaticTokenIssuer struct {
	Err error
}

func (s StaticTokenIssuer) Issue(uid, email string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return "token-" + uid, nil
}
