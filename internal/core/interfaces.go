package core

import (
	"context"
	"time"

	"flacroncv-backend-go/internal/models"
)

// BillingProvider is the subset of the payment provider's API the
// subscription synchronizer depends on.
type BillingProvider interface {
	// CustomerExists reports false (and no error) when the provider no longer
	// knows the customer, e.g. after provider-side data loss.
	CustomerExists(ctx context.Context, customerRef string) (bool, error)
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*models.CheckoutSession, error)
	// ActiveSubscriptionID returns the customer's active subscription, if any.
	ActiveSubscriptionID(ctx context.Context, customerRef string) (string, bool, error)
	// CancelSubscription cancels immediately and returns the provider's resulting status.
	CancelSubscription(ctx context.Context, subscriptionID string) (string, error)
	GetPrice(ctx context.Context, priceID string) (*models.PlanPrice, error)
}

// EventParser verifies a signed webhook payload and normalizes it.
type EventParser interface {
	VerifyAndParse(payload []byte, signature string) (*models.BillingEvent, error)
}

// ContentEnhancer rewrites document payloads with a language model. Returned
// maps hold only the fields the model produced; callers merge them.
type ContentEnhancer interface {
	EnhanceResume(ctx context.Context, data map[string]interface{}, lang string) (map[string]interface{}, error)
	EnhanceResumeSummary(ctx context.Context, data map[string]interface{}, lang string) (map[string]interface{}, error)
	EnhanceCoverLetter(ctx context.Context, data map[string]interface{}, lang string) (map[string]interface{}, error)
	Feedback(ctx context.Context, kind models.DocumentKind, data map[string]interface{}, lang string) (string, error)
}

// Notifier delivers best-effort billing notifications to external automation.
type Notifier interface {
	Notify(ctx context.Context, n models.BillingNotification) error
}

// PriceCache caches serialized plan prices. Get returns "" on a miss.
type PriceCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// TokenIssuer issues self-signed bearer credentials.
type TokenIssuer interface {
	Issue(uid, email string) (string, error)
}

// AuditService records billing and admin actions.
type AuditService interface {
	CreateAuditLog(ctx context.Context, logEntry models.AuditLog) error
	ListRecent(ctx context.Context, limit int) ([]*models.AuditLog, error)
}

// UserService covers profile lookup and first-login provisioning.
type UserService interface {
	GetOrCreate(ctx context.Context, userID, email, displayName, photoURL string) (*models.User, bool, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// AuthService issues bearer tokens for Firebase identities and credential accounts.
type AuthService interface {
	Login(ctx context.Context, uid, email string) (*AuthResult, error)
	PasswordLogin(ctx context.Context, email, password string) (*AuthResult, error)
	Register(ctx context.Context, req models.RegisterRequest) (*AuthResult, error)
}

// SubscriptionService keeps User.subscription in step with the billing provider.
type SubscriptionService interface {
	ListPlans(ctx context.Context, currency string) (map[string]models.PlanPrice, error)
	CreateCheckout(ctx context.Context, userID, email, plan, currency string) (string, error)
	HandleEvent(ctx context.Context, event *models.BillingEvent) error
	VerifyCheckout(ctx context.Context, sessionID string) (*VerifyResult, error)
	Unsubscribe(ctx context.Context, userID string) (string, error)
}

// DocumentService manages one kind of document.
type DocumentService interface {
	Kind() models.DocumentKind
	Generate(ctx context.Context, userID, lang string, payload map[string]interface{}) (*GenerateResult, error)
	Enhance(ctx context.Context, userID, lang string, payload map[string]interface{}) (map[string]interface{}, error)
	EnhanceSummary(ctx context.Context, userID, lang string, payload map[string]interface{}) (map[string]interface{}, error)
	Feedback(ctx context.Context, lang string, payload map[string]interface{}) (string, error)
	Get(ctx context.Context, userID, docID string) (*models.Document, error)
	List(ctx context.Context, userID string) ([]*models.Document, error)
	Update(ctx context.Context, userID, docID string, payload map[string]interface{}) (*models.Document, error)
	Delete(ctx context.Context, userID, docID string) error
	AdminUpdate(ctx context.Context, docID string, payload map[string]interface{}) (*models.Document, error)
	AdminDelete(ctx context.Context, docID string) error
}

// AdminService backs the admin dashboard.
type AdminService interface {
	Stats(ctx context.Context) (*AdminStats, error)
	ListUsers(ctx context.Context) ([]AdminUserView, error)
	UpdateUser(ctx context.Context, actorID, userID string, fields models.UpdateUserFields) error
	ListDocuments(ctx context.Context) ([]models.AdminDocument, error)
	UpdateDocument(ctx context.Context, docType, docID string, content map[string]interface{}) (*models.Document, error)
	DeleteDocument(ctx context.Context, actorID, docType, docID string) error
	RegisterWebhook(ctx context.Context, actorID, hookType, url string) error
	ListAuditLogs(ctx context.Context, limit int) ([]*models.AuditLog, error)
}
