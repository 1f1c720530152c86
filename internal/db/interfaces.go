package db

import (
	"context"

	"flacroncv-backend-go/internal/models"
)

// UserRepository defines the interface for user data storage operations.
type UserRepository interface {
	// Create stores a new user. An empty user.ID lets the store assign one,
	// which is written back into user.ID.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByBillingCustomerRef(ctx context.Context, customerRef string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	// UpdateProfile applies only the supplied admin-editable fields.
	UpdateProfile(ctx context.Context, userID string, fields models.UpdateUserFields) error
	// SetSubscription replaces the nested subscription in one write.
	SetSubscription(ctx context.Context, userID string, sub models.Subscription) error
	// SetBillingCustomerRef stores or clears (nil) the billing customer reference.
	SetBillingCustomerRef(ctx context.Context, userID string, customerRef *string) error
}

// DocumentRepository stores one kind of document (resumes or cover letters).
type DocumentRepository interface {
	Kind() models.DocumentKind
	Create(ctx context.Context, doc *models.Document) (string, error) // returns the new document ID
	GetByID(ctx context.Context, docID string) (*models.Document, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Document, error)
	ListAll(ctx context.Context) ([]*models.Document, error)
	UpdateContent(ctx context.Context, docID string, content map[string]interface{}) (*models.Document, error)
	Delete(ctx context.Context, docID string) error
	Count(ctx context.Context) (int, error)
}

// AuditRepository defines the interface for audit log data storage operations.
type AuditRepository interface {
	Create(ctx context.Context, logEntry models.AuditLog) error
	ListRecent(ctx context.Context, limit int) ([]*models.AuditLog, error)
}
