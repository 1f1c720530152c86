package models

import "time"

// Audit actions recorded for billing and administrative changes.
const (
	AuditSubscriptionActivated = "SUBSCRIPTION_ACTIVATED"
	AuditSubscriptionCanceled  = "SUBSCRIPTION_CANCELED"
	AuditBillingCustomerLinked = "BILLING_CUSTOMER_LINKED"
	AuditUserUpdatedByAdmin    = "USER_UPDATED_BY_ADMIN"
	AuditDocumentDeleted       = "DOCUMENT_DELETED_BY_ADMIN"
	AuditWebhookRegistered     = "WEBHOOK_REGISTERED"
)

// AuditLog represents an audit trail event.
type AuditLog struct {
	ID         string                 `json:"id" firestore:"-"`
	Timestamp  time.Time              `json:"timestamp" firestore:"timestamp,serverTimestamp"`
	UserID     string                 `json:"userId" firestore:"userId"` // affected user, or acting admin for admin actions
	Action     string                 `json:"action" firestore:"action"`
	TargetType string                 `json:"targetType,omitempty" firestore:"targetType,omitempty"` // e.g. "SUBSCRIPTION", "USER", "DOCUMENT"
	TargetID   string                 `json:"targetId,omitempty" firestore:"targetId,omitempty"`
	Source     string                 `json:"source,omitempty" firestore:"source,omitempty"` // "webhook", "checkout", "verify", "unsubscribe", "admin"
	Details    map[string]interface{} `json:"details,omitempty" firestore:"details,omitempty"`
}
