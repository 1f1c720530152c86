package models

import "time"

// Role values stored on a user record.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Plan names. Plans coming from the billing provider metadata are kept verbatim,
// so a stored plan is not guaranteed to be one of these.
const (
	PlanFree  = "free"
	PlanBasic = "basic"
	PlanPro   = "pro"
)

// SubscriptionStatus is the local status of a user's subscription.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
)

// Subscription is the nested subscription state on a user record. It is always
// written as a whole so readers never observe a half-applied transition.
type Subscription struct {
	ReferenceID       *string            `json:"id" firestore:"id"`
	Status            SubscriptionStatus `json:"status" firestore:"status"`
	Plan              string             `json:"plan" firestore:"plan"`
	CancelAtPeriodEnd bool               `json:"cancelAtPeriodEnd" firestore:"cancelAtPeriodEnd"`
	EndsAt            *time.Time         `json:"endsAt" firestore:"endsAt"`
}

// DefaultSubscription is the rest state every new account starts in.
func DefaultSubscription() Subscription {
	return Subscription{Status: SubscriptionActive, Plan: PlanFree}
}

// ActiveSubscription is the state written when a paid plan becomes active.
func ActiveSubscription(referenceID, plan string, cancelAtPeriodEnd bool) Subscription {
	ref := referenceID
	return Subscription{
		ReferenceID:       &ref,
		Status:            SubscriptionActive,
		Plan:              plan,
		CancelAtPeriodEnd: cancelAtPeriodEnd,
	}
}

// CanceledSubscription is the state written on cancellation. A canceled
// subscription always carries the free plan.
func CanceledSubscription() Subscription {
	return Subscription{Status: SubscriptionCanceled, Plan: PlanFree}
}

// User represents an account in the system.
type User struct {
	ID                 string       `json:"id" firestore:"-"` // Firebase Auth UID or store-assigned ID, used as the document ID
	Email              string       `json:"email" firestore:"email"`
	Username           string       `json:"username,omitempty" firestore:"username,omitempty"`
	DisplayName        string       `json:"displayName,omitempty" firestore:"displayName,omitempty"`
	PhotoURL           string       `json:"photoURL,omitempty" firestore:"photoURL,omitempty"`
	PasswordHash       string       `json:"-" firestore:"passwordHash,omitempty"` // credential accounts only
	BillingCustomerRef *string      `json:"billingCustomerRef,omitempty" firestore:"billingCustomerRef"`
	Subscription       Subscription `json:"subscription" firestore:"subscription"`
	Role               string       `json:"role" firestore:"role"`
	CreatedAt          time.Time    `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt          time.Time    `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// Name returns the best available human-readable name for the user.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// HasBillingCustomer reports whether a billing customer reference is stored.
func (u *User) HasBillingCustomer() bool {
	return u.BillingCustomerRef != nil && *u.BillingCustomerRef != ""
}
