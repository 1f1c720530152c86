package core

import (
	"testing"

	"flacroncv-backend-go/internal/models"
)

func userWith(status models.SubscriptionStatus, plan string) *models.User {
	return &models.User{ID: "u1", Subscription: models.Subscription{Status: status, Plan: plan}}
}

func TestHasActivePlan(t *testing.T) {
	tests := []struct {
		name string
		user *models.User
		tier string
		want bool
	}{
		{"active pro", userWith(models.SubscriptionActive, "pro"), "pro", true},
		{"mixed case with spaces", userWith(models.SubscriptionActive, "Pro Plus"), "pro", true},
		{"legacy suffix still matches", userWith(models.SubscriptionActive, "pro-legacy"), "pro", true},
		{"tab and upper case", userWith(models.SubscriptionActive, "\tPRO "), "pro", true},
		{"canceled pro", userWith(models.SubscriptionCanceled, "pro"), "pro", false},
		{"active basic", userWith(models.SubscriptionActive, "basic"), "pro", false},
		{"active free", userWith(models.SubscriptionActive, "free"), "pro", false},
		{"empty plan", userWith(models.SubscriptionActive, ""), "pro", false},
		{"nil user", nil, "pro", false},
		{"basic tier", userWith(models.SubscriptionActive, "Basic"), "basic", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasActivePlan(tt.user, tt.tier); got != tt.want {
				t.Errorf("HasActivePlan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorizationPolicy_IsAdmin(t *testing.T) {
	policy := NewAuthorizationPolicy([]string{" Boss@Example.com ", ""})

	tests := []struct {
		name  string
		email string
		user  *models.User
		want  bool
	}{
		{"allow-listed token email", "boss@example.com", nil, true},
		{"allow-listed email case-insensitive", "BOSS@example.COM", &models.User{Role: models.RoleUser}, true},
		{"admin role", "someone@example.com", &models.User{Role: models.RoleAdmin}, true},
		{"stored email allow-listed", "", &models.User{Email: "boss@example.com"}, true},
		{"plain user", "someone@example.com", &models.User{Role: models.RoleUser}, false},
		{"lookup failed", "someone@example.com", nil, false},
		{"empty email", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := policy.IsAdmin(tt.email, tt.user); got != tt.want {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}
