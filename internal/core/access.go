package core

import (
	"strings"
	"unicode"

	"flacroncv-backend-go/internal/models"
)

// HasActivePlan reports whether the user's subscription is active and its
// plan, ignoring case and whitespace, contains the tier token. The match is a
// substring match: "Pro Plus" and "pro-legacy" both grant "pro".
func HasActivePlan(user *models.User, tier string) bool {
	if user == nil || user.Subscription.Status != models.SubscriptionActive {
		return false
	}
	plan := normalizePlan(user.Subscription.Plan)
	token := normalizePlan(tier)
	if plan == "" || token == "" {
		return false
	}
	return strings.Contains(plan, token)
}

func normalizePlan(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// AuthorizationPolicy decides administrative access.
type AuthorizationPolicy interface {
	// IsAdminEmail checks only the configured allow-list.
	IsAdminEmail(email string) bool
	// IsAdmin is the union of the allow-list and the persisted role. A nil
	// user (lookup failed) is judged on the email alone.
	IsAdmin(email string, user *models.User) bool
}

type adminPolicy struct {
	emails map[string]struct{}
}

// NewAuthorizationPolicy builds a policy from the configured admin emails.
func NewAuthorizationPolicy(adminEmails []string) AuthorizationPolicy {
	p := &adminPolicy{emails: make(map[string]struct{}, len(adminEmails))}
	for _, e := range adminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			p.emails[e] = struct{}{}
		}
	}
	return p
}

func (p *adminPolicy) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	_, ok := p.emails[email]
	return ok
}

func (p *adminPolicy) IsAdmin(email string, user *models.User) bool {
	if p.IsAdminEmail(email) {
		return true
	}
	if user == nil {
		return false
	}
	return p.IsAdminEmail(user.Email) || user.Role == models.RoleAdmin
}
