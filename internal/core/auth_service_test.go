package core

import (
	"context"
	"errors"
	"testing"

	"flacroncv-backend-go/internal/models"
	"flacroncv-backend-go/internal/testutil"
)

func newAuthFixture(t *testing.T, users ...*models.User) (AuthService, *testutil.MemoryUserRepo) {
	t.Helper()
	repo := testutil.NewMemoryUserRepo(users...)
	return NewAuthService(repo, NewUserService(repo, nil), testutil.StaticTokenIssuer{}, nil), repo
}

func TestLogin_ProvisionsOnFirstLogin(t *testing.T) {
	svc, repo := newAuthFixture(t)

	res, err := svc.Login(context.Background(), "fb-uid", "new@example.com")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.Token != "token-fb-uid" {
		t.Errorf("token = %q", res.Token)
	}
	u := repo.User("fb-uid")
	if u == nil {
		t.Fatal("user not created")
	}
	if u.Username != "new" || u.Role != models.RoleUser {
		t.Errorf("user = %+v", u)
	}
	assertSubscription(t, u.Subscription, models.SubscriptionActive, models.PlanFree, nil)

	if _, err := svc.Login(context.Background(), "fb-uid", "new@example.com"); err != nil {
		t.Fatalf("second Login() error = %v", err)
	}
}

func TestLogin_RequiresIdentity(t *testing.T) {
	svc, _ := newAuthFixture(t)
	if _, err := svc.Login(context.Background(), "", "a@example.com"); !errors.Is(err, ErrValidation) {
		t.Fatalf("Login() error = %v, want ErrValidation", err)
	}
}

func TestRegisterThenPasswordLogin(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, models.RegisterRequest{Username: "ada", Email: "Ada@Example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if reg.User.ID == "" || reg.User.Email != "ada@example.com" {
		t.Errorf("registered user = %+v", reg.User)
	}

	if _, err := svc.Register(ctx, models.RegisterRequest{Username: "ada2", Email: "ada@example.com", Password: "secret2"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate Register() error = %v, want ErrEmailTaken", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"correct password", "ada@example.com", "secret1", nil},
		{"wrong password", "ada@example.com", "nope", ErrInvalidCredentials},
		{"unknown email", "bob@example.com", "secret1", ErrInvalidCredentials},
		{"missing password", "ada@example.com", "", ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.PasswordLogin(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("PasswordLogin() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || res.Token == "" {
				t.Fatalf("PasswordLogin() = %+v, %v", res, err)
			}
		})
	}
}

func TestPasswordLogin_FirebaseAccountHasNoPassword(t *testing.T) {
	svc, _ := newAuthFixture(t, &models.User{ID: "fb", Email: "fb@example.com"})
	if _, err := svc.PasswordLogin(context.Background(), "fb@example.com", "anything"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("PasswordLogin() error = %v, want ErrUnauthenticated", err)
	}
}
