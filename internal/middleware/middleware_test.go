package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"flacroncv-backend-go/internal/auth"
	"flacroncv-backend-go/internal/core"
	"flacroncv-backend-go/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	VerifyFunc func(ctx context.Context, token string) (*auth.Identity, error)
}

func (f *fakeVerifier) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	return f.VerifyFunc(ctx, token)
}

type fakeLookup struct {
	users map[string]*models.User
	err   error
}

func (f *fakeLookup) GetByID(_ context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, core.ErrUserNotFound
}

func tokenVerifier() *fakeVerifier {
	return &fakeVerifier{VerifyFunc: func(_ context.Context, token string) (*auth.Identity, error) {
		switch token {
		case "user-token":
			return &auth.Identity{UID: "u1", Email: "user@example.com", DisplayName: "Ada"}, nil
		case "boss-token":
			return &auth.Identity{UID: "boss", Email: "Boss@Example.com"}, nil
		case "ghost-token":
			return &auth.Identity{UID: "ghost", Email: "ghost@example.com"}, nil
		}
		return nil, auth.ErrInvalidToken
	}}
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env errorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, w.Body.String())
	}
	if env.Success {
		t.Errorf("success = true on error response")
	}
	return env.Message
}

func TestAuthenticate(t *testing.T) {
	m := NewAuthMiddleware(tokenVerifier(), zap.NewNop())
	router := gin.New()
	router.GET("/me", m.Authenticate(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"id":   c.GetString(ContextUserID),
			"name": c.GetString(ContextUserDisplayName),
		})
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"no header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"bearer without token", "Bearer ", http.StatusUnauthorized, ""},
		{"invalid token", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid token", "Bearer user-token", http.StatusOK, `{"id":"u1","name":"Ada"}`},
		{"lower-case scheme", "bearer user-token", http.StatusOK, `{"id":"u1","name":"Ada"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				decodeMessage(t, w)
				return
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("body = %s, want %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	policy := core.NewAuthorizationPolicy([]string{"boss@example.com"})
	lookup := &fakeLookup{users: map[string]*models.User{
		"u1":    {ID: "u1", Email: "user@example.com", Role: models.RoleUser},
		"admin": {ID: "admin", Email: "role-admin@example.com", Role: models.RoleAdmin},
	}}

	roleAdmin := &fakeVerifier{VerifyFunc: func(_ context.Context, token string) (*auth.Identity, error) {
		if token == "role-admin-token" {
			return &auth.Identity{UID: "admin", Email: "role-admin@example.com"}, nil
		}
		return tokenVerifier().Verify(context.Background(), token)
	}}

	tests := []struct {
		name       string
		token      string
		lookup     UserLookup
		wantStatus int
	}{
		{"allow-listed email", "boss-token", lookup, http.StatusOK},
		{"allow-listed email skips failing lookup", "boss-token", &fakeLookup{err: errors.New("store down")}, http.StatusOK},
		{"stored admin role", "role-admin-token", lookup, http.StatusOK},
		{"regular user", "user-token", lookup, http.StatusForbidden},
		{"missing profile", "ghost-token", lookup, http.StatusForbidden},
		{"lookup failure denies", "role-admin-token", &fakeLookup{err: errors.New("store down")}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthMiddleware(roleAdmin, nil)
			router := gin.New()
			router.GET("/admin", m.Authenticate(), m.RequireAdmin(policy, tt.lookup), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden {
				if msg := decodeMessage(t, w); msg != core.ErrAdminRequired.Message() {
					t.Errorf("message = %q", msg)
				}
			}
		})
	}
}

func TestRequestLogger_RequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestLogger(zap.NewNop()))
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})

	t.Run("propagates incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if got := w.Header().Get(RequestIDHeader); got != "req-123" {
			t.Errorf("response id = %q, want req-123", got)
		}
		if w.Body.String() != "req-123" {
			t.Errorf("context id = %q", w.Body.String())
		}
	})

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		got := w.Header().Get(RequestIDHeader)
		if len(got) != 36 {
			t.Errorf("generated id = %q, want a uuid", got)
		}
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RecoveryMiddleware(zap.NewNop()))
	router.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if msg := decodeMessage(t, w); msg != "Internal server error" {
		t.Errorf("message = %q", msg)
	}
}
