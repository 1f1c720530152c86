package core

import (
	"context"
	"errors"
	"testing"

	"flacroncv-backend-go/internal/models"
	"flacroncv-backend-go/internal/testutil"
)

func newDocumentFixture(t *testing.T, kind models.DocumentKind) (DocumentService, *testutil.MemoryDocumentRepo, *testutil.FakeEnhancer) {
	t.Helper()
	users := testutil.NewMemoryUserRepo(
		&models.User{ID: "free-user"},
		&models.User{ID: "pro-user", Subscription: models.ActiveSubscription("cs_1", "Pro Plus", false)},
		&models.User{ID: "canceled-pro", Subscription: models.Subscription{Status: models.SubscriptionCanceled, Plan: "pro"}},
	)
	docs := testutil.NewMemoryDocumentRepo(kind)
	enhancer := &testutil.FakeEnhancer{}
	return NewDocumentService(docs, users, enhancer, nil), docs, enhancer
}

func TestGenerate_ProMergesEnhancement(t *testing.T) {
	svc, docs, enhancer := newDocumentFixture(t, models.KindResume)
	payload := map[string]interface{}{"summary": "draft", "skills": "Go"}

	res, err := svc.Generate(context.Background(), "pro-user", "en", payload)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !res.Saved || res.Warning != "" {
		t.Fatalf("result = %+v", res)
	}
	if res.Document.Content["summary"] != "enhanced summary" || res.Document.Content["skills"] != "Go" {
		t.Errorf("content = %v", res.Document.Content)
	}
	if enhancer.Count() != 1 {
		t.Errorf("enhancer calls = %d, want 1", enhancer.Count())
	}
	if n, _ := docs.Count(context.Background()); n != 1 {
		t.Errorf("stored documents = %d, want 1", n)
	}
}

func TestGenerate_FreeUserSkipsEnhancement(t *testing.T) {
	svc, _, enhancer := newDocumentFixture(t, models.KindResume)
	res, err := svc.Generate(context.Background(), "free-user", "en", map[string]interface{}{"summary": "draft"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Document.Content["summary"] != "draft" {
		t.Errorf("summary = %v, want draft", res.Document.Content["summary"])
	}
	if enhancer.Count() != 0 {
		t.Errorf("enhancer calls = %d, want 0", enhancer.Count())
	}
}

func TestGenerate_EnhancerFailureFallsBack(t *testing.T) {
	svc, _, enhancer := newDocumentFixture(t, models.KindCoverLetter)
	enhancer.EnhanceCoverLetterFunc = func(context.Context, map[string]interface{}, string) (map[string]interface{}, error) {
		return nil, errors.New("quota exceeded")
	}
	res, err := svc.Generate(context.Background(), "pro-user", "fr", map[string]interface{}{"motivation": "original"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !res.Saved || res.Document.Content["motivation"] != "original" {
		t.Errorf("result = %+v", res)
	}
}

func TestGenerate_SaveFailureReturnsWarning(t *testing.T) {
	svc, docs, _ := newDocumentFixture(t, models.KindCoverLetter)
	docs.CreateErr = errors.New("unavailable")

	res, err := svc.Generate(context.Background(), "free-user", "en", map[string]interface{}{"a": 1})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if res.Saved {
		t.Error("Saved = true, want false")
	}
	if want := "Cover letter was generated but could not be saved"; res.Warning != want {
		t.Errorf("warning = %q, want %q", res.Warning, want)
	}
	if res.Document.UserID != "free-user" {
		t.Errorf("owner = %q", res.Document.UserID)
	}
}

func TestEnhance_RequiresActivePro(t *testing.T) {
	tests := []struct {
		name    string
		userID  string
		wantErr error
	}{
		{"free user", "free-user", ErrProRequired},
		{"canceled pro", "canceled-pro", ErrProRequired},
		{"unknown user", "ghost", ErrProRequired},
		{"pro plus", "pro-user", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, enhancer := newDocumentFixture(t, models.KindResume)
			out, err := svc.Enhance(context.Background(), tt.userID, "en", map[string]interface{}{"summary": "draft"})
			if !errors.Is(err, tt.wantErr) && !(tt.wantErr == nil && err == nil) {
				t.Fatalf("Enhance() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if enhancer.Count() != 0 {
					t.Errorf("enhancer called for a non-pro user")
				}
				if ClientMessage(err, "") != "Pro subscription required for AI enhancement" {
					t.Errorf("message = %q", ClientMessage(err, ""))
				}
				return
			}
			if out["summary"] != "enhanced summary" {
				t.Errorf("summary = %v", out["summary"])
			}
		})
	}
}

func TestEnhance_EnhancerFailureIsExternal(t *testing.T) {
	svc, _, enhancer := newDocumentFixture(t, models.KindResume)
	enhancer.EnhanceResumeFunc = func(context.Context, map[string]interface{}, string) (map[string]interface{}, error) {
		return nil, errors.New("model offline")
	}
	_, err := svc.Enhance(context.Background(), "pro-user", "en", map[string]interface{}{})
	if !errors.Is(err, ErrExternalService) {
		t.Fatalf("Enhance() error = %v, want ErrExternalService", err)
	}
}

func TestEnhanceSummary_ResumeOnly(t *testing.T) {
	svc, _, _ := newDocumentFixture(t, models.KindCoverLetter)
	if _, err := svc.EnhanceSummary(context.Background(), "pro-user", "en", map[string]interface{}{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("EnhanceSummary() error = %v, want ErrValidation", err)
	}
}

func TestFeedback_PassesLanguage(t *testing.T) {
	svc, _, enhancer := newDocumentFixture(t, models.KindResume)
	var gotLang string
	enhancer.FeedbackFunc = func(_ context.Context, kind models.DocumentKind, _ map[string]interface{}, lang string) (string, error) {
		gotLang = lang
		return "Bien.", nil
	}
	got, err := svc.Feedback(context.Background(), "FR", map[string]interface{}{"summary": "x"})
	if err != nil || got != "Bien." {
		t.Fatalf("Feedback() = %q, %v", got, err)
	}
	if gotLang != "fr" {
		t.Errorf("lang = %q, want fr", gotLang)
	}
}

func TestOwnershipEnforced(t *testing.T) {
	svc, docs, _ := newDocumentFixture(t, models.KindResume)
	ctx := context.Background()
	id, _ := docs.Create(ctx, &models.Document{UserID: "pro-user", Content: map[string]interface{}{"secret": "x"}})

	doc, err := svc.Get(ctx, "free-user", id)
	if !errors.Is(err, ErrForbidden) || doc != nil {
		t.Fatalf("Get() = %v, %v; want nil, ErrForbidden", doc, err)
	}
	if _, err := svc.Update(ctx, "free-user", id, map[string]interface{}{"secret": "y"}); !errors.Is(err, ErrNotDocumentOwner) {
		t.Fatalf("Update() error = %v, want ErrNotDocumentOwner", err)
	}
	if err := svc.Delete(ctx, "free-user", id); !errors.Is(err, ErrNotDocumentOwner) {
		t.Fatalf("Delete() error = %v, want ErrNotDocumentOwner", err)
	}
	stored, _ := docs.GetByID(ctx, id)
	if stored.Content["secret"] != "x" {
		t.Errorf("content changed by a non-owner: %v", stored.Content)
	}

	if _, err := svc.Get(ctx, "pro-user", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "pro-user", id); err != nil {
		t.Errorf("owner Delete() error = %v", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	svc, docs, _ := newDocumentFixture(t, models.KindResume)
	ctx := context.Background()
	first, _ := docs.Create(ctx, &models.Document{UserID: "free-user"})
	second, _ := docs.Create(ctx, &models.Document{UserID: "free-user"})
	_, _ = docs.Create(ctx, &models.Document{UserID: "pro-user"})

	got, err := svc.List(ctx, "free-user")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != second || got[1].ID != first {
		t.Errorf("List() order = %v", got)
	}
}

func TestEnhance_NoLanguageModelConfigured(t *testing.T) {
	users := testutil.NewMemoryUserRepo(&models.User{
		ID: "pro", Email: "pro@example.com",
		Subscription: models.ActiveSubscription("sub_1", models.PlanPro, false),
	})
	svc := NewDocumentService(testutil.NewMemoryDocumentRepo(models.KindResume), users, nil, nil)

	if _, err := svc.Enhance(context.Background(), "pro", "en", map[string]interface{}{"summary": "x"}); !errors.Is(err, ErrExternalService) {
		t.Fatalf("Enhance() error = %v, want ErrExternalService", err)
	}
	res, err := svc.Generate(context.Background(), "pro", "en", map[string]interface{}{"summary": "x"})
	if err != nil || !res.Saved || res.Document.Content["summary"] != "x" {
		t.Fatalf("Generate() = %+v, %v; want original content saved", res, err)
	}
}
