package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"flacroncv-backend-go/internal/models"
)

func sampleNotification() models.BillingNotification {
	return models.BillingNotification{
		UserID:     "u1",
		Type:       models.NotificationSubscription,
		Email:      "a@example.com",
		Plan:       "pro",
		OccurredAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestWebhookNotifier(t *testing.T) {
	var got models.BillingNotification
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected request %s %s", r.Method, r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, srv.Client())
	if err := n.Notify(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if got.UserID != "u1" || got.Plan != "pro" || got.Type != "subscription" {
		t.Errorf("hook received %+v", got)
	}
}

func TestWebhookNotifier_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, srv.Client()).Notify(context.Background(), sampleNotification())
	if !errors.Is(err, ErrHookRejected) {
		t.Fatalf("Notify() error = %v, want ErrHookRejected", err)
	}
}

type fakePublisher struct {
	queue, contentType string
	body               []byte
	err                error
}

func (p *fakePublisher) Publish(_ context.Context, queue, contentType string, body []byte) error {
	p.queue, p.contentType, p.body = queue, contentType, body
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

func TestQueueNotifier(t *testing.T) {
	pub := &fakePublisher{}
	if err := NewQueueNotifier(pub, "billing-notifications").Notify(context.Background(), sampleNotification()); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}
	if pub.queue != "billing-notifications" || pub.contentType != "application/json" {
		t.Errorf("published to %q as %q", pub.queue, pub.contentType)
	}
	var decoded models.BillingNotification
	if err := json.Unmarshal(pub.body, &decoded); err != nil || decoded.Email != "a@example.com" {
		t.Errorf("body = %s, err = %v", pub.body, err)
	}
}

func TestFanout(t *testing.T) {
	if NewFanout(nil) != nil {
		t.Fatal("NewFanout() with no targets should be nil")
	}

	ok := &fakePublisher{}
	failing := &fakePublisher{err: errors.New("broker down")}
	f := NewFanout(nil, NewQueueNotifier(ok, "a"), nil, NewQueueNotifier(failing, "b"))

	err := f.Notify(context.Background(), sampleNotification())
	if err == nil || err.Error() != "broker down" {
		t.Fatalf("Notify() error = %v, want broker down", err)
	}
	if ok.queue != "a" {
		t.Error("healthy target should still receive the notification")
	}
}
