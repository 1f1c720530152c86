package config

import (
	"strings"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FIREBASE_PROJECT_ID", "flacroncv-test")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	t.Setenv("CLIENT_URL", "http://localhost:3000")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Port != "5000" {
		t.Errorf("Port = %q, want 5000", cfg.Port)
	}
	if cfg.PlanCacheTTL != time.Hour {
		t.Errorf("PlanCacheTTL = %v, want 1h", cfg.PlanCacheTTL)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 10<<20)
	}
	if cfg.IsProduction() {
		t.Error("IsProduction() = true for the default environment")
	}
	if got := cfg.PriceTable()["pro"]["USD"]; got != "price_1ROvRQDVCSEfpcep3hk2S3aA" {
		t.Errorf("default pro USD price = %q", got)
	}
	if GetConfig() != cfg {
		t.Error("GetConfig() did not return the loaded config")
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("APP_ENV", "Production")
	t.Setenv("ADMIN_EMAILS", "Admin@Example.com, ops@example.com")
	t.Setenv("PRO_PRICE_ID_EUR", "price_custom")
	t.Setenv("PLAN_CACHE_TTL", "5m")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
	want := []string{"admin@example.com", "ops@example.com"}
	if strings.Join(cfg.AdminEmails, ",") != strings.Join(want, ",") {
		t.Errorf("AdminEmails = %v, want %v", cfg.AdminEmails, want)
	}
	if cfg.PriceTable()["pro"]["EUR"] != "price_custom" {
		t.Errorf("PRO_PRICE_ID_EUR override not applied: %v", cfg.PriceTable())
	}
	if cfg.PlanCacheTTL != 5*time.Minute {
		t.Errorf("PlanCacheTTL = %v, want 5m", cfg.PlanCacheTTL)
	}
}

func TestLoadConfig_MissingRequired(t *testing.T) {
	tests := []string{"FIREBASE_PROJECT_ID", "JWT_SECRET", "STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "CLIENT_URL"}
	for _, key := range tests {
		t.Run(key, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(key, "")

			_, err := LoadConfig()
			if err == nil {
				t.Fatalf("LoadConfig() succeeded without %s", key)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("error %q does not name %s", err, key)
			}
		})
	}
}
