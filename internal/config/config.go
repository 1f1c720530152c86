package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Port                             string `mapstructure:"PORT"`
	GinMode                          string `mapstructure:"GIN_MODE"`
	AppEnv                           string `mapstructure:"APP_ENV"`
	FirebaseProjectID                string `mapstructure:"FIREBASE_PROJECT_ID"`
	GoogleApplicationCredentials     string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`
	FirebaseServiceAccountJSONBase64 string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_JSON_BASE64"`
	JWTSecret                        string `mapstructure:"JWT_SECRET"`
	StripeSecretKey                  string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret              string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	ClientURL                        string `mapstructure:"CLIENT_URL"`

	// Price table, plan x currency.
	BasicPriceIDUSD string `mapstructure:"BASIC_PRICE_ID_USD"`
	BasicPriceIDEUR string `mapstructure:"BASIC_PRICE_ID_EUR"`
	ProPriceIDUSD   string `mapstructure:"PRO_PRICE_ID_USD"`
	ProPriceIDEUR   string `mapstructure:"PRO_PRICE_ID_EUR"`

	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`

	AdminEmails []string `mapstructure:"ADMIN_EMAILS"` // comma-separated in the environment

	// Best-effort billing notifications. Either, both or neither may be set.
	NotifyWebhookURL string `mapstructure:"NOTIFY_WEBHOOK_URL"`
	AMQPURL          string `mapstructure:"AMQP_URL"`
	NotifyQueue      string `mapstructure:"NOTIFY_QUEUE"`

	// Optional plan catalogue cache; disabled when RedisAddr is empty.
	RedisAddr     string        `mapstructure:"REDIS_ADDR"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int           `mapstructure:"REDIS_DB"`
	PlanCacheTTL  time.Duration `mapstructure:"PLAN_CACHE_TTL"`

	MaxUploadBytes int64 `mapstructure:"MAX_UPLOAD_BYTES"`
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// PriceTable returns the plan -> currency -> price ID table. Currencies are upper case.
func (c *Config) PriceTable() map[string]map[string]string {
	return map[string]map[string]string{
		"basic": {"USD": c.BasicPriceIDUSD, "EUR": c.BasicPriceIDEUR},
		"pro":   {"USD": c.ProPriceIDUSD, "EUR": c.ProPriceIDEUR},
	}
}

var appConfig *Config

var envKeys = []string{
	"PORT", "GIN_MODE", "APP_ENV",
	"FIREBASE_PROJECT_ID", "GOOGLE_APPLICATION_CREDENTIALS", "FIREBASE_SERVICE_ACCOUNT_JSON_BASE64",
	"JWT_SECRET", "STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET", "CLIENT_URL",
	"BASIC_PRICE_ID_USD", "BASIC_PRICE_ID_EUR", "PRO_PRICE_ID_USD", "PRO_PRICE_ID_EUR",
	"GEMINI_API_KEY", "GEMINI_MODEL", "ADMIN_EMAILS",
	"NOTIFY_WEBHOOK_URL", "AMQP_URL", "NOTIFY_QUEUE",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "PLAN_CACHE_TTL",
	"MAX_UPLOAD_BYTES",
}

// LoadConfig loads configuration from environment variables using Viper.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "5000")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("BASIC_PRICE_ID_USD", "price_1RUS6HDVCSEfpcepZDs2iHef")
	v.SetDefault("BASIC_PRICE_ID_EUR", "price_1RUS7iDVCSEfpcepcRk1H7gL")
	v.SetDefault("PRO_PRICE_ID_USD", "price_1ROvRQDVCSEfpcep3hk2S3aA")
	v.SetDefault("PRO_PRICE_ID_EUR", "price_1RUS78DVCSEfpcepsHVp2ZrN")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("NOTIFY_QUEUE", "billing-notifications")
	v.SetDefault("PLAN_CACHE_TTL", "1h")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)

	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("failed to unmarshal config: " + err.Error())
	}
	cfg.AdminEmails = normalizeEmails(cfg.AdminEmails)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	appConfig = &cfg
	return appConfig, nil
}

func (c *Config) validate() error {
	required := []struct {
		key, value string
	}{
		{"FIREBASE_PROJECT_ID", c.FirebaseProjectID},
		{"JWT_SECRET", c.JWTSecret},
		{"STRIPE_SECRET_KEY", c.StripeSecretKey},
		{"STRIPE_WEBHOOK_SECRET", c.StripeWebhookSecret},
		{"CLIENT_URL", c.ClientURL},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.key)
		}
	}
	if c.PlanCacheTTL < 0 {
		return errors.New("PLAN_CACHE_TTL must not be negative")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// normalizeEmails lower-cases and trims the allow-list. A single element that
// still contains commas (env value not split by the decoder) is split here.
func normalizeEmails(in []string) []string {
	var out []string
	for _, item := range in {
		for _, e := range strings.Split(item, ",") {
			e = strings.ToLower(strings.TrimSpace(e))
			if e != "" {
				out = append(out, e)
			}
		}
	}
	return out
}

// GetConfig returns the loaded application configuration.
// It will panic if LoadConfig has not been called successfully.
func GetConfig() *Config {
	if appConfig == nil {
		panic("config not loaded; call LoadConfig first")
	}
	return appConfig
}
