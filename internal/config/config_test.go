package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DEFAULT_ORIGIN", "")
	t.Setenv("CHECKOUT_CURRENCY", "")
	t.Setenv("SCYLLA_HOSTS", "")
	t.Setenv("SMTP_PORT", "")

	cfg := FromEnv()

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultOrigin, cfg.DefaultOrigin)
	assert.Equal(t, DefaultCurrency, cfg.CheckoutCurrency)
	assert.Nil(t, cfg.ScyllaHosts)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_ORIGIN", "https://shop.example.com/")
	t.Setenv("CHECKOUT_CURRENCY", "USD")
	t.Setenv("SCYLLA_HOSTS", "10.0.0.1, 10.0.0.2,")
	t.Setenv("SMTP_PORT", "not-a-number")
	t.Setenv("APP_ENV", "memory")

	cfg := FromEnv()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://shop.example.com", cfg.DefaultOrigin)
	assert.Equal(t, "usd", cfg.CheckoutCurrency)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.ScyllaHosts)
	assert.Equal(t, 587, cfg.SMTPPort)
	assert.True(t, cfg.MemoryMode())
}

func TestValidate(t *testing.T) {
	full := Config{
		AppEnv:              "production",
		JWTSecret:           "jwt",
		StripeSecretKey:     "sk_test",
		StripeWebhookSecret: "whsec",
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"complete", func(*Config) {}, ""},
		{"no webhook secret", func(c *Config) { c.StripeWebhookSecret = "" }, "STRIPE_WEBHOOK_SECRET"},
		{"no stripe key", func(c *Config) { c.StripeSecretKey = "" }, "STRIPE_SECRET_KEY"},
		{"no jwt secret", func(c *Config) { c.JWTSecret = "" }, "JWT_SECRET"},
		{"memory mode without stripe", func(c *Config) {
			c.AppEnv = "memory"
			c.StripeSecretKey = ""
			c.StripeWebhookSecret = ""
		}, ""},
		{"memory mode still needs jwt", func(c *Config) {
			c.AppEnv = "memory"
			c.JWTSecret = ""
		}, "JWT_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := full
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
