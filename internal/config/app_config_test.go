package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		want     slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &AppConfig{LogLevel: tt.logLevel}
			assert.Equal(t, tt.want, c.SlogLevel())
		})
	}
}

func TestAppConfig_Paths(t *testing.T) {
	c := &AppConfig{DataDir: "/data"}
	assert.Equal(t, "/data/logs", c.LogDir())
	assert.Equal(t, "/data/inboxmailer.db", c.DBPath())
}

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_DIR", "/tmp/test-inboxmailer")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MAIL_PROVIDER", " SMTP ")
	t.Setenv("ALLOWED_CHANNELS", "email, ,slack")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test-inboxmailer", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, MailProviderSMTP, cfg.MailProvider)
	assert.Equal(t, []string{"email", "slack"}, cfg.AllowedChannels)
	assert.Equal(t, 5*time.Minute, cfg.WebhookTolerance)
	assert.Equal(t, 24*time.Hour, cfg.DedupeTTL)
	assert.Equal(t, 10*time.Second, cfg.UpstreamTimeout)
	assert.Equal(t, "https://api.liveblocks.io", cfg.LiveblocksBaseURL)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func validConfig() AppConfig {
	return AppConfig{
		WebhookSecret:       "whsec_dGVzdA==",
		LiveblocksSecretKey: "sk_test",
		MailFrom:            "noreply@example.com",
		MailProvider:        MailProviderResend,
		ResendAPIKey:        "re_test",
		WebhookTolerance:    5 * time.Minute,
		UpstreamTimeout:     10 * time.Second,
		SMTPPort:            587,
		DedupeTTL:           time.Hour,
	}
}

func TestAppConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *AppConfig)
		wantErr string
	}{
		{name: "valid resend", mutate: func(*AppConfig) {}},
		{name: "valid ses", mutate: func(c *AppConfig) { c.MailProvider = MailProviderSES }},
		{name: "valid smtp", mutate: func(c *AppConfig) { c.MailProvider = MailProviderSMTP; c.SMTPHost = "smtp.example.com" }},
		{name: "missing secret", mutate: func(c *AppConfig) { c.WebhookSecret = "" }, wantErr: "WEBHOOK_SECRET"},
		{name: "missing secret key", mutate: func(c *AppConfig) { c.LiveblocksSecretKey = "" }, wantErr: "LIVEBLOCKS_SECRET_KEY"},
		{name: "missing from", mutate: func(c *AppConfig) { c.MailFrom = "" }, wantErr: "MAIL_FROM"},
		{name: "missing resend key", mutate: func(c *AppConfig) { c.ResendAPIKey = "" }, wantErr: "RESEND_API_KEY"},
		{name: "missing smtp host", mutate: func(c *AppConfig) { c.MailProvider = MailProviderSMTP }, wantErr: "SMTP_HOST"},
		{name: "bad smtp port", mutate: func(c *AppConfig) {
			c.MailProvider = MailProviderSMTP
			c.SMTPHost = "smtp.example.com"
			c.SMTPPort = 70000
		}, wantErr: "SMTP_PORT"},
		{name: "unknown provider", mutate: func(c *AppConfig) { c.MailProvider = "pigeon" }, wantErr: "MAIL_PROVIDER"},
		{name: "zero tolerance", mutate: func(c *AppConfig) { c.WebhookTolerance = 0 }, wantErr: "WEBHOOK_TOLERANCE"},
		{name: "dedupe without ttl", mutate: func(c *AppConfig) {
			c.DedupeRedisURL = "redis://localhost:6379"
			c.DedupeTTL = 0
		}, wantErr: "DEDUPE_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
