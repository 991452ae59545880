package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Supported values of MAIL_PROVIDER.
const (
	MailProviderResend = "resend"
	MailProviderSMTP   = "smtp"
	MailProviderSES    = "ses"
)

// AppConfig holds all application-level configuration loaded from environment variables.
type AppConfig struct {
	// Port is the HTTP server port. Defaults to 8990.
	Port int `envconfig:"PORT" default:"8990"`

	// DataDir is the root data directory. Defaults to ~/.inboxmailer.
	DataDir string `envconfig:"DATA_DIR"`

	// LogLevel sets the minimum log level (debug, info, warn, error). Defaults to info.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// WebhookSecret is the whsec_ signing secret shared with the platform.
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
	// WebhookTolerance bounds the accepted age of webhook-timestamp.
	WebhookTolerance time.Duration `envconfig:"WEBHOOK_TOLERANCE" default:"5m"`

	LiveblocksSecretKey string        `envconfig:"LIVEBLOCKS_SECRET_KEY"`
	LiveblocksBaseURL   string        `envconfig:"LIVEBLOCKS_BASE_URL" default:"https://api.liveblocks.io"`
	UpstreamTimeout     time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`

	// MailProvider selects the email backend: resend, smtp or ses.
	MailProvider string `envconfig:"MAIL_PROVIDER" default:"resend"`
	MailFrom     string `envconfig:"MAIL_FROM"`

	ResendAPIKey  string `envconfig:"RESEND_API_KEY"`
	ResendBaseURL string `envconfig:"RESEND_BASE_URL" default:"https://api.resend.com"`

	SMTPHost       string `envconfig:"SMTP_HOST"`
	SMTPPort       int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername   string `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SMTPEncryption string `envconfig:"SMTP_ENCRYPTION" default:"starttls"`

	// SESRegion is optional; the AWS default chain is used when empty.
	SESRegion string `envconfig:"SES_REGION"`

	// UsersFile is a YAML file mapping user ids to email addresses.
	UsersFile string `envconfig:"USERS_FILE"`
	// RecipientFallbackDomain maps unlisted ids to <userId>@<domain>.
	RecipientFallbackDomain string `envconfig:"RECIPIENT_FALLBACK_DOMAIN"`

	// AllowedChannels and AllowedKinds filter notification events. Empty allows all.
	AllowedChannels []string `envconfig:"ALLOWED_CHANNELS"`
	AllowedKinds    []string `envconfig:"ALLOWED_KINDS"`

	// DedupeRedisURL enables webhook-id deduplication when set.
	DedupeRedisURL string        `envconfig:"DEDUPE_REDIS_URL"`
	DedupeTTL      time.Duration `envconfig:"DEDUPE_TTL" default:"24h"`

	// LogRetention is how long delivery log rows are kept. Zero disables pruning.
	LogRetention time.Duration `envconfig:"LOG_RETENTION" default:"720h"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`

	// OTLPEndpoint enables trace, metric and log export over OTLP/gRPC.
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// AppURL is the base of the room links included in emails.
	AppURL string `envconfig:"APP_URL"`
}

// Load reads AppConfig from environment variables using envconfig.
// DataDir defaults to ~/.inboxmailer if not set.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".inboxmailer")
	}
	c.MailProvider = strings.ToLower(strings.TrimSpace(c.MailProvider))
	c.AllowedChannels = trimList(c.AllowedChannels)
	c.AllowedKinds = trimList(c.AllowedKinds)
	c.CORSAllowedOrigins = trimList(c.CORSAllowedOrigins)
	return &c, nil
}

// Validate reports every setting that prevents the server from starting.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.WebhookSecret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required"))
	}
	if c.LiveblocksSecretKey == "" {
		errs = append(errs, errors.New("LIVEBLOCKS_SECRET_KEY is required"))
	}
	if c.MailFrom == "" {
		errs = append(errs, errors.New("MAIL_FROM is required"))
	}
	if c.WebhookTolerance <= 0 {
		errs = append(errs, errors.New("WEBHOOK_TOLERANCE must be positive"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("UPSTREAM_TIMEOUT must be positive"))
	}

	switch c.MailProvider {
	case MailProviderResend:
		if c.ResendAPIKey == "" {
			errs = append(errs, errors.New("RESEND_API_KEY is required for the resend provider"))
		}
	case MailProviderSMTP:
		if c.SMTPHost == "" {
			errs = append(errs, errors.New("SMTP_HOST is required for the smtp provider"))
		}
		if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
			errs = append(errs, fmt.Errorf("SMTP_PORT %d is out of range", c.SMTPPort))
		}
	case MailProviderSES:
	default:
		errs = append(errs, fmt.Errorf("MAIL_PROVIDER %q is not one of resend, smtp, ses", c.MailProvider))
	}

	if c.DedupeRedisURL != "" && c.DedupeTTL <= 0 {
		errs = append(errs, errors.New("DEDUPE_TTL must be positive when DEDUPE_REDIS_URL is set"))
	}
	return errors.Join(errs...)
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogDir returns the path to the log directory (~/.inboxmailer/logs).
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// DBPath returns the path to the SQLite delivery log.
func (c *AppConfig) DBPath() string {
	return filepath.Join(c.DataDir, "inboxmailer.db")
}

func trimList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
