package notification

// SMTPConfig holds connection parameters for the SMTP provider.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	Encryption string // "none", "starttls", "ssl_tls"
}

// ResendConfig holds credentials for the Resend HTTP API.
type ResendConfig struct {
	APIKey  string
	BaseURL string
}

// SESConfig selects the AWS region for SES. Credentials come from the
// default AWS chain (env, shared config, instance role).
type SESConfig struct {
	Region string
}
