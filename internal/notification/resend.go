package notification

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"
)

// DefaultResendBaseURL is the Resend REST endpoint.
const DefaultResendBaseURL = "https://api.resend.com"

// ResendProvider delivers notifications through the Resend API.
type ResendProvider struct {
	client *resend.Client
}

// NewResendProvider creates a ResendProvider. A nil httpClient uses
// http.DefaultClient.
func NewResendProvider(config ResendConfig, httpClient *http.Client) (*ResendProvider, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := config.BaseURL
	if base == "" {
		base = DefaultResendBaseURL
	}
	// Request paths are resolved relative to the base URL.
	u, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing resend base url %q: %w", base, err)
	}

	client := resend.NewCustomClient(httpClient, config.APIKey)
	client.BaseURL = u
	return &ResendProvider{client: client}, nil
}

// Name returns the provider identifier.
func (p *ResendProvider) Name() string { return "resend" }

// Send submits msg to the /emails endpoint.
func (p *ResendProvider) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: no recipients", ErrDelivery)
	}

	_, err := p.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return fmt.Errorf("%w: resend: %w", ErrDelivery, err)
	}
	return nil
}
