package notification

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// SMTPProvider delivers notifications via SMTP using the go-mail library.
type SMTPProvider struct {
	config SMTPConfig
}

// NewSMTPProvider creates a new SMTPProvider with the given configuration.
func NewSMTPProvider(config SMTPConfig) *SMTPProvider {
	return &SMTPProvider{config: config}
}

// Name returns the provider identifier.
func (p *SMTPProvider) Name() string { return "smtp" }

// Send delivers msg using the configured SMTP server.
func (p *SMTPProvider) Send(ctx context.Context, msg Message) error {
	m, err := buildMailMsg(msg)
	if err != nil {
		return err
	}

	opts := []mail.Option{
		mail.WithPort(p.config.Port),
		mail.WithTLSPolicy(tlsPolicyFromEncryption(p.config.Encryption)),
	}
	if p.config.Encryption == "ssl_tls" {
		opts = append(opts, mail.WithSSL())
	}
	if p.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(p.config.Username),
			mail.WithPassword(p.config.Password),
		)
	}

	c, err := mail.NewClient(p.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("%w: creating mail client: %v", ErrDelivery, err)
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

// buildMailMsg converts a Message into a go-mail message with a plain-text
// body and an HTML alternative.
func buildMailMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("%w: invalid from address: %v", ErrDelivery, err)
	}
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("%w: no recipients", ErrDelivery)
	}
	if err := m.To(msg.To...); err != nil {
		return nil, fmt.Errorf("%w: invalid recipient: %v", ErrDelivery, err)
	}

	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

// tlsPolicyFromEncryption converts the encryption string to a go-mail TLSPolicy.
func tlsPolicyFromEncryption(enc string) mail.TLSPolicy {
	switch enc {
	case "ssl_tls":
		return mail.TLSMandatory
	case "starttls":
		return mail.TLSOpportunistic
	default:
		return mail.NoTLS
	}
}
