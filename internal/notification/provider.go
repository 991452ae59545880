// Package notification turns inbox notifications into emails and delivers
// them through a pluggable mail provider (SMTP, Resend or AWS SES).
package notification

import (
	"context"
	"errors"
)

// ErrDelivery is returned when the mail provider rejects or fails a send.
var ErrDelivery = errors.New("notification: delivery failed")

// Message is the content to be delivered by a Provider.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// Provider is the interface for mail delivery backends.
type Provider interface {
	// Name returns the provider identifier (e.g. "smtp").
	Name() string
	// Send delivers the message using the provider's transport.
	Send(ctx context.Context, msg Message) error
}
