package eventbus

import "time"

// Event types published while handling webhook deliveries.
const (
	// TypeWebhookHandled is published once per inbound webhook request.
	TypeWebhookHandled = "webhook.handled"
	// TypeEmailSent is published after a successful provider send.
	TypeEmailSent = "email.sent"
	// TypeEmailFailed is published when the email could not be delivered.
	TypeEmailFailed = "email.failed"
)

// Event represents an application event published to the bus.
type Event struct {
	Type      string        `json:"type"`
	Timestamp time.Time     `json:"timestamp"`
	Result    string        `json:"result,omitempty"`
	Provider  string        `json:"provider,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// Listener is a function that handles an event.
type Listener func(Event)
