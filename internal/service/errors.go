package service

import (
	"fmt"

	"github.com/shaharia-lab/inboxmailer/internal/directory"
	"github.com/shaharia-lab/inboxmailer/internal/liveblocks"
	"github.com/shaharia-lab/inboxmailer/internal/notification"
	"github.com/shaharia-lab/inboxmailer/internal/webhook"
)

// Error taxonomy for webhook handling. Callers classify with errors.Is.
var (
	ErrInvalidSignature  = webhook.ErrInvalidSignature
	ErrMalformedPayload  = webhook.ErrMalformedPayload
	ErrNotFound          = liveblocks.ErrNotFound
	ErrTransientUpstream = liveblocks.ErrTransientUpstream
	ErrDelivery          = notification.ErrDelivery
	ErrRecipientUnknown  = directory.ErrUnknownUser
)

// NotFoundError is returned when a requested resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// ValidationError is returned when request data fails validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
	}
	return e.Message
}
