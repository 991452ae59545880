package webhook

import "errors"

var (
	// ErrInvalidSignature is returned when the signature headers are missing,
	// malformed, expired, or do not match the body.
	ErrInvalidSignature = errors.New("webhook: invalid signature")
	// ErrMalformedPayload is returned when a correctly signed body cannot be
	// decoded into an event.
	ErrMalformedPayload = errors.New("webhook: malformed payload")
)
