package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/shaharia-lab/inboxmailer/internal/eventbus"
	"github.com/shaharia-lab/inboxmailer/internal/service"
)

// Results for deliveries rejected before the webhook service sees them.
const (
	resultPayloadTooLarge = "payload_too_large"
	resultReadError       = "read_error"
)

// handleLiveblocksWebhook verifies and handles one signed webhook delivery.
// The raw body is passed through untouched; the signature covers its exact
// bytes. Non-2xx responses make the sender redeliver.
func (s *Server) handleLiveblocksWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.rejected(resultPayloadTooLarge, start)
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		s.logger.Warn("reading webhook body failed", "error", err)
		s.rejected(resultReadError, start)
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	res, err := s.webhookSvc.HandleWebhook(r.Context(), r.Header, body)
	if err != nil {
		status, msg := webhookErrorStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("webhook handling failed", "status", status, "error", err)
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) rejected(result string, start time.Time) {
	s.publish(eventbus.Event{
		Type:     eventbus.TypeWebhookHandled,
		Result:   result,
		Duration: time.Since(start),
	})
}

// webhookErrorStatus maps a handling error to the status returned to the
// sender and a short message that does not leak upstream details.
func webhookErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidSignature):
		return http.StatusBadRequest, "invalid signature"
	case errors.Is(err, service.ErrMalformedPayload):
		return http.StatusBadRequest, "malformed payload"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "inbox notification not found"
	case errors.Is(err, service.ErrRecipientUnknown):
		return http.StatusUnprocessableEntity, "recipient unknown"
	case errors.Is(err, service.ErrTransientUpstream):
		return http.StatusBadGateway, "upstream unavailable"
	case errors.Is(err, service.ErrDelivery):
		return http.StatusBadGateway, "email delivery failed"
	default:
		return http.StatusInternalServerError, "failed to handle webhook"
	}
}
