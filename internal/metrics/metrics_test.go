package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/inboxmailer/internal/eventbus"
	"github.com/shaharia-lab/inboxmailer/internal/metrics"
)

func TestListen(t *testing.T) {
	m := metrics.New()

	m.Listen(eventbus.Event{Type: eventbus.TypeWebhookHandled, Result: "sent", Duration: 20 * time.Millisecond})
	m.Listen(eventbus.Event{Type: eventbus.TypeWebhookHandled, Result: "sent", Duration: 30 * time.Millisecond})
	m.Listen(eventbus.Event{Type: eventbus.TypeWebhookHandled, Result: "invalid_signature"})
	m.Listen(eventbus.Event{Type: eventbus.TypeEmailSent, Provider: "smtp"})
	m.Listen(eventbus.Event{Type: eventbus.TypeEmailFailed, Reason: "delivery"})
	m.Listen(eventbus.Event{Type: "unrelated"})

	assert.InDelta(t, 2, testutil.ToFloat64(m.WebhooksReceived.WithLabelValues("sent")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.WebhooksReceived.WithLabelValues("invalid_signature")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EmailsSent.WithLabelValues("smtp")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.EmailFailures.WithLabelValues("delivery")), 0)
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.Listen(eventbus.Event{Type: eventbus.TypeEmailSent, Provider: "resend"})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `inboxmailer_emails_sent_total{provider="resend"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
