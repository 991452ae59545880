package api_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/inboxmailer/internal/api"
	"github.com/shaharia-lab/inboxmailer/internal/directory"
	"github.com/shaharia-lab/inboxmailer/internal/liveblocks"
	"github.com/shaharia-lab/inboxmailer/internal/notification"
	"github.com/shaharia-lab/inboxmailer/internal/service"
	"github.com/shaharia-lab/inboxmailer/internal/storage"
	"github.com/shaharia-lab/inboxmailer/internal/webhook"
)

const exampleNotification = `{
  "type": "notification",
  "data": {
    "channel": "email",
    "kind": "$myCustomNotification",
    "projectId": "405d5f48a5c7b8a3dc91fec0",
    "roomId": "my-room-id",
    "userId": "user_1",
    "inboxNotificationId": "in_xt3p7ak9mf2hzrdjw1yq",
    "createdAt": "2021-10-06T01:45:56.558Z"
  }
}`

type recordingProvider struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Send(_ context.Context, msg notification.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msg)
	return nil
}

func (p *recordingProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type e2e struct {
	router   chi.Router
	verifier *webhook.Verifier
	provider *recordingProvider
}

// newE2E wires the real verifier, REST client, notifier and SQLite store
// against a fake platform API that knows a single unread notification.
func newE2E(t *testing.T) *e2e {
	t.Helper()

	platform := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		if r.URL.Path != "/v2/users/user_1/inbox-notifications/in_xt3p7ak9mf2hzrdjw1yq" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"INBOX_NOTIFICATION_NOT_FOUND"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "in_xt3p7ak9mf2hzrdjw1yq",
			"kind": "$myCustomNotification",
			"roomId": "my-room-id",
			"subjectId": "subject_1",
			"notifiedAt": "2021-10-06T01:45:56.558Z",
			"readAt": null,
			"activities": [{"id": "act_1", "createdAt": "2021-10-06T01:45:56.558Z", "data": {"title": "Hello"}}]
		}`))
	}))
	t.Cleanup(platform.Close)

	verifier, err := webhook.NewVerifier("whsec_" + base64.StdEncoding.EncodeToString([]byte("e2e-secret")))
	require.NoError(t, err)

	db, _, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := storage.NewSQLiteDeliveryStore(db)

	provider := &recordingProvider{}
	webhookSvc := service.NewWebhookService(service.WebhookConfig{
		Verifier: verifier,
		Fetcher:  liveblocks.NewClient("sk_test", liveblocks.WithBaseURL(platform.URL)),
		Directory: directory.New(map[string]directory.User{
			"user_1": {Email: "user1@example.com", Name: "User One"},
		}, ""),
		Mailer: notification.NewNotifier(provider, "noreply@example.com", ""),
		Store:  store,
	})

	r := chi.NewRouter()
	api.New(webhookSvc, service.NewDeliveryService(store), slog.Default()).Mount(r)

	return &e2e{router: r, verifier: verifier, provider: provider}
}

func (e *e2e) signed(t *testing.T, id string, body []byte) http.Header {
	t.Helper()
	h, err := e.verifier.Sign(id, time.Now(), body)
	require.NoError(t, err)
	return h
}

func (e *e2e) post(headers http.Header, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/liveblocks", bytes.NewReader(body))
	for k, v := range headers {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestE2E_ExampleNotificationSendsOneEmail(t *testing.T) {
	e := newE2E(t)
	body := []byte(exampleNotification)

	w := e.post(e.signed(t, "msg_1", body), body)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, e.provider.count())

	msg := e.provider.sent[0]
	assert.Equal(t, []string{"user1@example.com"}, msg.To)
	assert.Contains(t, msg.Subject, "New notification")

	list := httptest.NewRecorder()
	e.router.ServeHTTP(list, httptest.NewRequest(http.MethodGet, "/deliveries", nil))
	assert.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), `"status":"sent"`)
}

func TestE2E_InvalidSignatureRejected(t *testing.T) {
	e := newE2E(t)
	body := []byte(exampleNotification)

	w := e.post(http.Header{}, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	headers := e.signed(t, "msg_1", body)
	headers.Set(webhook.HeaderSignature, "v1,"+base64.StdEncoding.EncodeToString([]byte("forged")))
	w = e.post(headers, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Zero(t, e.provider.count())
}

func TestE2E_OtherEventTypeIgnored(t *testing.T) {
	e := newE2E(t)
	body := []byte(`{"type":"storageUpdated","data":{"roomId":"my-room-id","projectId":"p","updatedAt":"2021-10-06T01:45:56.558Z"}}`)

	w := e.post(e.signed(t, "msg_1", body), body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"ignored"`)
	assert.Zero(t, e.provider.count())
}

func TestE2E_MissingNotificationIsNon2xx(t *testing.T) {
	e := newE2E(t)
	body := bytes.ReplaceAll([]byte(exampleNotification), []byte("in_xt3p7ak9mf2hzrdjw1yq"), []byte("in_missing"))

	w := e.post(e.signed(t, "msg_1", body), body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Zero(t, e.provider.count())
}

func TestE2E_RedeliverySendsTwoEmails(t *testing.T) {
	e := newE2E(t)
	body := []byte(exampleNotification)
	headers := e.signed(t, "msg_1", body)

	assert.Equal(t, http.StatusOK, e.post(headers, body).Code)
	assert.Equal(t, http.StatusOK, e.post(headers, body).Code)
	assert.Equal(t, 2, e.provider.count())
}
