package webhook_test

import (
	"encoding/base64"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	svix "github.com/svix/svix-webhooks/go"

	"github.com/shaharia-lab/inboxmailer/internal/webhook"
)

var testSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("super-secret-signing-key"))

const notificationBody = `{"type":"notification","data":{"channel":"email","kind":"$myCustomNotification","projectId":"pr_1","roomId":"room_1","userId":"user_1","inboxNotificationId":"in_xt3p7ak","createdAt":"2024-01-01T00:00:00.000Z"}}`

func newVerifier(t *testing.T, now time.Time) *webhook.Verifier {
	t.Helper()
	v, err := webhook.NewVerifier(testSecret, webhook.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return v
}

func sign(t *testing.T, v *webhook.Verifier, id string, at time.Time, body []byte) http.Header {
	t.Helper()
	h, err := v.Sign(id, at, body)
	require.NoError(t, err)
	return h
}

func TestVerify_ValidNotification(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newVerifier(t, now)
	headers := sign(t, v, "msg_1", now, []byte(notificationBody))

	d, err := v.Verify(headers, []byte(notificationBody))
	require.NoError(t, err)
	assert.Equal(t, "msg_1", d.ID)
	assert.Equal(t, now.Unix(), d.Timestamp.Unix())

	ev, ok := d.Event.(*webhook.NotificationEvent)
	require.True(t, ok)
	assert.Equal(t, webhook.TypeNotification, ev.Type())
	assert.Equal(t, "email", ev.Data.Channel)
	assert.Equal(t, "$myCustomNotification", ev.Data.Kind)
	assert.Equal(t, "user_1", ev.Data.UserID)
	assert.Equal(t, "in_xt3p7ak", ev.Data.InboxNotificationID)
	assert.Equal(t, "room_1", ev.Data.RoomID)
}

func TestVerify_UnknownTypeIsKept(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newVerifier(t, now)
	body := []byte(`{"type":"storageUpdated","data":{"roomId":"room_1"}}`)

	d, err := v.Verify(sign(t, v, "msg_2", now, body), body)
	require.NoError(t, err)
	ev, ok := d.Event.(*webhook.UnknownEvent)
	require.True(t, ok)
	assert.Equal(t, "storageUpdated", ev.Type())
	assert.JSONEq(t, `{"roomId":"room_1"}`, string(ev.Data))
}

func TestVerify_Rejections(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newVerifier(t, now)
	body := []byte(notificationBody)
	valid := sign(t, v, "msg_1", now, body)

	other, err := webhook.NewVerifier("whsec_" + base64.StdEncoding.EncodeToString([]byte("another-key")))
	require.NoError(t, err)

	tests := []struct {
		name    string
		headers http.Header
		body    []byte
	}{
		{name: "missing headers", headers: http.Header{}, body: body},
		{
			name: "missing signature",
			headers: func() http.Header {
				h := valid.Clone()
				h.Del(webhook.HeaderSignature)
				return h
			}(),
			body: body,
		},
		{name: "tampered body", headers: valid, body: []byte(notificationBody + " ")},
		{name: "wrong secret", headers: sign(t, other, "msg_1", now, body), body: body},
		{name: "expired timestamp", headers: sign(t, v, "msg_1", now.Add(-10*time.Minute), body), body: body},
		{name: "future timestamp", headers: sign(t, v, "msg_1", now.Add(10*time.Minute), body), body: body},
		{
			name: "non numeric timestamp",
			headers: func() http.Header {
				h := valid.Clone()
				h.Set(webhook.HeaderTimestamp, "yesterday")
				return h
			}(),
			body: body,
		},
		{
			name: "unsupported version",
			headers: func() http.Header {
				h := valid.Clone()
				h.Set(webhook.HeaderSignature, "v2,"+h.Get(webhook.HeaderSignature)[3:])
				return h
			}(),
			body: body,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.headers, tt.body)
			require.Error(t, err)
			assert.ErrorIs(t, err, webhook.ErrInvalidSignature)
		})
	}
}

func TestVerify_AcceptsAnyListedSignature(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newVerifier(t, now)
	body := []byte(notificationBody)
	h := sign(t, v, "msg_1", now, body)
	h.Set(webhook.HeaderSignature, "v1,bm90LWEtc2lnbmF0dXJl "+h.Get(webhook.HeaderSignature))

	_, err := v.Verify(h, body)
	require.NoError(t, err)
}

func TestVerify_MalformedPayload(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newVerifier(t, now)

	bodies := map[string]string{
		"not json":         `{"type":`,
		"no type":          `{"data":{}}`,
		"no data":          `{"type":"notification"}`,
		"missing user id":  `{"type":"notification","data":{"inboxNotificationId":"in_1"}}`,
		"wrong data shape": `{"type":"notification","data":[1,2,3]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(sign(t, v, "msg_1", now, []byte(body)), []byte(body))
			require.Error(t, err)
			assert.ErrorIs(t, err, webhook.ErrMalformedPayload)
			assert.NotErrorIs(t, err, webhook.ErrInvalidSignature)
		})
	}
}

func TestNewVerifier_BadSecret(t *testing.T) {
	_, err := webhook.NewVerifier("")
	require.Error(t, err)

	_, err = webhook.NewVerifier("whsec_not base64!")
	require.Error(t, err)
}

func TestNewVerifier_AcceptsUnprefixedSecret(t *testing.T) {
	_, err := webhook.NewVerifier(base64.StdEncoding.EncodeToString([]byte("k")))
	require.NoError(t, err)
}

func TestVerify_AcceptsSignatureFromStandardSigner(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := newVerifier(t, now)
	body := []byte(notificationBody)

	signer, err := svix.NewWebhook(testSecret)
	require.NoError(t, err)
	sig, err := signer.Sign("msg_std", now, body)
	require.NoError(t, err)

	h := http.Header{}
	h.Set(webhook.HeaderID, "msg_std")
	h.Set(webhook.HeaderTimestamp, "1700000000")
	h.Set(webhook.HeaderSignature, sig)

	d, err := v.Verify(h, body)
	require.NoError(t, err)
	assert.Equal(t, "msg_std", d.ID)
}

func TestVerify_ToleranceIsConfigurable(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	body := []byte(notificationBody)

	wide, err := webhook.NewVerifier(testSecret,
		webhook.WithTolerance(15*time.Minute),
		webhook.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	_, err = wide.Verify(sign(t, wide, "msg_1", now.Add(-10*time.Minute), body), body)
	require.NoError(t, err)

	narrow, err := webhook.NewVerifier(testSecret,
		webhook.WithTolerance(30*time.Second),
		webhook.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	_, err = narrow.Verify(sign(t, narrow, "msg_1", now.Add(-time.Minute), body), body)
	assert.ErrorIs(t, err, webhook.ErrInvalidSignature)
}
