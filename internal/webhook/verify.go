package webhook

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

// Signature headers set by the platform on every delivery.
const (
	HeaderID        = "webhook-id"
	HeaderTimestamp = "webhook-timestamp"
	HeaderSignature = "webhook-signature"
)

const (
	secretPrefix     = "whsec_"
	defaultTolerance = 5 * time.Minute
)

// Delivery is a verified webhook request.
type Delivery struct {
	// ID is the platform's delivery id. Redeliveries of the same event reuse it.
	ID        string
	Timestamp time.Time
	Event     Event
}

// Verifier checks webhook signatures against a shared signing secret.
type Verifier struct {
	wh        *svix.Webhook
	tolerance time.Duration
	now       func() time.Time
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithTolerance sets the accepted clock skew between the signed timestamp and
// the local clock.
func WithTolerance(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.tolerance = d
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier creates a Verifier from a "whsec_"-prefixed signing secret.
func NewVerifier(secret string, opts ...Option) (*Verifier, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return nil, err
	}
	wh, err := svix.NewWebhookRaw(key)
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}
	v := &Verifier{
		wh:        wh,
		tolerance: defaultTolerance,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

func decodeSecret(secret string) ([]byte, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("webhook: signing secret is required")
	}
	raw := strings.TrimPrefix(secret, secretPrefix)
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("webhook: decoding signing secret: %w", err)
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("webhook: signing secret is empty")
	}
	return key, nil
}

// Verify checks the signature headers against the exact request body and
// decodes the event. body must be the raw bytes read from the request.
func (v *Verifier) Verify(headers http.Header, body []byte) (*Delivery, error) {
	id := strings.TrimSpace(headers.Get(HeaderID))
	ts := strings.TrimSpace(headers.Get(HeaderTimestamp))
	sigs := strings.TrimSpace(headers.Get(HeaderSignature))
	if id == "" || ts == "" || sigs == "" {
		return nil, fmt.Errorf("%w: missing signature headers", ErrInvalidSignature)
	}

	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp %q", ErrInvalidSignature, ts)
	}
	signedAt := time.Unix(secs, 0)
	delta := v.now().Sub(signedAt)
	if delta < 0 {
		delta = -delta
	}
	if delta > v.tolerance {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	// The window is checked above so that it stays configurable.
	if err := v.wh.VerifyIgnoringTimestamp(body, headers); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	event, err := ParseEvent(body)
	if err != nil {
		return nil, err
	}
	return &Delivery{ID: id, Timestamp: signedAt, Event: event}, nil
}

// Sign returns the signature headers for a body. It is the inverse of Verify
// and is used by the sign command and tests.
func (v *Verifier) Sign(id string, at time.Time, body []byte) (http.Header, error) {
	sig, err := v.wh.Sign(id, at, body)
	if err != nil {
		return nil, fmt.Errorf("webhook: signing payload: %w", err)
	}
	h := http.Header{}
	h.Set(HeaderID, id)
	h.Set(HeaderTimestamp, strconv.FormatInt(at.Unix(), 10))
	h.Set(HeaderSignature, sig)
	return h, nil
}
