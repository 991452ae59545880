// Package liveblocks is a minimal REST client for the collaboration
// platform's inbox notification API.
package liveblocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the platform's public REST endpoint.
const DefaultBaseURL = "https://api.liveblocks.io"

const defaultTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when the user or inbox notification does not exist.
	ErrNotFound = errors.New("liveblocks: not found")
	// ErrTransientUpstream covers network failures, timeouts, rate limiting and
	// 5xx responses. The caller may retry later.
	ErrTransientUpstream = errors.New("liveblocks: transient upstream error")
)

// Client calls the REST API with a secret key.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each API call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a Client. secretKey is the project's "sk_" key.
func NewClient(secretKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// apiError is the error body returned by the REST API.
type apiError struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// GetInboxNotification fetches one inbox notification owned by userID.
func (c *Client) GetInboxNotification(ctx context.Context, userID, inboxNotificationID string) (*InboxNotification, error) {
	if userID == "" || inboxNotificationID == "" {
		return nil, fmt.Errorf("liveblocks: userID and inboxNotificationID are required")
	}

	endpoint := fmt.Sprintf("%s/v2/users/%s/inbox-notifications/%s",
		c.baseURL, url.PathEscape(userID), url.PathEscape(inboxNotificationID))

	var n InboxNotification
	if err := c.get(ctx, endpoint, &n); err != nil {
		return nil, fmt.Errorf("fetching inbox notification %q for user %q: %w", inboxNotificationID, userID, err)
	}
	return &n, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransientUpstream, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrTransientUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parsing response: %w", err)
	}
	return nil
}

// statusError maps a non-200 response to the package's error taxonomy.
func statusError(status int, body []byte) error {
	var ae apiError
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &ae) == nil && ae.Message != "" {
		msg = ae.Message
	}

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case status == http.StatusTooManyRequests, status >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrTransientUpstream, status, msg)
	default:
		return fmt.Errorf("liveblocks: unexpected status %d: %s", status, msg)
	}
}
