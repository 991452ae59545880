package notification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shaharia-lab/inboxmailer/internal/liveblocks"
)

// Recipient is the resolved destination of one email.
type Recipient struct {
	UserID string
	Email  string
	Name   string
}

// Notifier composes notification emails and hands them to a Provider.
type Notifier struct {
	provider Provider
	from     string
	appURL   string
	timeout  time.Duration
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithSendTimeout bounds each provider call. Zero means no extra bound.
func WithSendTimeout(d time.Duration) NotifierOption {
	return func(n *Notifier) { n.timeout = d }
}

// NewNotifier creates a Notifier. appURL is optional; when set, emails link
// to <appURL>/rooms/<roomId>.
func NewNotifier(provider Provider, from, appURL string, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		provider: provider,
		from:     from,
		appURL:   strings.TrimRight(appURL, "/"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ProviderName returns the name of the underlying mail provider.
func (n *Notifier) ProviderName() string { return n.provider.Name() }

// Notify builds and sends one email for the inbox notification. The composed
// message is returned even when sending fails, for logging.
func (n *Notifier) Notify(ctx context.Context, to Recipient, inbox *liveblocks.InboxNotification) (Message, error) {
	msg, err := n.Compose(to, inbox)
	if err != nil {
		return msg, err
	}
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}
	if err := n.provider.Send(ctx, msg); err != nil {
		if !errors.Is(err, ErrDelivery) {
			err = fmt.Errorf("%w: %w", ErrDelivery, err)
		}
		return msg, err
	}
	return msg, nil
}

// Compose builds the email for inbox without sending it.
func (n *Notifier) Compose(to Recipient, inbox *liveblocks.InboxNotification) (Message, error) {
	if to.Email == "" {
		return Message{}, fmt.Errorf("%w: recipient %q has no email address", ErrDelivery, to.UserID)
	}

	d := emailData{
		Subject:  Subject(inbox.Kind),
		Greeting: greeting(to),
		Summary:  summary(inbox),
		Details:  activityDetails(inbox),
		Link:     n.roomLink(inbox.RoomID),
	}

	html, err := buildEmailHTML(d)
	if err != nil {
		return Message{}, fmt.Errorf("rendering email: %w", err)
	}

	return Message{
		From:    n.from,
		To:      []string{to.Email},
		Subject: d.Subject,
		HTML:    html,
		Text:    buildEmailText(d),
	}, nil
}

// Subject returns a readable email subject for a notification kind.
func Subject(kind string) string {
	switch kind {
	case liveblocks.KindThread:
		return SubjectPrefix + ": new comments"
	case liveblocks.KindTextMention:
		return SubjectPrefix + ": you were mentioned"
	}
	if name := strings.TrimPrefix(kind, "$"); name != "" && name != kind {
		return SubjectPrefix + ": " + name
	}
	return SubjectPrefix
}

func greeting(to Recipient) string {
	if to.Name != "" {
		return "Hi " + to.Name + ","
	}
	return "Hi,"
}

func summary(inbox *liveblocks.InboxNotification) string {
	var where string
	if inbox.RoomID != "" {
		where = " in " + inbox.RoomID
	}
	switch inbox.Kind {
	case liveblocks.KindThread:
		return "There are unread comments in a thread you participate in" + where + "."
	case liveblocks.KindTextMention:
		return "You were mentioned in a document" + where + "."
	}
	return "You have a new unread notification" + where + "."
}

// activityDetails renders each activity's data as "key: value" lines, sorted
// by key so output is stable.
func activityDetails(inbox *liveblocks.InboxNotification) []string {
	var lines []string
	for _, a := range inbox.Activities {
		keys := make([]string, 0, len(a.Data))
		for k := range a.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			lines = append(lines, fmt.Sprintf("%s: %v", k, a.Data[k]))
		}
	}
	return lines
}

func (n *Notifier) roomLink(roomID string) string {
	if n.appURL == "" || roomID == "" {
		return ""
	}
	return n.appURL + "/rooms/" + url.PathEscape(roomID)
}
