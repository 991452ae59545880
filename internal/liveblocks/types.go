package liveblocks

import (
	"encoding/json"
	"strings"
	"time"
)

// Inbox notification kinds produced by the platform itself. Custom kinds are
// defined by the application and always start with "$".
const (
	KindThread       = "thread"
	KindTextMention  = "textMention"
	customKindPrefix = "$"
)

// InboxNotification is the REST representation of an inbox notification.
// Fields the service does not use are kept in Extra.
type InboxNotification struct {
	ID         string                     `json:"id"`
	Kind       string                     `json:"kind"`
	RoomID     string                     `json:"roomId,omitempty"`
	ThreadID   string                     `json:"threadId,omitempty"`
	SubjectID  string                     `json:"subjectId,omitempty"`
	MentionID  string                     `json:"mentionId,omitempty"`
	NotifiedAt time.Time                  `json:"notifiedAt"`
	ReadAt     *time.Time                 `json:"readAt"`
	Activities []Activity                 `json:"activities,omitempty"`
	Extra      map[string]json.RawMessage `json:"-"`
}

// Activity is one entry of a custom notification's activity list.
type Activity struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	Data      map[string]any `json:"data,omitempty"`
}

// IsRead reports whether the user has already seen the notification.
func (n *InboxNotification) IsRead() bool {
	return n.ReadAt != nil
}

// IsCustom reports whether the notification kind is application-defined.
func (n *InboxNotification) IsCustom() bool {
	return strings.HasPrefix(n.Kind, customKindPrefix)
}

// UnmarshalJSON decodes the known fields and keeps everything else in Extra.
func (n *InboxNotification) UnmarshalJSON(b []byte) error {
	type plain InboxNotification
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for _, k := range []string{"id", "kind", "roomId", "threadId", "subjectId", "mentionId", "notifiedAt", "readAt", "activities"} {
		delete(all, k)
	}
	if len(all) > 0 {
		p.Extra = all
	}

	*n = InboxNotification(p)
	return nil
}
