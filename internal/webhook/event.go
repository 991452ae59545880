// Package webhook verifies signed webhook deliveries from the collaboration
// platform and decodes them into typed events.
package webhook

import (
	"encoding/json"
	"fmt"
	"time"
)

// TypeNotification is the event type emitted when an inbox notification is
// ready to be delivered on an external channel.
const TypeNotification = "notification"

// Event is one verified webhook event. The concrete type is either
// *NotificationEvent or *UnknownEvent.
type Event interface {
	// Type returns the raw event type string.
	Type() string
	isEvent()
}

// NotificationData is the payload of a notification event.
type NotificationData struct {
	Channel             string    `json:"channel"`
	Kind                string    `json:"kind"`
	ProjectID           string    `json:"projectId"`
	RoomID              string    `json:"roomId"`
	UserID              string    `json:"userId"`
	InboxNotificationID string    `json:"inboxNotificationId"`
	CreatedAt           time.Time `json:"createdAt"`
}

// NotificationEvent asks the receiver to notify a user about an inbox
// notification on a given channel.
type NotificationEvent struct {
	Data NotificationData
}

// Type implements Event.
func (*NotificationEvent) Type() string { return TypeNotification }
func (*NotificationEvent) isEvent()     {}

// UnknownEvent is any event type this service does not act on.
type UnknownEvent struct {
	RawType string
	Data    json.RawMessage
}

// Type implements Event.
func (e *UnknownEvent) Type() string { return e.RawType }
func (*UnknownEvent) isEvent()       {}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ParseEvent decodes a raw webhook body. It does not check signatures; use
// Verifier.Verify for untrusted input.
func ParseEvent(body []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrMalformedPayload)
	}

	switch env.Type {
	case TypeNotification:
		var data NotificationData
		if len(env.Data) == 0 {
			return nil, fmt.Errorf("%w: notification event without data", ErrMalformedPayload)
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("%w: notification data: %v", ErrMalformedPayload, err)
		}
		if data.UserID == "" || data.InboxNotificationID == "" {
			return nil, fmt.Errorf("%w: notification data requires userId and inboxNotificationId", ErrMalformedPayload)
		}
		return &NotificationEvent{Data: data}, nil
	default:
		return &UnknownEvent{RawType: env.Type, Data: env.Data}, nil
	}
}
