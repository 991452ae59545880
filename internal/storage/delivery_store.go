package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a delivery record does not exist.
var ErrNotFound = errors.New("storage: not found")

// DeliveryStatus is the outcome of handling one webhook delivery.
type DeliveryStatus string

// Delivery outcomes.
const (
	StatusSent             DeliveryStatus = "sent"
	StatusFailed           DeliveryStatus = "failed"
	StatusIgnored          DeliveryStatus = "ignored"
	StatusSkippedDuplicate DeliveryStatus = "skipped_duplicate"
)

// DeliveryRecord records the handling of a single webhook delivery.
type DeliveryRecord struct {
	ID                  string         `json:"id"`
	WebhookID           string         `json:"webhook_id"`
	EventType           string         `json:"event_type"`
	Kind                string         `json:"kind"`
	Channel             string         `json:"channel"`
	RoomID              string         `json:"room_id"`
	UserID              string         `json:"user_id"`
	InboxNotificationID string         `json:"inbox_notification_id"`
	Recipient           string         `json:"recipient"`
	Provider            string         `json:"provider"`
	Subject             string         `json:"subject"`
	Status              DeliveryStatus `json:"status"`
	ErrorMsg            string         `json:"error_msg"`
	CreatedAt           time.Time      `json:"created_at"`
}

// DeliveryStore persists the delivery log.
type DeliveryStore interface {
	// Record stores a delivery record. An empty ID or CreatedAt is filled in.
	Record(ctx context.Context, rec DeliveryRecord) (DeliveryRecord, error)
	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*DeliveryRecord, error)
	// List returns the most recent records, newest first, up to limit.
	List(ctx context.Context, limit int) ([]DeliveryRecord, error)
	// PruneBefore deletes records created before cutoff and returns the count.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
