package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultListLimit = 50

// SQLiteDeliveryStore implements DeliveryStore backed by SQLite.
type SQLiteDeliveryStore struct {
	db *sql.DB
}

// NewSQLiteDeliveryStore returns a new SQLiteDeliveryStore.
func NewSQLiteDeliveryStore(db *sql.DB) *SQLiteDeliveryStore {
	return &SQLiteDeliveryStore{db: db}
}

const deliveryColumns = `id, webhook_id, event_type, kind, channel, room_id, user_id,
	inbox_notification_id, recipient, provider, subject, status, error_msg, created_at`

// Record inserts a delivery record into the database.
func (s *SQLiteDeliveryStore) Record(ctx context.Context, rec DeliveryRecord) (DeliveryRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delivery_log (`+deliveryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.WebhookID, rec.EventType, rec.Kind, rec.Channel, rec.RoomID, rec.UserID,
		rec.InboxNotificationID, rec.Recipient, rec.Provider, rec.Subject,
		string(rec.Status), rec.ErrorMsg, rec.CreatedAt,
	)
	if err != nil {
		return rec, fmt.Errorf("inserting delivery record: %w", err)
	}
	return rec, nil
}

// Get returns a single record by id.
func (s *SQLiteDeliveryStore) Get(ctx context.Context, id string) (*DeliveryRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+deliveryColumns+` FROM delivery_log WHERE id = ?`, id)
	rec, err := scanDelivery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delivery %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying delivery %q: %w", id, err)
	}
	return rec, nil
}

// List returns the most recent records ordered by created_at descending.
func (s *SQLiteDeliveryStore) List(ctx context.Context, limit int) (entries []DeliveryRecord, err error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+deliveryColumns+`
		FROM delivery_log
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying delivery log: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		rec, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning delivery log row: %w", err)
		}
		entries = append(entries, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating delivery log rows: %w", err)
	}
	return entries, nil
}

// PruneBefore deletes records older than cutoff.
func (s *SQLiteDeliveryStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM delivery_log WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning delivery log: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned rows: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(r rowScanner) (*DeliveryRecord, error) {
	var rec DeliveryRecord
	var status string
	if err := r.Scan(&rec.ID, &rec.WebhookID, &rec.EventType, &rec.Kind, &rec.Channel,
		&rec.RoomID, &rec.UserID, &rec.InboxNotificationID, &rec.Recipient,
		&rec.Provider, &rec.Subject, &status, &rec.ErrorMsg, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Status = DeliveryStatus(status)
	return &rec, nil
}
