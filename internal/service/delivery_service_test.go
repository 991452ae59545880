package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/inboxmailer/internal/service"
	"github.com/shaharia-lab/inboxmailer/internal/storage"
)

func newSQLiteStore(t *testing.T) *storage.SQLiteDeliveryStore {
	t.Helper()
	db, _, err := storage.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewSQLiteDeliveryStore(db)
}

func TestDeliveryService_List(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"msg_a", "msg_b", "msg_c"} {
		_, err := store.Record(ctx, storage.DeliveryRecord{
			WebhookID: id,
			EventType: "notification",
			Status:    storage.StatusSent,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	svc := service.NewDeliveryService(store)

	all, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "msg_c", all[0].WebhookID)

	two, err := svc.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)

	_, err = svc.List(ctx, -1)
	var ve *service.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestDeliveryService_ListEmpty(t *testing.T) {
	svc := service.NewDeliveryService(newSQLiteStore(t))
	records, err := svc.List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestDeliveryService_Get(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()
	saved, err := store.Record(ctx, storage.DeliveryRecord{
		WebhookID: "msg_1",
		EventType: "notification",
		Status:    storage.StatusFailed,
		ErrorMsg:  "boom",
	})
	require.NoError(t, err)

	svc := service.NewDeliveryService(store)

	got, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "msg_1", got.WebhookID)
	assert.Equal(t, storage.StatusFailed, got.Status)

	_, err = svc.Get(ctx, "does-not-exist")
	var nf *service.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "delivery", nf.Resource)

	_, err = svc.Get(ctx, "")
	var ve *service.ValidationError
	assert.ErrorAs(t, err, &ve)
}
