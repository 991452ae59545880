package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shaharia-lab/inboxmailer/internal/storage"
)

const maxListLimit = 500

// DeliveryService exposes the delivery log for inspection.
type DeliveryService interface {
	// List returns the most recent delivery records, newest first.
	List(ctx context.Context, limit int) ([]storage.DeliveryRecord, error)
	// Get returns one delivery record or a *NotFoundError.
	Get(ctx context.Context, id string) (*storage.DeliveryRecord, error)
}

type deliveryService struct {
	store storage.DeliveryStore
}

// NewDeliveryService returns a DeliveryService backed by store.
func NewDeliveryService(store storage.DeliveryStore) DeliveryService {
	return &deliveryService{store: store}
}

func (s *deliveryService) List(ctx context.Context, limit int) ([]storage.DeliveryRecord, error) {
	if limit < 0 {
		return nil, &ValidationError{Field: "limit", Message: "must not be negative"}
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	records, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}
	if records == nil {
		records = []storage.DeliveryRecord{}
	}
	return records, nil
}

func (s *deliveryService) Get(ctx context.Context, id string) (*storage.DeliveryRecord, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "id is required"}
	}
	rec, err := s.store.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, &NotFoundError{Resource: "delivery", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("getting delivery %q: %w", id, err)
	}
	return rec, nil
}
