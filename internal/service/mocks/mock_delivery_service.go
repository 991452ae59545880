package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/inboxmailer/internal/storage"
)

// MockDeliveryService is a mock implementation of service.DeliveryService.
type MockDeliveryService struct {
	mock.Mock
}

//nolint:revive
func (m *MockDeliveryService) List(ctx context.Context, limit int) ([]storage.DeliveryRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]storage.DeliveryRecord), args.Error(1)
}

//nolint:revive
func (m *MockDeliveryService) Get(ctx context.Context, id string) (*storage.DeliveryRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.DeliveryRecord), args.Error(1)
}
