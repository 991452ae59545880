package mocks

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/shaharia-lab/inboxmailer/internal/service"
)

// MockWebhookService is a mock implementation of service.WebhookService.
type MockWebhookService struct {
	mock.Mock
}

//nolint:revive
func (m *MockWebhookService) HandleWebhook(ctx context.Context, headers http.Header, body []byte) (*service.Result, error) {
	args := m.Called(ctx, headers, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Result), args.Error(1)
}
