package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shaharia-lab/inboxmailer/internal/eventbus"
	"github.com/shaharia-lab/inboxmailer/internal/service"
)

// DefaultMaxBodyBytes bounds the size of an inbound webhook payload.
const DefaultMaxBodyBytes int64 = 1 << 20

// Server holds all dependencies for the REST API handlers.
type Server struct {
	webhookSvc   service.WebhookService
	deliverySvc  service.DeliveryService
	publisher    service.Publisher
	logger       *slog.Logger
	maxBodyBytes int64
}

// Option configures a Server.
type Option func(*Server)

// WithPublisher publishes webhook.handled events for requests rejected before
// they reach the webhook service.
func WithPublisher(p service.Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

// New creates a new API Server backed by the provided services.
func New(webhookSvc service.WebhookService, deliverySvc service.DeliveryService, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		webhookSvc:   webhookSvc,
		deliverySvc:  deliverySvc,
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mount registers all API routes under the given router.
func (s *Server) Mount(r chi.Router) {
	// Inbound webhooks
	r.Post("/webhooks/liveblocks", s.handleLiveblocksWebhook)

	// Delivery log
	r.Get("/deliveries", s.handleListDeliveries)
	r.Get("/deliveries/{id}", s.handleGetDelivery)

	r.Get("/version", s.handleVersion)
}

// ─── Shared helpers ───────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) publish(e eventbus.Event) {
	if s.publisher != nil {
		s.publisher.Publish(e)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
