// Package service implements the business logic between the HTTP handlers
// and the webhook, platform, directory, mail and storage packages. All
// dependencies are interfaces so they can be replaced in tests.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaharia-lab/inboxmailer/internal/dedupe"
	"github.com/shaharia-lab/inboxmailer/internal/directory"
	"github.com/shaharia-lab/inboxmailer/internal/eventbus"
	"github.com/shaharia-lab/inboxmailer/internal/liveblocks"
	"github.com/shaharia-lab/inboxmailer/internal/notification"
	"github.com/shaharia-lab/inboxmailer/internal/storage"
	"github.com/shaharia-lab/inboxmailer/internal/webhook"
)

const tracerName = "github.com/shaharia-lab/inboxmailer/internal/service"

// Outcome describes how a verified delivery was handled.
type Outcome string

// Outcomes of a successfully handled delivery. All map to HTTP 200.
const (
	OutcomeSent      Outcome = "sent"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "skipped_duplicate"
)

// Result is returned by HandleWebhook when the delivery was handled.
type Result struct {
	Outcome    Outcome `json:"outcome"`
	WebhookID  string  `json:"webhook_id"`
	EventType  string  `json:"event_type"`
	Reason     string  `json:"reason,omitempty"`
	DeliveryID string  `json:"delivery_id,omitempty"`
}

// WebhookService verifies and handles inbound webhook deliveries.
type WebhookService interface {
	// HandleWebhook verifies the raw body against the signature headers and
	// acts on the event. A nil error means the sender should receive 200.
	HandleWebhook(ctx context.Context, headers http.Header, body []byte) (*Result, error)
}

// Verifier checks webhook signatures and decodes events.
type Verifier interface {
	Verify(headers http.Header, body []byte) (*webhook.Delivery, error)
}

// NotificationFetcher retrieves inbox notifications from the platform.
type NotificationFetcher interface {
	GetInboxNotification(ctx context.Context, userID, inboxNotificationID string) (*liveblocks.InboxNotification, error)
}

// Mailer composes and sends a notification email.
type Mailer interface {
	Notify(ctx context.Context, to notification.Recipient, inbox *liveblocks.InboxNotification) (notification.Message, error)
	ProviderName() string
}

// Publisher emits outcome events. eventbus.Bus satisfies it.
type Publisher interface {
	Publish(e eventbus.Event)
}

// Policy filters notification events before any outbound call is made.
// Empty lists allow everything.
type Policy struct {
	AllowedChannels []string
	AllowedKinds    []string
}

func (p Policy) allows(data webhook.NotificationData) (bool, string) {
	if len(p.AllowedChannels) > 0 && !slices.Contains(p.AllowedChannels, data.Channel) {
		return false, "channel " + data.Channel + " not enabled"
	}
	if len(p.AllowedKinds) > 0 && !slices.Contains(p.AllowedKinds, data.Kind) {
		return false, "kind " + data.Kind + " not enabled"
	}
	return true, ""
}

// WebhookConfig holds the dependencies of the webhook service.
type WebhookConfig struct {
	Verifier  Verifier
	Fetcher   NotificationFetcher
	Directory directory.Resolver
	Mailer    Mailer
	Store     storage.DeliveryStore
	Policy    Policy
	// Claimer is optional. Nil disables deduplication.
	Claimer dedupe.Claimer
	// Publisher is optional.
	Publisher Publisher
	// TracerProvider is optional; the global provider is used when nil.
	TracerProvider trace.TracerProvider
	Logger         *slog.Logger
}

type webhookService struct {
	verifier  Verifier
	fetcher   NotificationFetcher
	directory directory.Resolver
	mailer    Mailer
	store     storage.DeliveryStore
	policy    Policy
	claimer   dedupe.Claimer
	publisher Publisher
	tracer    trace.Tracer
	logger    *slog.Logger
	now       func() time.Time
}

// NewWebhookService returns a WebhookService wired with cfg.
func NewWebhookService(cfg WebhookConfig) WebhookService {
	s := &webhookService{
		verifier:  cfg.Verifier,
		fetcher:   cfg.Fetcher,
		directory: cfg.Directory,
		mailer:    cfg.Mailer,
		store:     cfg.Store,
		policy:    cfg.Policy,
		claimer:   cfg.Claimer,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		now:       time.Now,
	}
	if s.claimer == nil {
		s.claimer = dedupe.Noop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	s.tracer = tp.Tracer(tracerName)
	return s
}

func (s *webhookService) HandleWebhook(ctx context.Context, headers http.Header, body []byte) (res *Result, err error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "webhook.handle")
	defer func() {
		result := resultLabel(res, err)
		span.SetAttributes(attribute.String("webhook.result", result))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
		span.End()
		s.publish(eventbus.Event{
			Type:     eventbus.TypeWebhookHandled,
			Result:   result,
			Duration: s.now().Sub(start),
		})
	}()

	delivery, err := s.verifier.Verify(headers, body)
	if err != nil {
		s.logger.Warn("rejected webhook delivery", "error", err)
		return nil, err
	}
	span.SetAttributes(
		attribute.String("webhook.id", delivery.ID),
		attribute.String("webhook.event_type", delivery.Event.Type()),
	)

	switch ev := delivery.Event.(type) {
	case *webhook.NotificationEvent:
		return s.handleNotification(ctx, delivery.ID, ev)
	case *webhook.UnknownEvent:
		return s.ignore(ctx, storage.DeliveryRecord{
			WebhookID: delivery.ID,
			EventType: ev.Type(),
		}, "unhandled event type"), nil
	default:
		// Unreachable while Event stays sealed to this package's types.
		return s.ignore(ctx, storage.DeliveryRecord{
			WebhookID: delivery.ID,
			EventType: delivery.Event.Type(),
		}, "unhandled event type"), nil
	}
}

func (s *webhookService) handleNotification(ctx context.Context, webhookID string, ev *webhook.NotificationEvent) (*Result, error) {
	data := ev.Data
	rec := storage.DeliveryRecord{
		WebhookID:           webhookID,
		EventType:           ev.Type(),
		Kind:                data.Kind,
		Channel:             data.Channel,
		RoomID:              data.RoomID,
		UserID:              data.UserID,
		InboxNotificationID: data.InboxNotificationID,
	}
	logger := s.logger.With(
		"webhook_id", webhookID,
		"user_id", data.UserID,
		"inbox_notification_id", data.InboxNotificationID,
		"kind", data.Kind,
	)

	if ok, reason := s.policy.allows(data); !ok {
		logger.Info("notification filtered by policy", "reason", reason)
		return s.ignore(ctx, rec, reason), nil
	}

	claimed, err := s.claimer.Claim(ctx, webhookID)
	if err != nil {
		// Fail open: a duplicate email is preferable to a lost one.
		logger.Warn("dedupe claim failed, continuing", "error", err)
		claimed = true
	}
	if !claimed {
		logger.Info("duplicate delivery skipped")
		rec.Status = storage.StatusSkippedDuplicate
		rec = s.record(ctx, rec)
		return &Result{
			Outcome:    OutcomeDuplicate,
			WebhookID:  webhookID,
			EventType:  rec.EventType,
			Reason:     "delivery already handled",
			DeliveryID: rec.ID,
		}, nil
	}

	inbox, err := s.fetcher.GetInboxNotification(ctx, data.UserID, data.InboxNotificationID)
	if err != nil {
		logger.Error("fetching inbox notification failed", "error", err)
		return nil, s.fail(ctx, rec, err, stageFetch)
	}

	if inbox.IsRead() {
		logger.Info("notification already read, not sending")
		return s.ignore(ctx, rec, "notification already read"), nil
	}

	user, err := s.directory.Resolve(ctx, data.UserID)
	if err != nil {
		logger.Error("resolving recipient failed", "error", err)
		return nil, s.fail(ctx, rec, err, stageRecipient)
	}
	rec.Recipient = user.Email
	rec.Provider = s.mailer.ProviderName()

	msg, err := s.mailer.Notify(ctx, notification.Recipient{UserID: user.ID, Email: user.Email, Name: user.Name}, inbox)
	rec.Subject = msg.Subject
	if err != nil {
		logger.Error("sending notification email failed", "error", err, "provider", rec.Provider)
		return nil, s.fail(ctx, rec, err, stageDelivery)
	}

	logger.Info("notification email sent", "recipient", user.Email, "provider", rec.Provider)
	s.publish(eventbus.Event{Type: eventbus.TypeEmailSent, Provider: rec.Provider})

	rec.Status = storage.StatusSent
	rec = s.record(ctx, rec)
	return &Result{
		Outcome:    OutcomeSent,
		WebhookID:  webhookID,
		EventType:  rec.EventType,
		DeliveryID: rec.ID,
	}, nil
}

// ignore records an intentionally skipped delivery.
func (s *webhookService) ignore(ctx context.Context, rec storage.DeliveryRecord, reason string) *Result {
	rec.Status = storage.StatusIgnored
	rec.ErrorMsg = reason
	rec = s.record(ctx, rec)
	return &Result{
		Outcome:    OutcomeIgnored,
		WebhookID:  rec.WebhookID,
		EventType:  rec.EventType,
		Reason:     reason,
		DeliveryID: rec.ID,
	}
}

// Stages at which handling a notification can fail. Only stageDelivery
// involves a send attempt.
const (
	stageFetch     = "fetch"
	stageRecipient = "recipient"
	stageDelivery  = "delivery"
)

// fail records a failed delivery and releases the dedupe claim so the
// sender's redelivery is processed again. email.failed is published only when
// the provider was actually called.
func (s *webhookService) fail(ctx context.Context, rec storage.DeliveryRecord, cause error, stage string) error {
	if err := s.claimer.Release(ctx, rec.WebhookID); err != nil {
		s.logger.Warn("releasing dedupe claim failed", "webhook_id", rec.WebhookID, "error", err)
	}
	rec.Status = storage.StatusFailed
	rec.ErrorMsg = cause.Error()
	s.record(ctx, rec)
	if stage == stageDelivery {
		s.publish(eventbus.Event{Type: eventbus.TypeEmailFailed, Provider: rec.Provider, Reason: stage})
	}
	return cause
}

// record writes rec to the delivery log. Store failures are logged, never
// surfaced to the sender.
func (s *webhookService) record(ctx context.Context, rec storage.DeliveryRecord) storage.DeliveryRecord {
	if s.store == nil {
		return rec
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	saved, err := s.store.Record(context.WithoutCancel(ctx), rec)
	if err != nil {
		s.logger.Warn("failed to record delivery", "webhook_id", rec.WebhookID, "status", rec.Status, "error", err)
		return rec
	}
	return saved
}

func (s *webhookService) publish(e eventbus.Event) {
	if s.publisher != nil {
		s.publisher.Publish(e)
	}
}

// resultLabel maps a handling result to a low-cardinality label.
func resultLabel(res *Result, err error) string {
	switch {
	case err == nil && res != nil:
		return string(res.Outcome)
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTransientUpstream):
		return "upstream_error"
	case errors.Is(err, ErrRecipientUnknown):
		return "recipient_unknown"
	case errors.Is(err, ErrDelivery):
		return "delivery_error"
	default:
		return "error"
	}
}
