package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaharia-lab/inboxmailer/internal/api"
	"github.com/shaharia-lab/inboxmailer/internal/build"
	"github.com/shaharia-lab/inboxmailer/internal/config"
	"github.com/shaharia-lab/inboxmailer/internal/dedupe"
	"github.com/shaharia-lab/inboxmailer/internal/directory"
	"github.com/shaharia-lab/inboxmailer/internal/eventbus"
	"github.com/shaharia-lab/inboxmailer/internal/liveblocks"
	"github.com/shaharia-lab/inboxmailer/internal/logger"
	"github.com/shaharia-lab/inboxmailer/internal/metrics"
	"github.com/shaharia-lab/inboxmailer/internal/notification"
	"github.com/shaharia-lab/inboxmailer/internal/scheduler"
	"github.com/shaharia-lab/inboxmailer/internal/server"
	"github.com/shaharia-lab/inboxmailer/internal/service"
	"github.com/shaharia-lab/inboxmailer/internal/storage"
	"github.com/shaharia-lab/inboxmailer/internal/telemetry"
	"github.com/shaharia-lab/inboxmailer/internal/webhook"
)

const eventBusWorkers = 2

// NewServeCmd returns the "serve" subcommand that starts the webhook receiver.
func NewServeCmd(cfg *config.AppConfig) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook receiver",
		Long: `Start the HTTP server that accepts signed webhook deliveries at
POST /api/webhooks/liveblocks and emails inbox notifications.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI flags override env config.
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration:\n%w", err)
			}

			logFile := filepath.Join(cfg.LogDir(), "system.log")
			printBanner(build.Version, fmt.Sprintf("http://localhost:%d", cfg.Port), logFile, cfg.MailProvider)

			if err := runServe(cfg); err != nil {
				fmt.Fprintf(os.Stderr, "An error occurred. Please check the logs at: %s\n", logFile)
				return err
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", cfg.Port, "HTTP server port (overrides PORT env var)")
	return cmd
}

func runServe(cfg *config.AppConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sysLogger, logCloser, err := logger.NewSystemLogger(cfg.LogDir(), cfg.SlogLevel())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logCloser.Close() //nolint:errcheck

	m := metrics.New()
	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    "inboxmailer",
		ServiceVersion: build.Version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Registerer:     m.Registry(),
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			sysLogger.Warn("telemetry shutdown failed", "error", err)
		}
	}()
	sysLogger = logger.Tee(sysLogger, tel.LogHandler())

	sysLogger.Info("inboxmailer starting",
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
		slog.String("mail_provider", cfg.MailProvider),
		slog.String("version", build.Version),
		slog.String("commit", build.CommitSHA),
		slog.String("build_date", build.BuildDate),
	)

	db, fresh, err := storage.NewSQLiteDB(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck
	if fresh {
		sysLogger.Info("created delivery log database", "path", cfg.DBPath())
	}
	store := storage.NewSQLiteDeliveryStore(db)

	verifier, err := webhook.NewVerifier(cfg.WebhookSecret, webhook.WithTolerance(cfg.WebhookTolerance))
	if err != nil {
		return fmt.Errorf("configuring webhook verifier: %w", err)
	}

	users, err := directory.Load(cfg.UsersFile, cfg.RecipientFallbackDomain)
	if err != nil {
		return fmt.Errorf("loading user directory: %w", err)
	}
	sysLogger.Info("user directory loaded", "users", users.Len(), "fallback_domain", cfg.RecipientFallbackDomain)

	provider, err := newMailProvider(ctx, cfg)
	if err != nil {
		return err
	}

	claimer, closeClaimer, err := newClaimer(ctx, cfg, sysLogger)
	if err != nil {
		return err
	}
	defer closeClaimer()

	bus := eventbus.New(eventBusWorkers, sysLogger)
	bus.Subscribe(m.Listen)
	defer bus.Close()

	webhookSvc := service.NewWebhookService(service.WebhookConfig{
		Verifier: verifier,
		Fetcher: liveblocks.NewClient(cfg.LiveblocksSecretKey,
			liveblocks.WithBaseURL(cfg.LiveblocksBaseURL),
			liveblocks.WithTimeout(cfg.UpstreamTimeout),
		),
		Directory: users,
		Mailer: notification.NewNotifier(provider, cfg.MailFrom, cfg.AppURL,
			notification.WithSendTimeout(cfg.UpstreamTimeout),
		),
		Store: store,
		Policy: service.Policy{
			AllowedChannels: cfg.AllowedChannels,
			AllowedKinds:    cfg.AllowedKinds,
		},
		Claimer:        claimer,
		Publisher:      bus,
		TracerProvider: tel.TracerProvider,
		Logger:         sysLogger,
	})
	deliverySvc := service.NewDeliveryService(store)

	sched, err := scheduler.New(scheduler.Config{
		Store:     store,
		Retention: cfg.LogRetention,
		Logger:    sysLogger,
	})
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("starting scheduler: %w", err)
	}
	defer func() {
		if err := sched.Stop(); err != nil {
			sysLogger.Warn("scheduler shutdown failed", "error", err)
		}
	}()

	apiSrv := api.New(webhookSvc, deliverySvc, sysLogger, api.WithPublisher(bus))
	srv := server.New(apiSrv, cfg.Port, sysLogger, server.Options{
		MetricsHandler:     m.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TracerProvider:     tel.TracerProvider,
		MeterProvider:      tel.MeterProvider,
	})

	sysLogger.Info("server ready", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
	return srv.Run(ctx)
}

func newMailProvider(ctx context.Context, cfg *config.AppConfig) (notification.Provider, error) {
	switch cfg.MailProvider {
	case config.MailProviderSMTP:
		return notification.NewSMTPProvider(notification.SMTPConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			Encryption: cfg.SMTPEncryption,
		}), nil
	case config.MailProviderSES:
		p, err := notification.NewSESProvider(ctx, notification.SESConfig{Region: cfg.SESRegion})
		if err != nil {
			return nil, fmt.Errorf("configuring ses provider: %w", err)
		}
		return p, nil
	default:
		p, err := notification.NewResendProvider(notification.ResendConfig{
			APIKey:  cfg.ResendAPIKey,
			BaseURL: cfg.ResendBaseURL,
		}, &http.Client{Timeout: cfg.UpstreamTimeout})
		if err != nil {
			return nil, fmt.Errorf("configuring resend provider: %w", err)
		}
		return p, nil
	}
}

// newClaimer returns the dedupe claimer and a close func. Without
// DEDUPE_REDIS_URL every delivery is processed.
func newClaimer(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (dedupe.Claimer, func(), error) {
	if cfg.DedupeRedisURL == "" {
		return dedupe.Noop{}, func() {}, nil
	}
	c, err := dedupe.NewRedisClaimer(cfg.DedupeRedisURL, cfg.DedupeTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("configuring dedupe store: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx); err != nil {
		logger.Warn("dedupe store unreachable at startup, claims fail open", "error", err)
	}
	logger.Info("webhook deduplication enabled", "ttl", cfg.DedupeTTL)
	return c, func() { _ = c.Close() }, nil
}
