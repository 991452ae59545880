package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/shaharia-lab/inboxmailer/internal/api"
)

// Options configures the optional parts of the HTTP server.
type Options struct {
	// MetricsHandler is mounted at /metrics when non-nil.
	MetricsHandler http.Handler
	// CORSAllowedOrigins enables CORS on /api when non-empty.
	CORSAllowedOrigins []string
	// TracerProvider and MeterProvider instrument every request when set.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Server is the HTTP server for the webhook receiver.
type Server struct {
	apiServer  *api.Server
	port       int
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server
}

// New creates a new Server.
func New(apiSrv *api.Server, port int, logger *slog.Logger, opts Options) *Server {
	s := &Server{
		apiServer: apiSrv,
		port:      port,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		if len(opts.CORSAllowedOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: opts.CORSAllowedOrigins,
				AllowedMethods: []string{http.MethodGet, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type"},
				MaxAge:         300,
			}))
		}
		apiSrv.Mount(r)
	})

	var handler http.Handler = r
	if opts.TracerProvider != nil || opts.MeterProvider != nil {
		var otelOpts []otelhttp.Option
		if opts.TracerProvider != nil {
			otelOpts = append(otelOpts, otelhttp.WithTracerProvider(opts.TracerProvider))
		}
		if opts.MeterProvider != nil {
			otelOpts = append(otelOpts, otelhttp.WithMeterProvider(opts.MeterProvider))
		}
		otelOpts = append(otelOpts, otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}))
		handler = otelhttp.NewHandler(r, "inboxmailer", otelOpts...)
	}
	s.handler = handler

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server and blocks until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down server")
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// requestLogger is a chi middleware that logs each incoming request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
