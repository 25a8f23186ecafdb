package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/dlcks7456/diaryCleaning/internal/changelog"
	"github.com/dlcks7456/diaryCleaning/internal/config"
	apierrors "github.com/dlcks7456/diaryCleaning/internal/errors"
	"github.com/dlcks7456/diaryCleaning/internal/infrastructure"
	mw "github.com/dlcks7456/diaryCleaning/internal/middleware"
	"github.com/dlcks7456/diaryCleaning/internal/pipeline"
	"github.com/dlcks7456/diaryCleaning/internal/services"
	handlers "github.com/dlcks7456/diaryCleaning/internal/transport/http"
	ws "github.com/dlcks7456/diaryCleaning/internal/websocket"
	"github.com/dlcks7456/diaryCleaning/internal/workbook"
	"github.com/dlcks7456/diaryCleaning/pkg/contracts"
)

// AppName is the service and binary name.
const AppName = "diarycheck"

// Application represents the main application container
type Application struct {
	Config   *config.Config
	Paths    *config.Paths
	Logger   *slog.Logger
	OTel     *infrastructure.OTelProviders
	Metrics  *infrastructure.BusinessMetrics
	Hub      *ws.Hub
	Store    changelog.Store
	Session  *workbook.Session
	Workbook *services.WorkbookService
	Health   *services.HealthService
	Router   chi.Router
	Server   *http.Server

	listener  net.Listener
	serveErr  chan error
	ready     chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// New builds the application. Relative output directories resolve
// against baseDir.
func New(ctx context.Context, cfg *config.Config, baseDir string, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	paths := cfg.ResolvePaths(baseDir)
	if err := paths.EnsureDirectories(); err != nil {
		return nil, err
	}

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, contracts.Version, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	store, err := changelog.OpenStore(ctx, cfg, paths, logger)
	if err != nil {
		_ = providers.Shutdown(ctx)
		return nil, fmt.Errorf("failed to open change log store: %w", err)
	}

	hub := ws.NewHub(logger)
	p := pipeline.New(cfg, logger,
		pipeline.WithTracer(providers.Tracer),
		pipeline.WithMetrics(metrics),
		pipeline.WithObserver(services.ProgressObserver(hub)),
	)
	session := workbook.NewSession(cfg, p, logger,
		workbook.WithStore(store),
		workbook.WithMetrics(metrics),
	)
	wb := services.NewWorkbookService(cfg, paths, session, hub, logger)

	a := &Application{
		Config:   cfg,
		Paths:    paths,
		Logger:   logger,
		OTel:     providers,
		Metrics:  metrics,
		Hub:      hub,
		Store:    store,
		Session:  session,
		Workbook: wb,
		Health:   services.NewHealthService(contracts.Version, paths, wb, hub, logger),
		ready:    make(chan struct{}),
	}
	a.setupRouter()
	a.Server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      a.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	logger.InfoContext(ctx, "Application initialized",
		slog.String("version", contracts.Version),
		slog.String("changelog_backend", cfg.ChangeLog.Backend),
		slog.String("convert_dir", paths.ConvertDir))
	return a, nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	errHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Level == "debug")
	cors := mw.CORSConfig{AllowedOrigins: a.Config.Server.AllowedOrigins}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.RealIP)
	r.NotFound(errHandler.NotFound)
	r.MethodNotAllowed(errHandler.MethodNotAllowed)

	// The upgrade needs the raw ResponseWriter, so /ws skips the wrapping
	// middleware of the group below.
	r.Get("/ws", ws.Handler(a.Hub, func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || cors.AllowsOrigin(origin)
	}, a.Logger))

	r.Group(func(r chi.Router) {
		r.Use(mw.NewOTelMiddleware(a.OTel.Tracer, a.Metrics).Handler)
		r.Use(mw.StructuredLogger(a.Logger))
		r.Use(mw.Recoverer(errHandler))
		r.Use(mw.SecurityHeaders)
		r.Use(mw.CORS(cors))
		if rl := a.Config.Server.RateLimit; rl.Enabled {
			r.Use(mw.NewRateLimiter(rl.RPS, rl.Burst, errHandler, a.Logger).Handler)
		}

		r.Mount("/health", handlers.NewHealthHandler(a.Health, a.Logger).Routes())

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Use(mw.Timeout(a.Config.Server.RequestTimeout))
			r.Use(mw.ContentTypeValidator(errHandler, "application/json"))

			wb := handlers.NewWorkbookHandler(a.Workbook, mw.NewValidator(mw.DefaultMaxBodySize), errHandler, a.Logger)
			r.Mount("/workbook", wb.Routes())
			r.Get("/ws/stats", handlers.NewMetricsHandler(a.Hub).WebSocketStats)
		})
	})

	if a.OTel.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTel.PrometheusHTTP)
	}

	a.Router = r
}

// Start binds the listener and serves in the background. Serve errors are
// delivered on the returned channel.
func (a *Application) Start(ctx context.Context) (<-chan error, error) {
	if a.listener != nil {
		return nil, errors.New("application already started")
	}
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln
	a.serveErr = make(chan error, 1)

	a.Hub.Start()
	go func() {
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.serveErr <- err
		}
		close(a.serveErr)
	}()

	a.Logger.InfoContext(ctx, "Server listening",
		slog.String("address", "http://"+ln.Addr().String()))
	close(a.ready)
	return a.serveErr, nil
}

// Ready is closed once the listener is bound.
func (a *Application) Ready() <-chan struct{} {
	return a.ready
}

// Addr is the bound address once Start has returned.
func (a *Application) Addr() string {
	if a.listener == nil {
		return a.Server.Addr
	}
	return a.listener.Addr().String()
}

// Stop shuts the application down. It is safe to call more than once.
func (a *Application) Stop(ctx context.Context) error {
	a.closeOnce.Do(func() {
		a.Logger.InfoContext(ctx, "Shutting down application")

		shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
		defer cancel()

		var errs []error
		if a.listener != nil {
			if err := a.Server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("server shutdown: %w", err))
			}
		}
		a.Hub.Stop()
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("change log store close: %w", err))
		}
		if err := a.OTel.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		a.closeErr = errors.Join(errs...)

		a.Logger.InfoContext(ctx, "Application shutdown complete")
	})
	return a.closeErr
}

// Run serves until ctx ends, a shutdown signal arrives or the server fails.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr, err := a.Start(ctx)
	if err != nil {
		_ = a.Stop(context.Background())
		return err
	}

	select {
	case err := <-serveErr:
		stopErr := a.Stop(context.Background())
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return stopErr
	case <-ctx.Done():
		a.Logger.InfoContext(ctx, "Received shutdown signal")
	}
	return a.Stop(context.Background())
}
