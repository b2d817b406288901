package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"treatylens/internal/actuarial"
	"treatylens/internal/config"
	"treatylens/internal/currency"
	"treatylens/internal/exposure"
	"treatylens/internal/history"
	"treatylens/internal/infrastructure"
	"treatylens/internal/ingest"
	custommw "treatylens/internal/middleware"
	"treatylens/internal/services"
	handlers "treatylens/internal/transport/http"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// Application wires configuration, dependencies and the HTTP server into
// one runnable unit.
type Application struct {
	Config  *config.Config
	Router  *chi.Mux
	Server  *http.Server
	History *history.Repository
	Logger  *slog.Logger
}

// New builds the full dependency graph from configuration.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	logger.Info("application starting",
		slog.String("version", Version),
		slog.Int("port", cfg.Server.Port),
	)

	repo, err := history.New(cfg.History, logger)
	if err != nil {
		return nil, fmt.Errorf("open claims history: %w", err)
	}

	analysisService := services.NewAnalysisService(
		ingest.NewConsolidator(logger),
		exposure.NewResolver(cfg.Analysis.TIVPlausibleMin, logger),
		actuarial.NewEngine(cfg.Analysis.ReferencePerMille, logger),
		currency.NewService(cfg.Rates, logger),
		repo,
		logger,
	)
	healthService := services.NewHealthService(repo, Version)

	app := &Application{
		Config:  cfg,
		History: repo,
		Logger:  logger,
	}
	app.Router = app.buildRouter(analysisService, healthService)
	app.Server = &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return app, nil
}

func (a *Application) buildRouter(analysis *services.AnalysisService, health *services.HealthService) *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommw.RequestID)
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.Logger))
	r.Use(metricsMiddleware)
	if a.Config.Server.RateLimit.Enabled {
		limiter := custommw.NewRateLimiter(a.Config.Server.RateLimit.RPS, a.Config.Server.RateLimit.Burst, a.Logger)
		r.Use(limiter.Handler)
	}

	analysisHandler := handlers.NewAnalysisHandler(analysis, a.Config.Server.MaxUploadBytes, a.Logger)
	healthHandler := handlers.NewHealthHandler(health, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/analysis", analysisHandler.Routes())
		r.Mount("/health", healthHandler.Routes())
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// Run serves HTTP until the context is cancelled, then shuts down within
// the configured grace period.
func (a *Application) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", slog.String("addr", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		if err := a.History.Close(); err != nil {
			a.Logger.Warn("closing claims history", slog.String("error", err.Error()))
		}
		return infrastructure.CloseLogFile()
	})

	return g.Wait()
}

// metricsMiddleware records request latency by chi route pattern and
// status class.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(ww.Status()/100) + "xx"
		infrastructure.RequestDuration.WithLabelValues(route, status).Observe(time.Since(start).Seconds())
	})
}
