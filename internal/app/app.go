package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"threatwire/internal/config"
	"threatwire/internal/feed"
	"threatwire/internal/infrastructure/classifier"
	"threatwire/internal/infrastructure/httpapi"
	"threatwire/internal/infrastructure/notify"
	"threatwire/internal/infrastructure/rss"
	"threatwire/internal/infrastructure/scheduler"
	"threatwire/internal/infrastructure/storage"
	"threatwire/internal/ingest"
	"threatwire/internal/logging"
	"threatwire/internal/ports"
	"threatwire/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	db        *sql.DB
	server    *httpapi.Server
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance. Configuration problems are
// fatal here, before any feed work starts.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repository := storage.NewPostgresRepository(db)
	if err := repository.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	registry := feed.NewRegistry()
	registry.Register(rss.NewFetcher(nil, baseLogger.With("component", "fetcher.rss")))
	source := feed.NewSource(registry, baseLogger.With("component", "source"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Feeds:      feed.FromConfig(cfg.Feeds),
		Repository: repository,
		Classifier: classifier.NewClient(cfg.Classifier),
		Filter:     ingest.NewSponsoredFilter(cfg.Ingest.SponsoredKeywords),
		Logger:     baseLogger.With("component", "pipeline"),
		Settings: usecase.Settings{
			MaxNewPerRun:     cfg.Ingest.MaxNewPerRun,
			CutoffDays:       cfg.Ingest.CutoffDays,
			DupWindowHours:   cfg.Ingest.DupWindowHours,
			MaxRetries:       cfg.Ingest.MaxRetries,
			ReprocessLimit:   cfg.Ingest.ReprocessLimit,
			BackfillLimit:    cfg.Ingest.BackfillLimit,
			FetchConcurrency: cfg.Ingest.FetchConcurrency,
		},
	})

	var notifier ports.Notifier
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL)
	}

	app := &Application{
		cfg:    cfg,
		logger: baseLogger,
		db:     db,
		server: httpapi.NewServer(pipeline, cfg.Server.TriggerSecret, baseLogger.With("component", "httpapi")),
	}

	if cfg.Scheduler.Enabled {
		driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval)
		app.scheduler = usecase.NewScheduler(driver, pipeline, notifier, baseLogger.With("component", "scheduler"))
	}

	return app, nil
}

// Run starts the optional scheduler and serves HTTP until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", "addr", a.cfg.Server.ListenAddr)
		errCh <- a.server.Start(a.cfg.Server.ListenAddr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return a.Shutdown(context.Background())
}

// Shutdown stops the scheduler, drains the server, and closes the database.
func (a *Application) Shutdown(ctx context.Context) error {
	if a.scheduler != nil {
		_ = a.scheduler.Stop(ctx)
	}
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Warn("server shutdown", "error", err)
	}
	return a.db.Close()
}
