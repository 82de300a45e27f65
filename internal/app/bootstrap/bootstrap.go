// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.
package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	ballotengine "summit/contexts/assembly/ballot-engine"
	ballotpostgres "summit/contexts/assembly/ballot-engine/adapters/postgres"
	ballotworkers "summit/contexts/assembly/ballot-engine/application/workers"
	ballotports "summit/contexts/assembly/ballot-engine/ports"
	approvalworkflow "summit/contexts/newsroom/approval-workflow"
	newspostgres "summit/contexts/newsroom/approval-workflow/adapters/postgres"
	newsworkers "summit/contexts/newsroom/approval-workflow/application/workers"
	"summit/contexts/newsroom/approval-workflow/domain/services"
	"summit/internal/platform/config"
	"summit/internal/platform/db"
	"summit/internal/platform/httpserver"
	"summit/internal/platform/identity"
	"summit/internal/platform/messaging"
	"summit/internal/platform/notify"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres           *db.Postgres
	assemblyRelay      ballotworkers.OutboxRelay
	assemblyDispatcher ballotworkers.NotificationDispatcher
	newsroomRelay      newsworkers.OutboxRelay
	newsroomDispatcher newsworkers.NotificationDispatcher
	pollInterval       time.Duration
	logger             *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	sessions, err := identity.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	pg, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	assembly := NewAssemblyModule(pg, logger)
	newsroom := NewNewsroomModule(pg, cfg, logger)

	server := httpserver.New(assembly, newsroom, sessions, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

// NewAssemblyModule wires the ballot engine to postgres.
func NewAssemblyModule(pg *db.Postgres, logger *slog.Logger) ballotengine.Module {
	repo := ballotpostgres.NewRepository(pg.DB, logger)
	return ballotengine.NewModule(ballotengine.Dependencies{
		Resolutions: repo,
		Ballots:     repo,
		Directory:   repo,
		Clock:       ballotpostgres.SystemClock{},
		IDGen:       ballotpostgres.UUIDGenerator{},
		Logger:      logger,
	})
}

// NewNewsroomModule wires the approval workflow to postgres with the
// configured quorum.
func NewNewsroomModule(pg *db.Postgres, cfg config.Config, logger *slog.Logger) approvalworkflow.Module {
	repo := newspostgres.NewRepository(pg.DB, logger)
	return approvalworkflow.NewModule(approvalworkflow.Dependencies{
		Articles: repo,
		Thresholds: services.QuorumThresholds{
			Journalists: cfg.QuorumJournalists,
			Leaders:     cfg.QuorumLeaders,
		},
		Clock:  newspostgres.SystemClock{},
		IDGen:  newspostgres.UUIDGenerator{},
		Logger: logger,
	})
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	pg, err := connect(cfg)
	if err != nil {
		return nil, err
	}

	bus := messaging.NewBus(cfg.BusBuffer, logger)

	var sink ballotports.NotificationSink
	if cfg.NotificationSink == config.NotificationSinkLog {
		sink = notify.LogSink{Logger: logger}
	} else {
		sink = notify.NewStore(pg.DB, logger)
	}

	ballotRepo := ballotpostgres.NewRepository(pg.DB, logger)
	newsRepo := newspostgres.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		assemblyRelay: ballotworkers.OutboxRelay{
			Outbox:    ballotRepo,
			Publisher: bus,
			Clock:     ballotpostgres.SystemClock{},
			Topic:     ballotworkers.ResolutionsTopic,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		assemblyDispatcher: ballotworkers.NotificationDispatcher{
			Subscriber: bus,
			Directory:  ballotRepo,
			Sink:       sink,
			Topic:      ballotworkers.ResolutionsTopic,
			Logger:     logger,
		},
		newsroomRelay: newsworkers.OutboxRelay{
			Outbox:    newsRepo,
			Publisher: bus,
			Clock:     newspostgres.SystemClock{},
			Topic:     newsworkers.ArticlesTopic,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		newsroomDispatcher: newsworkers.NotificationDispatcher{
			Subscriber: bus,
			Directory:  newsRepo,
			Sink:       sink,
			Topic:      newsworkers.ArticlesTopic,
			Logger:     logger,
		},
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}, nil
}

// Migrate creates or updates every table the api and worker use.
func Migrate(ctx context.Context, pg *db.Postgres, logger *slog.Logger) error {
	if err := ballotpostgres.NewRepository(pg.DB, logger).Migrate(ctx); err != nil {
		return err
	}
	if err := newspostgres.NewRepository(pg.DB, logger).Migrate(ctx); err != nil {
		return err
	}
	return notify.NewStore(pg.DB, logger).Migrate(ctx)
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.assemblyDispatcher.Start(ctx); err != nil {
		return err
	}
	if err := w.newsroomDispatcher.Start(ctx); err != nil {
		return err
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return poll(groupCtx, w.pollInterval, w.logger, "assembly", w.assemblyRelay.RunOnce)
	})
	group.Go(func() error {
		return poll(groupCtx, w.pollInterval, w.logger, "newsroom", w.newsroomRelay.RunOnce)
	})
	return group.Wait()
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

// poll runs step immediately and then on every tick until ctx is done.
// Step failures are logged and retried on the next tick.
func poll(ctx context.Context, interval time.Duration, logger *slog.Logger, relay string, step func(context.Context) error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := step(ctx); err != nil && ctx.Err() == nil && logger != nil {
			logger.Error("outbox relay pass failed",
				"event", "bootstrap_relay_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"relay", relay,
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func connect(cfg config.Config) (*db.Postgres, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	return db.Connect(cfg.PostgresDSN)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
