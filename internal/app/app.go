// Package app initializes and holds long-lived application services, acting
// as a dependency injection container. Backends are chosen per config: memory
// implementations for local development, Postgres/GCS/PubSub in production.
package app

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	archivegcs "github.com/nichelabs/discovery-engine/internal/archive/gcs"
	archivemem "github.com/nichelabs/discovery-engine/internal/archive/memory"
	"github.com/nichelabs/discovery-engine/internal/clock/system"
	"github.com/nichelabs/discovery-engine/internal/collector"
	"github.com/nichelabs/discovery-engine/internal/config"
	"github.com/nichelabs/discovery-engine/internal/dedup"
	"github.com/nichelabs/discovery-engine/internal/discovery"
	"github.com/nichelabs/discovery-engine/internal/grid"
	"github.com/nichelabs/discovery-engine/internal/id/uuid"
	"github.com/nichelabs/discovery-engine/internal/logging"
	"github.com/nichelabs/discovery-engine/internal/metrics"
	"github.com/nichelabs/discovery-engine/internal/orchestrator"
	"github.com/nichelabs/discovery-engine/internal/progress"
	"github.com/nichelabs/discovery-engine/internal/progress/sinks"
	"github.com/nichelabs/discovery-engine/internal/provider/googleplaces"
	providermem "github.com/nichelabs/discovery-engine/internal/provider/memory"
	publishermem "github.com/nichelabs/discovery-engine/internal/publisher/memory"
	publisherps "github.com/nichelabs/discovery-engine/internal/publisher/pubsub"
	storagemem "github.com/nichelabs/discovery-engine/internal/storage/memory"
	"github.com/nichelabs/discovery-engine/internal/storage/postgres"
	"github.com/nichelabs/discovery-engine/internal/store"
	storemem "github.com/nichelabs/discovery-engine/internal/store/memory"
)

// App holds the shared, long-lived services for the discovery service. It is
// initialized once at startup and handed to the components that need it.
type App struct {
	Logger       *zap.Logger
	Sessions     discovery.SessionStore
	Records      discovery.RecordStore
	Progress     store.ProgressRepository
	Publisher    discovery.Publisher
	Archive      discovery.ArchiveStore
	Providers    []discovery.SearchProvider
	Hub          *progress.Hub
	Orchestrator *orchestrator.Orchestrator

	closers []func()
}

// New builds the service graph from config. It fails fast if any critical
// backend cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging.Development)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}
	metrics.Init()

	a := &App{Logger: logger}

	if err := a.initStores(ctx, cfg); err != nil {
		return nil, err
	}
	if err := a.initProviders(cfg, logger); err != nil {
		return nil, err
	}
	if err := a.initArchive(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if err := a.initPublisher(ctx, cfg, logger); err != nil {
		return nil, err
	}

	promSink, err := sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, fmt.Errorf("init prometheus sink: %w", err)
	}
	a.Hub = progress.NewHub(
		progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("progress")),
		promSink,
		sinks.NewStoreSink(a.Progress, logger.Named("progress")),
	)

	clk := system.New()
	idGen := uuid.New()

	enricher := collector.NewWebEnricher(collector.EnricherConfig{}, logger.Named("enricher"))
	coll := collector.New(a.Providers, a.Archive, enricher, collector.Config{
		DetailQPS:          cfg.Discovery.DetailQPS,
		SearchRetries:      cfg.Discovery.SearchRetries,
		RetryBackoff:       cfg.RetryBackoff(),
		ArchiveContentType: cfg.Archive.ContentType,
	}, logger.Named("collector"))

	resolver := dedup.NewResolver(a.Records, clk, idGen, dedup.Config{
		AllowMerge: true,
	}, logger.Named("dedup"))

	a.Orchestrator = orchestrator.New(
		planner{gen: grid.New(grid.Config{})},
		coll,
		resolver,
		a.Sessions,
		a.Publisher,
		clk,
		idGen,
		a.Hub,
		orchestrator.Config{
			GridDelay: cfg.GridDelay(),
			Topic:     cfg.Discovery.ImportTopic,
		},
		logger.Named("orchestrator"),
	)

	logger.Info("application services initialized")
	return a, nil
}

func (a *App) initStores(ctx context.Context, cfg config.Config) error {
	if cfg.DB.DSN == "" {
		a.Logger.Info("using in-memory stores; session state will not survive restarts")
		a.Sessions = storagemem.NewSessionStore()
		a.Records = storagemem.NewRecordStore()
		a.Progress = storemem.New()
		return nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.DB.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.DB.MaxOpenConns)
	}
	if cfg.DB.MinIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.DB.MinIdleConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	sessions, err := postgres.NewSessionStoreWithPool(pool)
	if err != nil {
		return fmt.Errorf("init session store: %w", err)
	}
	records, err := postgres.NewRecordStoreWithPool(pool)
	if err != nil {
		return fmt.Errorf("init record store: %w", err)
	}
	repo, err := postgres.NewProgressStoreWithPool(pool)
	if err != nil {
		return fmt.Errorf("init progress store: %w", err)
	}
	a.Logger.Info("connected to postgres")
	a.Sessions = sessions
	a.Records = records
	a.Progress = repo
	return nil
}

func (a *App) initProviders(cfg config.Config, logger *zap.Logger) error {
	if cfg.Discovery.UseMemoryProvider {
		a.Logger.Info("using in-memory search provider; searches return seeded fixtures only")
		a.Providers = []discovery.SearchProvider{providermem.New("memory")}
		return nil
	}
	places, err := googleplaces.New(googleplaces.Config{
		APIKey:      cfg.Places.APIKey,
		BaseURL:     cfg.Places.BaseURL,
		HTTPTimeout: time.Duration(cfg.Places.TimeoutSeconds) * time.Second,
	}, logger.Named("places"))
	if err != nil {
		return fmt.Errorf("init places provider: %w", err)
	}
	a.Providers = []discovery.SearchProvider{places}
	return nil
}

func (a *App) initArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.Archive.GCSBucket == "" {
		a.Archive = archivemem.New()
		return nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("init gcs client: %w", err)
	}
	a.closers = append(a.closers, func() {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("close gcs client failed", zap.Error(cerr))
		}
	})
	archive, err := archivegcs.New(client, archivegcs.Config{Bucket: cfg.Archive.GCSBucket})
	if err != nil {
		return fmt.Errorf("init gcs archive: %w", err)
	}
	a.Logger.Info("archiving raw payloads to gcs", zap.String("bucket", cfg.Archive.GCSBucket))
	a.Archive = archive
	return nil
}

func (a *App) initPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	if cfg.PubSub.ProjectID == "" {
		a.Publisher = publishermem.New()
		return nil
	}
	pub, err := publisherps.New(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return fmt.Errorf("init pubsub publisher: %w", err)
	}
	a.closers = append(a.closers, func() {
		if cerr := pub.Close(); cerr != nil {
			logger.Warn("close pubsub publisher failed", zap.Error(cerr))
		}
	})
	a.Logger.Info("publishing imports to pubsub",
		zap.String("project", cfg.PubSub.ProjectID),
		zap.String("topic", cfg.PubSub.TopicName),
	)
	a.Publisher = pub
	return nil
}

// Close flushes the progress hub and shuts down the backends.
func (a *App) Close(ctx context.Context) {
	if a.Hub != nil {
		if err := a.Hub.Close(ctx); err != nil {
			a.Logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.Logger.Info("application services shut down")
}

// planner adapts the grid generator to the orchestrator's planner interface.
type planner struct {
	gen *grid.Generator
}

func (p planner) Generate(cfg discovery.Config) ([]discovery.Grid, error) {
	return p.gen.Generate(cfg), nil
}
