// Package app initializes and holds the long-lived services a worker run
// depends on, acting as a dependency injection container. It is built once
// at startup and torn down by the root command after the run finishes.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/kbsearch/crawl-worker/internal/config"
	"github.com/kbsearch/crawl-worker/internal/jobs"
	jobsFirestore "github.com/kbsearch/crawl-worker/internal/jobs/firestore"
	jobsMemory "github.com/kbsearch/crawl-worker/internal/jobs/memory"
	jobsPostgres "github.com/kbsearch/crawl-worker/internal/jobs/postgres"
	"github.com/kbsearch/crawl-worker/internal/logging"
	"github.com/kbsearch/crawl-worker/internal/ops"
	"github.com/kbsearch/crawl-worker/internal/publisher"
	publisherKafka "github.com/kbsearch/crawl-worker/internal/publisher/kafka"
	publisherMemory "github.com/kbsearch/crawl-worker/internal/publisher/memory"
	publisherPubSub "github.com/kbsearch/crawl-worker/internal/publisher/pubsub"
	"github.com/kbsearch/crawl-worker/internal/storage"
	storageGCS "github.com/kbsearch/crawl-worker/internal/storage/gcs"
	storageLocal "github.com/kbsearch/crawl-worker/internal/storage/local"
	storageMemory "github.com/kbsearch/crawl-worker/internal/storage/memory"
	storageS3 "github.com/kbsearch/crawl-worker/internal/storage/s3"
)

// App holds the shared, long-lived services for a worker run: the logger,
// the job record store, the artifact store and the completion-event
// publisher, plus the optional ops listener.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	jobStore  jobs.Store
	blobStore storage.Store
	events    publisher.Publisher
	ops       *ops.Server

	closeOnce sync.Once
}

// GetConfig returns the configuration the container was built from.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetJobStore exposes the configured job record store.
func (a *App) GetJobStore() jobs.Store {
	return a.jobStore
}

// GetStorage exposes the configured artifact storage provider.
func (a *App) GetStorage() storage.Store {
	return a.blobStore
}

// GetPublisher returns the completion-event publisher.
func (a *App) GetPublisher() publisher.Publisher {
	return a.events
}

// GetOps returns the ops listener, or nil when it is disabled.
func (a *App) GetOps() *ops.Server {
	return a.ops
}

// New creates and initializes an App from the configuration. It is the
// central point for service construction and fails fast when any critical
// service cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	logger.Info("Initializing application services",
		zap.String("jobs_provider", cfg.Jobs.Provider),
		zap.String("storage_provider", cfg.Storage.Provider),
		zap.String("publisher_provider", cfg.Publisher.Provider),
	)

	jobStore, err := newJobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize job store: %w", err)
	}

	blobStore, err := newBlobStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	events, err := newPublisher(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize publisher: %w", err)
	}

	a := &App{
		cfg:       cfg,
		logger:    logger,
		jobStore:  jobStore,
		blobStore: blobStore,
		events:    events,
	}

	if cfg.Ops.Enabled {
		server := ops.New(cfg.Ops.Addr, logger)
		if startErr := server.Start(); startErr != nil {
			// A crawl still counts without a metrics listener.
			logger.Warn("Ops server failed to start", zap.Error(startErr))
		} else {
			a.ops = server
		}
	}

	logger.Info("Application services initialized")
	return a, nil
}

func newJobStore(ctx context.Context, cfg config.Config) (jobs.Store, error) {
	switch cfg.Jobs.Provider {
	case "firestore":
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("jobs provider is 'firestore' but project_id is not set")
		}
		client, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create firestore client: %w", err)
		}
		return jobsFirestore.New(client, cfg.Jobs.Firestore.Collection)
	case "postgres":
		if cfg.Jobs.Postgres.DSN == "" {
			return nil, fmt.Errorf("jobs provider is 'postgres' but jobs.postgres.dsn is not set")
		}
		return jobsPostgres.New(ctx, jobsPostgres.Config{
			DSN:   cfg.Jobs.Postgres.DSN,
			Table: cfg.Jobs.Postgres.Table,
		})
	case "memory":
		return jobsMemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown jobs provider: %s", cfg.Jobs.Provider)
	}
}

func newBlobStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("storage provider is 'gcs' but project_id is not set")
		}
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return storageGCS.New(client, cfg.ProjectID, logger)
	case "s3":
		return storageS3.New(ctx, storageS3.Config{
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			UsePathStyle:    cfg.Storage.S3.UsePathStyle,
		}, logger)
	case "local":
		if cfg.Storage.Local.BaseDir == "" {
			return nil, fmt.Errorf("storage provider is 'local' but storage.local.base_dir is not set")
		}
		return storageLocal.New(storageLocal.Config{BaseDir: cfg.Storage.Local.BaseDir})
	case "memory":
		return storageMemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Storage.Provider)
	}
}

func newPublisher(ctx context.Context, cfg config.Config) (publisher.Publisher, error) {
	switch cfg.Publisher.Provider {
	case "pubsub":
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("publisher provider is 'pubsub' but project_id is not set")
		}
		if cfg.Publisher.PubSub.TopicID == "" {
			return nil, fmt.Errorf("publisher provider is 'pubsub' but publisher.pubsub.topic_id is not set")
		}
		return publisherPubSub.New(ctx, cfg.ProjectID, cfg.Publisher.PubSub.TopicID)
	case "kafka":
		return publisherKafka.New(publisherKafka.Config{
			Brokers: cfg.Publisher.Kafka.Brokers,
			Topic:   cfg.Publisher.Kafka.Topic,
		})
	case "noop":
		return &publisher.NoOpPublisher{}, nil
	case "memory":
		return publisherMemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown publisher provider: %s", cfg.Publisher.Provider)
	}
}

// Close gracefully shuts down all services in the container. It is safe to
// call from multiple teardown paths; only the first call does the work.
func (a *App) Close() {
	a.closeOnce.Do(a.close)
}

func (a *App) close() {
	a.logger.Info("Shutting down application services")

	if a.ops != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.ops.Shutdown(ctx); err != nil {
			a.logger.Warn("Error stopping ops server", zap.Error(err))
		}
		cancel()
	}
	if err := a.jobStore.Close(); err != nil {
		a.logger.Warn("Error closing job store", zap.Error(err))
	}
	if err := a.blobStore.Close(); err != nil {
		a.logger.Warn("Error closing storage client", zap.Error(err))
	}
	if err := a.events.Close(); err != nil {
		a.logger.Warn("Error closing publisher", zap.Error(err))
	}

	// Flush buffered log entries before the process exits. Syncing stderr
	// fails on some platforms, so the error is not actionable.
	_ = a.logger.Sync()
}
