// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-dashboard/internal/archive"
	"github.com/JakeFAU/lighthouse-dashboard/internal/audit"
	"github.com/JakeFAU/lighthouse-dashboard/internal/clock/system"
	"github.com/JakeFAU/lighthouse-dashboard/internal/config"
	"github.com/JakeFAU/lighthouse-dashboard/internal/dashboard"
	collyfetcher "github.com/JakeFAU/lighthouse-dashboard/internal/fetcher/colly"
	"github.com/JakeFAU/lighthouse-dashboard/internal/id/uuid"
	"github.com/JakeFAU/lighthouse-dashboard/internal/metrics"
	"github.com/JakeFAU/lighthouse-dashboard/internal/pagespeed"
	"github.com/JakeFAU/lighthouse-dashboard/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/lighthouse-dashboard/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/lighthouse-dashboard/internal/publisher/pubsub"
	"github.com/JakeFAU/lighthouse-dashboard/internal/storage/gcs"
	"github.com/JakeFAU/lighthouse-dashboard/internal/storage/local"
	"github.com/JakeFAU/lighthouse-dashboard/internal/storage/memory"
	"github.com/JakeFAU/lighthouse-dashboard/internal/storage/postgres"
	"github.com/JakeFAU/lighthouse-dashboard/internal/storage/sqlite"
	"github.com/JakeFAU/lighthouse-dashboard/internal/tracing"
	"github.com/JakeFAU/lighthouse-dashboard/internal/urlstore"
)

const traceShutdownTimeout = 5 * time.Second

// ResultSavedEvent is the Pub/Sub event attribute for save notifications.
const ResultSavedEvent = "result_saved"

// Deps are the services an App is assembled from.
type Deps struct {
	Config     config.Config
	Logger     *zap.Logger
	Repository audit.Repository
	Auditor    audit.Auditor
	Publisher  audit.Publisher
	// Titles is optional.
	Titles audit.TitleSuggester
	Clock  audit.Clock
	IDs    audit.IDGenerator
}

// App holds all the shared, long-lived services for the application.
// It is initialized once at startup and passed to the HTTP layer.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	repo      audit.Repository
	store     *urlstore.Store
	auditor   audit.Auditor
	publisher audit.Publisher
	titles    audit.TitleSuggester
	sessions  *dashboard.Sessions
	closers   []func()
}

// NewWithDeps assembles an App from already constructed services.
func NewWithDeps(deps Deps) (*App, error) {
	if deps.Repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if deps.Auditor == nil {
		return nil, fmt.Errorf("auditor is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Publisher == nil {
		deps.Publisher = memorypublisher.NewBounded(1000)
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	if deps.IDs == nil {
		deps.IDs = uuid.New()
	}

	store := urlstore.New()
	sessions := dashboard.NewSessions(dashboard.Deps{
		Auditor:   deps.Auditor,
		URLs:      deps.Repository,
		Results:   deps.Repository,
		Store:     store,
		Titles:    deps.Titles,
		Publisher: deps.Publisher,
		Topic:     deps.Config.PubSub.TopicName,
		Clock:     deps.Clock,
		Logger:    deps.Logger.Named("dashboard"),
	}, deps.IDs, deps.Config.Server.SessionTTL)

	return &App{
		cfg:       deps.Config,
		logger:    deps.Logger,
		repo:      deps.Repository,
		store:     store,
		auditor:   deps.Auditor,
		publisher: deps.Publisher,
		titles:    deps.Titles,
		sessions:  sessions,
	}, nil
}

// New creates and initializes every service described by cfg. It fails fast if
// any configured backend cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("initializing application services")

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	clock := system.New()

	repo, err := OpenRepository(ctx, cfg, clock)
	if err != nil {
		return nil, err
	}
	closers = append(closers, repo.Close)
	logger.Info("repository ready", zap.String("driver", cfg.DB.Driver))

	if cfg.PageSpeed.APIKey == "" {
		logger.Warn("pagespeed.api_key is not set; audit requests will likely be rejected")
	}
	tp, err := tracing.NewProvider(ctx, tracing.Config{
		Exporter:    cfg.Tracing.Exporter,
		ServiceName: cfg.Tracing.ServiceName,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	tracing.Install(tp)
	closers = append(closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), traceShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("flush traces", zap.Error(err))
		}
	})

	var auditor audit.Auditor = pagespeed.New(pagespeed.Config{
		BaseURL: cfg.PageSpeed.BaseURL,
		APIKey:  cfg.PageSpeed.APIKey,
		Timeout: cfg.AuditTimeout(),
	}, &http.Client{
		Timeout:   cfg.AuditTimeout(),
		Transport: tracing.Transport(http.DefaultTransport),
	}, logger.Named("pagespeed"))

	limiter := ratelimit.New(ratelimit.Config{
		RPS:     cfg.PageSpeed.RateLimitRPS,
		Burst:   cfg.PageSpeed.RateLimitBurst,
		PerSite: cfg.PageSpeed.RateLimitPerSite,
	})
	if limiter.Enabled() {
		auditor, err = ratelimit.NewAuditor(auditor, limiter, logger.Named("ratelimit"))
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("init rate limiter: %w", err)
		}
		logger.Info("throttling audits",
			zap.Float64("rps", cfg.PageSpeed.RateLimitRPS),
			zap.Int("burst", cfg.PageSpeed.RateLimitBurst),
			zap.Bool("per_site", cfg.PageSpeed.RateLimitPerSite))
	}

	blobs, closeBlobs, err := openArchive(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, err
	}
	if closeBlobs != nil {
		closers = append(closers, closeBlobs)
	}
	if blobs != nil {
		auditor, err = archive.New(auditor, blobs, archive.Config{Prefix: cfg.Archive.Prefix}, logger.Named("archive"))
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("init archive: %w", err)
		}
		logger.Info("archiving raw reports", zap.String("driver", cfg.Archive.Driver))
	}

	publisher, closePublisher, err := openPublisher(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, err
	}
	if closePublisher != nil {
		closers = append(closers, closePublisher)
	}

	var titles audit.TitleSuggester
	if cfg.Titles.Enabled {
		titles = collyfetcher.New(collyfetcher.Config{
			UserAgent:     cfg.Titles.UserAgent,
			Timeout:       cfg.TitleTimeout(),
			RespectRobots: cfg.Titles.RespectRobots,
		})
	}

	a, err := NewWithDeps(Deps{
		Config:     cfg,
		Logger:     logger,
		Repository: repo,
		Auditor:    auditor,
		Publisher:  publisher,
		Titles:     titles,
		Clock:      clock,
	})
	if err != nil {
		cleanup()
		return nil, err
	}
	a.closers = closers
	logger.Info("application services initialized")
	return a, nil
}

// OpenRepository connects the database selected by cfg.DB.Driver. SQLite is
// always migrated; Postgres only when db.migrate is set.
func OpenRepository(ctx context.Context, cfg config.Config, clock audit.Clock) (audit.Repository, error) {
	switch cfg.DB.Driver {
	case config.DriverPostgres:
		repo, err := postgres.New(ctx, postgres.Config{
			DSN:             cfg.DB.DSN,
			URLsTable:       cfg.DB.URLsTable,
			ResultsTable:    cfg.DB.ResultsTable,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: cfg.ConnLifetime(),
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres: %w", err)
		}
		if cfg.DB.Migrate {
			if err := repo.Migrate(ctx); err != nil {
				repo.Close()
				return nil, err
			}
		}
		return repo, nil
	case config.DriverSQLite:
		repo, err := sqlite.Open(sqlite.Config{
			Path:         cfg.DB.SQLitePath,
			URLsTable:    cfg.DB.URLsTable,
			ResultsTable: cfg.DB.ResultsTable,
		}, clock)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		return repo, nil
	case config.DriverMemory:
		return memory.NewRepository(), nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.DB.Driver)
	}
}

func openArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) (audit.BlobStore, func(), error) {
	switch cfg.Archive.Driver {
	case config.ArchiveMemory:
		return memory.NewBlobStore(), nil, nil
	case config.ArchiveLocal:
		store, err := local.New(local.Config{BaseDir: cfg.Archive.BaseDir})
		if err != nil {
			return nil, nil, fmt.Errorf("init local archive: %w", err)
		}
		return store, nil, nil
	case config.ArchiveGCS:
		store, err := gcs.Open(ctx, gcs.Config{Bucket: cfg.Archive.GCSBucket, VerifyBucket: true}, logger.Named("gcs"))
		if err != nil {
			return nil, nil, fmt.Errorf("init gcs archive: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Warn("close gcs archive", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, nil
	}
}

func openPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (audit.Publisher, func(), error) {
	if cfg.PubSub.ProjectID == "" {
		logger.Info("save notifications kept in process")
		return memorypublisher.NewBounded(1000), nil, nil
	}
	client, err := gpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub client: %w", err)
	}
	publisher, err := pubsubpublisher.New(client, cfg.PubSub.TopicName, ResultSavedEvent)
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	logger.Info("publishing save notifications", zap.String("topic", cfg.PubSub.TopicName))
	return publisher, func() {
		publisher.Close()
		if err := client.Close(); err != nil {
			logger.Warn("close pubsub client", zap.Error(err))
		}
	}, nil
}

// Hydrate performs the single startup fetch of all known urls and replaces the
// store with the result. On failure the store is left empty and the error is
// returned; there is no retry.
func (a *App) Hydrate(ctx context.Context) error {
	records, err := a.repo.ListURLs(ctx)
	if err != nil {
		a.store.Replace(nil)
		metrics.SetKnownURLs(0)
		a.logger.Error("load known urls failed", zap.Error(err))
		return fmt.Errorf("hydrate url store: %w", err)
	}
	a.store.Replace(records)
	metrics.SetKnownURLs(a.store.Len())
	a.logger.Info("url store hydrated", zap.Int("urls", a.store.Len()))
	return nil
}

// Config returns the configuration the App was built with.
func (a *App) Config() config.Config {
	return a.cfg
}

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Repository exposes the url and result repository.
func (a *App) Repository() audit.Repository {
	return a.repo
}

// Store returns the shared url store.
func (a *App) Store() *urlstore.Store {
	return a.store
}

// Auditor returns the (possibly archiving) audit client.
func (a *App) Auditor() audit.Auditor {
	return a.auditor
}

// Publisher returns the save notification publisher.
func (a *App) Publisher() audit.Publisher {
	return a.publisher
}

// Sessions returns the per-browser workflow registry.
func (a *App) Sessions() *dashboard.Sessions {
	return a.sessions
}

// Close releases pools and clients in reverse construction order.
func (a *App) Close() {
	a.logger.Info("shutting down application services")
	if len(a.closers) == 0 {
		a.repo.Close()
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
