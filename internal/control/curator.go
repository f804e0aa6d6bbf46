package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/vietddude/curator/internal/batch"
	"github.com/vietddude/curator/internal/core/companies"
	"github.com/vietddude/curator/internal/core/config"
	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/enrich"
	redisclient "github.com/vietddude/curator/internal/infra/redis"
	"github.com/vietddude/curator/internal/infra/source"
	"github.com/vietddude/curator/internal/infra/storage"
	"github.com/vietddude/curator/internal/infra/storage/memory"
	"github.com/vietddude/curator/internal/infra/storage/postgres"
	"github.com/vietddude/curator/internal/resilience"
	"github.com/vietddude/curator/internal/status"
)

// queueScope names the single logical pipeline in Redis. One batch runs at
// a time, so failed items from the previous run feed --failed-only.
const queueScope = "earnings"

// retryQueue is the failed-item queue surface the curator needs. Satisfied
// by the Redis repo.
type retryQueue interface {
	Add(ctx context.Context, item *domain.FailedItem) error
	MarkResolved(ctx context.Context, symbol string) error
	GetAll(ctx context.Context) ([]*domain.FailedItem, error)
	Count(ctx context.Context) (int, error)
}

// Curator wires configuration into the batch pipeline: storage, sources,
// breakers, enricher, orchestrator and the status server.
type Curator struct {
	cfg *config.AppConfig

	records   storage.RecordRepository
	progress  storage.ProgressRepository
	summaries storage.SummaryRepository

	db          *postgres.DB
	redisClient *redisclient.Client
	queue       retryQueue

	enricher *enrich.Enricher
	stats    *resilience.ErrorStats
	universe []domain.Company
	server   *status.Server
	log      *slog.Logger
}

// New creates a Curator with all dependencies initialized.
func New(cfg *config.AppConfig) (*Curator, error) {
	c := &Curator{
		cfg:   cfg,
		stats: resilience.NewErrorStats(),
		log:   slog.Default(),
	}

	// 1. Storage
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		c.db = db
		c.records = postgres.NewRecordRepo(db)
		c.progress = postgres.NewProgressRepo(db)
		c.summaries = postgres.NewSummaryRepo(db)
		slog.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		c.records = memory.NewRecordRepo(store)
		c.progress = memory.NewProgressRepo(store)
		c.summaries = memory.NewSummaryRepo(store)
		slog.Info("Using Memory storage")
	}

	// 2. Redis failed-item queue (optional)
	if cfg.Redis.URL != "" {
		client, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		c.redisClient = client
		c.queue = redisclient.NewFailedItemRepo(client, queueScope)
		slog.Info("Redis failed-item queue enabled")
	} else {
		slog.Warn("Redis not configured, failed-item queue disabled")
	}

	// 3. Sources and per-source breakers
	pipes, err := buildPipes(cfg)
	if err != nil {
		return nil, err
	}

	// 4. Enricher
	schema := enrich.NewSchema(cfg.Schema.Version, cfg.Schema.RequiredFields)
	c.enricher = enrich.New(pipes, retryConfig(cfg.Retry), schema, c.stats)

	// 5. Company universe
	universe, err := companies.Load(cfg.Companies.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load companies: %w", err)
	}
	c.universe = universe
	slog.Info("Loaded company universe", "count", len(universe))

	// 6. Status server
	c.server = status.NewServer(c, cfg.Server.Port)

	return c, nil
}

// buildPipes constructs one source per config entry, each behind its own
// circuit breaker, in config order.
func buildPipes(cfg *config.AppConfig) ([]enrich.Pipe, error) {
	pipes := make([]enrich.Pipe, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		var src source.Source
		switch sc.Type {
		case "nasdaq":
			src = source.NewNasdaqScraper(sc.Name, sc.BaseURL, sc.Timeout, sc.RequestDelay)
		case "fmp":
			src = source.NewFMPClient(sc.Name, sc.BaseURL, sc.APIKey, sc.Timeout, sc.RequestDelay)
		case "alpha_vantage":
			src = source.NewAlphaVantageClient(sc.Name, sc.BaseURL, sc.APIKey, sc.Timeout, sc.RequestDelay)
		case "finnhub":
			src = source.NewFinnhubClient(sc.Name, sc.BaseURL, sc.APIKey, sc.Timeout, sc.RequestDelay)
		default:
			return nil, fmt.Errorf("unknown source type: %s", sc.Type)
		}

		breaker := resilience.NewCircuitBreaker(sc.Name, cfg.Breaker.FailureThreshold, cfg.Breaker.Timeout)
		pipes = append(pipes, enrich.Pipe{Source: src, Breaker: breaker})
	}
	if len(pipes) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}
	return pipes, nil
}

func retryConfig(rc config.RetryConfig) resilience.RetryConfig {
	kinds := make(map[domain.ErrorKind]bool, len(rc.RetryableKinds))
	for _, k := range rc.RetryableKinds {
		kinds[domain.ErrorKind(k)] = true
	}
	return resilience.RetryConfig{
		MaxRetries:     rc.MaxRetries,
		BaseDelay:      rc.BaseDelay,
		MaxDelay:       rc.MaxDelay,
		Exponential:    rc.Exponential,
		RetryableKinds: kinds,
	}
}

// RunOptions are the per-invocation knobs from the run subcommand.
type RunOptions struct {
	Limit      int
	Sector     string
	FailedOnly bool
	NoResume   bool
}

// Run executes one batch over the configured universe. The status server
// runs for the duration of the batch.
func (c *Curator) Run(ctx context.Context, opts RunOptions) (*domain.BatchSummary, error) {
	items, err := c.workItems(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		c.log.Info("nothing to process")
		return &domain.BatchSummary{}, nil
	}

	// Failed keys sit in the processed set from their original run; reopen
	// them or the resume skip would swallow the targeted re-run.
	if opts.FailedOnly {
		if err := c.reopenFailed(ctx, items); err != nil {
			return nil, err
		}
	}

	go func() {
		if err := c.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Error("status server stopped", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.server.Stop(shutdownCtx)
	}()

	orch := batch.New(
		c.enricher,
		c.records,
		c.progress,
		c.summaries,
		c.failedQueue(),
		batch.Config{
			CheckpointInterval:     c.cfg.Batch.CheckpointInterval,
			MaxConsecutiveFailures: c.cfg.Batch.MaxConsecutiveFailures,
			Resume:                 c.cfg.Batch.Resume && !opts.NoResume,
		},
		c.log,
	)

	return orch.Run(ctx, items)
}

// workItems selects the companies to process for this run.
func (c *Curator) workItems(ctx context.Context, opts RunOptions) ([]domain.Company, error) {
	items := companies.FilterSector(c.universe, opts.Sector)

	if opts.FailedOnly {
		if c.queue == nil {
			return nil, fmt.Errorf("--failed-only requires redis to be configured")
		}
		failed, err := c.queue.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read retry queue: %w", err)
		}
		wanted := make(map[string]struct{}, len(failed))
		for _, f := range failed {
			wanted[f.Symbol] = struct{}{}
		}
		var out []domain.Company
		for _, item := range items {
			if _, ok := wanted[item.Key()]; ok {
				out = append(out, item)
			}
		}
		items = out
	}

	return companies.Limit(items, opts.Limit), nil
}

// reopenFailed strips the selected items from the persisted checkpoint so
// the orchestrator re-enriches them instead of resuming past their earlier
// failure.
func (c *Curator) reopenFailed(ctx context.Context, items []domain.Company) error {
	progress, err := c.progress.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load progress: %w", err)
	}
	if progress == nil {
		return nil
	}

	keys := make([]string, 0, len(items))
	for _, item := range items {
		keys = append(keys, item.Key())
	}
	progress.ClearFailures(keys)

	if err := c.progress.Save(ctx, progress); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// failedQueue adapts the optional Redis queue to the orchestrator
// interface; a typed nil would defeat the orchestrator's nil check.
func (c *Curator) failedQueue() batch.FailedItemQueue {
	if c.queue == nil {
		return nil
	}
	return c.queue
}

// ResetProgress discards the persisted checkpoint.
func (c *Curator) ResetProgress(ctx context.Context) error {
	return c.progress.Reset(ctx)
}

// Snapshot implements status.Provider.
func (c *Curator) Snapshot(ctx context.Context) (*status.Snapshot, error) {
	snap := &status.Snapshot{
		TotalCompanies: len(c.universe),
		Errors:         c.stats.Summary(),
		Breakers:       make(map[string]string, len(c.enricher.Pipes())),
	}

	for _, pipe := range c.enricher.Pipes() {
		snap.Breakers[pipe.Breaker.Name()] = string(pipe.Breaker.State())
	}

	progress, err := c.progress.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if progress != nil {
		snap.Processed = len(progress.ProcessedKeys)
	}
	snap.Remaining = snap.TotalCompanies - snap.Processed
	if snap.Remaining < 0 {
		snap.Remaining = 0
	}
	if snap.TotalCompanies > 0 {
		snap.PercentComplete = float64(snap.Processed) / float64(snap.TotalCompanies) * 100
	}

	if c.queue != nil {
		depth, err := c.queue.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read retry queue depth: %w", err)
		}
		snap.FailedQueueDepth = depth
	}

	summary, err := c.summaries.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest summary: %w", err)
	}
	snap.LatestSummary = summary

	return snap, nil
}

// Close releases external connections.
func (c *Curator) Close() {
	if c.redisClient != nil {
		_ = c.redisClient.Close()
	}
	if c.db != nil {
		_ = c.db.Close()
	}
}
