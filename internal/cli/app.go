package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/compass"
	"github.com/aretw0/compass/internal/adapters/file"
	"github.com/aretw0/compass/internal/config"
	"github.com/aretw0/compass/internal/presentation/graph"
	"github.com/aretw0/compass/pkg/adapters/booking"
	"github.com/aretw0/compass/pkg/adapters/llm"
	"github.com/aretw0/compass/pkg/adapters/memory"
	"github.com/aretw0/compass/pkg/adapters/redis"
	"github.com/aretw0/compass/pkg/adapters/sqlite"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/observability"
	"github.com/aretw0/compass/pkg/persistence/middleware"
	"github.com/aretw0/compass/pkg/ports"
)

// PlansInMemory selects the in-memory plan repository instead of SQLite.
const PlansInMemory = "memory"

// App is every long-lived component a command needs, built from one Config.
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	Assistant *compass.Assistant
	Store     ports.CheckpointStore
	Plans     ports.PlanRepository
	Metrics   *observability.Metrics

	closers []func() error
}

// BuildOptions tune what Build wires.
type BuildOptions struct {
	// Generator overrides the configured LLM provider.
	Generator ports.TextGenerator
	// SkipPlans leaves App.Plans nil.
	SkipPlans bool
}

// Build wires the assistant and its adapters from cfg.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts BuildOptions) (*App, error) {
	app := &App{Config: cfg, Logger: logger, Metrics: observability.NewMetrics()}

	gen := opts.Generator
	if gen == nil {
		var err error
		if gen, err = NewGenerator(cfg.LLM, logger); err != nil {
			return nil, err
		}
	}

	store, locker, closeStore, err := NewCheckpointStore(cfg.Checkpoint)
	if err != nil {
		return nil, err
	}
	app.Store = store
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}

	assistantOpts := []compass.Option{
		compass.WithStore(store),
		compass.WithLogger(logger),
		compass.WithLifecycleHooks(domain.ComposeHooks(app.Metrics.Hooks(), observability.LogHooks(logger))),
		compass.WithStepLimit(cfg.Workflow.StepLimit),
		compass.WithDraftConcurrency(cfg.Workflow.DraftConcurrency),
		compass.WithAgentMaxRounds(cfg.Workflow.AgentMaxRounds),
	}
	if locker != nil {
		assistantOpts = append(assistantOpts, compass.WithLocker(locker, 0))
	}
	if hotels := NewHotelSearcher(cfg.Hotels, logger); hotels != nil {
		assistantOpts = append(assistantOpts, compass.WithHotelSearcher(hotels))
	}

	app.Assistant, err = compass.New(gen, assistantOpts...)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	if !opts.SkipPlans {
		plans, closePlans, err := NewPlanRepository(ctx, cfg.Plans)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.Plans = plans
		if closePlans != nil {
			app.closers = append(app.closers, closePlans)
		}
	}
	return app, nil
}

// Graph renders the workflow as Mermaid, highlighting visited nodes.
func (a *App) Graph(visited []string) string {
	return graph.GenerateMermaid(a.Assistant.Graph(), graph.ForVisited(visited))
}

// Close releases stores and connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewGenerator returns the text generator for the configured provider.
func NewGenerator(cfg config.LLM, logger *slog.Logger) (ports.TextGenerator, error) {
	switch cfg.Provider {
	case "scripted":
		return llm.Offline(), nil
	case "openai", "":
		client, err := llm.NewOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL,
			llm.WithTemperature(cfg.Temperature),
			llm.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create llm client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// NewCheckpointStore opens the configured backend and applies the
// redaction and encryption middleware. The locker is only set for redis.
func NewCheckpointStore(cfg config.Checkpoint) (ports.CheckpointStore, ports.DistributedLocker, func() error, error) {
	var (
		store     ports.CheckpointStore
		locker    ports.DistributedLocker
		closeFunc func() error
	)
	switch cfg.Backend {
	case "memory", "":
		store = memory.NewStore()
	case "file":
		store = file.New(cfg.Dir)
	case "redis":
		rs := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			redis.WithPrefix(cfg.Prefix),
			redis.WithTTL(cfg.TTL),
		)
		store = rs
		locker = redis.NewLocker(rs.Client(), strings.TrimSuffix(cfg.Prefix, "session:"))
		closeFunc = rs.Close
	default:
		return nil, nil, nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}

	var mws []middleware.Middleware
	if len(cfg.RedactPatterns) > 0 {
		mws = append(mws, middleware.NewRedactMiddleware(cfg.RedactPatterns))
	}
	if cfg.EncryptionKey != "" {
		enc, err := encryptionConfig(cfg)
		if err != nil {
			if closeFunc != nil {
				_ = closeFunc()
			}
			return nil, nil, nil, err
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(enc))
	}
	return middleware.Chain(store, mws...), locker, closeFunc, nil
}

func encryptionConfig(cfg config.Checkpoint) (middleware.EncryptionConfig, error) {
	active, err := config.DecodeKey(cfg.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, fmt.Errorf("checkpoint.encryption_key: %w", err)
	}
	enc := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range cfg.FallbackKeys {
		key, err := config.DecodeKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("checkpoint.fallback_keys[%d]: %w", i, err)
		}
		enc.FallbackKeys = append(enc.FallbackKeys, key)
	}
	return enc, nil
}

// NewHotelSearcher returns nil when no API key is configured, leaving the
// modify agent without the search_hotels tool.
func NewHotelSearcher(cfg config.Hotels, logger *slog.Logger) ports.HotelSearcher {
	if cfg.APIKey == "" {
		return nil
	}
	opts := []booking.Option{
		booking.WithRateLimit(cfg.RequestsPerSec),
		booking.WithCandidatesPerDay(cfg.CandidatesPerDay),
		booking.WithLogger(logger),
	}
	if cfg.Host != "" {
		opts = append(opts, booking.WithHost(cfg.Host))
	}
	if cfg.Currency != "" {
		opts = append(opts, booking.WithCurrency(cfg.Currency))
	}
	return booking.New(cfg.APIKey, opts...)
}

// NewPlanRepository opens SQLite at dsn, or the in-memory repository when
// dsn is "memory".
func NewPlanRepository(ctx context.Context, cfg config.Plans) (ports.PlanRepository, func() error, error) {
	if cfg.DSN == PlansInMemory {
		return memory.NewPlans(), nil, nil
	}
	repo, err := sqlite.Open(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open plan store: %w", err)
	}
	return repo, repo.Close, nil
}
