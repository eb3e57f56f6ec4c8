package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"patent-backend/internal/aggregate"
	"patent-backend/internal/analyses"
	"patent-backend/internal/llm"
	"patent-backend/internal/llm/anthropic"
	"patent-backend/internal/llm/gemini"
	"patent-backend/internal/llm/openai"
	"patent-backend/internal/pipeline"
	"patent-backend/internal/priorart"
	"patent-backend/internal/reportexport"
	"patent-backend/internal/scoring"
	"patent-backend/internal/shared/config"
	"patent-backend/internal/shared/server"
	"patent-backend/internal/shared/storage/db"
	"patent-backend/internal/shared/storage/object"
	"patent-backend/internal/shared/storage/object/bucket"
	"patent-backend/internal/shared/storage/object/local"
	"patent-backend/internal/shared/telemetry"
	"patent-backend/internal/usage"
)

// App holds the wired dependencies of one process.
type App struct {
	Config       config.Config
	Router       *gin.Engine
	DB           *sqlx.DB
	Store        object.Store
	Analyses     analyses.Store
	Ledger       usage.Ledger
	SearchCache  priorart.Cache
	Search       *priorart.Service
	Orchestrator *pipeline.Orchestrator
}

// Options tweaks Build for callers that do not serve HTTP.
type Options struct {
	// SkipMigrations leaves the schema untouched.
	SkipMigrations bool
	// Generator replaces the configured LLM provider.
	Generator llm.Generator
	// DBOptions overrides the connection pool defaults.
	DBOptions *db.Options
}

// Build connects storage, selects the LLM provider and mounts every handler.
func Build(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	sqlDB, err := buildDB(ctx, cfg, opts)
	if err != nil {
		return nil, err
	}
	closeOnErr := func(err error) (*App, error) {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return closeOnErr(err)
	}

	gen := opts.Generator
	if gen == nil {
		gen, err = buildGenerator(ctx, cfg)
		if err != nil {
			return closeOnErr(err)
		}
	}

	app := &App{Config: cfg, DB: sqlDB, Store: store}
	if sqlDB != nil {
		app.Analyses = &analyses.SQLStore{DB: sqlDB}
		app.Ledger = &usage.SQLLedger{DB: sqlDB}
		app.SearchCache = &priorart.SQLCache{DB: sqlDB}
	} else {
		app.Analyses = analyses.NewMemoryStore()
		app.Ledger = usage.NewMemoryLedger()
		app.SearchCache = priorart.NewMemoryCache()
	}

	app.Search = &priorart.Service{
		Provider: priorart.NewClient(cfg.SearchAPIKey, priorart.WithEndpoint(cfg.SearchEndpoint)),
		Cache:    app.SearchCache,
		TTL:      cfg.SearchCacheTTL,
	}
	app.Orchestrator = &pipeline.Orchestrator{
		Search:   app.Search,
		Scorer:   scoring.NewEngine(gen),
		Store:    app.Analyses,
		Ledger:   app.Ledger,
		Archiver: &reportexport.Archiver{Store: store},
		Policy:   aggregate.Policy{Threshold: cfg.RecommendationThreshold},
		Pricing: usage.Pricing{
			CostPer1K:     cfg.UsageCostPer1KTokens,
			DefaultTokens: cfg.UsageDefaultTokens,
		},
		StageTimeout:      cfg.StageTimeout,
		UtilityConcurrent: cfg.UtilityConcurrent,
	}

	deps := server.RouterDeps{
		Config: cfg,
		Handlers: []server.RouteRegistrar{
			pipeline.NewHandler(app.Orchestrator, store),
			analyses.NewHandler(app.Analyses),
			reportexport.NewHandler(app.Analyses),
			usage.NewHandler(app.Ledger),
			priorart.NewHandler(app.Search),
		},
	}
	if sqlDB != nil {
		deps.DB = sqlDB
	}
	app.Router = server.NewRouter(deps)

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":          cfg.Env,
		"database":     databaseLabel(sqlDB),
		"object_store": cfg.ObjectStoreType,
		"llm_provider": gen.Name(),
		"concurrent":   cfg.UtilityConcurrent,
	})
	return app, nil
}

// Close waits for background analyses and releases the database handle.
func (a *App) Close() error {
	if a.Orchestrator != nil {
		a.Orchestrator.Wait()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func buildDB(ctx context.Context, cfg config.Config, opts Options) (*sqlx.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.database_memory", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required in %s", cfg.Env)
	}

	poolOpts := db.OptionsFromEnv(db.DefaultServerOptions())
	if opts.DBOptions != nil {
		poolOpts = *opts.DBOptions
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseDriver, cfg.DatabaseURL, poolOpts)
	if err != nil {
		return nil, err
	}
	if opts.SkipMigrations {
		return sqlDB, nil
	}

	migrateCtx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := db.RunMigrations(migrateCtx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "minio":
		return bucket.New(ctx, bucket.Options{
			Endpoint:  cfg.MinioEndpoint,
			Region:    cfg.MinioRegion,
			Bucket:    cfg.MinioBucket,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return local.New(cfg.LocalStoreDir), nil
	}
}

func buildGenerator(ctx context.Context, cfg config.Config) (llm.Generator, error) {
	switch cfg.LLMProvider {
	case openai.ProviderName:
		return openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.OpenAIBaseURL)
	case anthropic.ProviderName:
		return anthropic.NewClient(cfg.AnthropicAPIKey, cfg.LLMModel)
	default:
		return gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.LLMModel)
	}
}

func databaseLabel(sqlDB *sqlx.DB) string {
	if sqlDB == nil {
		return "memory"
	}
	return sqlDB.DriverName()
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
