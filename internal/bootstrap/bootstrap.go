// Package bootstrap wires the stores, clients and services from configuration.
// The api server and the admin tool share it.
package bootstrap

import (
	"context"
	"net/http"

	"github.com/akolanti/docmind/internal/annotate"
	"github.com/akolanti/docmind/internal/annotate/llm"
	"github.com/akolanti/docmind/internal/annotate/llm/gemini"
	"github.com/akolanti/docmind/internal/annotate/llm/openaiLLM"
	"github.com/akolanti/docmind/internal/auth"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/customHttpClient"
	"github.com/akolanti/docmind/internal/data/database"
	"github.com/akolanti/docmind/internal/data/objectStore"
	"github.com/akolanti/docmind/internal/data/redisStore"
	"github.com/akolanti/docmind/internal/data/store"
	"github.com/akolanti/docmind/internal/domain/jobModel"
	"github.com/akolanti/docmind/internal/extract"
	"github.com/akolanti/docmind/internal/handlers"
	"github.com/akolanti/docmind/internal/job"
	"github.com/akolanti/docmind/internal/middleware"
	"github.com/akolanti/docmind/internal/pipeline"
	"github.com/akolanti/docmind/internal/semantic"
	"github.com/akolanti/docmind/internal/semantic/embedding/googleEmbedding"
	"github.com/akolanti/docmind/internal/semantic/qdrantDB"
	"github.com/akolanti/docmind/internal/server"
	"github.com/akolanti/docmind/internal/worker"
	"github.com/akolanti/docmind/pkg/logger_i"
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type Options struct {
	// InlineAnnotation annotates inside the extraction call; the admin tool
	// sets it because it runs no worker pool.
	InlineAnnotation bool
}

type App struct {
	Config       *config.Config
	DB           *gorm.DB
	Jobs         *job.Service
	Orchestrator *pipeline.Orchestrator
	Pool         *worker.Pool
	// Tokens is nil when no JWT secret is configured.
	Tokens *auth.JWTManager

	closers []func()
	logger  *logger_i.Logger
}

// Build connects every backing service. Redis, S3, the LLM and Qdrant are
// optional: without them the app falls back to in-memory stores or runs with
// annotation and search disabled. The database is required.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg, logger: logger_i.NewLogger("bootstrap")}

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	app.DB = db
	app.closers = append(app.closers, func() { database.Close(db) })
	if err = database.Migrate(db); err != nil {
		app.Close()
		return nil, err
	}

	app.Jobs = job.NewService(cfg, app.jobStore(ctx))

	httpClient := customHttpClient.Client()

	deps := pipeline.Deps{
		Documents:        store.NewGormDocumentStore(db),
		Artifacts:        store.NewGormArtifactStore(db),
		Blobs:            app.blobStore(ctx),
		Extractor:        extract.NewService(httpClient),
		Jobs:             app.Jobs,
		InlineAnnotation: opts.InlineAnnotation,
		MaxUploadBytes:   cfg.MaxUploadBytes,
	}
	if provider := app.llmProvider(ctx, httpClient); provider != nil {
		deps.Annotator = annotate.New(provider)
	}
	deps.Semantic = app.semanticIndex(ctx, httpClient)

	app.Orchestrator = pipeline.New(deps)
	app.Pool = worker.NewPool(app.Jobs, app.Orchestrator, worker.PoolConfigFrom(cfg))

	if cfg.JWTSecret != "" {
		if app.Tokens, err = auth.NewJWTManager(cfg.JWTSecret); err != nil {
			app.Close()
			return nil, err
		}
	} else if !cfg.AuthBypass {
		app.logger.Warn("JWT_SECRET is empty and auth bypass is off, every protected request will be rejected")
	}
	return app, nil
}

func (a *App) jobStore(ctx context.Context) jobModel.JobStore {
	rs := redisStore.GetRedisStore(ctx, a.Config, config.RedisJobStore)
	if rs == nil {
		a.logger.Error("Redis job store is offline, using in-memory job store")
		return store.InitInMemoryJobStore()
	}
	return store.NewRedisJobStore(rs)
}

func (a *App) blobStore(ctx context.Context) objectStore.Store {
	if a.Config.S3AccessKey == "" {
		a.logger.Warn("S3 credentials not set, storing uploads in memory")
		return objectStore.NewMemoryStore()
	}
	s, err := objectStore.NewMinioStore(ctx, a.Config)
	if err != nil {
		a.logger.Error("object store unavailable, storing uploads in memory", "error", err)
		return objectStore.NewMemoryStore()
	}
	return s
}

func (a *App) llmProvider(ctx context.Context, httpClient *http.Client) llm.Provider {
	cfg := a.Config
	switch cfg.LLMProvider {
	case config.LLMProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			break
		}
		return openaiLLM.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, httpClient)
	case config.LLMProviderGemini:
		if cfg.GeminiAPIKey == "" {
			break
		}
		p, err := gemini.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, httpClient)
		if err != nil {
			a.logger.Error("gemini client failed, annotation disabled", "error", err)
			return nil
		}
		return p
	default:
		a.logger.Error("unknown LLM_PROVIDER, annotation disabled", "provider", cfg.LLMProvider)
		return nil
	}
	a.logger.Warn("no API key for LLM provider, annotation disabled", "provider", cfg.LLMProvider)
	return nil
}

func (a *App) semanticIndex(ctx context.Context, httpClient *http.Client) pipeline.SemanticIndex {
	cfg := a.Config
	if cfg.QdrantHost == "" || cfg.GeminiAPIKey == "" {
		a.logger.Info("semantic search disabled", "qdrant", cfg.QdrantHost != "", "embeddingKey", cfg.GeminiAPIKey != "")
		return nil
	}
	embedder, err := googleEmbedding.NewGoogleEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbeddingModel, httpClient)
	if err != nil {
		a.logger.Error("embedding client failed, semantic search disabled", "error", err)
		return nil
	}
	index, err := qdrantDB.NewQdrantClient(ctx, cfg)
	if err != nil {
		a.logger.Error("qdrant unavailable, semantic search disabled", "error", err)
		return nil
	}
	a.closers = append(a.closers, index.Close)
	return semantic.NewService(embedder, index)
}

// Router builds the HTTP surface over the app's services.
func (a *App) Router() *chi.Mux {
	var verifier auth.Verifier
	if a.Tokens != nil {
		verifier = a.Tokens
	}
	h := handlers.NewHandler(a.Orchestrator, a.Config.MaxUploadBytes, a.ready)
	return server.Routes(h, middleware.New(a.Config, verifier))
}

func (a *App) ready(r *http.Request) error {
	return database.Ping(r.Context(), a.DB)
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
