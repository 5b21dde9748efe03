package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"grantflow-backend/internal/analyzer"
	"grantflow-backend/internal/analyzer/gemini"
	"grantflow-backend/internal/analyzer/openai"
	"grantflow-backend/internal/assessments"
	"grantflow-backend/internal/documents"
	"grantflow-backend/internal/jobs"
	"grantflow-backend/internal/programs"
	"grantflow-backend/internal/queue"
	"grantflow-backend/internal/shared/config"
	"grantflow-backend/internal/shared/server"
	"grantflow-backend/internal/shared/storage/cache"
	"grantflow-backend/internal/shared/storage/db"
	"grantflow-backend/internal/shared/storage/object"
	localstore "grantflow-backend/internal/shared/storage/object/local"
	s3store "grantflow-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies for the API server and the worker.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	Cache  cache.Cache

	ProgramsRepo    programs.Repo
	DocumentsRepo   documents.DocumentsRepo
	JobsRepo        jobs.Repo
	AssessmentsRepo assessments.Repo

	Analyzer analyzer.Client

	ProgramsService    *programs.Service
	DocumentsService   *documents.Service
	AssessmentsService *assessments.Service
	Orchestrator       *jobs.Orchestrator
	Watchdog           *jobs.Watchdog

	ProgramsHandler    *programs.Handler
	DocumentsHandler   *documents.Handler
	JobsHandler        *jobs.Handler
	AssessmentsHandler *assessments.Handler
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx)
	if err != nil {
		return nil, err
	}

	statusCache := buildCache(cfg)

	analyzerClient, err := buildAnalyzer(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		DB:       sqlDB,
		Store:    store,
		Queue:    queueClient,
		Cache:    statusCache,
		Analyzer: analyzerClient,
	}

	buildServices(app)

	app.Router = server.NewRouter(server.RouterDeps{
		Config: app.Config,
		Handlers: []server.RouteRegistrar{
			app.ProgramsHandler,
			app.DocumentsHandler,
			app.JobsHandler,
			app.AssessmentsHandler,
		},
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context) (queue.Client, error) {
	if strings.TrimSpace(os.Getenv("GF_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func buildCache(cfg config.Config) cache.Cache {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil
	}
	redisCache, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		log.Printf("bootstrap: redis unavailable; status caching disabled: %v", err)
		return nil
	}
	return redisCache
}

// buildAnalyzer picks the configured provider and always wraps it so provider
// outages degrade to the heuristic client instead of failing documents.
func buildAnalyzer(ctx context.Context, cfg config.Config) (analyzer.Client, error) {
	heuristic := analyzer.HeuristicClient{}

	var primary analyzer.Client
	var err error
	switch cfg.AnalyzerProvider {
	case "gemini":
		primary, err = gemini.NewClient(ctx, os.Getenv("GEMINI_API_KEY"), cfg.AnalyzerModel)
	case "heuristic":
		return heuristic, nil
	default:
		primary, err = openai.NewClient(os.Getenv("OPENAI_API_KEY"), cfg.AnalyzerModel)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: analyzer %s unavailable; using heuristic client: %v", cfg.AnalyzerProvider, err)
			return heuristic, nil
		}
		return nil, err
	}
	return analyzer.WithFallback(primary, heuristic), nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) {
	if app.DB != nil {
		app.ProgramsRepo = &programs.PGRepo{DB: app.DB}
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
		app.JobsRepo = &jobs.PGRepo{DB: app.DB}
		app.AssessmentsRepo = &assessments.PGRepo{DB: app.DB}
	} else {
		app.ProgramsRepo = programs.NewMemoryRepo()
		app.DocumentsRepo = documents.NewMemoryRepo()
		app.JobsRepo = jobs.NewMemoryRepo()
		app.AssessmentsRepo = assessments.NewMemoryRepo()
	}

	app.ProgramsService = &programs.Service{Repo: app.ProgramsRepo}
	app.DocumentsService = &documents.Service{
		Store:       app.Store,
		Repo:        app.DocumentsRepo,
		ProgramRepo: app.ProgramsRepo,
	}
	app.AssessmentsService = &assessments.Service{
		Repo:        app.AssessmentsRepo,
		ProgramRepo: app.ProgramsRepo,
		DocRepo:     app.DocumentsRepo,
		Store:       app.Store,
		Analyzer:    app.Analyzer,
	}
	app.Orchestrator = &jobs.Orchestrator{
		Repo:        app.JobsRepo,
		ProgramRepo: app.ProgramsRepo,
		DocRepo:     app.DocumentsRepo,
		Store:       app.Store,
		Analyzer:    app.Analyzer,
		Queue:       app.Queue,
	}
	app.Watchdog = &jobs.Watchdog{
		Repo:        app.JobsRepo,
		ProgramRepo: app.ProgramsRepo,
	}

	app.ProgramsHandler = programs.NewHandler(app.ProgramsService)
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService)
	app.JobsHandler = jobs.NewHandler(app.Orchestrator, app.ProgramsRepo, app.Cache)
	app.AssessmentsHandler = assessments.NewHandler(app.AssessmentsService)
}
