package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"screening-backend/internal/cache"
	"screening-backend/internal/classifier"
	"screening-backend/internal/languages"
	"screening-backend/internal/queue"
	"screening-backend/internal/recordings"
	"screening-backend/internal/screenings"
	"screening-backend/internal/shared/config"
	"screening-backend/internal/shared/server"
	"screening-backend/internal/shared/storage/db"
	"screening-backend/internal/shared/storage/object"
	localstore "screening-backend/internal/shared/storage/object/local"
	s3store "screening-backend/internal/shared/storage/object/s3"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client
	Cache  cache.Cache

	RecordingsRepo recordings.Repo
	ScreeningsRepo screenings.Repo

	RecordingsService *recordings.Service
	ScreeningsService *screenings.Service
	LanguagesService  *languages.Service

	ScreeningProcessor ScreeningProcessor

	RecordingHandler *recordings.Handler
	ScreeningHandler *screenings.Handler
	LanguageHandler  *languages.Handler
}

// ScreeningProcessor allows callers to override screening processing for tests.
type ScreeningProcessor interface {
	Process(ctx context.Context, sessionToken string) error
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

	statusCache, err := buildCache(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		Cache:  statusCache,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:           app.Config,
		RecordingHandler: app.RecordingHandler,
		ScreeningHandler: app.ScreeningHandler,
		LanguageHandler:  app.LanguageHandler,
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
	if strings.TrimSpace(os.Getenv("SCREEN_SQS_QUEUE_URL")) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func buildCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if strings.TrimSpace(cfg.RedisURL) == "" {
		return nil, nil
	}
	redisCache, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	if err := redisCache.Ping(ctx); err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: redis unreachable; running without status cache: %v", err)
			return nil, nil
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return redisCache, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var recRepo recordings.Repo
	var scrRepo screenings.Repo

	if app.DB != nil {
		recRepo = &recordings.PGRepo{DB: app.DB}
		scrRepo = &screenings.PGRepo{DB: app.DB}
	} else {
		recRepo = recordings.NewMemoryRepo()
		scrRepo = screenings.NewMemoryRepo()
	}

	recSvc := &recordings.Service{Store: app.Store, Repo: recRepo}

	classifierClient := classifier.Client(classifier.PlaceholderClient{})
	if strings.TrimSpace(app.Config.ClassifierBaseURL) != "" {
		httpClient, err := classifier.NewHTTPClient(app.Config.ClassifierBaseURL, app.Config.ClassifierTimeout)
		if err != nil {
			return err
		}
		classifierClient = httpClient
	}

	scrSvc := &screenings.Service{
		Repo:       scrRepo,
		Recordings: recSvc,
		Classifier: classifierClient,
		JobQueue:   app.Queue,
		Cache:      app.Cache,
	}

	langSvc := languages.NewService(app.Config.DefaultLanguage)

	app.RecordingsRepo = recRepo
	app.ScreeningsRepo = scrRepo
	app.RecordingsService = recSvc
	app.ScreeningsService = scrSvc
	app.LanguagesService = langSvc
	app.ScreeningProcessor = scrSvc
	app.RecordingHandler = recordings.NewHandler(recSvc)
	app.ScreeningHandler = screenings.NewHandler(scrSvc, langSvc)
	app.LanguageHandler = languages.NewHandler(langSvc)

	return nil
}
