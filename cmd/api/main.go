// Package main is the entrypoint for the todo API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/todoapp/todo-backend/internal/awsclient"
	"github.com/todoapp/todo-backend/internal/cache"
	"github.com/todoapp/todo-backend/internal/config"
	"github.com/todoapp/todo-backend/internal/handler"
	"github.com/todoapp/todo-backend/internal/metrics"
	"github.com/todoapp/todo-backend/internal/middleware"
	"github.com/todoapp/todo-backend/internal/repository"
	"github.com/todoapp/todo-backend/internal/server"
	"github.com/todoapp/todo-backend/internal/service"
	"github.com/todoapp/todo-backend/internal/storage"
	"github.com/todoapp/todo-backend/internal/tracing"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	awsOpts := awsclient.Options{Region: cfg.AWSRegion, Endpoint: cfg.EndpointURL}
	awsCfg, err := awsclient.LoadConfig(ctx, awsOpts)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	var shutdowns []namedShutdown

	store, closeStore, err := buildStore(ctx, cfg, awsOpts, awsCfg, logger)
	if err != nil {
		logger.Error(
			"failed to initialize item store",
			slog.String("backend", cfg.StoreBackend),
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	if closeStore != nil {
		shutdowns = append(shutdowns, namedShutdown{"store", closeStore})
	}
	logger.Info("item store ready", "backend", cfg.StoreBackend, "table", cfg.TodosTable)

	metricsRecorder := metrics.NewInMemory()

	issuer := storage.NewIssuer(awsclient.NewPresigner(awsCfg, awsOpts), cfg.ImagesBucket, cfg.UploadURLExpiry())
	logger.Info("upload issuer ready", "bucket", cfg.ImagesBucket, "url_expiry", issuer.Expiry())

	opts := []service.Option{
		service.WithMetrics(metricsRecorder),
		service.WithAttachments(issuer),
	}

	// nil when the cache is disabled.
	var cacheChecker handler.HealthChecker
	if cfg.CacheEnabled() {
		cacheClient, err := cache.New(ctx, cfg.RedisURL, cfg.ListCacheTTL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		shutdowns = append(shutdowns, namedShutdown{"redis", func(context.Context) error { return cacheClient.Close() }})
		opts = append(opts, service.WithListCache(cacheClient))
		cacheChecker = cacheClient
		logger.Info("connected to Redis", "ttl", cfg.ListCacheTTL)
	}

	todoService := service.NewTodoService(
		tracing.WrapStore(store, tracing.NewTracer(cfg.StoreBackend, logger)),
		logger,
		opts...,
	)

	h := handler.New(cfg.Version)
	todoHandler := handler.NewTodoHandler(todoService, logger)
	uploadHandler := handler.NewUploadHandler(
		tracing.WrapIssuer(issuer, tracing.NewTracer("s3", logger)),
		metricsRecorder,
		logger,
	)
	metricsHandler := handler.NewMetricsHandler(metricsRecorder)

	healthHandler := handler.NewHealthHandler(cfg.StoreBackend, store, cacheChecker)

	r := setupRouter(h, healthHandler, todoHandler, uploadHandler, metricsHandler, cfg, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)
	for _, s := range shutdowns {
		srv.OnShutdown(s.name, s.fn)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"bucket", cfg.ImagesBucket,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

type namedShutdown struct {
	name string
	fn   server.ShutdownFunc
}

// buildStore opens the configured item store. The returned close function
// is nil when the backend holds no resources.
func buildStore(ctx context.Context, cfg *config.Config, awsOpts awsclient.Options, awsCfg aws.Config, logger *slog.Logger) (repository.TodoStore, server.ShutdownFunc, error) {
	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		client := awsclient.NewDynamoDB(awsCfg, awsOpts)
		return repository.NewDynamoStore(client, cfg.TodosTable, cfg.TodoIDIndex, logger), nil, nil

	case config.BackendPostgres:
		pool, err := repository.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewPostgresStore(pool, cfg.TodosTable, logger)
		return store, func(context.Context) error {
			store.Close()
			return nil
		}, nil

	case config.BackendMemory:
		logger.Warn("using in-memory item store; data is lost on restart")
		return repository.NewMemoryStore(), nil, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.StoreBackend)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "todo-api", "version", cfg.Version)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	todoHandler *handler.TodoHandler,
	uploadHandler *handler.UploadHandler,
	metricsHandler *handler.MetricsHandler,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)
	r.Get("/", h.Hello)

	r.Route("/todos", func(r chi.Router) {
		r.Get("/", todoHandler.List)
		r.Post("/", todoHandler.Create)
		r.Patch("/{todoId}", todoHandler.Update)
		r.Delete("/{todoId}", todoHandler.Delete)
		r.Post("/{todoId}/attachment", uploadHandler.Generate)
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
