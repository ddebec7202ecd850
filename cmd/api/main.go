package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	_ "github.com/sjperalta/insurance-api/docs" // Swagger docs
	"github.com/sjperalta/insurance-api/internal/cache"
	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/internal/database"
	"github.com/sjperalta/insurance-api/internal/events"
	"github.com/sjperalta/insurance-api/internal/handlers"
	"github.com/sjperalta/insurance-api/internal/jobs"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/sjperalta/insurance-api/internal/services"
	"github.com/sjperalta/insurance-api/internal/storage"
	"github.com/sjperalta/insurance-api/pkg/logger"
)

const eventsQueue = "insurance_events"

// @title Insurance Agency API
// @version 1.0
// @description Back office API for an insurance agency: customers, vehicles, policies, payments, cheques, agents and expenses

// @host localhost:8081
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Setup(cfg.Environment, cfg.LogLevel)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	if cfg.EnableEmailNotifications && (cfg.ResendAPIKey == "" || cfg.FromEmail == "") {
		logger.Warn("Resend email disabled: RESEND_API_KEY or FROM_EMAIL not set")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	store, err := newStorage(cfg)
	if err != nil {
		logger.Error("Failed to initialize storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}

	c := newCache(cfg)
	publisher := newPublisher(cfg)

	repos := repository.NewRepositories(db)

	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	svcs := services.NewServices(repos, worker, store, c, publisher, cfg, db)

	if err := scheduleJobs(worker, svcs, cfg); err != nil {
		logger.Error("Failed to schedule jobs", "error", err)
		os.Exit(1)
	}

	router := handlers.NewRouter(handlers.NewHandlers(svcs), cfg, c)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	worker.Shutdown()
	logger.Info("Background worker stopped")

	if err := publisher.Close(); err != nil {
		logger.Warn("Failed to close event publisher", "error", err)
	}
	if closer, ok := c.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func newStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageDriver == "minio" {
		store, err := storage.NewMinioStorage(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioSecure)
		if err != nil {
			return nil, err
		}
		logger.Info("Initialized MinIO storage", "bucket", cfg.MinioBucket)
		return store, nil
	}

	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		return nil, err
	}
	logger.Info("Initialized local storage", "path", cfg.StoragePath)
	return store, nil
}

// newCache connects to Redis. Without it the dashboard cache and the
// idempotency keys live in process memory.
func newCache(cfg *config.Config) cache.Cache {
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(cfg.RedisURL)
		if err == nil {
			logger.Info("Connected to Redis")
			return rc
		}
		logger.Warn("Redis unavailable, using in-memory cache", "error", err)
	}
	return cache.NewMemoryCache()
}

func newPublisher(cfg *config.Config) events.Publisher {
	if cfg.RabbitMQURL != "" {
		p, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, eventsQueue)
		if err == nil {
			logger.Info("Connected to RabbitMQ", "queue", eventsQueue)
			return p
		}
		logger.Warn("RabbitMQ unavailable, events are only logged", "error", err)
	}
	return events.NewLogPublisher()
}

func scheduleJobs(worker *jobs.Worker, svcs *services.Services, cfg *config.Config) error {
	err := worker.ScheduleCron("cheque_reminders", cfg.ChequeReminderCron, func(ctx context.Context) error {
		sent, err := svcs.Cheque.SendDueChequeReminders(ctx)
		if err != nil {
			return err
		}
		logger.Info("[Job] Cheque reminders sent", "cheques", sent)
		return nil
	})
	if err != nil {
		return err
	}

	err = worker.ScheduleCron("policy_expiry", cfg.PolicyExpiryCron, func(ctx context.Context) error {
		expired, err := svcs.Policy.ExpirePolicies(ctx)
		if err != nil {
			return err
		}
		logger.Info("[Job] Policies expired", "policies", expired)
		return nil
	})
	if err != nil {
		return err
	}

	// Keep the dashboard counters warm between mutations
	if cfg.DashboardCacheTTL > 0 {
		worker.ScheduleEvery("dashboard_warmup", cfg.DashboardCacheTTL, func(ctx context.Context) error {
			_, err := svcs.Dashboard.Statistics(ctx)
			return err
		})
	}

	logger.Info("Scheduled recurring jobs")
	return nil
}
