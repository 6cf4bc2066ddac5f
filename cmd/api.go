package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/desokroshan/truckflow-ai/config"
	"github.com/desokroshan/truckflow-ai/internal/api"
	"github.com/desokroshan/truckflow-ai/internal/cache"
	"github.com/desokroshan/truckflow-ai/internal/extraction"
	"github.com/desokroshan/truckflow-ai/internal/jobs"
	"github.com/desokroshan/truckflow-ai/internal/metrics"
	"github.com/desokroshan/truckflow-ai/internal/models"
	"github.com/desokroshan/truckflow-ai/internal/notify"
	"github.com/desokroshan/truckflow-ai/internal/repositories"
	"github.com/desokroshan/truckflow-ai/internal/search"
	"github.com/desokroshan/truckflow-ai/internal/services"
	"github.com/desokroshan/truckflow-ai/internal/sheets"
	"github.com/desokroshan/truckflow-ai/internal/telephony"
	"github.com/desokroshan/truckflow-ai/internal/tracing"
	"github.com/desokroshan/truckflow-ai/internal/transcription"
)

// uploadsMaxAge is how long stray files may sit in the uploads directory
// before the hourly sweep removes them.
const uploadsMaxAge = time.Hour

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long:  `Start the HTTP API server that handles dashboard requests and telephony webhooks`,
	RunE:  runAPI,
}

func init() {
	rootCmd.AddCommand(apiCmd)
}

func runAPI(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}

	// Configure logging
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Initialize storage. Without a database configured the service runs on
	// in-memory repositories.
	loadRepo, callLogRepo, err := initRepositories(cfg)
	if err != nil {
		return err
	}

	// Initialize cache
	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Redis cache, continuing without caching")
		redisCache, _ = cache.NewRedisCache(config.RedisConfig{Enabled: false})
	}

	// Initialize tracer
	tracer, err := tracing.NewTracer(cfg.Tracing)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		tracer = &tracing.NewRelicTracer{}
	}

	// Initialize Elasticsearch client
	elasticClient, err := search.NewElasticClient(cfg.Elastic)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize Elasticsearch client, continuing without search functionality")
		elasticClient, _ = search.NewElasticClient(config.ElasticConfig{Enabled: false})
	}

	// Initialize integration clients. Each one disables itself when its
	// credentials are missing.
	telephonyClient := telephony.NewClient(cfg.Twilio)
	transcriber := transcription.NewWhisperTranscriber(cfg.OpenAI)
	extractor := extraction.NewOpenAIExtractor(cfg.OpenAI)
	notifier := notify.NewNotifier(cfg.SMTP, telephonyClient)

	sheetsClient, err := sheets.NewClient(ctx, cfg.Sheets)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to initialize sheets client, continuing without spreadsheet sync")
		sheetsClient, _ = sheets.NewClient(ctx, config.SheetsConfig{})
	}
	if err := sheetsClient.Initialize(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to initialize sheet headers")
	}

	// Initialize metrics and the background job runner
	metricsCollector := metrics.NewMetrics()
	runner := jobs.NewRunner(metricsCollector)

	// Initialize services
	dispatchService := services.NewDispatchService(
		loadRepo, callLogRepo,
		transcriber, extractor, telephonyClient,
		sheetsClient, elasticClient, notifier,
		redisCache, metricsCollector, cfg,
	)

	// Schedule the hourly uploads sweep
	scheduler, err := startScheduler(dispatchService)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to start scheduler, continuing without uploads cleanup")
	}

	// Initialize and start the server
	server := api.NewServer(cfg, dispatchService, runner, metricsCollector, tracer)

	// Start the server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	// Shutdown the scheduler and server
	if scheduler != nil {
		if err := scheduler.Shutdown(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown error")
		}
	}
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	if err := redisCache.Close(); err != nil {
		log.Error().Err(err).Msg("Redis shutdown error")
	}

	log.Info().Msg("Shutting down API server")
	return nil
}

func initRepositories(cfg config.Config) (repositories.LoadRequestRepository, repositories.CallLogRepository, error) {
	if !cfg.DB.Enabled {
		log.Info().Msg("Database disabled, using in-memory storage")
		return repositories.NewMemoryLoadRequestRepository(), repositories.NewMemoryCallLogRepository(), nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to connect to database")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to access database handle")
	}
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err := models.SetupModels(db); err != nil {
		return nil, nil, errors.Wrap(err, "failed to run migrations")
	}

	return repositories.NewGormLoadRequestRepository(db), repositories.NewGormCallLogRepository(db), nil
}

func startScheduler(dispatchService *services.DispatchService) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create scheduler")
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			if err := dispatchService.CleanupUploads(context.Background(), uploadsMaxAge); err != nil {
				log.Error().Err(err).Msg("Uploads cleanup failed")
			}
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to schedule uploads cleanup")
	}

	scheduler.Start()
	return scheduler, nil
}
