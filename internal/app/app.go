package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/RubachokBoss/essay-grader/internal/config"
	"github.com/RubachokBoss/essay-grader/internal/database"
	"github.com/RubachokBoss/essay-grader/internal/delivery/httpd"
	"github.com/RubachokBoss/essay-grader/internal/grading"
	"github.com/RubachokBoss/essay-grader/internal/middleware"
	"github.com/RubachokBoss/essay-grader/internal/repository"
	"github.com/RubachokBoss/essay-grader/internal/rubric"
	"github.com/RubachokBoss/essay-grader/internal/service"
	"github.com/RubachokBoss/essay-grader/internal/similarity"
	"github.com/RubachokBoss/essay-grader/internal/storage"
	"github.com/RubachokBoss/essay-grader/internal/worker"
	"github.com/RubachokBoss/essay-grader/internal/worker/queue"
)

type Mode int

const (
	// ModeServe runs the HTTP API, plus the queue worker when rabbitmq is enabled.
	ModeServe Mode = iota
	// ModeWorker runs only the queue worker.
	ModeWorker
)

type App struct {
	server        *http.Server
	logger        zerolog.Logger
	config        *config.Config
	db            *sql.DB
	rabbitMQRepo  repository.RabbitMQRepository
	cache         *similarity.RedisCache
	gradingWorker worker.GradingWorker
}

// New wires every component enabled in cfg. Infrastructure that fails to
// connect is fatal, except the embedding cache, which is optional.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger, mode Mode) (*App, error) {
	if mode == ModeWorker && !cfg.RabbitMQ.Enabled {
		return nil, errors.New("worker mode requires rabbitmq to be enabled")
	}

	a := &App{
		logger: log,
		config: cfg,
	}

	if err := a.build(ctx, mode); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, mode Mode) error {
	cfg, log := a.config, a.logger

	provider, err := a.newProvider(ctx)
	if err != nil {
		return err
	}

	engine, err := grading.New(provider,
		grading.WithThresholds(cfg.Grading.Thresholds),
		grading.WithConcurrency(cfg.Grading.Concurrency),
		grading.WithLogger(log.With().Str("component", "grading").Logger()),
	)
	if err != nil {
		return err
	}

	var reportRepo repository.ReportRepository
	if cfg.Database.Enabled {
		a.db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return err
		}
		log.Info().Str("host", cfg.Database.Host).Msg("Database connection established")
		reportRepo = repository.NewReportRepository(a.db, log)
	}

	var archive storage.Archive
	if cfg.Storage.Enabled {
		minioArchive, err := storage.NewMinIOArchive(ctx, storage.Config{
			Endpoint:       cfg.Storage.Endpoint,
			AccessKey:      cfg.Storage.AccessKey,
			SecretKey:      cfg.Storage.SecretKey,
			Bucket:         cfg.Storage.Bucket,
			Region:         cfg.Storage.Region,
			UseSSL:         cfg.Storage.UseSSL,
			ConnectTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			return err
		}
		archive = minioArchive
	}

	var (
		publisher service.Publisher
		consumer  queue.Consumer
	)
	if cfg.RabbitMQ.Enabled {
		publisher, consumer, err = a.setupQueue()
		if err != nil {
			return err
		}
	}

	gradingConfig := service.GradingConfig{
		Validation: service.ValidationConfig{
			MaxEssayLength:          cfg.Grading.MaxEssayLength,
			RejectDuplicateCriteria: cfg.Grading.RejectDuplicateCriteria,
		},
		JobTimeout: cfg.Grading.JobTimeout,
	}
	if err := a.loadSamples(&gradingConfig); err != nil {
		return err
	}

	gradingService := service.NewGradingService(
		engine,
		reportRepo,
		archive,
		publisher,
		log,
		gradingConfig,
	)

	if consumer != nil {
		workerPool := worker.NewWorkerPool(cfg.Grading.MaxWorkers, cfg.Grading.QueueSize, log)
		a.gradingWorker = worker.NewGradingWorker(workerPool, consumer, gradingService, log)
	}

	if mode == ModeWorker {
		return nil
	}

	reportService := service.NewReportService(reportRepo, archive, log)

	checks := make(map[string]httpd.ReadinessCheck)
	if reportRepo != nil {
		checks["database"] = reportRepo.Ping
	}
	if a.rabbitMQRepo != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if a.rabbitMQRepo.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		}
	}

	handler := httpd.NewHandler(gradingService, reportService, checks, log)

	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log))
	router.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	router.Use(middleware.NewCORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
		cfg.CORS.ExposedHeaders,
		cfg.CORS.AllowCredentials,
		cfg.CORS.MaxAge,
	))

	handler.RegisterRoutes(router)

	a.server = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return nil
}

// loadSamples replaces the built-in sample rubric and key points with the
// configured files.
func (a *App) loadSamples(gc *service.GradingConfig) error {
	cfg := a.config.Grading

	if cfg.SampleRubricFile != "" {
		r, err := rubric.LoadFile(cfg.SampleRubricFile)
		if err != nil {
			return fmt.Errorf("failed to load sample rubric: %w", err)
		}
		gc.SampleRubric = &r
		a.logger.Info().Str("path", cfg.SampleRubricFile).Int("criteria", len(r.Criteria)).Msg("Sample rubric loaded")
	}

	if cfg.SampleKeyPointsFile != "" {
		k, err := rubric.LoadKeyPointsFile(cfg.SampleKeyPointsFile)
		if err != nil {
			return fmt.Errorf("failed to load sample key points: %w", err)
		}
		gc.SampleKeyPoints = &k
		a.logger.Info().Str("path", cfg.SampleKeyPointsFile).Int("points", len(k.Points)).Msg("Sample key points loaded")
	}

	return nil
}

// newProvider builds the configured similarity provider behind the
// per-call timeout.
func (a *App) newProvider(ctx context.Context) (similarity.Provider, error) {
	cfg, log := a.config, a.logger

	var provider similarity.Provider
	switch cfg.Similarity.Provider {
	case config.ProviderEmbedding:
		var cache similarity.EmbeddingCache
		if cfg.Redis.Enabled {
			redisCache, err := similarity.NewRedisCache(ctx, similarity.RedisCacheConfig{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
				TTL:      cfg.Redis.TTL,
			}, log)
			if err != nil {
				log.Warn().Err(err).Msg("Embedding cache unavailable, continuing without it")
			} else {
				a.cache = redisCache
				cache = redisCache
			}
		}

		provider = similarity.NewEmbeddingProvider(similarity.EmbeddingConfig{
			URL:        cfg.Similarity.Embedding.URL,
			Model:      cfg.Similarity.Embedding.Model,
			APIKey:     cfg.Similarity.Embedding.APIKey,
			Timeout:    cfg.Similarity.Embedding.Timeout,
			RetryCount: cfg.Similarity.Embedding.RetryCount,
			RetryDelay: cfg.Similarity.Embedding.RetryDelay,
		}, cache, log)
	case config.ProviderLexical:
		if cfg.Redis.Enabled {
			log.Warn().Msg("Redis is only used by the embedding provider, ignoring it")
		}
		provider = similarity.NewLexicalProvider()
	default:
		return nil, fmt.Errorf("unknown similarity provider %q", cfg.Similarity.Provider)
	}

	log.Info().
		Str("provider", cfg.Similarity.Provider).
		Dur("call_timeout", cfg.Similarity.CallTimeout).
		Msg("Similarity provider configured")

	return similarity.WithTimeout(provider, cfg.Similarity.CallTimeout), nil
}

func (a *App) setupQueue() (service.Publisher, queue.Consumer, error) {
	cfg, log := a.config.RabbitMQ, a.logger

	rabbitMQRepo, err := repository.NewRabbitMQRepository(cfg.URL, log)
	if err != nil {
		return nil, nil, err
	}
	a.rabbitMQRepo = rabbitMQRepo

	if err := rabbitMQRepo.SetupExchange(cfg.Exchange); err != nil {
		return nil, nil, err
	}
	if err := rabbitMQRepo.SetupQueue(cfg.Exchange, cfg.QueueName, cfg.RequestRoutingKey); err != nil {
		return nil, nil, err
	}

	publisher := queue.NewEventPublisher(
		queue.NewRabbitMQPublisher(rabbitMQRepo.Channel(), log),
		queue.Routing{
			Exchange:    cfg.Exchange,
			RequestKey:  cfg.RequestRoutingKey,
			CompleteKey: cfg.CompleteRoutingKey,
		},
		log,
	)

	consumer := queue.NewRabbitMQConsumer(
		rabbitMQRepo.Channel(),
		cfg.QueueName,
		cfg.ConsumerTag,
		cfg.PrefetchCount,
		log,
	)

	return publisher, consumer, nil
}

// Run starts the worker, if any, and then serves HTTP until Shutdown. In
// worker mode it blocks until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a.gradingWorker != nil {
		if err := a.gradingWorker.Start(ctx); err != nil {
			a.logger.Error().Err(err).Msg("Failed to start grading worker")
			return err
		}
	}

	if a.server == nil {
		a.logger.Info().Msg("Essay grader running in worker mode")
		<-ctx.Done()
		return nil
	}

	a.logger.Info().Msgf("Starting essay grader on %s", a.config.Server.Address)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info().Msg("Shutting down essay grader...")

	var serverErr error
	if a.server != nil {
		if serverErr = a.server.Shutdown(ctx); serverErr != nil {
			a.logger.Error().Err(serverErr).Msg("Failed to shutdown HTTP server")
		}
	}

	if a.gradingWorker != nil {
		if err := a.gradingWorker.Stop(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to stop grading worker")
		}
	}

	a.closeResources()

	a.logger.Info().Msg("Essay grader stopped")
	return serverErr
}

func (a *App) closeResources() {
	if a.rabbitMQRepo != nil {
		if err := a.rabbitMQRepo.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close RabbitMQ connection")
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close Redis connection")
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close database connection")
		}
	}
}
