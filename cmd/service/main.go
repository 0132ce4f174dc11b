package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"submission_service/config"
	"submission_service/internal/cache"
	"submission_service/internal/metrics"
	"submission_service/internal/repository"
	"submission_service/internal/server/health"
	"submission_service/internal/server/rest"
	"submission_service/internal/service"
	"submission_service/internal/storage"
	"submission_service/pkg/db"
	"submission_service/pkg/kafka"
	"submission_service/pkg/logging"
)

func main() {
	zapLogger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}
	log := logging.New(zapLogger)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(ctx, "Failed to load config", zap.Error(err))
	}

	mongo, err := db.NewMongo(ctx, db.Config{
		URI:            cfg.Mongo.URI,
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
	})
	if err != nil {
		log.Fatal(ctx, "Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = mongo.Close(context.Background()) }()

	submissionRepo := repository.NewSubmissionRepository(mongo.Database())
	assignmentRepo := repository.NewAssignmentRepository(mongo.Database())
	studentRepo := repository.NewStudentRepository(mongo.Database())
	userRepo := repository.NewUserRepository(mongo.Database())

	backend, err := newBackend(ctx, cfg.Storage)
	if err != nil {
		log.Fatal(ctx, "Failed to init object storage", zap.Error(err))
	}
	blobs, err := storage.NewBlobStore(backend, storage.Options{
		StagingDir: cfg.Storage.StagingDir,
		Folder:     cfg.Storage.Folder,
	})
	if err != nil {
		log.Fatal(ctx, "Failed to init blob store", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn(ctx, "Redis unavailable, status cache will miss", zap.Error(err))
	}

	kafkaProducer, err := kafka.NewProducer(kafka.Config{Brokers: cfg.Kafka.Brokers})
	if err != nil {
		log.Fatal(ctx, "Failed to create Kafka producer", zap.Error(err))
	}
	defer func() { _ = kafkaProducer.Close() }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	submissionService := service.NewSubmissionService(
		submissionRepo,
		assignmentRepo,
		studentRepo,
		blobs,
		service.WithEvents(kafkaProducer, cfg.Kafka.EventsTopic),
		service.WithStatusCache(cache.NewRedisCache(rdb, cfg.Redis.StatusTTL)),
		service.WithMetrics(collector),
		service.WithLogger(log),
	)
	userService := service.NewUserService(userRepo, log)

	handler := rest.NewHandler(submissionService, userService, blobs)
	httpServer := &http.Server{
		Addr: cfg.HTTP.Address,
		Handler: rest.NewRouter(handler, rest.RouterConfig{
			Logger:        log,
			Metrics:       collector,
			Gatherer:      registry,
			MaxUploadSize: cfg.HTTP.MaxUploadSize,
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	healthServer := health.NewServer(log)
	listener, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		log.Fatal(ctx, "Failed to listen", zap.String("address", cfg.GRPC.Address), zap.Error(err))
	}

	go func() {
		if err := healthServer.Serve(listener); err != nil {
			log.Error(ctx, "gRPC health server stopped", zap.Error(err))
		}
	}()

	go func() {
		log.Info(ctx, "Starting HTTP server", zap.String("address", cfg.HTTP.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(ctx, "Failed to serve", zap.Error(err))
		}
	}()

	if cfg.Reminder.Enabled {
		worker := NewReminderWorker(
			submissionService,
			log,
			cfg.Reminder.Interval,
			cfg.Reminder.Horizon,
			cfg.Kafka.RemindersTopic,
		)
		go worker.Start(ctx)
	}

	<-ctx.Done()
	log.Info(context.Background(), "Shutting down server...")

	healthServer.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "HTTP shutdown failed", zap.Error(err))
	}
	healthServer.Stop()

	log.Info(context.Background(), "Server stopped")
}

func newBackend(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case config.StorageBackendS3:
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return storage.NewS3Backend(ctx, client, cfg.S3.Bucket, cfg.S3.ObjectURLPrefix())
	case config.StorageBackendB2:
		return storage.NewB2Backend(ctx, cfg.B2.AccountID, cfg.B2.ApplicationKey, cfg.B2.Bucket)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
