// cmd/rent-service/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rent-predictor/internal/api"
	"rent-predictor/internal/artifact"
	"rent-predictor/internal/common/aws"
	"rent-predictor/internal/common/camunda"
	"rent-predictor/internal/common/config"
	"rent-predictor/internal/common/database"
	"rent-predictor/internal/common/logger"
	"rent-predictor/internal/common/observability"
	"rent-predictor/internal/common/validation"
	"rent-predictor/internal/history"
	"rent-predictor/internal/notify"
	"rent-predictor/internal/prediction"

	predictrent "rent-predictor/internal/workers/rental/predict-rent"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog, level := logger.NewWithOptions(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting rent service...",
		zap.String("version", Version),
		zap.String("buildTime", BuildTime),
		zap.String("environment", cfg.App.Environment),
	)

	cfg.Watch(func(next *config.Config) {
		level.SetLevel(logger.ParseLevel(next.Logging.Level))
		zapLog.Info("config reloaded", zap.String("logLevel", next.Logging.Level))
	}, func(err error) {
		zapLog.Warn("config reload failed", zap.Error(err))
	})

	obs := observability.New(cfg.App.Name, cfg.Tracing.JaegerEndpoint, log)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Artifact store ---
	awsCfg, err := aws.LoadConfig(ctx, cfg.Storage.Region, config.GetDuration(cfg.Storage.RequestTimeout))
	if err != nil {
		zapLog.Fatal("aws config failed", zap.Error(err))
	}

	var store artifact.Store = artifact.NewS3Store(aws.NewS3Client(awsCfg, aws.S3Options{
		Endpoint:     cfg.Storage.Endpoint,
		UsePathStyle: cfg.Storage.UsePathStyle,
	}))

	cacheOpts := artifact.CacheOptions{
		MemoryEntries: cfg.Cache.MemoryEntries,
		TTL:           time.Duration(cfg.Cache.RedisTTL) * time.Second,
	}
	if cfg.Database.Redis.Enabled() {
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			redis = database.NewRedis(cfg.Database.Redis)
			if err := redis.Ping(ctx); err != nil {
				_ = redis.Close()
				return err
			}
			return nil
		}, 5, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Warn("redis unavailable, artifact cache is process-local", zap.Error(err))
		} else {
			defer redis.Close()
			cacheOpts.Redis = redis.Client
			zapLog.Info("Redis connected successfully")
		}
	}

	cached, err := artifact.NewCachedStore(store, cacheOpts, log)
	if err != nil {
		zapLog.Fatal("artifact cache failed", zap.Error(err))
	}
	store = cached

	// --- Model and image ---
	model := prediction.NewModelResource(store, cfg.Storage.Bucket, cfg.Storage.ModelKey)
	loadCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.Storage.RequestTimeout))
	loaded, err := model.Get(loadCtx)
	cancel()
	if err != nil {
		zapLog.Fatal("model load failed",
			zap.String("bucket", cfg.Storage.Bucket),
			zap.String("key", cfg.Storage.ModelKey),
			zap.Error(err),
		)
	}
	zapLog.Info("Model loaded",
		zap.String("key", cfg.Storage.ModelKey),
		zap.String("type", prediction.ModelType(loaded)),
		zap.Int("features", len(loaded.FeatureNames())),
	)

	var image *artifact.Resource[artifact.Image]
	if cfg.Storage.ImageKey != "" {
		image = artifact.NewResource("image", func(ctx context.Context) (artifact.Image, error) {
			return artifact.LoadImage(ctx, store, cfg.Storage.Bucket, cfg.Storage.ImageKey)
		})
		imgCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.Storage.RequestTimeout))
		if _, err := image.Get(imgCtx); err != nil {
			zapLog.Warn("image load failed, serving without it", zap.String("key", cfg.Storage.ImageKey), zap.Error(err))
		}
		cancel()
	}

	// --- Prediction sinks ---
	var sinks []prediction.Sink
	var hist *history.Repository
	if cfg.Database.Postgres.Enabled() {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(ctx, cfg.Database.Postgres)
			return err
		}, 10, 2*time.Second, zapLog, "PostgreSQL connection")

		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()

		hist = history.NewRepository(pg.DB, log)
		if err := hist.EnsureSchema(ctx); err != nil {
			zapLog.Fatal("history schema failed", zap.Error(err))
		}
		sinks = append(sinks, hist)
		zapLog.Info("PostgreSQL connected successfully")
	}

	if cfg.Notifications.SNS.Enabled {
		sinks = append(sinks, notify.NewSNSPublisher(aws.NewSNSClient(awsCfg), cfg.Notifications.SNS.TopicARN, log))
	}
	if cfg.Notifications.SES.Enabled {
		sinks = append(sinks, notify.NewSESMailer(aws.NewSESClient(awsCfg), cfg.Notifications.SES.FromEmail, log))
	}

	svc := prediction.NewService(model, prediction.Options{
		ModelKey:     cfg.Storage.ModelKey,
		StrictSchema: cfg.Prediction.StrictSchema,
		Currency:     cfg.Prediction.Currency,
		Sinks:        sinks,
	}, obs, log)

	parser, err := validation.NewApartmentValidator()
	if err != nil {
		zapLog.Fatal("input schema failed", zap.Error(err))
	}

	// --- Zeebe worker ---
	var workers []*camunda.CamundaWorker
	if cfg.Camunda.Enabled {
		var zeebe *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
				GatewayAddress:         cfg.Camunda.BrokerAddress,
				UsePlaintextConnection: true,
				ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
			})
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zeebe.Close()
		zapLog.Info("Zeebe client connected successfully")

		if config.IsWorkerEnabled(cfg, predictrent.TaskType) {
			wcfg := config.GetWorkerConfig(cfg, predictrent.TaskType)
			handler := predictrent.NewHandler(
				&predictrent.Config{Timeout: config.GetDuration(wcfg.Timeout)},
				svc, parser, log,
			)
			workers = append(workers, camunda.NewWorker(zeebe.GetClient(), camunda.WorkerOptions{
				TaskType:       predictrent.TaskType,
				Name:           cfg.App.Name,
				MaxJobsActive:  wcfg.MaxJobsActive,
				Timeout:        config.GetDuration(wcfg.Timeout),
				FetchVariables: predictrent.FetchVariables(),
			}, handler.Handle, log))
		} else {
			zapLog.Info("worker disabled", zap.String("taskType", predictrent.TaskType))
		}
	}

	// --- HTTP API ---
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := api.Deps{Predictor: svc, Parser: parser}
	if image != nil {
		deps.Image = image
	}
	if hist != nil {
		deps.History = hist
	}

	router := api.NewRouter(api.RouterConfig{
		ServiceName:    cfg.App.Name,
		Version:        Version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, api.NewHandler(deps, log), log)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}

	zapLog.Info("Rent service stopped")
}
