// Package main runs the background job worker (booking notifications, analytics exports to S3).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumen-tutoring/booking-backend/config"
	"github.com/lumen-tutoring/booking-backend/internal/analytics"
	"github.com/lumen-tutoring/booking-backend/internal/bookings"
	"github.com/lumen-tutoring/booking-backend/internal/notifications"
	"github.com/lumen-tutoring/booking-backend/internal/worker"
	"github.com/lumen-tutoring/booking-backend/pkg/database"
	"github.com/lumen-tutoring/booking-backend/pkg/queue"
	"github.com/lumen-tutoring/booking-backend/pkg/redis"
	"github.com/lumen-tutoring/booking-backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if cfg.Booking.UsesMemoryStore() {
		logger.Fatal("worker requires STORE_DRIVER=postgres")
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var exportSink worker.ExportSink
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err := storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		exportSink = s3Client
	} else {
		logger.Warn("AWS_REGION not set; analytics export jobs will dead-letter")
	}

	recorder := analytics.NewRecorder(analytics.NewPostgresStore(pool), bookings.NewPostgresStore(pool), cfg.Booking.StoreTimeout, logger)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewProcessor(jobQueue, notifications.NewRepository(pool), worker.NewLogSender(logger), recorder, exportSink, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(queue.PollTimeout + 2*time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
