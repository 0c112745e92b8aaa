// Package main runs the booking HTTP server with WebSocket status push and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumen-tutoring/booking-backend/config"
	"github.com/lumen-tutoring/booking-backend/internal/analytics"
	"github.com/lumen-tutoring/booking-backend/internal/auth"
	"github.com/lumen-tutoring/booking-backend/internal/bookings"
	"github.com/lumen-tutoring/booking-backend/internal/exports"
	"github.com/lumen-tutoring/booking-backend/internal/identifier"
	"github.com/lumen-tutoring/booking-backend/internal/magiclink"
	"github.com/lumen-tutoring/booking-backend/internal/middleware"
	"github.com/lumen-tutoring/booking-backend/internal/notifications"
	"github.com/lumen-tutoring/booking-backend/internal/realtime"
	"github.com/lumen-tutoring/booking-backend/pkg/database"
	"github.com/lumen-tutoring/booking-backend/pkg/queue"
	"github.com/lumen-tutoring/booking-backend/pkg/redis"
	"github.com/lumen-tutoring/booking-backend/pkg/response"
	"github.com/lumen-tutoring/booking-backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()

	// Stores: PostgreSQL by default, in-process for local runs and demos.
	var (
		bookingStore   bookings.Store
		eventStore     analytics.Store
		notificationDB *notifications.Repository
	)
	if cfg.Booking.UsesMemoryStore() {
		bookingStore = bookings.NewMemoryStore()
		eventStore = analytics.NewMemoryStore()
		logger.Warn("using in-memory stores; data is lost on restart")
	} else {
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		bookingStore = bookings.NewPostgresStore(pool)
		eventStore = analytics.NewPostgresStore(pool)
		notificationDB = notifications.NewRepository(pool)
	}

	// Redis is optional: without it there is no job queue, rate limiting or cross-instance push.
	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		client, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Warn("redis unavailable; queue, rate limit and pub/sub disabled", zap.Error(err))
		} else {
			rdb = client.Client
			defer rdb.Close()
		}
	}

	var s3Client *storage.S3
	if cfg.AWS.Region != "" {
		s3Cfg := storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}
		s3Client, err = storage.NewS3(ctx, s3Cfg, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
			s3Client = nil
		}
	}

	// Change fan-out: websocket hub always, notification jobs when the queue exists.
	var bookingSvc *bookings.Service
	var jobQueue *queue.Queue
	var hub *realtime.Hub
	if rdb != nil {
		pubsub := realtime.NewRedisPubSub(rdb, logger)
		hub = realtime.NewHub(logger, pubsub, pubsub)
		jobQueue = queue.NewQueue(rdb, logger)
	} else {
		hub = realtime.NewHub(logger, nil, nil)
	}
	sinks := bookings.Sinks{hub}
	if jobQueue != nil {
		magicLink := func(token string) string { return bookingSvc.MagicLinkURL(token) }
		sinks = append(sinks, notifications.NewDispatcher(jobQueue, magicLink, logger))
	}

	bookingSvc = bookings.NewService(bookingStore, identifier.NewGenerator(), sinks, bookings.Options{
		StoreTimeout:  cfg.Booking.StoreTimeout,
		IDAttempts:    cfg.Booking.IDRetryAttempts,
		MagicLinkBase: cfg.Booking.MagicLinkBase,
	}, logger)

	recorder := analytics.NewRecorder(eventStore, bookingSvc, cfg.Booking.StoreTimeout, logger)
	resolver := magiclink.NewResolver(bookingSvc, recorder, cfg.Booking.FrontendURL, logger)

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	authHandler := auth.NewHandler(auth.Account{Email: cfg.Admin.Email, PasswordHash: cfg.Admin.PasswordHash}, jwtService, logger)
	bookingHandler := bookings.NewHandler(bookingSvc, logger)
	analyticsHandler := analytics.NewHandler(recorder, logger)
	magicLinkHandler := magiclink.NewHandler(resolver, cfg.Booking.FrontendURL, logger)

	var enqueuer exports.Enqueuer
	if jobQueue != nil {
		enqueuer = jobQueue
	}
	var presigner exports.Presigner
	if s3Client != nil {
		presigner = s3Client
	}
	exportHandler := exports.NewHandler(bookingSvc, enqueuer, presigner, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	router.POST("/auth/login", authHandler.Login)

	// Magic links (public, rate limited)
	limited := middleware.RateLimit(cfg.RateLimit, rdb, logger)
	router.GET("/m/:token", limited, magicLinkHandler.Redirect)
	links := router.Group("/api/magic-links/:token", limited)
	{
		links.POST("/resolve", magicLinkHandler.Resolve)
		links.GET("/preview", magicLinkHandler.Preview)
		links.POST("/track", analyticsHandler.Track)
		links.GET("/events", analyticsHandler.ListEvents)
		links.GET("/summary", analyticsHandler.Summary)
	}

	// Bookings
	api := router.Group("/api/bookings")
	{
		api.POST("", bookingHandler.Create)
		api.GET("/:id", bookingHandler.Get)
		api.PATCH("/:id", bookingHandler.UpdateDetails)
		api.POST("/:id/confirm", bookingHandler.Confirm)
		api.POST("/:id/cancel", bookingHandler.Cancel)
		api.POST("/:id/complete", bookingHandler.Complete)
		api.PATCH("/:id/status", bookingHandler.UpdateStatus)
		api.PATCH("/:id/payment", bookingHandler.UpdatePayment)
	}

	// Admin (JWT required)
	admin := router.Group("/api/admin")
	admin.Use(middleware.JWT(jwtService), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/bookings", bookingHandler.List)
		admin.POST("/bookings/:id/analytics/export", exportHandler.Request)
		admin.GET("/exports/*key", exportHandler.DownloadURL)
		if notificationDB != nil {
			admin.GET("/bookings/:id/notifications", notifications.NewHandler(notificationDB, bookingSvc, logger).ListByBooking)
		}
	}

	// WebSocket (magic-link token in query; no Authorization header required)
	router.GET("/ws/bookings/:bookingId", realtime.ServeWs(hub, bookingSvc, logger))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("store", cfg.Booking.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
