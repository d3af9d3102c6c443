package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/amit9129/automated-parking-system/internal/api"
	"github.com/amit9129/automated-parking-system/internal/api/handler"
	"github.com/amit9129/automated-parking-system/internal/api/middleware"
	"github.com/amit9129/automated-parking-system/internal/config"
	"github.com/amit9129/automated-parking-system/internal/iot"
	"github.com/amit9129/automated-parking-system/internal/lock"
	"github.com/amit9129/automated-parking-system/internal/logging"
	"github.com/amit9129/automated-parking-system/internal/mq"
	"github.com/amit9129/automated-parking-system/internal/repository/postgresql"
	"github.com/amit9129/automated-parking-system/internal/service"
	"github.com/amit9129/automated-parking-system/internal/vision"
	"github.com/amit9129/automated-parking-system/internal/vision/opencv"
)

const (
	sweeperLockKey  = "sweeper"
	sweepTimeout    = 2 * time.Minute
	shutdownTimeout = 10 * time.Second
	workerWait      = 5 * time.Second
)

func main() {
	// 1. Configuration and logging
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 2. Database
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()
	if err := postgresql.EnsureSchema(ctx, db); err != nil {
		logger.Fatal("prepare schema", zap.Error(err))
	}
	logger.Info("database ready", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

	userRepo := postgresql.NewPgUserRepository(db)
	sessionRepo := postgresql.NewPgParkingSessionRepository(db)
	eventLogRepo := postgresql.NewPgSessionEventLogRepository(db)

	// 3. AWS clients
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Fatal("load aws config", zap.Error(err))
	}

	var textReader service.TextReader
	if cfg.OCREnabled {
		textReader = service.NewRekognitionReader(rekognition.NewFromConfig(awsCfg))
	} else {
		logger.Warn("OCR_ENABLED=false, entries will fail plate detection")
	}

	// 4. Locks shared by replicas
	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisAddr != "" {
		rdb, err := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Fatal("connect redis", zap.Error(err))
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb)
		logger.Info("using redis locks", zap.String("addr", cfg.RedisAddr))
	}

	// 5. Session event fan-out
	wsManager := handler.NewWebSocketManager(logger)
	go wsManager.Start(ctx)

	notifiers := service.MultiNotifier{service.NewEventLog(eventLogRepo, logger), wsManager}
	if cfg.IoTDataEndpoint != "" {
		iotClient := iotdataplane.NewFromConfig(awsCfg, func(o *iotdataplane.Options) {
			endpoint := cfg.IoTDataEndpoint
			if !strings.HasPrefix(endpoint, "https://") && !strings.HasPrefix(endpoint, "http://") {
				endpoint = "https://" + endpoint
			}
			o.BaseEndpoint = aws.String(endpoint)
		})
		notifiers = append(notifiers, iot.NewGatePublisher(iotClient, cfg.IoTTopicPrefix, logger))
	}
	if cfg.AMQPURL != "" {
		publisher, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Fatal("connect amqp", zap.Error(err))
		}
		defer publisher.Close()
		notifiers = append(notifiers, publisher)
	}

	// 6. Services
	selection, err := vision.PolicyByName(cfg.PlateSelectionPolicy)
	if err != nil {
		logger.Fatal("plate selection policy", zap.Error(err))
	}
	locator := vision.NewPlateLocator(opencv.NewContourExtractor(), selection, cfg.PlateEpsilonFactor)
	lprService := service.NewLPRService(locator, textReader, cfg.OCRTimeout, logger)

	qrWriter, err := service.NewFileQRWriter(cfg.QRCodeDir)
	if err != nil {
		logger.Fatal("prepare qr directory", zap.Error(err))
	}

	parkingService := service.NewParkingService(
		sessionRepo,
		lprService,
		qrWriter,
		opencv.NewCamera(cfg.CameraDeviceID),
		locker,
		notifiers,
		service.ParkingPolicy{
			HourlyRate:     cfg.HourlyRate,
			RetentionDays:  cfg.RetentionDays,
			PurgeBatchSize: cfg.PurgeBatchSize,
			CaptureTimeout: cfg.CaptureTimeout,
		},
		logger,
	)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpirationHours, logger)
	if err := authService.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Fatal("seed admin account", zap.Error(err))
	}
	authMiddleware := middleware.NewAuthMiddleware(authService, logger)

	// 7. Background workers
	var wg sync.WaitGroup

	if cfg.SQSGateQueueURL == "" {
		logger.Warn("SQS_GATE_QUEUE_URL not set, gate consumer disabled")
	} else {
		consumer := iot.NewSQSConsumer(sqs.NewFromConfig(awsCfg), cfg.SQSGateQueueURL, parkingService, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Start(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runRetentionSweeper(ctx, cfg.SweepInterval, locker, parkingService, logger)
	}()

	// 8. HTTP server
	router := api.SetupRouter(api.Services{
		Auth:    authService,
		Parking: parkingService,
		LPR:     lprService,
	}, authMiddleware, wsManager, cfg.QRCodeDir, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutting down", zap.Stringer("signal", sig))

	stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()
	select {
	case <-done:
	case <-time.After(workerWait):
		logger.Warn("background workers did not stop in time")
	}

	logger.Info("server stopped")
}

// runRetentionSweeper purges expired sessions every interval. Replicas sharing
// the lock skip a tick another replica is already sweeping.
func runRetentionSweeper(ctx context.Context, interval time.Duration, locker lock.Locker, parking *service.ParkingService, logger *zap.Logger) {
	logger = logger.Named("sweeper")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		release, err := locker.Acquire(ctx, sweeperLockKey, interval)
		if err != nil {
			if !errors.Is(err, lock.ErrLocked) {
				logger.Warn("acquire sweeper lock", zap.Error(err))
			}
			continue
		}

		sweepCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
		count, err := parking.PurgeExpired(sweepCtx)
		cancel()
		release()

		if err != nil {
			logger.Error("retention sweep failed", zap.Int("purged", count), zap.Error(err))
		} else if count > 0 {
			logger.Info("retention sweep", zap.Int("purged", count))
		}
	}
}
