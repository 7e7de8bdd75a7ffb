package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dropout-watch-api/internal/config"
	"github.com/noah-isme/dropout-watch-api/internal/database"
	"github.com/noah-isme/dropout-watch-api/internal/handler"
	"github.com/noah-isme/dropout-watch-api/internal/middleware"
	"github.com/noah-isme/dropout-watch-api/internal/models"
	"github.com/noah-isme/dropout-watch-api/internal/observability"
	"github.com/noah-isme/dropout-watch-api/internal/repository"
	"github.com/noah-isme/dropout-watch-api/internal/risk"
	"github.com/noah-isme/dropout-watch-api/internal/router"
	"github.com/noah-isme/dropout-watch-api/internal/service"
	cloud "github.com/noah-isme/dropout-watch-api/pkg/cloudinary"
)

const feedKeepAlive = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("env", cfg.AppEnv).Logger()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Student{}, &models.Intervention{}, &models.Meeting{}, &models.NotificationDelivery{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to access database handle: %v", err)
	}
	defer sqlDB.Close()

	healthChecks := map[string]handler.Pinger{
		"database": sqlDB.PingContext,
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		healthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	}

	var storage service.FileStorage
	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	if cloudCfg.Configured() {
		archive, err := cloud.New(cloudCfg, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		storage = archive
	} else {
		logger.Info().Msg("cloudinary not configured, report archiving disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	studentRepo := repository.NewStudentRepository(db)
	interventionRepo := repository.NewInterventionRepository(db)
	meetingRepo := repository.NewMeetingRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	studentService := service.NewStudentService(studentRepo, validate, redisClient, cfg.StatsCacheTTL, logger)
	uploadService := service.NewUploadService(studentRepo, studentService, cfg.UploadMaxBytes, cfg.UploadSessionTTL, logger)
	seedService := service.NewSeedService(studentRepo, studentService, cfg.SeedEnabled, cfg.SeedToken, logger)
	mentorService := service.NewMentorService(studentRepo, interventionRepo, meetingRepo, validate, logger)
	reportService := service.NewReportService(studentRepo, interventionRepo, meetingRepo, notificationRepo, storage, logger)
	notificationService := service.NewNotificationService(studentRepo, notificationRepo, service.NotificationOptions{
		Redis:       redisClient,
		NATS:        natsConn,
		ChannelBase: cfg.NotificationChannel,
		Thresholds: risk.AlertThresholds{
			Attendance: cfg.AlertAttendance,
			Marks:      cfg.AlertMarks,
			FeeDays:    cfg.AlertFeeDays,
		},
	}, validate, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seeded, err := seedService.SeedIfEmpty(ctx)
	if err != nil {
		log.Fatalf("failed to seed demo students: %v", err)
	}
	if seeded > 0 {
		logger.Info().Int("students", seeded).Msg("empty store loaded with demo cohort")
	}

	notificationService.Start(ctx)

	refreshTierGauge := func(ctx context.Context) {
		if _, err := studentService.RiskStats(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to refresh tier gauge before scrape")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    int(cfg.UploadMaxBytes) + 1024*1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSOrigins})
	router.Register(app, cfg, router.Dependencies{
		StudentHandler:      handler.NewStudentHandler(studentService, reportService, validate, logger),
		StatsHandler:        handler.NewStatsHandler(studentService, logger),
		UploadHandler:       handler.NewUploadHandler(uploadService, logger),
		MentorHandler:       handler.NewMentorHandler(mentorService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, feedKeepAlive),
		SeedHandler:         handler.NewSeedHandler(seedService, logger),
		HealthChecks:        healthChecks,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		MetricsHandler:      observability.MetricsHandler(refreshTierGauge),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
