package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-desk/internal/api/http"
	"github.com/spec-kit/support-desk/internal/api/http/handlers"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/notify"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/internal/persistence"
	"github.com/spec-kit/support-desk/internal/ratelimit"
	"github.com/spec-kit/support-desk/internal/repository"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)
	contactRepo := repository.NewContactRepository(pool)
	chatRepo := repository.NewChatRepository(pool)
	historyRepo := repository.NewChatHistoryRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	mailer := notify.NewSMTPMailer(cfg.SMTP)
	if !mailer.Enabled() {
		logger.Warn("smtp host not configured, outbound email disabled")
	}
	webhook := notify.NewWebhookClient(cfg.Notification.WebhookURL, cfg.Notification.WebhookTimeout, 2, logger)

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(service.NotificationDependencies{
		Mailer:    mailer,
		Webhook:   webhook,
		UserRepo:  userRepo,
		StaffRepo: staffRepo,
		Metrics:   metrics,
		Logger:    logger,
	})
	notifyWorker := worker.NewNotificationWorker(notifications.Handle, cfg.Notification.QueueSize, logger)
	notifyWorker.Attach(dispatcher)
	notifyWorker.Start(ctx)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		StaffRepo:         staffRepo,
		AdminRepo:         adminRepo,
		PasswordResetRepo: resetRepo,
		Mailer:            mailer,
		Metrics:           metrics,
		Logger:            logger,
	})
	assignment := service.NewAssignmentService(service.AssignmentDependencies{StaffRepo: staffRepo, Logger: logger})
	chatService := service.NewChatService(service.ChatDependencies{
		ChatRepo:    chatRepo,
		HistoryRepo: historyRepo,
		UserRepo:    userRepo,
		Assignment:  assignment,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	contactService := service.NewContactService(service.ContactDependencies{
		ContactRepo: contactRepo,
		Mailer:      mailer,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	staffService := service.NewStaffService(*cfg, service.StaffDependencies{StaffRepo: staffRepo})
	reportService := service.NewReportService(service.ReportDependencies{ContactRepo: contactRepo, ChatRepo: chatRepo})

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, staffRepo, adminRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(chatService),
		Staff:          handlers.NewStaffHandler(chatService, contactService, staffService),
		Admin:          handlers.NewAdminHandler(staffService, chatService, contactService, reportService),
		Contact:        handlers.NewContactHandler(contactService),
		AuthMiddleware: authMiddleware,
		Limiter:        ratelimit.NewRedisLimiter(redis.Client),
		RateLimit:      cfg.RateLimit,
		Gatherer:       registry,
		Metrics:        metrics,
		Logger:         logger,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	notifyWorker.Stop()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
