package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/cityflow/crm/internal/api/http"
	"github.com/cityflow/crm/internal/api/http/handlers"
	"github.com/cityflow/crm/internal/auth"
	"github.com/cityflow/crm/internal/cache"
	"github.com/cityflow/crm/internal/config"
	"github.com/cityflow/crm/internal/events"
	"github.com/cityflow/crm/internal/observability"
	"github.com/cityflow/crm/internal/persistence"
	"github.com/cityflow/crm/internal/repository"
	"github.com/cityflow/crm/internal/service"
	"github.com/cityflow/crm/internal/storage"
	"github.com/cityflow/crm/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var store cache.Store
	var redisPinger handlers.Pinger
	if redis.Available() {
		store = cache.NewRedisStore(redis.Client, "crm:")
		redisPinger = redis
	} else {
		logger.Warn("redis unavailable, sessions and lookups use the in-process store")
		store = cache.NewMemoryStore()
	}

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	issueTypeRepo := repository.NewIssueTypeRepository(pool)
	regionRepo := repository.NewCachedRegionRepository(repository.NewRegionRepository(pool), store, cfg.Cache.LookupTTL(), logger)
	teamRepo := repository.NewTeamRepository(pool)
	profileRepo := repository.NewProfileRepository(pool)
	groupRepo := repository.NewTicketGroupRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	ruleRepo := repository.NewRuleRepository(pool)

	objects, err := storage.NewFilesystemStore(cfg.Storage.Root, cfg.Storage.PublicBaseURL)
	if err != nil {
		logger.Fatal("failed to init attachment storage", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	var publisher service.EventPublisher
	var kafka *events.KafkaPublisher
	if cfg.Notification.KafkaEnabled() {
		kafka, err = events.NewKafkaPublisher(cfg.Notification)
		if err != nil {
			logger.Fatal("failed to init kafka publisher", zap.Error(err))
		}
		publisher = kafka
	}
	service.NewNotificationService(dispatcher, publisher, logger).RegisterHandlers()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL())
	sessions := auth.NewSessionStore(store)

	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		RegionRepo:    regionRepo,
		TeamRepo:      teamRepo,
		ProfileRepo:   profileRepo,
		IssueTypeRepo: issueTypeRepo,
		Metrics:       metrics,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     ticketRepo,
		CommentRepo:    commentRepo,
		AttachmentRepo: attachmentRepo,
		HistoryRepo:    historyRepo,
		ProfileRepo:    profileRepo,
		TeamRepo:       teamRepo,
		Assignment:     assignmentService,
		Storage:        objects,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
		MaxUploadBytes: int64(cfg.Storage.MaxUploadMB) << 20,
	})
	groupService := service.NewGroupService(service.GroupDependencies{
		GroupRepo:     groupRepo,
		TicketRepo:    ticketRepo,
		IssueTypeRepo: issueTypeRepo,
		ProfileRepo:   profileRepo,
		TicketService: ticketService,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	reportService := service.NewReportService(service.ReportDependencies{
		TicketRepo:    ticketRepo,
		IssueTypeRepo: issueTypeRepo,
		TeamRepo:      teamRepo,
	})
	adminService := service.NewAdminService(service.AdminDependencies{
		IssueTypeRepo: issueTypeRepo,
		RegionRepo:    regionRepo,
		TeamRepo:      teamRepo,
		ProfileRepo:   profileRepo,
		RuleRepo:      ruleRepo,
		SessionStore:  sessions,
		BcryptCost:    cfg.Auth.BcryptCost,
	})
	authService := service.NewAuthService(service.AuthDependencies{
		ProfileRepo:  profileRepo,
		SessionStore: sessions,
		TokenManager: tokens,
		Logger:       logger,
	})

	sweeper := worker.NewSLASweeper(worker.SLASweeperConfig{
		Store:      ticketRepo,
		History:    historyRepo,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
		Batch:      cfg.SLA.SweepBatch,
	})
	if cfg.SLA.SweepEnabled {
		if err := sweeper.Start(cfg.SLA.SweepSchedule); err != nil {
			logger.Fatal("failed to start sla sweeper", zap.Error(err))
		}
	}

	app := fiber.New(fiber.Config{
		AppName:   cfg.App.Name,
		BodyLimit: cfg.App.BodyLimitMB << 20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redisPinger),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, assignmentService, int64(cfg.Storage.MaxUploadMB)<<20),
		Groups:         handlers.NewGroupsHandler(groupService),
		Reports:        handlers.NewReportsHandler(reportService),
		Admin:          handlers.NewAdminHandler(adminService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, sessions),
		Metrics:        metrics,
		FilesRoot:      objects.Root(),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	sweeper.Stop(shutdownCtx)
	if kafka != nil {
		if err := kafka.Close(); err != nil {
			logger.Warn("kafka close", zap.Error(err))
		}
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
