package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/identity"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/routing"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
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

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var publisher events.Publisher
	if cfg.Broker.URL != "" {
		publisher, err = events.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Exchange, logger)
		if err != nil {
			logger.Fatal("failed to connect broker", zap.Error(err))
		}
		defer publisher.Close() //nolint:errcheck
	}

	pool := pg.PoolHandle()
	agentRepo := repository.NewAgentRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	conversationRepo := repository.NewConversationRepository(pool)
	ruleRepo := repository.NewRuleRepository(pool)
	ledgerRepo := repository.NewAssignmentHistoryRepository(pool)
	sequenceRepo := repository.NewSequenceRepository(pool)
	locker := repository.NewAdvisoryLocker(pool)
	loadCache := repository.NewLoadCache(redis.Client, cfg.Assignment.LoadCacheTTL())

	codes := identity.DefaultCodeTable()
	if cfg.Identity.CodesFile != "" {
		codes, err = identity.LoadCodeTable(cfg.Identity.CodesFile)
		if err != nil {
			logger.Fatal("failed to load code table", zap.Error(err))
		}
	}
	identityBuilder := identity.NewBuilder(sequenceRepo, codes, conversationRepo, customerRepo)

	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		ConversationRepo: conversationRepo,
		AgentRepo:        agentRepo,
		RuleRepo:         ruleRepo,
		LedgerRepo:       ledgerRepo,
		Strategies:       routing.DefaultStrategies(ledgerRepo),
		Locker:           locker,
		Dispatcher:       dispatcher,
		Metrics:          metrics,
		Logger:           logger,
	})
	conversationService := service.NewConversationService(service.ConversationDependencies{
		ConversationRepo: conversationRepo,
		CustomerRepo:     customerRepo,
		Identity:         identityBuilder,
		Assigner:         assignmentService,
		Dispatcher:       dispatcher,
		Logger:           logger,
	})
	agentService := service.NewAgentService(agentRepo, loadCache, cfg.Auth, logger)
	authService := service.NewAuthService(cfg.Auth, agentRepo)
	ruleService := service.NewRuleService(ruleRepo)
	notificationService := service.NewNotificationService(dispatcher, publisher, logger, cfg.Notification)

	worker.StartNotificationWorker(notificationService, logger)
	stopSweep, err := worker.StartSweepWorker(cfg.Assignment.SweepCron, cfg.Assignment.SweepBatchSize, assignmentService, logger)
	if err != nil {
		logger.Fatal("failed to start sweep worker", zap.Error(err))
	}
	defer stopSweep()

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), agentRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Conversations:  handlers.NewConversationsHandler(conversationService, assignmentService, ledgerRepo),
		Agents:         handlers.NewAgentsHandler(agentService),
		Rules:          handlers.NewRulesHandler(ruleService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
