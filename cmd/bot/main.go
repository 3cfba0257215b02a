package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/freshmanacadamy/Ver/internal/api/http"
	"github.com/freshmanacadamy/Ver/internal/api/http/handlers"
	"github.com/freshmanacadamy/Ver/internal/auth"
	"github.com/freshmanacadamy/Ver/internal/config"
	"github.com/freshmanacadamy/Ver/internal/events"
	"github.com/freshmanacadamy/Ver/internal/gateway"
	"github.com/freshmanacadamy/Ver/internal/observability"
	"github.com/freshmanacadamy/Ver/internal/persistence"
	"github.com/freshmanacadamy/Ver/internal/repository"
	"github.com/freshmanacadamy/Ver/internal/service"
	"github.com/freshmanacadamy/Ver/internal/worker"
)

const broadcastDrainTimeout = 30 * time.Second

func main() {
	issueToken := flag.Int64("issue-token", 0, "print an admin API token for the given admin id and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	admins := auth.NewAdminList(cfg.Admin.IDs)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	if *issueToken != 0 {
		if !admins.IsAdmin(*issueToken) {
			log.Fatalf("%d is not in ADMIN_IDS", *issueToken)
		}
		token, exp, err := tokens.GenerateToken(*issueToken)
		if err != nil {
			log.Fatalf("failed to issue token: %v", err)
		}
		fmt.Printf("%s\nexpires %s\n", token, exp.Format(time.RFC3339))
		return
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if len(cfg.Admin.IDs) == 0 {
		logger.Warn("ADMIN_IDS is empty; listings cannot be moderated")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()
	dedupe := persistence.NewDeduplicator(redis, cfg.Redis.DedupeTTL, logger)

	gw, err := newGateway(ctx, cfg.Telegram, logger)
	if err != nil {
		logger.Fatal("failed to init gateway", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	audit := repository.NewAuditRepository(pg.PoolHandle())
	identityRepo := repository.NewIdentityRepository()
	listingRepo := repository.NewListingRepository()

	identities := service.NewIdentityService(identityRepo, audit, admins, logger, nil)
	conversations := service.NewConversationService(service.ConversationDependencies{
		Sessions:     repository.NewConversationRepository(),
		Listings:     listingRepo,
		Identities:   identityRepo,
		Dispatcher:   dispatcher,
		PriceCeiling: cfg.Marketplace.PriceCeiling,
		Logger:       logger,
	})
	moderation := service.NewModerationService(service.ModerationDependencies{
		Listings:   listingRepo,
		Audit:      audit,
		Admins:     admins,
		Gateway:    gw,
		Dispatcher: dispatcher,
		Channel:    cfg.Telegram.ChannelID,
		Logger:     logger,
	})
	chats := service.NewChatService(service.ChatDependencies{
		Chats:      repository.NewChatRepository(),
		Listings:   listingRepo,
		Identities: identityRepo,
		Audit:      audit,
		Admins:     admins,
		Gateway:    gw,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	broadcasts := service.NewBroadcastService(service.BroadcastDependencies{
		Identities: identityRepo,
		Audit:      audit,
		Admins:     admins,
		Gateway:    gw,
		Metrics:    metrics,
		Delay:      cfg.Marketplace.BroadcastDelay,
		Logger:     logger,
	})
	notifications := service.NewNotificationService(dispatcher, gw, admins, identityRepo, listingRepo, logger)
	worker.StartNotificationWorker(notifications)

	engine := service.NewEngine(service.EngineDependencies{
		Identities:    identities,
		Listings:      listingRepo,
		Conversations: conversations,
		Moderation:    moderation,
		Chats:         chats,
		Broadcasts:    broadcasts,
		Admins:        admins,
		Gateway:       gw,
		Dispatcher:    dispatcher,
		Audit:         audit,
		Metrics:       metrics,
		Logger:        logger,
		Config:        cfg.Marketplace,
		BaseContext:   ctx,
	})
	sweeper := worker.StartExpiryWorker(ctx, cfg.Marketplace.SweepInterval, engine, dedupe, logger)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Webhook:        handlers.NewWebhookHandler(cfg.Telegram.WebhookSecret, engine, dedupe, logger),
		Admin:          handlers.NewAdminHandler(engine, moderation, chats, audit),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Admins:         admins,
	})

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	if tg, ok := gw.(*gateway.Telegram); ok && cfg.Telegram.WebhookURL != "" {
		if err := tg.RegisterWebhook(ctx, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret); err != nil {
			logger.Error("failed to register webhook", zap.Error(err))
		}
	}

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if !engine.WaitTimeout(broadcastDrainTimeout) {
		logger.Warn("broadcasts still running at shutdown; interrupting", zap.Duration("waited", broadcastDrainTimeout))
	}
	cancel()
	<-sweeper
	engine.Wait()
}

// newGateway talks to the Bot API when a token is configured and logs
// outbound messages otherwise.
func newGateway(ctx context.Context, cfg config.TelegramConfig, logger *zap.Logger) (gateway.Gateway, error) {
	if cfg.BotToken == "" {
		logger.Warn("BOT_TOKEN not provided; outbound messages are only logged")
		return gateway.NewLog(logger), nil
	}
	tg, err := gateway.NewTelegram(cfg.BotToken, logger)
	if err != nil {
		return nil, err
	}
	if name, err := tg.Username(ctx); err == nil {
		logger.Info("telegram bot ready", zap.String("username", name))
	} else {
		logger.Warn("telegram getMe failed", zap.Error(err))
	}
	return tg, nil
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
