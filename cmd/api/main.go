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

	httptransport "github.com/rafah-clos/request-service/internal/api/http"
	"github.com/rafah-clos/request-service/internal/api/http/handlers"
	"github.com/rafah-clos/request-service/internal/auth"
	"github.com/rafah-clos/request-service/internal/authz"
	"github.com/rafah-clos/request-service/internal/cache"
	"github.com/rafah-clos/request-service/internal/config"
	"github.com/rafah-clos/request-service/internal/events"
	"github.com/rafah-clos/request-service/internal/observability"
	"github.com/rafah-clos/request-service/internal/persistence"
	"github.com/rafah-clos/request-service/internal/service"
	"github.com/rafah-clos/request-service/internal/store"
	pgstore "github.com/rafah-clos/request-service/internal/store/postgres"
	"github.com/rafah-clos/request-service/internal/store/supabase"
	"github.com/rafah-clos/request-service/internal/worker"
)

// stores groups the backend-specific store implementations.
type stores struct {
	requests store.RequestStore
	users    store.UserStore
	logs     store.AuditLogStore
	push     store.PushTokenStore
}

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

	pingers := map[string]handlers.Pinger{}

	var backend stores
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}

		backend = stores{
			requests: pgstore.NewRequestStore(pg.Pool),
			users:    pgstore.NewUserStore(pg.Pool),
			logs:     pgstore.NewAuditLogStore(pg.Pool),
			push:     pgstore.NewPushTokenStore(pg.Pool),
		}
		pingers["postgres"] = pg

	default:
		client, err := supabase.NewClient(supabase.Config{
			URL:        cfg.Store.SupabaseURL,
			ServiceKey: cfg.Store.SupabaseServiceKey,
			Timeout:    cfg.Store.Timeout(),
		}, logger)
		if err != nil {
			logger.Fatal("failed to build record store client", zap.Error(err))
		}

		backend = stores{
			requests: supabase.NewRequestStore(client),
			users:    supabase.NewUserStore(client),
			logs:     supabase.NewAuditLogStore(client),
			push:     supabase.NewPushTokenStore(client),
		}
		pingers["store"] = client
	}

	var tokenCache cache.TokenCache = cache.NewMemoryTokenCache()
	if cfg.Redis.Enabled {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		tokenCache = cache.NewRedisTokenCache(redis.Client)
		pingers["redis"] = redis
	}

	codec := auth.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL(), cfg.Auth.ClockSkewLeeway())
	extractor := auth.NewExtractor(cfg.Auth.SessionCookieName, cfg.Auth.LegacyCookieName)
	verifier := auth.NewVerifier(codec, extractor, logger)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(backend.users, codec, logger)
	requestService := service.NewRequestService(service.RequestDependencies{
		RequestStore: backend.requests,
		AuditLogs:    backend.logs,
		Dispatcher:   dispatcher,
		AuthzOptions: authz.Options{},
		Logger:       logger,
	})
	pushService, err := service.NewPushService(service.PushDependencies{
		TokenStore:        backend.push,
		TokenCache:        tokenCache,
		Logger:            logger,
		ServiceAccountB64: cfg.Push.ServiceAccountB64,
	})
	if err != nil {
		logger.Fatal("failed to init push service", zap.Error(err))
	}
	notificationService := service.NewNotificationService(dispatcher, pushService, logger)
	worker.StartNotificationWorker(notificationService)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	var gasProxy *handlers.GasProxyHandler
	if cfg.Gas.ExecURL != "" {
		gasProxy = handlers.NewGasProxyHandler(cfg.Gas, logger)
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pingers),
		Auth:      handlers.NewAuthHandler(authService, cfg.Auth),
		Requests:  handlers.NewRequestsHandler(requestService),
		Push:      handlers.NewPushHandler(pushService),
		AppConfig: handlers.NewAppConfigHandler(cfg.Client, cfg.Gas.ExecURL, cfg.App.Version),
		GasProxy:  gasProxy,
		Verifier:  verifier,
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
