package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stackit/internal/common/cache"
	"stackit/internal/common/db"
	commonmw "stackit/internal/common/http/middleware"
	"stackit/internal/common/mq"
	"stackit/internal/common/storage"
	"stackit/internal/forum/controller"
	"stackit/internal/forum/middleware"
	"stackit/internal/forum/notify"
	"stackit/internal/forum/repository"
	"stackit/internal/forum/rpc"
	"stackit/internal/forum/service"
	"stackit/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const defaultConfigPath = "configs/forum_service.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	healthChecks := make(map[string]controller.HealthCheck)

	var cacheClient cache.Cache
	if appCfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
		if err != nil {
			logger.Error(shutdownCtx, "init redis failed", zap.Error(err))
			return
		}
		defer func() {
			_ = redisCache.Close()
		}()
		cacheClient = redisCache
		healthChecks["cache"] = redisCache.Ping
	}

	store, err := openStore(shutdownCtx, appCfg, cacheClient, healthChecks)
	if err != nil {
		logger.Error(shutdownCtx, "init store failed", zap.Error(err))
		return
	}
	defer func() {
		_ = store.Close()
	}()

	authService := service.NewAuthService(store, service.AuthServiceConfig{
		JWTSecret:      []byte(appCfg.Auth.JWTSecret),
		JWTIssuer:      appCfg.Auth.JWTIssuer,
		AccessTokenTTL: appCfg.Auth.AccessTokenTTL,
		BcryptCost:     appCfg.Auth.BcryptCost,
	})
	if err := seedStore(shutdownCtx, appCfg.Store, store, authService); err != nil {
		logger.Error(shutdownCtx, "seed store failed", zap.Error(err))
		return
	}

	var mqClient mq.MessageQueue
	if appCfg.Events.Kafka.Enabled {
		mqClient, err = mq.NewKafkaQueue(appCfg.Events.Kafka.KafkaConfig)
		if err != nil {
			logger.Error(shutdownCtx, "init kafka failed", zap.Error(err))
			return
		}
	} else {
		mqClient = mq.NewMemoryQueue()
	}
	defer func() {
		_ = mqClient.Close()
	}()
	healthChecks["events"] = mqClient.Ping

	hub := notify.NewHub(notify.HubConfig{
		AllowedOrigins: appCfg.Notifications.AllowedOrigins,
		SendBuffer:     appCfg.Notifications.SendBuffer,
	})
	defer hub.Close()
	var sink service.NotificationSink = hub
	if cacheClient != nil {
		fanout := notify.NewRedisFanout(cacheClient, appCfg.Notifications.Channel, hub)
		go func() {
			if err := fanout.Run(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error(shutdownCtx, "notification fan-out stopped", zap.Error(err))
			}
		}()
		sink = fanout
	}

	workflow := service.NewWorkflow(store, service.WorkflowConfig{
		NotifyOnSubmit: *appCfg.Workflow.NotifyOnSubmit,
	}).
		WithEvents(service.NewModerationEventPublisher(mqClient, appCfg.Events.Topic)).
		WithNotificationSink(sink)
	contentService := service.NewContentService(store, workflow)

	if appCfg.Mailer.Enabled {
		sender, err := notify.NewSMTPSender(appCfg.Mailer.SMTP)
		if err != nil {
			logger.Error(shutdownCtx, "init smtp sender failed", zap.Error(err))
			return
		}
		mailer := notify.NewMailer(store, sender, notify.MailerConfig{
			From:          appCfg.Mailer.From,
			SiteURL:       appCfg.Mailer.SiteURL,
			Topic:         appCfg.Events.Topic,
			ConsumerGroup: appCfg.Mailer.ConsumerGroup,
			Concurrency:   appCfg.Mailer.Concurrency,
		})
		if err := mailer.Subscribe(shutdownCtx, mqClient); err != nil {
			logger.Error(shutdownCtx, "subscribe mailer failed", zap.Error(err))
			return
		}
	}
	if err := mqClient.Start(); err != nil {
		logger.Error(shutdownCtx, "start event consumers failed", zap.Error(err))
		return
	}

	var mediaService *service.MediaService
	if appCfg.MinIO.Endpoint != "" {
		objStorage, err := storage.NewMinIOStorage(appCfg.MinIO)
		if err != nil {
			logger.Error(shutdownCtx, "init minio failed", zap.Error(err))
			return
		}
		mediaService = service.NewMediaService(objStorage, service.MediaConfig{
			Bucket:     appCfg.MinIO.Bucket,
			KeyPrefix:  appCfg.Media.KeyPrefix,
			PresignTTL: appCfg.Media.PresignTTL,
			MaxBytes:   appCfg.Media.MaxBytes,
		})
	}

	var limiter middleware.Limiter = service.NewLocalRateLimiter()
	if cacheClient != nil {
		limiter = service.NewRateLimitService(cacheClient, appCfg.RateLimit.Window, appCfg.RateLimit.RedisTimeout)
	}

	httpServer := buildHTTPServer(appCfg, controller.Dependencies{
		Auth:         authService,
		Content:      contentService,
		Workflow:     workflow,
		Media:        mediaService,
		Hub:          hub,
		Limiter:      limiter,
		HealthChecks: healthChecks,
	})

	errCh := make(chan error, 2)
	go func() {
		logger.Info(shutdownCtx, "forum http server started", zap.String("addr", appCfg.Server.Addr), zap.String("store", appCfg.Store.Driver))
		errCh <- httpServer.ListenAndServe()
	}()

	var grpcServer *grpc.Server
	if appCfg.GRPC.Enabled {
		grpcListener, err := net.Listen("tcp", appCfg.GRPC.Addr)
		if err != nil {
			logger.Error(shutdownCtx, "init grpc listener failed", zap.Error(err))
			return
		}
		grpcServer = grpc.NewServer(grpc.UnaryInterceptor(rpc.UnaryLogger()))
		rpc.RegisterQuestionService(grpcServer, contentService)
		go func() {
			logger.Info(shutdownCtx, "forum grpc server started", zap.String("addr", appCfg.GRPC.Addr))
			errCh <- grpcServer.Serve(grpcListener)
		}()
	}

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
	_ = mqClient.Stop()
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
}

// openStore builds the configured gateway and registers its health check.
func openStore(ctx context.Context, cfg *AppConfig, cacheClient cache.Cache, checks map[string]controller.HealthCheck) (repository.Gateway, error) {
	if cfg.Store.Driver != storeDriverMySQL {
		return repository.NewMemoryGateway(), nil
	}
	mysqlDB, err := db.NewMySQLWithConfig(&cfg.Database)
	if err != nil {
		return nil, err
	}
	checks["database"] = mysqlDB.Ping
	gateway := repository.NewMySQLGateway(mysqlDB, cacheClient)
	if cfg.Store.Migrate {
		if err := gateway.Migrate(ctx); err != nil {
			_ = gateway.Close()
			return nil, err
		}
	}
	return gateway, nil
}

// seedStore loads fixtures into the memory store. MySQL deployments are seeded
// out of band.
func seedStore(ctx context.Context, cfg StoreConfig, store repository.Gateway, auth *service.AuthService) error {
	if cfg.Fixtures == "" {
		return nil
	}
	memory, ok := store.(*repository.MemoryGateway)
	if !ok {
		logger.Warn(ctx, "fixtures are ignored by the mysql store", zap.String("path", cfg.Fixtures))
		return nil
	}
	fx, err := repository.LoadFixtures(cfg.Fixtures)
	if err != nil {
		return err
	}
	if err := memory.Seed(ctx, fx, auth.HashPassword); err != nil {
		return err
	}
	logger.Info(ctx, "fixtures loaded",
		zap.Int("users", len(fx.Users)),
		zap.Int("questions", len(fx.Questions)),
		zap.Int("answers", len(fx.Answers)),
	)
	return nil
}

func buildHTTPServer(cfg *AppConfig, deps controller.Dependencies) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.RequestLogger())
	router.Use(middleware.CORSMiddleware(cfg.CORS))

	controller.RegisterRoutes(router, deps, controller.RouteConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		RateWindow:     cfg.RateLimit.Window,
		Limits:         cfg.RateLimit.Routes,
	})

	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
