package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"archie-core-attribution-layer/internal/application"
	"archie-core-attribution-layer/internal/config"
	apiinfra "archie-core-attribution-layer/internal/infrastructure/api"
	"archie-core-attribution-layer/internal/infrastructure/encryption"
	"archie-core-attribution-layer/internal/infrastructure/lock"
	"archie-core-attribution-layer/internal/infrastructure/pubsub"
	"archie-core-attribution-layer/internal/infrastructure/repository"
	shopifyinfra "archie-core-attribution-layer/internal/infrastructure/shopify"
	"archie-core-attribution-layer/internal/infrastructure/trackingid"
	"archie-core-attribution-layer/internal/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, found := config.Load()
	if !found {
		logger.Warn().Msg("Warning: .env file not found")
	}
	logger = logger.Level(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Data store
	var store ports.DataStore
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn().Msg("Using in-memory data store, nothing survives a restart")
		store = repository.NewMemoryStore()
	default:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
		}
		defer client.Disconnect(context.Background())

		mongoStore := repository.NewMongoStore(client.Database(cfg.MongoDatabase))
		indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := mongoStore.EnsureIndexes(indexCtx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
		}
		cancel()
		store = mongoStore
	}

	// Per-store installation lock
	var locker ports.Locker
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("Failed to connect to Redis")
		}
		locker = lock.NewRedisLocker(rdb, "lock:", cfg.InstallLockTTL, cfg.InstallTimeout, logger)
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis installation locks")
	} else {
		locker = lock.NewKeyedLocker()
	}

	encryptionService, err := encryption.NewService(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	// Repositories
	connectionRepo := repository.NewConnectionRepository(store)
	storefrontRepo := repository.NewStorefrontRepository(store)
	installationRepo := repository.NewInstallationRepository(store)
	performanceRepo := repository.NewPerformanceRepository(store)
	settingsRepo := repository.NewSettingsRepository(store)

	// Application services
	installationEvents := pubsub.NewInstallationPubSub(logger)
	storefrontService := application.NewStorefrontService(
		storefrontRepo,
		trackingid.NewGenerator(),
		encryptionService,
		logger,
	)
	installer := application.NewTrackingInstaller(
		installationRepo,
		storefrontService,
		shopifyinfra.NewThemeClient(cfg.ShopifyAPIKey, cfg.ShopifyAPISecret, logger),
		locker,
		installationEvents,
		application.InstallerConfig{
			ScriptURL: cfg.TrackingScriptURL,
			Timeout:   cfg.InstallTimeout,
		},
		logger,
	)

	router := apiinfra.NewRouter(apiinfra.Deps{
		Connections:    application.NewConnectionRegistry(connectionRepo, logger),
		Storefronts:    storefrontService,
		Installer:      installer,
		Attribution:    application.NewAttributionService(performanceRepo, settingsRepo, logger),
		Events:         installationEvents,
		Logger:         logger,
		SwaggerFile:    "./docs/swagger.json",
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// WriteTimeout stays unset so installation event streams are not cut
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("storeDriver", cfg.StoreDriver).Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at " + cfg.AppURL + "/swagger/index.html")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.InstallTimeout+5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
