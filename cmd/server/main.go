package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"facilita/internal/app"
	"facilita/internal/auth"
	"facilita/internal/config"
	"facilita/internal/handler"
	"facilita/internal/realtime"
	internalRedis "facilita/internal/redis"
	"facilita/internal/repository/postgres"
	"facilita/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Background workers stop with the process.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	// Wire dependencies.
	server := wireServer(workerCtx, db, redisClient, nrApp, cfg)

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	stopWorkers()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(workerCtx context.Context, db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) *http.Server {
	// Initialize Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)

	// Initialize repositories.
	userRepo := postgres.NewUserRepository(db)
	serviceRepo := postgres.NewServiceRepository(db)
	trackingRepo := postgres.NewTrackingRepository(db)
	refusalRepo := postgres.NewRefusalRepository(db)
	waypointRepo := postgres.NewWaypointRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	// Realtime hub and cross-instance bridge.
	callRegistry := realtime.NewCallRegistry(cfg.Service.CallRingTTL)
	hub := realtime.NewHub(callRegistry, locationStore)
	bridge := realtime.NewBridge(redisClient, hub)
	hub.SetPublisher(bridge)
	go callRegistry.Run(workerCtx)
	go bridge.Run(workerCtx)

	// Initialize services. Events flow through the bridge so every
	// instance's hub delivers them.
	notificationService := service.NewNotificationService(notificationRepo, bridge)
	trackingService := service.NewTrackingService(db, serviceRepo, trackingRepo, bridge, notificationService)
	lifecycleService := service.NewLifecycleService(
		db,
		serviceRepo,
		trackingRepo,
		refusalRepo,
		paymentRepo,
		waypointRepo,
		trackingService,
		notificationService,
		lockStore,
		cacheStore,
		bridge,
		cfg.Service.RefusalThreshold,
	)
	waypointService := service.NewWaypointService(db, serviceRepo, waypointRepo)
	paymentService := service.NewPaymentService(paymentRepo, serviceRepo)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Initialize handlers.
	userHandler := handler.NewUserHandler(userRepo, tokens)
	serviceHandler := handler.NewServiceHandler(lifecycleService, trackingService)
	trackingHandler := handler.NewTrackingHandler(trackingService)
	waypointHandler := handler.NewWaypointHandler(waypointService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	providerHandler := handler.NewProviderHandler(locationStore)
	wsHandler := handler.NewWSHandler(hub)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		ServiceHandler:      serviceHandler,
		TrackingHandler:     trackingHandler,
		WaypointHandler:     waypointHandler,
		PaymentHandler:      paymentHandler,
		NotificationHandler: notificationHandler,
		ProviderHandler:     providerHandler,
		UserHandler:         userHandler,
		WSHandler:           wsHandler,
		Tokens:              tokens,
		RedisClient:         redisClient,
		NewRelicApp:         nrApp,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
