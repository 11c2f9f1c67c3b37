package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"

	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/api/handlers"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/api/routes"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/config"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/location"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/repository/postgres"
	chatservice "github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/chat"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/dispatch"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/matching"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/presence"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/internal/service/pricing"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/cache"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/database"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/logger"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/monitoring"
	"github.com/AliArsalanSiddiqui/Safely-Home-sub000/pkg/realtime"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Safely Home dispatch service",
		logger.String("env", cfg.Server.Env),
		logger.String("port", cfg.Server.Port),
	)

	// Initialize New Relic
	nrApp, err := monitoring.New(monitoring.Config{
		LicenseKey: cfg.NewRelic.LicenseKey,
		AppName:    cfg.NewRelic.AppName,
		Enabled:    cfg.NewRelic.Enabled,
	})
	if err != nil {
		appLogger.Warn("Failed to initialize New Relic", logger.Err(err))
		nrApp = monitoring.Disabled()
	} else if nrApp.IsEnabled() {
		appLogger.Info("New Relic APM initialized",
			logger.String("app_name", cfg.NewRelic.AppName))
	} else {
		appLogger.Info("New Relic APM disabled")
	}
	defer nrApp.Shutdown(10 * time.Second)

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cache.Config{
		Host:        cfg.Redis.Host,
		Port:        cfg.Redis.Port,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		MaxRetries:  cfg.Redis.MaxRetries,
		PoolSize:    cfg.Redis.PoolSize,
		MinIdleConn: cfg.Redis.MinIdleConn,
		DialTimeout: cfg.Redis.DialTimeout,
		ReadTimeout: cfg.Redis.ReadTimeout,
	})
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", logger.Err(err))
	}
	defer cache.Close(redisClient)

	appLogger.Info("Connected to Redis")

	// Initialize PostgreSQL
	postgresDB, err := database.NewPostgresDB(database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		DBName:      cfg.Database.Name,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConnections,
		MaxIdle:     cfg.Database.MaxIdleConns,
		MaxLifetime: cfg.Database.MaxLifetime,
	})
	if err != nil {
		appLogger.Fatal("Failed to connect to PostgreSQL", logger.Err(err))
	}
	defer postgresDB.Close()

	appLogger.Info("Connected to PostgreSQL")

	// Repositories and the geo index
	userRepo := postgres.NewUserRepository(postgresDB)
	rideRepo := postgres.NewRideRepository(postgresDB)
	messageRepo := postgres.NewMessageRepository(postgresDB)
	locationStore := location.NewRedisStore(redisClient)

	// Realtime bus
	bus := realtime.NewBus(appLogger)
	bus.OnCountChange(nrApp.RecordConnections)

	// Services
	matcher := matching.NewService(locationStore, userRepo, appLogger, matching.Config{
		RadiusKM:      cfg.Matching.RadiusKM,
		MaxCandidates: cfg.Matching.MaxCandidates,
	})
	calculator := pricing.NewCalculator(cfg.Pricing.DriverShareRate)
	dispatchSvc := dispatch.NewService(rideRepo, userRepo, matcher, calculator, bus, nrApp, appLogger)
	chatSvc := chatservice.NewService(messageRepo, rideRepo, userRepo, bus, appLogger, cfg.Chat.GraceWindow)
	presenceSvc := presence.NewService(userRepo, locationStore, appLogger)

	// Inbound socket events
	handlers.RegisterBusHandlers(bus, dispatchSvc, chatSvc, presenceSvc, appLogger)

	// Expire requested rides nobody claimed
	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	sweeper := dispatch.NewSweeper(dispatchSvc, cfg.Dispatch.RequestExpiry, cfg.Dispatch.SweepInterval, appLogger)
	go sweeper.Run(sweeperCtx)

	h := handlers.NewHandlers(dispatchSvc, chatSvc, presenceSvc, bus, appLogger,
		cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize)

	// Initialize Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	var nrApplication *newrelic.Application
	if nrApp.IsEnabled() {
		nrApplication = nrApp.Application
	}
	routes.SetupRoutes(router, h, nrApplication)

	appLogger.Info("Routes configured")

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		appLogger.Info("Server starting", logger.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", logger.Err(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", logger.Err(err))
	}

	appLogger.Info("Server stopped gracefully")
}
