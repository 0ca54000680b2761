package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.ApiService/controllers"
	"gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.ApiService/implementation/ingest"
	container "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Container"
	downlink "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Downlink"
	implementation "gitlab.com/agrosense1/agt.ttn_server/src/production/AGT.Repository/Implementation"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	// Initialize dependency injection container
	ctr, err := container.NewApiContainer(ctx)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize container: %v", err))
	}
	defer ctr.Shutdown(context.Background())

	logger := ctr.GetLogger()
	logger.Info("Starting API Service")

	// Create repositories
	snapshotRepo := implementation.NewMongoSnapshotRepository(ctr.SnapshotCollection())
	historyRepo := implementation.NewMongoHistoryRepository(ctr.HistoryCollection())

	if err := historyRepo.EnsureIndexes(ctx); err != nil {
		logger.FatalWithError(err, "Failed to create history indexes")
	}

	config := ctr.GetConfig()

	// Ingestion pipeline and downlink forwarder
	ingestService := ingest.NewService(snapshotRepo, historyRepo, logger)
	downlinkClient := downlink.NewClient(&config.TTN)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     config.CORS.AllowedOrigins,
		AllowMethods:     config.CORS.AllowedMethods,
		AllowHeaders:     config.CORS.AllowedHeaders,
		AllowCredentials: config.CORS.AllowCredentials,
		MaxAge:           time.Duration(config.CORS.MaxAge) * time.Second,
	}))

	// Create controllers and register routes
	webhookController := controllers.NewWebhookController(ingestService, logger)
	downlinkController := controllers.NewDownlinkController(downlinkClient, logger)
	deviceController := controllers.NewDeviceController(snapshotRepo, historyRepo, logger)
	healthController := controllers.NewHealthController(ctr.GetMongoClient(), logger)

	webhookController.RegisterRoutes(router)
	downlinkController.RegisterRoutes(router)
	deviceController.RegisterRoutes(router)
	healthController.RegisterRoutes(router)

	port := config.Server.Port

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP server starting on port " + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.FatalWithError(err, "Failed to start HTTP server")
		}
	}()

	// Wait for shutdown signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithError(err, "HTTP server shutdown failed")
	}
}
