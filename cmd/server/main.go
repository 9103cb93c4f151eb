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

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/broker"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer("storefront-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Business.CartTTL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	orderClient := service.NewOrderClient(cfg.Remote.OrderServiceURL, cfg.Remote.RequestTimeout)
	productClient := service.NewProductClient(cfg.Remote.ProductServiceURL, cfg.Remote.RequestTimeout)

	cartService := service.NewCartService(redisClient, cfg.Business.FlatDeliveryFee)
	catalogService := service.NewCatalogService(productClient, db)
	checkoutService := service.NewCheckoutService(cartService, redisClient, orderClient, eventPublisher, catalogService, cfg.Business.FlatDeliveryFee)
	draftService := service.NewDraftService(productClient)
	trackingService := service.NewTrackingService(orderClient, redisClient, cfg.Business.SimulateInterval)
	defer trackingService.Shutdown()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	statusConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrders, cfg.Kafka.ConsumerGroup)
	statusWorker := worker.NewStatusWorker(statusConsumer, trackingService)
	go func() {
		if err := statusWorker.Start(workerCtx); err != nil {
			log.Printf("Status worker error: %v", err)
		}
	}()

	catalogWorker := worker.NewCatalogSyncWorker(catalogService, cfg.Business.CatalogSyncInterval)
	go func() {
		if err := catalogWorker.Start(workerCtx); err != nil {
			log.Printf("Catalog sync worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(cartService, checkoutService, catalogService, draftService, trackingService, orderClient)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	statusWorker.Stop()
	trackingService.Shutdown()

	log.Println("Server exited")
}
