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

	"groupbuy-service/config"
	"groupbuy-service/internal/api"
	"groupbuy-service/internal/broker"
	"groupbuy-service/internal/redisclient"
	"groupbuy-service/internal/service"
	"groupbuy-service/internal/store"
	"groupbuy-service/internal/util"
	"groupbuy-service/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting groupbuy service")

	tp, err := util.InitTracer("groupbuy-service", cfg.Observ.JaegerEndpoint)
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

	db, err := store.NewPostgres(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicDeals)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	locks := service.NewDealLocks()
	registry := service.NewRegistry(db, locks, eventPublisher)
	coordinator := service.NewCoordinator(db, locks, eventPublisher, cfg.Business.CommitRetryBudget)
	reporter := service.NewReporter(db, redisClient,
		cfg.Business.TrendingLimit,
		time.Duration(cfg.Business.DashboardCacheTTLSeconds)*time.Second)
	finder := service.NewFinder(registry, cfg.Business.DefaultTargetQuantity)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	progressConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicDeals, cfg.Kafka.ConsumerGroup)
	progressWorker := worker.NewProgressWorker(progressConsumer, redisClient)
	go func() {
		if err := progressWorker.Start(workerCtx); err != nil {
			log.Printf("Progress worker error: %v", err)
		}
	}()

	sourcingWorker := worker.NewSourcingWorker(finder,
		time.Duration(cfg.Business.SourcingIntervalSeconds)*time.Second)
	go func() {
		if err := sourcingWorker.Start(workerCtx); err != nil {
			log.Printf("Sourcing worker error: %v", err)
		}
	}()

	expiryWorker := worker.NewExpiryWorker(registry,
		time.Duration(cfg.Business.ExpirySweepSeconds)*time.Second)
	go func() {
		if err := expiryWorker.Start(workerCtx); err != nil {
			log.Printf("Expiry worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(coordinator, registry, reporter, finder)
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
	progressWorker.Stop()

	log.Println("Server exited")
}
