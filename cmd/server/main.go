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

	"github.com/ferramentastecnologia/rosamexicano-reservas/config"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/api"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/broker"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/gateway"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/redisclient"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/service"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/store"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/tables"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/util"
	"github.com/ferramentastecnologia/rosamexicano-reservas/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting reservation service")

	tp, err := util.InitTracer("reservas-service", cfg.Observ.JaegerEndpoint)
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

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicReservation)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	catalog := tables.Default()
	gatewayClient := gateway.NewClient(cfg.Gateway)

	availabilityService := service.NewAvailabilityService(db, catalog, cfg.Business)
	voucherService := service.NewVoucherService(db, cfg.Business)
	authService := service.NewAuthService(db, cfg.Auth)
	reservationService := service.NewReservationService(
		db, gatewayClient, eventPublisher, redisClient,
		availabilityService, voucherService, catalog, cfg.Business)
	notificationService := service.NewNotificationService()

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	sweepWorker := worker.NewSweepWorker(reservationService, cfg.Business.SweepInterval)
	go func() {
		if err := sweepWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Sweep worker error: %v", err)
		}
	}()

	notificationConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicReservation, cfg.Kafka.ConsumerGroup)
	notificationWorker := worker.NewNotificationWorker(notificationConsumer, notificationService)
	go func() {
		if err := notificationWorker.Start(workerCtx); err != nil && err != context.Canceled {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(
		reservationService, availabilityService, voucherService, authService,
		gatewayClient, redisClient, cfg)
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
	notificationWorker.Stop()

	log.Println("Server exited")
}
