package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-service/config"
	"marketplace-service/internal/api"
	"marketplace-service/internal/broker"
	"marketplace-service/internal/geo"
	"marketplace-service/internal/redisclient"
	"marketplace-service/internal/service"
	"marketplace-service/internal/session"
	"marketplace-service/internal/store"
	"marketplace-service/internal/util"
	"marketplace-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting marketplace service")

	tp, err := util.InitTracer("marketplace-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	if err := db.EnsureSchema(context.Background()); err != nil {
		logger.Fatal("Failed to ensure schema", zap.Error(err))
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicReservations)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicReservations))

	eventPublisher := broker.NewEventPublisher(producer)

	var geocoder geo.ReverseGeocoder
	if cfg.Geo.MapsAPIKey != "" {
		maps, err := geo.NewMapsGeocoder(cfg.Geo.MapsAPIKey)
		if err != nil {
			logger.Warn("Reverse geocoding disabled", zap.Error(err))
		} else {
			geocoder = maps
		}
	}

	locator := geo.NewLocator(geocoder, cfg.Geo.GeolocationTimeout)
	storeLocator := service.NewStoreLocator(db, locator, cfg.Geo.NearbyLimit)
	reservationService := service.NewReservationService(
		db,
		redisClient,
		eventPublisher,
		cfg.Reservation.Window,
		service.WithIdempotencyTTL(cfg.Reservation.IdempotencyTTL),
	)
	adminBoard := service.NewAdminBoard(reservationService)

	verifier, err := newTokenVerifier(cfg.Auth)
	if err != nil {
		logger.Fatal("Failed to configure identity token verification", zap.Error(err))
	}
	sessions := session.NewManager(verifier, session.WithTTL(cfg.Auth.SessionTTL))
	sessions.Subscribe(func(e session.Event) {
		logger.Debug("Session event",
			zap.String("kind", string(e.Kind)),
			zap.String("user_id", e.Session.Identity.UserID))
	})

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	auditConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicReservations, cfg.Kafka.ConsumerGroup)
	auditWorker := worker.NewAuditWorker(auditConsumer, db)
	go func() {
		if err := auditWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Audit worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(storeLocator, reservationService, adminBoard, db, sessions)
	handler.AddReadinessCheck("postgres", db.Ping)
	handler.AddReadinessCheck("redis", redisClient.Ping)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	var metricsSrv *http.Server
	if cfg.Observ.PrometheusPort != "" && cfg.Observ.PrometheusPort != cfg.Server.Port {
		metricsSrv = api.NewMetricsServer(fmt.Sprintf(":%s", cfg.Observ.PrometheusPort))
		go func() {
			logger.Info("Starting metrics server", zap.String("port", cfg.Observ.PrometheusPort))
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics server error", zap.Error(err))
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server forced to shutdown", zap.Error(err))
		}
	}

	workerCancel()
	if err := auditWorker.Stop(); err != nil {
		logger.Warn("Error stopping audit worker", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newTokenVerifier(cfg config.AuthConfig) (session.TokenVerifier, error) {
	switch {
	case cfg.FirebaseCredentialsFile != "":
		return session.NewFirebaseVerifier(context.Background(), cfg.FirebaseCredentialsFile)
	case cfg.JWTSecret != "":
		return session.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer), nil
	default:
		return nil, errors.New("set FIREBASE_CREDENTIALS_FILE or AUTH_JWT_SECRET")
	}
}
