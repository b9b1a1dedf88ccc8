package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/swiftdrop/driver-backend/api/routes"
	"github.com/swiftdrop/driver-backend/internal/auth"
	"github.com/swiftdrop/driver-backend/internal/deliveries"
	"github.com/swiftdrop/driver-backend/internal/drivers"
	"github.com/swiftdrop/driver-backend/internal/earnings"
	"github.com/swiftdrop/driver-backend/internal/locations"
	"github.com/swiftdrop/driver-backend/internal/notifications"
	"github.com/swiftdrop/driver-backend/internal/proofs"
	"github.com/swiftdrop/driver-backend/pkg/auth/session"
	"github.com/swiftdrop/driver-backend/pkg/config"
	"github.com/swiftdrop/driver-backend/pkg/db"
	"github.com/swiftdrop/driver-backend/pkg/enums"
	"github.com/swiftdrop/driver-backend/pkg/events"
	"github.com/swiftdrop/driver-backend/pkg/logger"
	"github.com/swiftdrop/driver-backend/pkg/metrics"
	"github.com/swiftdrop/driver-backend/pkg/migrate"
	"github.com/swiftdrop/driver-backend/pkg/pubsub"
	"github.com/swiftdrop/driver-backend/pkg/redis"
	"github.com/swiftdrop/driver-backend/pkg/storage/gcs"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap cloud storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing cloud storage", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	driversRepo := drivers.NewRepository(dbClient.DB())
	deliveryPublisher := events.NewPublisher(pubsubClient.DeliveryPublisher(), logg)
	notificationPublisher := events.NewPublisher(pubsubClient.NotificationPublisher(), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		DriverRepo:     driversRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		TxRunner:       dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	passwordResetService, err := auth.NewPasswordResetService(auth.PasswordResetServiceParams{
		DriverRepo:     driversRepo,
		TokenStore:     redisClient,
		Publisher:      notificationPublisher,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create password reset service", err)
		os.Exit(1)
	}

	driversService, err := drivers.NewService(driversRepo, notificationPublisher)
	if err != nil {
		logg.Error(context.Background(), "failed to create drivers service", err)
		os.Exit(1)
	}

	earningsService, err := earnings.NewService(earnings.NewRepository(dbClient.DB()), enums.Currency(cfg.Earnings.Currency))
	if err != nil {
		logg.Error(context.Background(), "failed to create earnings service", err)
		os.Exit(1)
	}

	deliveriesService, err := deliveries.NewService(
		deliveries.NewRepository(dbClient.DB()),
		dbClient,
		earningsService,
		driversRepo,
		deliveryPublisher,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create deliveries service", err)
		os.Exit(1)
	}

	trackingMetrics := metrics.NewTrackingMetrics(prometheus.DefaultRegisterer)
	locationsService, err := locations.NewService(locations.NewRepository(dbClient.DB()), driversRepo, trackingMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create locations service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	proofsService, err := proofs.NewService(
		gcsClient.BucketHandle(cfg.GCS.ProofBucket),
		gcsClient.BucketHandle(cfg.GCS.ProfileBucket),
		cfg.GCS,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create proofs service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			GCS:           gcsClient,
			Sessions:      sessionManager,
			Auth:          authService,
			Register:      registerService,
			PasswordReset: passwordResetService,
			Drivers:       driversService,
			Deliveries:    deliveriesService,
			Earnings:      earningsService,
			Locations:     locationsService,
			Notifications: notificationsService,
			Proofs:        proofsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
