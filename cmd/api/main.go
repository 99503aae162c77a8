package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	_ "time/tzdata"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/email"
	appointmentHandler "github.com/jwalitptl/clinic-api/internal/handler/appointment"
	authHandler "github.com/jwalitptl/clinic-api/internal/handler/auth"
	"github.com/jwalitptl/clinic-api/internal/handler/health"
	notificationHandler "github.com/jwalitptl/clinic-api/internal/handler/notification"
	patientHandler "github.com/jwalitptl/clinic-api/internal/handler/patient"
	prescriptionHandler "github.com/jwalitptl/clinic-api/internal/handler/prescription"
	promhandler "github.com/jwalitptl/clinic-api/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/internal/router"
	appointmentService "github.com/jwalitptl/clinic-api/internal/service/appointment"
	authService "github.com/jwalitptl/clinic-api/internal/service/auth"
	"github.com/jwalitptl/clinic-api/internal/service/availability"
	eventService "github.com/jwalitptl/clinic-api/internal/service/event"
	notificationService "github.com/jwalitptl/clinic-api/internal/service/notification"
	patientService "github.com/jwalitptl/clinic-api/internal/service/patient"
	prescriptionService "github.com/jwalitptl/clinic-api/internal/service/prescription"
	userService "github.com/jwalitptl/clinic-api/internal/service/user"
	"github.com/jwalitptl/clinic-api/internal/sms"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
	redisbroker "github.com/jwalitptl/clinic-api/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-api/pkg/metrics"
	"github.com/jwalitptl/clinic-api/pkg/otpstore"
	"github.com/jwalitptl/clinic-api/pkg/security"
	"github.com/jwalitptl/clinic-api/pkg/worker"
)

const metricsNamespace = "clinic"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Log.Pretty,
	})
	log.Logger = appLogger.Zerolog()

	loc, err := cfg.Location()
	if err != nil {
		appLogger.Fatal(err, "invalid scheduling time zone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	rdb := connectRedis(ctx, cfg, appLogger)
	if rdb != nil {
		defer rdb.Close()
	}

	prom := promhandler.New(metricsNamespace)
	appMetrics := metrics.NewMetrics(metricsNamespace, prom.Registry())

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	events := eventService.NewEventService(outboxRepo, appLogger)

	var store otpstore.Store
	if cfg.OTP.Store == "redis" {
		store = otpstore.NewRedisStore(rdb, "clinic:")
	} else {
		store = otpstore.NewMemoryStore(time.Minute)
	}

	authSvc := authService.NewService(
		userRepo,
		store,
		security.NewBcryptHasher(cfg.OTP.BcryptCost),
		auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry),
		sms.NewLogSender(appLogger),
		email.NewService(cfg.SMTP, appLogger),
		authService.Config{
			TTL:          cfg.OTP.TTL,
			MaxAttempts:  cfg.OTP.MaxAttempts,
			DoctorPhone:  cfg.Auth.DoctorPhone,
			LeadsToEmail: cfg.Auth.LeadsToEmail,
		},
		appLogger,
		appMetrics,
	)
	doctorSvc := userService.NewService(userRepo, appLogger)
	patientSvc := patientService.NewService(userRepo, appLogger)
	resolver := availability.NewResolver(userRepo, appointmentRepo, loc, appLogger,
		availability.WithMetrics(appMetrics))
	appointmentSvc := appointmentService.NewService(appointmentRepo, userRepo, resolver, events, appLogger, appMetrics)
	prescriptionSvc := prescriptionService.NewService(prescriptionRepo, userRepo, events, appLogger)

	var whatsapp notificationService.WhatsAppSender
	if cfg.WhatsApp.AccountSID != "" && cfg.WhatsApp.AuthToken != "" {
		whatsapp = notificationService.NewTwilioSender(cfg.WhatsApp.AccountSID, cfg.WhatsApp.AuthToken, appLogger)
	}
	reminderSvc := notificationService.NewService(appointmentRepo, whatsapp, cfg.WhatsApp, loc, events, appLogger, appMetrics)

	// HTTP
	authMiddleware := middleware.NewAuthMiddleware(authSvc)
	otpLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:      perMinute(cfg.RateLimit.OTPPerMinute),
		Burst:     cfg.RateLimit.OTPBurst,
		ClientTTL: cfg.RateLimit.ClientTTL,
	})

	r := router.NewRouter(
		router.RouterConfig{
			Mode:         cfg.Server.Mode,
			Timeout:      time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			CORSConfig:   middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins),
			RateLimit:    rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:    cfg.RateLimit.Burst,
			ClientTTL:    cfg.RateLimit.ClientTTL,
		},
		prom,
		health.NewHandler(db, rdb, prom.HTTPHandler()),
		authHandler.NewHandler(authSvc, doctorSvc, authMiddleware, otpLimiter.RateLimit()),
		appointmentHandler.NewHandler(appointmentSvc, authMiddleware),
		patientHandler.NewHandler(patientSvc, authMiddleware),
		prescriptionHandler.NewHandler(prescriptionSvc, authMiddleware),
		notificationHandler.NewHandler(reminderSvc, authMiddleware),
	)
	r.Setup()

	if cfg.Outbox.Inline {
		broker := redisbroker.NewRedisBroker(rdb, appLogger)
		processor := worker.NewOutboxProcessor(outboxRepo, broker, cfg.Outbox.ToWorkerConfig(), appLogger, appMetrics)
		go processor.Start(ctx)
		appLogger.Info("outbox processor running in-process")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("server listening", "port", cfg.Server.Port, "origins", cfg.CORS.AllowedOrigins)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	appLogger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "server forced to shutdown")
	}
	appLogger.Info("server exited")
}

// connectRedis returns nil when Redis is not configured. It is fatal when a
// component that needs Redis is enabled and the server cannot be reached.
func connectRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *goredis.Client {
	required := cfg.OTP.Store == "redis" || cfg.Outbox.Inline
	if cfg.Redis.URL == "" {
		if required {
			log.Fatal(errors.New("redis.url is empty"), "redis is required by the configuration")
		}
		return nil
	}

	client, err := redisbroker.NewClient(ctx, cfg.Redis.ToBrokerConfig())
	if err != nil {
		if required {
			log.Fatal(err, "failed to connect to Redis")
		}
		log.Warn("redis unavailable, continuing without it", "error", err.Error())
		return nil
	}
	return client
}

func perMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}
