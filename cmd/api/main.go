package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/scheduler-api/internal/allowance"
	"github.com/jwalitptl/scheduler-api/internal/config"
	appointmentHandler "github.com/jwalitptl/scheduler-api/internal/handler/appointment"
	clinicianHandler "github.com/jwalitptl/scheduler-api/internal/handler/clinician"
	healthHandler "github.com/jwalitptl/scheduler-api/internal/handler/health"
	scheduleHandler "github.com/jwalitptl/scheduler-api/internal/handler/schedule"
	"github.com/jwalitptl/scheduler-api/internal/middleware"
	"github.com/jwalitptl/scheduler-api/internal/repository/postgres"
	"github.com/jwalitptl/scheduler-api/internal/router"
	appointmentService "github.com/jwalitptl/scheduler-api/internal/service/appointment"
	scheduleService "github.com/jwalitptl/scheduler-api/internal/service/schedule"
	"github.com/jwalitptl/scheduler-api/pkg/auth"
	"github.com/jwalitptl/scheduler-api/pkg/clock"
	"github.com/jwalitptl/scheduler-api/pkg/lock"
	"github.com/jwalitptl/scheduler-api/pkg/messaging/redis"
	"github.com/jwalitptl/scheduler-api/pkg/metrics"
)

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	appointmentRepo := postgres.NewAppointmentRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)
	clinicianRepo := postgres.NewClinicianRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	allowanceRepo := postgres.NewAllowanceRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	m := metrics.NewMetrics(cfg.Monitoring.MetricsNamespace)
	ledger := allowance.NewLedger(patientRepo, allowanceRepo, clock.System(), log.Logger)
	locker := lock.NewRedisLocker(broker.Client(), cfg.Booking.LockTTL)

	appointmentSvc := appointmentService.NewService(
		appointmentRepo, scheduleRepo, clinicianRepo, outboxRepo, ledger, locker, m, log.Logger)
	scheduleSvc := scheduleService.NewService(scheduleRepo, appointmentRepo, log.Logger)

	r := router.NewRouter(router.Config{
		RequestTimeout:   cfg.Server.RequestTimeout,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:        cfg.RateLimit.Burst,
		CORS:             corsConfig(cfg),
		MetricsEnabled:   cfg.Monitoring.MetricsEnabled,
		MetricsPath:      cfg.Monitoring.MetricsPath,
		MetricsNamespace: cfg.Monitoring.MetricsNamespace,
		TokenValidator:   auth.NewHMACValidator(cfg.JWT.Secret),
	}, log.Logger)

	r.Setup(
		healthHandler.NewHandler(db, broker.Client()),
		appointmentHandler.NewHandler(appointmentSvc),
		clinicianHandler.NewHandler(clinicianRepo),
		scheduleHandler.NewHandler(scheduleSvc, appointmentSvc),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

func corsConfig(cfg *config.Config) middleware.CORSConfig {
	cc := middleware.DefaultCORSConfig()
	if len(cfg.CORS.AllowedOrigins) > 0 {
		cc.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	if len(cfg.CORS.AllowedMethods) > 0 {
		cc.AllowMethods = cfg.CORS.AllowedMethods
	}
	if len(cfg.CORS.AllowedHeaders) > 0 {
		cc.AllowHeaders = cfg.CORS.AllowedHeaders
	}
	return cc
}
