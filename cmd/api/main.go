package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oralflow/oralflow-api/cmd/mainconfig"
	"github.com/oralflow/oralflow-api/internal/api/router"
	"github.com/oralflow/oralflow-api/internal/app/bootstrap"
	"github.com/oralflow/oralflow-api/internal/appointments"
	appconfig "github.com/oralflow/oralflow-api/internal/config"
	"github.com/oralflow/oralflow-api/internal/dentists"
	"github.com/oralflow/oralflow-api/internal/observability/metrics"
	"github.com/oralflow/oralflow-api/internal/patients"
	"github.com/oralflow/oralflow-api/internal/payments"
	"github.com/oralflow/oralflow-api/internal/records"
	"github.com/oralflow/oralflow-api/internal/reports"
	"github.com/oralflow/oralflow-api/internal/settings"
	"github.com/oralflow/oralflow-api/internal/users"
	"github.com/oralflow/oralflow-api/internal/worker/autocancel"
	"github.com/oralflow/oralflow-api/internal/worker/reminders"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting oralflow API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	pool, sqlDB, err := bootstrap.BuildDatabase(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	docStore := bootstrap.BuildObjectStore(awsCfg, cfg, logger)
	mailer := bootstrap.BuildEmailSender(awsCfg, cfg, logger)
	metricsHandler, clinicMetrics := setupMetrics()

	// Repositories, services and handlers per domain
	usersRepo := users.NewPostgresRepository(pool)
	usersSvc := users.NewService(usersRepo, rdb, mailer, users.AuthConfig{
		JWTSecret:       cfg.JWTSecret,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
		ResetTokenTTL:   cfg.ResetTokenTTL,
		PublicBaseURL:   cfg.PublicBaseURL,
	}, logger)

	patientsRepo := patients.NewPostgresRepository(pool)
	patientsSvc := patients.NewService(usersSvc, usersRepo, patientsRepo, logger)

	dentistsRepo := dentists.NewPostgresRepository(pool)
	dentistsSvc := dentists.NewService(usersSvc, dentistsRepo, logger)

	settingsStore := settings.NewStore(pool, rdb, logger)

	apptRepo := appointments.NewPostgresRepository(pool)
	apptSvc := appointments.NewService(apptRepo, dentistsRepo, settingsStore, patientsSvc, mailer, logger).
		WithMetrics(clinicMetrics)

	recordsRepo := records.NewPostgresRepository(pool)
	recordsSvc := records.NewService(recordsRepo, apptRepo, docStore, logger)

	paymentsRepo := payments.NewPostgresRepository(pool)
	paymentsSvc := payments.NewService(paymentsRepo, apptRepo, docStore)

	reportsSvc := reports.NewService(sqlDB, rdb, cfg.ReportCacheTTL, logger)

	// Setup router
	routerCfg := &router.Config{
		Logger:              logger,
		JWTSecret:           cfg.JWTSecret,
		UsersHandler:        users.NewHandler(usersSvc, usersRepo, logger),
		PatientsHandler:     patients.NewHandler(patientsSvc, patientsRepo, logger),
		DentistsHandler:     dentists.NewHandler(dentistsSvc, dentistsRepo, logger),
		AppointmentsHandler: appointments.NewHandler(apptSvc, apptRepo, patientsRepo, dentistsRepo, logger),
		RecordsHandler:      records.NewHandler(recordsSvc, patientsRepo, dentistsRepo, logger),
		PaymentsHandler:     payments.NewHandler(paymentsSvc, docStore, logger),
		SettingsHandler:     settings.NewHandler(settingsStore, logger),
		ReportsHandler:      reports.NewHandler(reportsSvc, logger),
		MetricsHandler:      metricsHandler,
		Metrics:             clinicMetrics,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
	}
	r := router.New(routerCfg)

	// With no SQS queue configured the reminder pipeline and the
	// auto-release sweep run inside this process.
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	if cfg.ReminderQueueURL == "" {
		queue := bootstrap.BuildReminderQueue(awsCfg, cfg)
		scanner := reminders.NewScanner(apptRepo, settingsStore, queue, logger).
			WithInterval(cfg.ReminderInterval)
		consumer := reminders.NewConsumer(apptRepo, patientsSvc, mailer, queue, logger).
			WithMetrics(clinicMetrics)
		sweeper := autocancel.New(apptRepo, apptSvc, settingsStore, logger).
			WithInterval(cfg.AutoCancelInterval)
		go scanner.Run(workerCtx)
		go consumer.Run(workerCtx)
		go sweeper.Run(workerCtx)
		logger.Info("in-process reminder and auto-release workers started")
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stopWorkers()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a private registry so repeated startups in tests
// do not collide on the default registerer.
func setupMetrics() (http.Handler, *metrics.ClinicMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewClinicMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}
