package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oralflow/oralflow-api/cmd/mainconfig"
	"github.com/oralflow/oralflow-api/internal/app/bootstrap"
	"github.com/oralflow/oralflow-api/internal/appointments"
	appconfig "github.com/oralflow/oralflow-api/internal/config"
	"github.com/oralflow/oralflow-api/internal/dentists"
	"github.com/oralflow/oralflow-api/internal/patients"
	"github.com/oralflow/oralflow-api/internal/settings"
	"github.com/oralflow/oralflow-api/internal/users"
	"github.com/oralflow/oralflow-api/internal/worker/autocancel"
	"github.com/oralflow/oralflow-api/internal/worker/reminders"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.ReminderQueueURL == "" {
		logger.Error("reminder worker requires REMINDER_QUEUE_URL")
		os.Exit(1)
	}

	pool, _, err := bootstrap.BuildDatabase(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := bootstrap.BuildRedisClient(ctx, cfg, logger, true)

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	mailer := bootstrap.BuildEmailSender(awsCfg, cfg, logger)
	queue := bootstrap.BuildReminderQueue(awsCfg, cfg)

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
	settingsStore := settings.NewStore(pool, rdb, logger)

	apptRepo := appointments.NewPostgresRepository(pool)
	apptSvc := appointments.NewService(apptRepo, dentistsRepo, settingsStore, patientsSvc, mailer, logger)

	scanner := reminders.NewScanner(apptRepo, settingsStore, queue, logger).
		WithInterval(cfg.ReminderInterval)
	consumer := reminders.NewConsumer(apptRepo, patientsSvc, mailer, queue, logger)
	sweeper := autocancel.New(apptRepo, apptSvc, settingsStore, logger).
		WithInterval(cfg.AutoCancelInterval)

	go scanner.Run(ctx)
	go consumer.Run(ctx)
	go sweeper.Run(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("reminder worker shutting down")
	cancel()
	time.Sleep(2 * time.Second)
}
