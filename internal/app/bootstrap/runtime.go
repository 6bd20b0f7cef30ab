// Package bootstrap wires shared runtime dependencies so the api and
// worker binaries build them the same way.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/oralflow/oralflow-api/internal/config"
	"github.com/oralflow/oralflow-api/internal/notify"
	"github.com/oralflow/oralflow-api/internal/storage"
	"github.com/oralflow/oralflow-api/internal/worker/reminders"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// BuildDatabase opens the pgx pool plus a database/sql handle over the
// same pool for the report queries.
func BuildDatabase(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, *sql.DB, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, nil, fmt.Errorf("bootstrap: DATABASE_URL is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("bootstrap: ping database: %w", err)
	}
	return pool, stdlib.OpenDBFromPool(pool), nil
}

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildObjectStore wires the S3-backed document store. With no bucket
// configured the store is still returned and no-ops every call.
func BuildObjectStore(awsCfg aws.Config, cfg *appconfig.Config, logger *logging.Logger) *storage.Store {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.AWSEndpointOverride != "" {
			o.UsePathStyle = true
		}
	})
	return storage.NewStore(client, s3.NewPresignClient(client), cfg.AttachmentsBucket, logger)
}

// BuildEmailSender picks the outbound email implementation from config.
func BuildEmailSender(awsCfg aws.Config, cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if cfg.SendGridAPIKey == "" {
			// NewSendGridSender returns a typed nil without a key; boxing
			// that into the interface would panic on the first send.
			logger.Warn("sendgrid selected but SENDGRID_API_KEY is empty; emails disabled")
			return notify.NewStubEmailSender(logger)
		}
		return notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
	case "ses":
		return notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger)
	default:
		return notify.NewStubEmailSender(logger)
	}
}

// BuildReminderQueue returns the SQS-backed reminder queue, or an
// in-process queue when no queue URL is configured.
func BuildReminderQueue(awsCfg aws.Config, cfg *appconfig.Config) reminders.Queue {
	if strings.TrimSpace(cfg.ReminderQueueURL) == "" {
		return reminders.NewMemoryQueue(256)
	}
	return reminders.NewSQSQueue(sqs.NewFromConfig(awsCfg), cfg.ReminderQueueURL)
}
