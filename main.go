package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/streadway/amqp"

	"storefront/internal/app"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logging"
	"storefront/internal/notify"
	"storefront/pkg/kafka"
	"storefront/pkg/metrics"
	"storefront/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	db, err := database.Open(ctx, cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(db); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// --- Notifications ---
	renderer, err := notify.NewRenderer()
	if err != nil {
		logger.Error("email templates invalid", "error", err)
		os.Exit(1)
	}
	var mailer notify.Mailer = notify.NewLogMailer(logger)
	if cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	}
	sender := notify.NewSender(renderer, mailer, cfg.MailFrom, cfg.MailCC)
	worker := notify.NewWorker(sender, logger)

	queue, closeQueue := startQueue(ctx, cfg, worker, logger)
	defer closeQueue()
	dispatcher := notify.New(queue != nil, queue, sender)

	// --- HTTP ---
	application := app.New(app.Deps{
		Config:   cfg,
		Logger:   logger,
		DB:       db,
		Cache:    cache.NewMemoryStore(cfg.CacheProductsTTL, 10*time.Minute),
		Notifier: dispatcher,
		Metrics:  metrics.NewServerMetrics("storefront"),
	})

	go func() {
		logger.Info("starting server", "addr", cfg.AppPort, "notify_backend", cfg.NotifyBackend)
		if err := application.Listen(cfg.AppPort); err != nil {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	logger.Info("shutting down server")
	if err := application.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("error during fiber shutdown", "error", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info("server gracefully stopped")
}

// startQueue connects the configured notification queue and starts its consumer. A nil
// Queue means emails are sent in-request, either by configuration or because the broker
// is unreachable at startup.
func startQueue(ctx context.Context, cfg *config.Config, worker *notify.Worker, logger *slog.Logger) (notify.Queue, func()) {
	noop := func() {}

	switch cfg.NotifyBackend {
	case config.NotifyRabbitMQ:
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Queue: cfg.RabbitMQQueue, Logger: logger})
		if err != nil {
			logger.Error("rabbitmq unavailable, sending email synchronously", "error", err)
			return nil, noop
		}
		err = client.Consume(func(msg amqp.Delivery) error {
			return worker.Handle(ctx, msg.Body)
		})
		if err != nil {
			logger.Error("rabbitmq consumer not started", "error", err)
		}
		return notify.NewRabbitQueue(client), func() {
			if err := client.Close(); err != nil {
				logger.Error("rabbitmq close failed", "error", err)
			}
		}

	case config.NotifyKafka:
		client := kafka.NewClient(cfg.KafkaBrokers)
		if !client.Enabled() {
			logger.Error("no kafka brokers configured, sending email synchronously")
			return nil, noop
		}
		writer := client.NewWriter(cfg.KafkaTopic)
		reader := client.NewReader(cfg.KafkaTopic, cfg.KafkaGroupID)
		go func() {
			if err := worker.RunKafka(ctx, reader); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("kafka consumer stopped", "error", err)
			}
		}()
		return notify.NewKafkaQueue(writer), func() {
			writer.Close()
			reader.Close()
		}
	}
	return nil, noop
}
