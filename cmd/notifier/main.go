package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"stayloft/internal/notify"
	"stayloft/pkg/client"
	"stayloft/pkg/config"
	"stayloft/pkg/kafka"
	kafka_config "stayloft/pkg/kafka/config"
	kafka_middleware "stayloft/pkg/kafka/middleware"
)

const ServiceName = "notifier"

// The notifier drains the email topic and forwards each rendered
// message to the mail relay. Failed deliveries surface as handler
// errors so the consumer's retry and DLQ machinery takes over.
func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)

	if cfg.MailRelayURL == "" {
		cfg.Log.Fatal("MAIL_RELAY_URL is required for the notifier")
	}

	forwarder := notify.NewRelayForwarder(client.NewHttpClient(cfg.MailRelayURL), cfg.Log)

	consumer, err := kafka.NewConsumer(
		kafka_config.Load(),
		cfg.NotificationsTopic,
		cfg.NotificationsGroupID,
		cfg.NotificationsDLQTopic,
		forwarder.Handle,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware())
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	consumerErrors := make(chan error, 1)
	go func() {
		cfg.Log.Info("Starting notification consumer",
			"topic", cfg.NotificationsTopic,
			"group", cfg.NotificationsGroupID,
			"relay", cfg.MailRelayURL,
		)
		consumerErrors <- consumer.Start(ctx)
	}()

	select {
	case err := <-consumerErrors:
		if err != nil {
			cfg.Log.Error("Consumer stopped with error", "error", err)
		}
	case sig := <-shutdown:
		cfg.Log.Info("Shutdown signal received", "signal", sig)
		cancel()
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	cfg.Log.Info("Notifier stopped")
}
