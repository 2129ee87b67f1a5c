package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	booksrepository "bookloans/internal/books/repository"
	borrowingsrepository "bookloans/internal/borrowings/repository"
	"bookloans/internal/notifications/handler"
	"bookloans/internal/notifications/telegram"
	"bookloans/pkg/config"
	"bookloans/pkg/kafka"
	kafka_config "bookloans/pkg/kafka/config"
	kafka_middleware "bookloans/pkg/kafka/middleware"
)

const ServiceName = "notifier"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	if err := cfg.ValidateTelegram(); err != nil {
		cfg.Log.Fatal("Invalid Telegram configuration", "error", err)
	}

	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	cfg.LogConfiguration()
	kafkaCfg.LogConfiguration(cfg.Log)

	cfg.SetMongo()

	notifications, err := handler.NewNotificationHandler(
		borrowingsrepository.NewMongoBorrowingRepository(cfg),
		booksrepository.NewMongoBookRepository(cfg),
		telegram.NewClient(telegram.Config{
			APIURL:  cfg.TelegramAPIURL,
			Token:   cfg.TelegramToken,
			ChatID:  cfg.TelegramChatID,
			Timeout: cfg.TelegramTimeout,
		}),
		cfg.BookCacheSize,
		cfg.BookCacheTTL,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create notification handler", "error", err)
	}

	consumer, err := kafka.NewConsumer(kafkaCfg, cfg.NotificationTopic, cfg.NotificationGroupID, cfg.NotificationDLQTopic, notifications.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting notifier", "topic", cfg.NotificationTopic, "group_id", cfg.NotificationGroupID)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Kafka consumer stopped", "error", err)
	}

	cfg.Log.Info("Starting graceful shutdown...")
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close Kafka consumer", "error", err)
	}
	cfg.GracefulShutdown()
	cfg.Log.Info("Notifier stopped")
}
