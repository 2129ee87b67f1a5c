package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	borrowingsrepository "bookloans/internal/borrowings/repository"
	"bookloans/internal/notifications/overdue"
	"bookloans/pkg/config"
	"bookloans/pkg/kafka"
	kafka_config "bookloans/pkg/kafka/config"
)

const ServiceName = "overdue"

// Runs one scan and exits; schedule it daily with cron or a Kubernetes CronJob.
func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	if err := run(cfg, kafkaCfg); err != nil {
		cfg.Log.Fatal("Overdue scan failed", "error", err)
	}
}

func run(cfg *config.Config, kafkaCfg *kafka_config.Config) error {
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	producer, err := kafka.NewProducer(kafkaCfg, cfg.NotificationTopic, "", cfg.Log)
	if err != nil {
		return err
	}
	defer func() {
		if err := producer.Close(); err != nil {
			cfg.Log.Error("Failed to close Kafka producer", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner := overdue.NewScanner(borrowingsrepository.NewMongoBorrowingRepository(cfg), producer, cfg.Log)
	summary, err := scanner.Run(ctx)
	if err != nil {
		return err
	}

	cfg.Log.Info(summary)
	return nil
}
