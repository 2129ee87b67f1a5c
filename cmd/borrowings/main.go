package main

import (
	bookshandler "bookloans/internal/books/handler"
	booksrepository "bookloans/internal/books/repository"
	booksservice "bookloans/internal/books/service"
	booksvalidator "bookloans/internal/books/validator"
	"bookloans/internal/borrowings/handler"
	"bookloans/internal/borrowings/repository"
	"bookloans/internal/borrowings/service"
	"bookloans/internal/borrowings/validator"
	"bookloans/internal/notifications/dispatcher"
	"bookloans/pkg/app"
	"bookloans/pkg/auth"
	"bookloans/pkg/config"
	mongotx "bookloans/pkg/db/mongo"
	"bookloans/pkg/kafka"
	kafka_config "bookloans/pkg/kafka/config"
	kafka_middleware "bookloans/pkg/kafka/middleware"
)

const ServiceName = "borrowings"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	if err := cfg.ValidateAuth(); err != nil {
		cfg.Log.Fatal("Invalid auth configuration", "error", err)
	}

	kafkaCfg := kafka_config.Load()
	if err := kafkaCfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	cfg.LogConfiguration()
	kafkaCfg.LogConfiguration(cfg.Log)

	cfg.SetMongo()
	if cfg.IdempotencyBackend == config.IdempotencyRedis {
		cfg.SetRedis()
	}

	cfg.Log.Info("Starting Borrowings service")

	producer := initProducer(cfg, kafkaCfg)
	notifier := dispatcher.New(producer, dispatcher.Config{
		QueueSize:      cfg.NotificationQueueSize,
		Workers:        cfg.NotificationWorkers,
		PublishTimeout: cfg.NotificationPublishTimeout,
	}, cfg.Log)

	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.Log)
	bookService, borrowingService := initServices(cfg, notifier)

	serverApp := app.NewApplication(cfg)
	serverApp.OnShutdown("notification dispatcher", func() error {
		notifier.Close()
		return nil
	})
	serverApp.OnShutdown("kafka producer", producer.Close)
	serverApp.SetApp(
		bookshandler.NewBookHandler(bookService, verifier, cfg.Log),
		handler.NewBorrowingHandler(borrowingService, verifier, cfg.Log),
	)
	serverApp.Run()
}

func initProducer(cfg *config.Config, kafkaCfg *kafka_config.Config) *kafka.Producer {
	producer, err := kafka.NewProducer(kafkaCfg, cfg.NotificationTopic, cfg.NotificationDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}

	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
	}

	cfg.Log.Info("Kafka producer initialized", "topic", producer.Topic())
	return producer
}

func initServices(cfg *config.Config, notifier service.Notifier) (booksservice.BookService, service.BorrowingService) {
	bookRepo := booksrepository.NewMongoBookRepository(cfg)
	bookService := booksservice.NewBookService(bookRepo, booksvalidator.NewBookValidator(), cfg)

	borrowingService := service.NewBorrowingService(
		repository.NewMongoBorrowingRepository(cfg),
		bookRepo,
		mongotx.NewTransactionManager(cfg.Client.Mongo),
		validator.NewBorrowingValidator(),
		notifier,
		cfg,
	)

	cfg.Log.Info("Book and borrowing services initialized", "database", cfg.MongoDatabaseName)
	return bookService, borrowingService
}
