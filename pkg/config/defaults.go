package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "bookloans"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute
	DefaultRateLimitBurst    = 10

	DefaultRequestTimeout     = 30 * time.Second
	DefaultIdempotencyTTL     = 24 * time.Hour
	DefaultIdempotencyBackend = IdempotencyMemory
	DefaultMaxRequestSize     = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultNotificationTopic          = "library-notifications"
	DefaultNotificationDLQTopic       = "dlq-library-notifications"
	DefaultNotificationGroupID        = "library-notifier"
	DefaultNotificationQueueSize      = 256
	DefaultNotificationWorkers        = 2
	DefaultNotificationPublishTimeout = 5 * time.Second

	DefaultTelegramAPIURL  = "https://api.telegram.org"
	DefaultTelegramTimeout = 10 * time.Second

	DefaultBookCacheSize = 512
	DefaultBookCacheTTL  = 10 * time.Minute

	DefaultPaginationLimit = 100
)

const (
	IdempotencyMemory = "memory"
	IdempotencyRedis  = "redis"
)
