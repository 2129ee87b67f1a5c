package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"
	EnvRateLimitBurst    = "RATE_LIMIT_BURST"

	EnvRequestTimeout     = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL     = "IDEMPOTENCY_TTL"
	EnvIdempotencyBackend = "IDEMPOTENCY_BACKEND"
	EnvMaxRequestSize     = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvJWTSecret = "JWT_SECRET"

	EnvNotificationTopic          = "NOTIFICATION_TOPIC"
	EnvNotificationDLQTopic       = "NOTIFICATION_DLQ_TOPIC"
	EnvNotificationGroupID        = "NOTIFICATION_GROUP_ID"
	EnvNotificationQueueSize      = "NOTIFICATION_QUEUE_SIZE"
	EnvNotificationWorkers        = "NOTIFICATION_WORKERS"
	EnvNotificationPublishTimeout = "NOTIFICATION_PUBLISH_TIMEOUT"

	EnvTelegramToken   = "TELEGRAM_TOKEN"
	EnvTelegramChatID  = "TELEGRAM_CHAT_ID"
	EnvTelegramAPIURL  = "TELEGRAM_API_URL"
	EnvTelegramTimeout = "TELEGRAM_TIMEOUT"

	EnvBookCacheSize = "BOOK_CACHE_SIZE"
	EnvBookCacheTTL  = "BOOK_CACHE_TTL"
)
