package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"bookloans/pkg/client"
	"bookloans/pkg/logger"
)

var (
	mongoURIRegex      = regexp.MustCompile(`^mongodb(\+srv)?://`)
	mongoCredentialRex = regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitBurst    int

	RequestTimeout     time.Duration
	IdempotencyTTL     time.Duration
	IdempotencyBackend string
	MaxRequestSize     int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string

	NotificationTopic          string
	NotificationDLQTopic       string
	NotificationGroupID        string
	NotificationQueueSize      int
	NotificationWorkers        int
	NotificationPublishTimeout time.Duration

	TelegramToken   string
	TelegramChatID  string
	TelegramAPIURL  string
	TelegramTimeout time.Duration

	BookCacheSize int
	BookCacheTTL  time.Duration

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	return &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		RateLimitBurst:    getEnvNum(EnvRateLimitBurst, DefaultRateLimitBurst),

		RequestTimeout:     getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL:     getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		IdempotencyBackend: getEnvStr(EnvIdempotencyBackend, DefaultIdempotencyBackend),
		MaxRequestSize:     getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		NotificationTopic:          getEnvStr(EnvNotificationTopic, DefaultNotificationTopic),
		NotificationDLQTopic:       getEnvStr(EnvNotificationDLQTopic, DefaultNotificationDLQTopic),
		NotificationGroupID:        getEnvStr(EnvNotificationGroupID, DefaultNotificationGroupID),
		NotificationQueueSize:      getEnvNum(EnvNotificationQueueSize, DefaultNotificationQueueSize),
		NotificationWorkers:        getEnvNum(EnvNotificationWorkers, DefaultNotificationWorkers),
		NotificationPublishTimeout: getEnvDuration(EnvNotificationPublishTimeout, DefaultNotificationPublishTimeout),

		TelegramToken:   getEnvStr(EnvTelegramToken, ""),
		TelegramChatID:  getEnvStr(EnvTelegramChatID, ""),
		TelegramAPIURL:  getEnvStr(EnvTelegramAPIURL, DefaultTelegramAPIURL),
		TelegramTimeout: getEnvDuration(EnvTelegramTimeout, DefaultTelegramTimeout),

		BookCacheSize: getEnvNum(EnvBookCacheSize, DefaultBookCacheSize),
		BookCacheTTL:  getEnvDuration(EnvBookCacheTTL, DefaultBookCacheTTL),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

// Validate checks the settings every binary shares. Service specific secrets
// are checked by ValidateAuth and ValidateTelegram.
func (cfg *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errs = append(errs, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !mongoURIRegex.MatchString(cfg.MongoURI) {
		errs = append(errs, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errs = append(errs, "MongoDatabaseName cannot be empty")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"NotificationPublishTimeout", cfg.NotificationPublishTimeout},
		{"TelegramTimeout", cfg.TelegramTimeout},
		{"BookCacheTTL", cfg.BookCacheTTL},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	numbers := []struct {
		name  string
		value int
	}{
		{"RateLimitRequests", cfg.RateLimitRequests},
		{"RateLimitBurst", cfg.RateLimitBurst},
		{"MaxRequestSize", cfg.MaxRequestSize},
		{"NotificationQueueSize", cfg.NotificationQueueSize},
		{"NotificationWorkers", cfg.NotificationWorkers},
		{"BookCacheSize", cfg.BookCacheSize},
	}
	for _, n := range numbers {
		if n.value <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be positive, got: %d", n.name, n.value))
		}
	}

	switch cfg.IdempotencyBackend {
	case IdempotencyMemory:
	case IdempotencyRedis:
		if cfg.RedisAddr == "" {
			errs = append(errs, "RedisAddr cannot be empty when IdempotencyBackend is redis")
		}
	default:
		errs = append(errs, fmt.Sprintf("IdempotencyBackend must be one of [memory, redis], got: %s", cfg.IdempotencyBackend))
	}

	if cfg.NotificationTopic == "" {
		errs = append(errs, "NotificationTopic cannot be empty")
	}

	return joinErrors(errs)
}

func (cfg *Config) ValidateAuth() error {
	if len(cfg.JWTSecret) < 32 {
		return fmt.Errorf("JWTSecret must be at least 32 characters, got %d", len(cfg.JWTSecret))
	}
	return nil
}

func (cfg *Config) ValidateTelegram() error {
	var errs []string
	if cfg.TelegramToken == "" {
		errs = append(errs, "TelegramToken cannot be empty")
	}
	if cfg.TelegramChatID == "" {
		errs = append(errs, "TelegramChatID cannot be empty")
	}
	if cfg.NotificationGroupID == "" {
		errs = append(errs, "NotificationGroupID cannot be empty")
	}
	return joinErrors(errs)
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"rate_limit_burst", cfg.RateLimitBurst,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"idempotency_backend", cfg.IdempotencyBackend,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"redis_addr", cfg.RedisAddr,
		"redis_password_set", cfg.RedisPassword != "",
		"jwt_secret_set", cfg.JWTSecret != "",
		"notification_topic", cfg.NotificationTopic,
		"notification_dlq_topic", cfg.NotificationDLQTopic,
		"notification_queue_size", cfg.NotificationQueueSize,
		"notification_workers", cfg.NotificationWorkers,
		"telegram_token_set", cfg.TelegramToken != "",
		"telegram_chat_id", cfg.TelegramChatID,
		"book_cache_size", cfg.BookCacheSize,
		"book_cache_ttl", cfg.BookCacheTTL,
	)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log, cfg.ShutdownTimeout)
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	errMsg := "Configuration validation failed:\n"
	for i, err := range errs {
		errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
	}
	return fmt.Errorf("%s", errMsg)
}

func redactMongoURI(uri string) string {
	return mongoCredentialRex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
