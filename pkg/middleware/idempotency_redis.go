package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"bookloans/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const redisIdempotencyPrefix = "idempotency:"

// RedisIdempotencyStore shares cached responses across API replicas. Expiry
// is left to Redis.
type RedisIdempotencyStore struct {
	client  *redis.Client
	ttl     time.Duration
	timeout time.Duration
	log     *logger.Logger
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client:  client,
		ttl:     ttl,
		timeout: 2 * time.Second,
		log:     log,
	}
}

type redisCachedResponse struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (s *RedisIdempotencyStore) Get(key string) (*CachedResponse, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	raw, err := s.client.Get(ctx, redisIdempotencyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Error("failed to read idempotency key", "error", err)
		}
		return nil, false
	}

	var cached redisCachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.log.Error("failed to decode cached response", "error", err)
		return nil, false
	}

	return &CachedResponse{
		StatusCode: cached.StatusCode,
		Headers:    cached.Headers,
		Body:       cached.Body,
		CreatedAt:  cached.CreatedAt,
	}, true
}

func (s *RedisIdempotencyStore) Set(key string, response *CachedResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	response.CreatedAt = time.Now()
	raw, err := json.Marshal(redisCachedResponse{
		StatusCode: response.StatusCode,
		Headers:    response.Headers,
		Body:       response.Body,
		CreatedAt:  response.CreatedAt,
	})
	if err != nil {
		s.log.Error("failed to encode cached response", "error", err)
		return
	}

	if err := s.client.Set(ctx, redisIdempotencyPrefix+key, raw, s.ttl).Err(); err != nil {
		s.log.Error("failed to store idempotency key", "error", err)
	}
}

// Stop is a no-op; the Redis client is closed with the other connections.
func (s *RedisIdempotencyStore) Stop() {}
