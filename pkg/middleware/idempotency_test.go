package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"bookloans/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingHandler(calls *int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"call":` + string(rune('0'+n)) + `}`))
	})
}

func doPost(h http.Handler, key, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/borrowings", strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func runIdempotencyContract(t *testing.T, store IdempotencyStore) {
	t.Run("replays successful response", func(t *testing.T) {
		var calls int32
		h := Idempotency(store, "")(countingHandler(&calls, http.StatusCreated))

		first := doPost(h, "k-1", "Bearer a")
		second := doPost(h, "k-1", "Bearer a")

		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
		assert.Equal(t, http.StatusCreated, second.Code)
		assert.Equal(t, first.Body.String(), second.Body.String())
	})

	t.Run("keys are scoped per caller", func(t *testing.T) {
		var calls int32
		h := Idempotency(store, "")(countingHandler(&calls, http.StatusCreated))

		doPost(h, "k-2", "Bearer a")
		doPost(h, "k-2", "Bearer b")

		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("errors are not cached", func(t *testing.T) {
		var calls int32
		h := Idempotency(store, "")(countingHandler(&calls, http.StatusBadRequest))

		doPost(h, "k-3", "Bearer a")
		doPost(h, "k-3", "Bearer a")

		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("no key passes through", func(t *testing.T) {
		var calls int32
		h := Idempotency(store, "")(countingHandler(&calls, http.StatusCreated))

		doPost(h, "", "Bearer a")
		doPost(h, "", "Bearer a")

		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})
}

func TestInMemoryIdempotencyStore(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	runIdempotencyContract(t, store)
}

func TestInMemoryIdempotencyStore_Expires(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Millisecond)
	defer store.Stop()

	store.Set("k", &CachedResponse{StatusCode: http.StatusOK})
	time.Sleep(5 * time.Millisecond)

	_, ok := store.Get("k")
	assert.False(t, ok)
}

func TestRedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisIdempotencyStore(client, time.Hour, logger.Discard())
	runIdempotencyContract(t, store)
}

func TestRedisIdempotencyStore_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisIdempotencyStore(client, time.Minute, logger.Discard())
	store.Set("k", &CachedResponse{StatusCode: http.StatusCreated, Body: []byte(`{"ok":true}`)})

	cached, ok := store.Get("k")
	require.True(t, ok)
	assert.Equal(t, http.StatusCreated, cached.StatusCode)
	assert.Equal(t, `{"ok":true}`, string(cached.Body))

	mr.FastForward(2 * time.Minute)
	_, ok = store.Get("k")
	assert.False(t, ok)
}

func TestRedisIdempotencyStore_UnavailableRedisMisses(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	store := NewRedisIdempotencyStore(client, time.Minute, logger.Discard())
	_, ok := store.Get("k")
	assert.False(t, ok)
}

func TestIdempotency_GetIsNeverReplayed(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "")(countingHandler(&calls, http.StatusOK))
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/borrowings", nil)
		req.Header.Set(IdempotencyKeyHeader, "k")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestIdempotency_ReplaysHeaders(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	h := Idempotency(store, "")(countingHandler(&calls, http.StatusCreated))
	doPost(h, "k", "Bearer a")
	replay := doPost(h, "k", "Bearer a")

	assert.Equal(t, []string{"application/json"}, replay.Header().Values("Content-Type"))
}

func TestInMemoryIdempotencyStore_StopPurges(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	store.Set("k", &CachedResponse{StatusCode: http.StatusOK})

	store.Stop()

	_, ok := store.Get("k")
	assert.False(t, ok)
}

func TestIdempotency_ReplayKeepsFreshRequestID(t *testing.T) {
	store := NewInMemoryIdempotencyStore(time.Hour)
	defer store.Stop()

	var calls int32
	inner := Idempotency(store, "")(countingHandler(&calls, http.StatusCreated))
	id := "req-1"
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(RequestIDHeader, id)
		inner.ServeHTTP(w, r)
	})

	doPost(h, "k", "Bearer a")
	id = "req-2"
	replay := doPost(h, "k", "Bearer a")

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, []string{"req-2"}, replay.Header().Values(RequestIDHeader))
}
