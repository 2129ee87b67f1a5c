package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"

	// DefaultIdempotencyEntries bounds the in-memory store of a single replica.
	DefaultIdempotencyEntries = 10000
)

type IdempotencyStore interface {
	Get(key string) (*CachedResponse, bool)
	Set(key string, response *CachedResponse)
	Stop()
}

type CachedResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	CreatedAt  time.Time
}

// InMemoryIdempotencyStore keeps responses for one replica only; use the
// Redis store when the API runs behind a load balancer.
type InMemoryIdempotencyStore struct {
	responses *expirable.LRU[string, *CachedResponse]
}

func NewInMemoryIdempotencyStore(ttl time.Duration) *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{
		responses: expirable.NewLRU[string, *CachedResponse](DefaultIdempotencyEntries, nil, ttl),
	}
}

func (s *InMemoryIdempotencyStore) Get(key string) (*CachedResponse, bool) {
	return s.responses.Get(key)
}

func (s *InMemoryIdempotencyStore) Set(key string, response *CachedResponse) {
	response.CreatedAt = time.Now()
	s.responses.Add(key, response)
}

func (s *InMemoryIdempotencyStore) Stop() {
	s.responses.Purge()
}

type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// Idempotency replays the stored 2xx response when a mutating request repeats
// its Idempotency-Key. Failed attempts are not stored, so the client can retry.
func Idempotency(store IdempotencyStore, headerName string) func(http.Handler) http.Handler {
	if headerName == "" {
		headerName = IdempotencyKeyHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := idempotencyKey(r, headerName)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			if cached, ok := store.Get(key); ok {
				for name, values := range cached.Headers {
					if _, set := w.Header()[name]; !set {
						w.Header()[name] = append([]string(nil), values...)
					}
				}
				w.WriteHeader(cached.StatusCode)
				_, _ = w.Write(cached.Body)
				return
			}

			rw := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r)

			if rw.status < 200 || rw.status >= 300 {
				return
			}
			store.Set(key, &CachedResponse{
				StatusCode: rw.status,
				Headers:    w.Header().Clone(),
				Body:       bytes.Clone(rw.body.Bytes()),
			})
		})
	}
}

// idempotencyKey scopes the client key to the route and the caller's
// credentials so two users cannot replay each other's responses.
func idempotencyKey(r *http.Request, headerName string) string {
	key := r.Header.Get(headerName)
	if key == "" || r.Method == http.MethodGet || r.Method == http.MethodHead {
		return ""
	}

	sum := sha256.Sum256([]byte(r.Method + " " + r.URL.Path + "|" + r.Header.Get("Authorization") + "|" + key))
	return hex.EncodeToString(sum[:])
}
