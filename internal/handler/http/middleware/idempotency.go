package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/handler/http/response"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	idempotencyLockTTL = 30 * time.Second
)

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        string `json:"body"`
}

func idempotencyKeys(path, userID, key string) (cacheKey, lockKey string) {
	cacheKey = fmt.Sprintf("idemp:%s:%s:%s", path, userID, key)
	return cacheKey, cacheKey + ":lock"
}

// Idempotency replays the stored response of a POST carrying an
// Idempotency-Key the same user already sent to the same path. Concurrent
// duplicates get 409 while the first is still running. Server errors are not
// stored so the client can retry. Redis failures degrade to plain execution.
func Idempotency(rdb redis.Cmdable, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			var userID string
			if actor, ok := ActorFromContext(r.Context()); ok {
				userID = actor.UserID
			}
			ctx := r.Context()
			cacheKey, lockKey := idempotencyKeys(r.URL.Path, userID, key)

			val, err := rdb.Get(ctx, cacheKey).Result()
			switch {
			case err == nil:
				var stored storedResponse
				if err := json.Unmarshal([]byte(val), &stored); err == nil {
					if stored.ContentType != "" {
						w.Header().Set("Content-Type", stored.ContentType)
					}
					w.Header().Set(ReplayedHeader, "true")
					w.WriteHeader(stored.Status)
					_, _ = w.Write([]byte(stored.Body))
					return
				}
				slog.Warn("discarding unreadable idempotent response", "key", cacheKey)
			case !errors.Is(err, redis.Nil):
				slog.Warn("idempotency lookup failed", "key", cacheKey, "error", err)
				next.ServeHTTP(w, r)
				return
			}

			acquired, err := rdb.SetNX(ctx, lockKey, "locked", idempotencyLockTTL).Result()
			if err != nil {
				slog.Warn("idempotency lock failed", "key", lockKey, "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !acquired {
				response.Conflict(w, "A request with this Idempotency-Key is still being processed")
				return
			}
			defer func() {
				if err := rdb.Del(ctx, lockKey).Err(); err != nil {
					slog.Warn("failed to release idempotency lock", "key", lockKey, "error", err)
				}
			}()

			var body bytes.Buffer
			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				return
			}

			data, err := json.Marshal(storedResponse{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        body.String(),
			})
			if err != nil {
				return
			}
			if err := rdb.Set(ctx, cacheKey, string(data), ttl).Err(); err != nil {
				slog.Warn("failed to store idempotent response", "key", cacheKey, "error", err)
			}
		})
	}
}
