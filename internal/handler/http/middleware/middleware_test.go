package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/timekeeping-backend-go/internal/domain/workflow"
	"github.com/cmlabs-hris/timekeeping-backend-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type fakeManagers struct {
	departments map[string][]string
	err         error
	calls       int
}

func (f *fakeManagers) ListManagedDepartments(ctx context.Context, userID string) ([]string, error) {
	f.calls++
	return f.departments[userID], f.err
}

func authChain(t *testing.T, managers *fakeManagers, captured *workflow.Actor) (http.Handler, jwt.Service) {
	t.Helper()
	svc := jwt.NewJWTService("test-secret")
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		require.True(t, ok)
		*captured = actor
		w.WriteHeader(http.StatusNoContent)
	})
	h := jwtauth.Verifier(svc.JWTAuth())(AuthRequired(Actor(managers)(final)))
	return h, svc
}

func TestActorResolvesManagedDepartments(t *testing.T) {
	managers := &fakeManagers{departments: map[string][]string{"user-1": {"dept-1", "dept-2"}}}
	var actor workflow.Actor
	h, svc := authChain(t, managers, &actor)

	token, _, err := svc.GenerateAccessToken(jwt.Claims{
		UserID:              "user-1",
		EmployeeID:          "emp-1",
		IsDepartmentManager: true,
	}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user-1", actor.UserID)
	assert.Equal(t, "emp-1", actor.EmployeeID)
	assert.True(t, actor.Manages("dept-2"))
	assert.False(t, actor.IsHRDManager)
	assert.Equal(t, 1, managers.calls)
}

func TestActorSkipsLookupForNonManagers(t *testing.T) {
	managers := &fakeManagers{err: errors.New("must not be called")}
	var actor workflow.Actor
	h, svc := authChain(t, managers, &actor)

	token, _, err := svc.GenerateAccessToken(jwt.Claims{UserID: "user-2", IsHRDManager: true}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, actor.IsHRDManager)
	assert.Zero(t, managers.calls)
}

func TestAuthRequiredRejectsStreamTokens(t *testing.T) {
	var actor workflow.Actor
	h, svc := authChain(t, &fakeManagers{}, &actor)

	token, _, err := svc.GenerateStreamToken(jwt.Claims{UserID: "user-1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRoleGates(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	tests := []struct {
		name     string
		actor    workflow.Actor
		hrd      int
		reviewer int
	}{
		{"employee", workflow.Actor{UserID: "u"}, http.StatusForbidden, http.StatusForbidden},
		{"department manager", workflow.Actor{UserID: "u", IsDepartmentManager: true}, http.StatusForbidden, http.StatusNoContent},
		{"hrd", workflow.Actor{UserID: "u", IsHRDManager: true}, http.StatusNoContent, http.StatusNoContent},
		{"super admin", workflow.Actor{UserID: "u", IsSuperAdmin: true}, http.StatusNoContent, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(WithActor(req.Context(), tt.actor))

			rec := httptest.NewRecorder()
			RequireHRD(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.hrd, rec.Code)

			rec = httptest.NewRecorder()
			RequireReviewer(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.reviewer, rec.Code)
		})
	}
}

func idempotentRequest(key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/punches", nil)
	req.Header.Set(IdempotencyHeader, key)
	return req.WithContext(WithActor(req.Context(), workflow.Actor{UserID: "user-1"}))
}

func TestIdempotencyStoresFirstResponse(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cacheKey, lockKey := idempotencyKeys("/api/v1/punches", "user-1", "key-1")
	ttl := 24 * time.Hour

	body := `{"success":true}`
	stored, err := json.Marshal(storedResponse{Status: http.StatusCreated, ContentType: "application/json", Body: body})
	require.NoError(t, err)

	mock.ExpectGet(cacheKey).RedisNil()
	mock.ExpectSetNX(lockKey, "locked", idempotencyLockTTL).SetVal(true)
	mock.ExpectSet(cacheKey, string(stored), ttl).SetVal("OK")
	mock.ExpectDel(lockKey).SetVal(1)

	calls := 0
	h := Idempotency(rdb, ttl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(body))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, idempotentRequest("key-1"))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, body, rec.Body.String())
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cacheKey, _ := idempotencyKeys("/api/v1/punches", "user-1", "key-1")

	stored, err := json.Marshal(storedResponse{Status: http.StatusCreated, ContentType: "application/json", Body: `{"success":true}`})
	require.NoError(t, err)
	mock.ExpectGet(cacheKey).SetVal(string(stored))

	h := Idempotency(rdb, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for a replayed request")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, idempotentRequest("key-1"))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "true", rec.Header().Get(ReplayedHeader))
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cacheKey, lockKey := idempotencyKeys("/api/v1/punches", "user-1", "key-1")

	mock.ExpectGet(cacheKey).RedisNil()
	mock.ExpectSetNX(lockKey, "locked", idempotencyLockTTL).SetVal(false)

	h := Idempotency(rdb, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run while the first request holds the lock")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, idempotentRequest("key-1"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cacheKey, lockKey := idempotencyKeys("/api/v1/punches", "user-1", "key-1")

	mock.ExpectGet(cacheKey).RedisNil()
	mock.ExpectSetNX(lockKey, "locked", idempotencyLockTTL).SetVal(true)
	mock.ExpectDel(lockKey).SetVal(1)

	h := Idempotency(rdb, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, idempotentRequest("key-1"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	calls := 0
	h := Idempotency(rdb, time.Hour)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/punches", nil))
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitByDevice(t *testing.T) {
	now := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	limiter := NewDeviceRateLimiter(rate.Limit(1), 2)
	limiter.now = func() time.Time { return now }

	h := RateLimitByDevice(limiter)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(device string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/punches", nil)
		req.Header.Set(DeviceHeader, device)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send("dev-1"))
	assert.Equal(t, http.StatusNoContent, send("dev-1"))
	assert.Equal(t, http.StatusTooManyRequests, send("dev-1"))
	// Other devices have their own bucket.
	assert.Equal(t, http.StatusNoContent, send("dev-2"))

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusNoContent, send("dev-1"))

	// Idle buckets are dropped on the next scan.
	now = now.Add(time.Hour)
	assert.Equal(t, http.StatusNoContent, send("dev-3"))
	limiter.mu.Lock()
	assert.Len(t, limiter.devices, 1)
	limiter.mu.Unlock()
}
