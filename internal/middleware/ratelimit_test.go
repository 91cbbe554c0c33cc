package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/midori/internal/model"
)

func newTestRateLimiter(t *testing.T, config RateLimiterConfig) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(config)
	t.Cleanup(rl.Stop)
	return rl
}

func tinyConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1.0 / 60.0),
		GeneralBurst:    2,
		ImportRate:      rate.Limit(1.0 / 60.0),
		ImportBurst:     1,
		CleanupInterval: time.Hour,
	}
}

func TestGeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := newTestRateLimiter(t, tinyConfig())
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestAsActor(model.Actor{ID: "user-1", Role: model.RoleUser}))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}
}

func TestGeneralMiddleware_RejectsBeyondBurst(t *testing.T) {
	rl := newTestRateLimiter(t, tinyConfig())
	handler := rl.GeneralMiddleware()(okHandler())

	actor := model.Actor{ID: "user-1", Role: model.RoleUser}
	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), requestAsActor(actor))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAsActor(actor))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header should be set")
	}
}

// 制限はユーザー単位。あるユーザーの超過は他のユーザーに影響しない。
func TestGeneralMiddleware_LimitsPerUser(t *testing.T) {
	rl := newTestRateLimiter(t, tinyConfig())
	handler := rl.GeneralMiddleware()(okHandler())

	heavy := model.Actor{ID: "heavy", Role: model.RoleUser}
	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), requestAsActor(heavy))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestAsActor(model.Actor{ID: "light", Role: model.RoleUser}))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 for unrelated user", rec.Code)
	}
	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("GeneralLimiterCount() = %d, want 2", rl.GeneralLimiterCount())
	}
}

// 取り込み用の制限はAPI全般の制限とは独立に数える。
func TestImportMiddleware_IndependentOfGeneral(t *testing.T) {
	rl := newTestRateLimiter(t, tinyConfig())
	general := rl.GeneralMiddleware()(okHandler())
	imports := rl.ImportMiddleware()(okHandler())

	actor := model.Actor{ID: "writer-1", Role: model.RoleJournalist}
	for i := 0; i < 2; i++ {
		general.ServeHTTP(httptest.NewRecorder(), requestAsActor(actor))
	}

	rec := httptest.NewRecorder()
	imports.ServeHTTP(rec, requestAsActor(actor))
	if rec.Code != http.StatusOK {
		t.Fatalf("first import: status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	imports.ServeHTTP(rec, requestAsActor(actor))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second import: status = %d, want 429", rec.Code)
	}
}

func TestGeneralMiddleware_MissingActorReturns401(t *testing.T) {
	rl := newTestRateLimiter(t, tinyConfig())
	handler := rl.GeneralMiddleware()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/articles", nil))

	assertErrorResponse(t, rec, http.StatusUnauthorized, model.ErrCodeUnauthorized)
}

func TestLimiterPool_CleanupRemovesIdleEntries(t *testing.T) {
	pool := newLimiterPool(rate.Limit(1), 1)
	pool.getOrCreate("user-1")
	pool.getOrCreate("user-2")

	pool.cleanup(-time.Nanosecond)

	if pool.count() != 0 {
		t.Errorf("count() = %d, want 0 after cleanup", pool.count())
	}
}
