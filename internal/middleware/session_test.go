package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/midori/internal/model"
)

type mockSessionFinder struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

type mockUserFinder struct {
	findByIDFunc func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func validSessionStore() (*mockSessionFinder, *mockUserFinder) {
	sessions := &mockSessionFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.Session, error) {
			if id != "session-1" {
				return nil, nil
			}
			return &model.Session{ID: id, UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}
	users := &mockUserFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Role: model.RoleJournalist}, nil
		},
	}
	return sessions, users
}

// actorCaptureHandler は注入された実行者を記録して200を返す。
func actorCaptureHandler(captured *model.Actor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if actor, err := ActorFromContext(r.Context()); err == nil {
			*captured = actor
		}
		w.WriteHeader(http.StatusOK)
	})
}

func requestWithSessionCookie(sessionID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/articles/mine", nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "session_id", Value: sessionID})
	}
	return req
}

func TestSessionMiddleware_InjectsActor(t *testing.T) {
	sessions, users := validSessionStore()
	var captured model.Actor
	handler := NewSessionMiddleware(sessions, users)(actorCaptureHandler(&captured))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithSessionCookie("session-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured.ID != "user-1" || captured.Role != model.RoleJournalist {
		t.Errorf("actor = %+v", captured)
	}
}

func TestSessionMiddleware_MissingCookieReturns401(t *testing.T) {
	sessions, users := validSessionStore()
	handler := NewSessionMiddleware(sessions, users)(actorCaptureHandler(&model.Actor{}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithSessionCookie(""))

	assertErrorResponse(t, rec, http.StatusUnauthorized, model.ErrCodeUnauthorized)
}

func TestSessionMiddleware_UnknownSessionReturns401(t *testing.T) {
	sessions, users := validSessionStore()
	handler := NewSessionMiddleware(sessions, users)(actorCaptureHandler(&model.Actor{}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithSessionCookie("expired-or-bogus"))

	assertErrorResponse(t, rec, http.StatusUnauthorized, model.ErrCodeUnauthorized)
}

// 役割はセッションではなくユーザーレコードから毎回解決される。
func TestSessionMiddleware_ResolvesRoleFromUserRecord(t *testing.T) {
	sessions, _ := validSessionStore()
	users := &mockUserFinder{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			// 役割変更直後を想定し、降格済みのレコードを返す
			return &model.User{ID: id, Role: model.RoleUser}, nil
		},
	}
	var captured model.Actor
	handler := NewSessionMiddleware(sessions, users)(actorCaptureHandler(&captured))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithSessionCookie("session-1"))

	if captured.Role != model.RoleUser {
		t.Errorf("Role = %s, want demoted role from user record", captured.Role)
	}
}

func TestOptionalSessionMiddleware_AllowsAnonymous(t *testing.T) {
	sessions, users := validSessionStore()
	var captured model.Actor
	handler := NewOptionalSessionMiddleware(sessions, users)(actorCaptureHandler(&captured))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithSessionCookie(""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for anonymous", rec.Code)
	}
	if captured.ID != "" {
		t.Errorf("actor should not be injected for anonymous requests: %+v", captured)
	}
}

func TestOptionalSessionMiddleware_InjectsActorWhenPresent(t *testing.T) {
	sessions, users := validSessionStore()
	var captured model.Actor
	handler := NewOptionalSessionMiddleware(sessions, users)(actorCaptureHandler(&captured))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithSessionCookie("session-1"))

	if captured.ID != "user-1" {
		t.Errorf("actor = %+v, want user-1", captured)
	}
}

func assertErrorResponse(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("status = %d, want %d", rec.Code, wantStatus)
	}
	var body ErrorResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body.Code != wantCode {
		t.Errorf("error code = %s, want %s", body.Code, wantCode)
	}
}
