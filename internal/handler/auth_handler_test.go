package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/midori/internal/model"
)

type mockAuthService struct {
	registerFunc func(ctx context.Context, email, name, password string) (*model.User, error)
	loginFunc    func(ctx context.Context, email, password string) (*model.Session, *model.User, error)
	logoutFunc   func(ctx context.Context, sessionID string) error
	meFunc       func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, email, name, password string) (*model.User, error) {
	return m.registerFunc(ctx, email, name, password)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
	return m.loginFunc(ctx, email, password)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	return m.logoutFunc(ctx, sessionID)
}

func (m *mockAuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	return m.meFunc(ctx, userID)
}

func sampleUser() *model.User {
	return &model.User{ID: "user-1", Email: "hana@example.com", Name: "はな", Role: model.RoleUser}
}

func newAuthHandler(service *mockAuthService) *AuthHandler {
	return NewAuthHandler(service, AuthHandlerConfig{SessionMaxAge: 86400})
}

func TestAuthRegister_Returns201(t *testing.T) {
	service := &mockAuthService{
		registerFunc: func(ctx context.Context, email, name, password string) (*model.User, error) {
			return sampleUser(), nil
		},
	}
	handler := newAuthHandler(service)

	body := bytes.NewBufferString(`{"email":"hana@example.com","name":"はな","password":"secret-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
}

func TestAuthRegister_DuplicateEmailMapsTo409(t *testing.T) {
	service := &mockAuthService{
		registerFunc: func(ctx context.Context, email, name, password string) (*model.User, error) {
			return nil, model.NewEmailTakenError()
		},
	}
	handler := newAuthHandler(service)

	body := bytes.NewBufferString(`{"email":"hana@example.com","name":"はな","password":"secret-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", body)
	rec := httptest.NewRecorder()
	handler.Register(rec, req)

	assertErrorStatus(t, rec, http.StatusConflict, model.ErrCodeEmailTaken)
}

func TestAuthLogin_SetsSessionCookie(t *testing.T) {
	service := &mockAuthService{
		loginFunc: func(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
			session := &model.Session{ID: "session-1", UserID: "user-1", ExpiresAt: time.Now().Add(time.Hour)}
			return session, sampleUser(), nil
		},
	}
	handler := newAuthHandler(service)

	body := bytes.NewBufferString(`{"email":"hana@example.com","password":"secret-password"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != "session_id" || cookie.Value != "session-1" {
		t.Errorf("cookie = %s=%s", cookie.Name, cookie.Value)
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", cookie.SameSite)
	}
}

func TestAuthLogin_InvalidCredentialsMapsTo401(t *testing.T) {
	service := &mockAuthService{
		loginFunc: func(ctx context.Context, email, password string) (*model.Session, *model.User, error) {
			return nil, nil, model.NewInvalidCredentialsError()
		},
	}
	handler := newAuthHandler(service)

	body := bytes.NewBufferString(`{"email":"hana@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", body)
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	assertErrorStatus(t, rec, http.StatusUnauthorized, model.ErrCodeInvalidCredentials)
}

func TestAuthLogout_ExpiresCookie(t *testing.T) {
	var loggedOut string
	service := &mockAuthService{
		logoutFunc: func(ctx context.Context, sessionID string) error {
			loggedOut = sessionID
			return nil
		},
	}
	handler := newAuthHandler(service)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "session-1"})
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if loggedOut != "session-1" {
		t.Errorf("logged out session = %s", loggedOut)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Errorf("cookie should be expired with MaxAge -1: %+v", cookies)
	}
}

func TestAuthMe_ReturnsCurrentUser(t *testing.T) {
	service := &mockAuthService{
		meFunc: func(ctx context.Context, userID string) (*model.User, error) {
			return sampleUser(), nil
		},
	}
	handler := newAuthHandler(service)

	req := newChiRequest(http.MethodGet, "/api/auth/me", nil, &journalistActor, nil)
	rec := httptest.NewRecorder()
	handler.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAuthMe_MissingActorReturns401(t *testing.T) {
	handler := newAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	rec := httptest.NewRecorder()
	handler.Me(rec, req)

	assertErrorStatus(t, rec, http.StatusUnauthorized, model.ErrCodeUnauthorized)
}
