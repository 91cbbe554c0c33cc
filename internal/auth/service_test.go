package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/midori/internal/model"
)

type mockUserRepo struct {
	findByIDFunc    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFunc func(ctx context.Context, email string) (*model.User, error)
	createFunc      func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) UpdateRole(ctx context.Context, id string, role model.Role) error {
	return nil
}

type mockSessionRepo struct {
	createFunc     func(ctx context.Context, session *model.Session) error
	deleteByIDFunc func(ctx context.Context, id string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFunc != nil {
		return m.deleteByIDFunc(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) { return 0, nil }

func newTestService(users *mockUserRepo, sessions *mockSessionRepo) *Service {
	return NewService(users, sessions, ServiceConfig{SessionMaxAge: 86400})
}

func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", wantCode)
	}
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	if apiErr.Code != wantCode {
		t.Errorf("error code = %s, want %s", apiErr.Code, wantCode)
	}
}

func TestRegister_CreatesGeneralUser(t *testing.T) {
	var created *model.User
	users := &mockUserRepo{
		createFunc: func(ctx context.Context, u *model.User) error {
			created = u
			return nil
		},
	}
	service := newTestService(users, &mockSessionRepo{})

	user, err := service.Register(context.Background(), "Hana@Example.com", "はな", "secret-password")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if created == nil {
		t.Fatal("user was not persisted")
	}
	if user.Email != "hana@example.com" {
		t.Errorf("Email = %q, want lowercased", user.Email)
	}
	if user.Role != model.RoleUser {
		t.Errorf("Role = %s, new users must start as general user", user.Role)
	}
	if user.PasswordHash == "secret-password" {
		t.Error("password must not be stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret-password")); err != nil {
		t.Errorf("stored hash does not verify the original password: %v", err)
	}
}

func TestRegister_ValidationFailures(t *testing.T) {
	service := newTestService(&mockUserRepo{}, &mockSessionRepo{})

	tests := []struct {
		name     string
		email    string
		userName string
		password string
	}{
		{"メールアドレスなし", "", "はな", "secret-password"},
		{"不正なメールアドレス", "not-an-email", "はな", "secret-password"},
		{"表示名なし", "hana@example.com", "", "secret-password"},
		{"短すぎるパスワード", "hana@example.com", "はな", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(context.Background(), tt.email, tt.userName, tt.password)
			assertAPIErrorCode(t, err, model.ErrCodeValidation)
		})
	}
}

func TestRegister_DuplicateEmailFails(t *testing.T) {
	users := &mockUserRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "existing"}, nil
		},
	}
	service := newTestService(users, &mockSessionRepo{})

	_, err := service.Register(context.Background(), "hana@example.com", "はな", "secret-password")
	assertAPIErrorCode(t, err, model.ErrCodeEmailTaken)
}

func TestLogin_IssuesSession(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.DefaultCost)
	users := &mockUserRepo{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "user-1", Email: email, PasswordHash: string(hash)}, nil
		},
	}
	var createdSession *model.Session
	sessions := &mockSessionRepo{
		createFunc: func(ctx context.Context, s *model.Session) error {
			createdSession = s
			return nil
		},
	}
	service := newTestService(users, sessions)

	session, user, err := service.Login(context.Background(), "hana@example.com", "secret-password")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if createdSession == nil {
		t.Fatal("session was not persisted")
	}
	if session.UserID != user.ID {
		t.Errorf("session.UserID = %s, want %s", session.UserID, user.ID)
	}
	wantExpiry := session.CreatedAt.Add(86400 * time.Second)
	if !session.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", session.ExpiresAt, wantExpiry)
	}
}

// ユーザー不在とパスワード不一致は同一のエラーを返す。
func TestLogin_InvalidCredentials(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("secret-password"), bcrypt.DefaultCost)

	t.Run("ユーザー不在", func(t *testing.T) {
		service := newTestService(&mockUserRepo{}, &mockSessionRepo{})
		_, _, err := service.Login(context.Background(), "unknown@example.com", "secret-password")
		assertAPIErrorCode(t, err, model.ErrCodeInvalidCredentials)
	})

	t.Run("パスワード不一致", func(t *testing.T) {
		users := &mockUserRepo{
			findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
				return &model.User{ID: "user-1", PasswordHash: string(hash)}, nil
			},
		}
		service := newTestService(users, &mockSessionRepo{})
		_, _, err := service.Login(context.Background(), "hana@example.com", "wrong-password")
		assertAPIErrorCode(t, err, model.ErrCodeInvalidCredentials)
	})
}

func TestLogout_EmptySessionIsNoop(t *testing.T) {
	deleteCalled := false
	sessions := &mockSessionRepo{
		deleteByIDFunc: func(ctx context.Context, id string) error {
			deleteCalled = true
			return nil
		},
	}
	service := newTestService(&mockUserRepo{}, sessions)

	if err := service.Logout(context.Background(), ""); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if deleteCalled {
		t.Error("empty session ID should not hit the repository")
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	var deletedID string
	sessions := &mockSessionRepo{
		deleteByIDFunc: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	service := newTestService(&mockUserRepo{}, sessions)

	if err := service.Logout(context.Background(), "session-1"); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if deletedID != "session-1" {
		t.Errorf("deleted session = %s, want session-1", deletedID)
	}
}

func TestMe_UnknownUserReturnsNotFound(t *testing.T) {
	service := newTestService(&mockUserRepo{}, &mockSessionRepo{})

	_, err := service.Me(context.Background(), "missing")
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}
