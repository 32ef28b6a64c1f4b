package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/blogman/internal/model"
	"github.com/hitoshi/blogman/internal/repository"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.User, error)
	findByUsernameFn func(ctx context.Context, username string) (*model.User, error)
	listActiveFn     func(ctx context.Context) ([]model.User, error)
	createFn         func(ctx context.Context, user *model.User) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	if m.findByUsernameFn != nil {
		return m.findByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) ListActive(ctx context.Context) ([]model.User, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}

type mockSessionRepo struct {
	createFn         func(ctx context.Context, session *model.Session) error
	findByIDFn       func(ctx context.Context, id string) (*model.Session, error)
	deleteByIDFn     func(ctx context.Context, id string) error
	deleteByUserIDFn func(ctx context.Context, userID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if m.deleteByUserIDFn != nil {
		return m.deleteByUserIDFn(ctx, userID)
	}
	return nil
}

// --- compile-time interface checks ---
var _ repository.UserRepository = (*mockUserRepo)(nil)
var _ repository.SessionRepository = (*mockSessionRepo)(nil)

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	return string(hash)
}

// --- テスト ---

func TestRegister_CreatesUserAndSession(t *testing.T) {
	ctx := context.Background()

	var createdUser *model.User
	var createdSession *model.Session

	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			createdUser = user
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(userRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	user, session, err := svc.Register(ctx, "  alice  ", "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// ユーザーが作成されること
	if createdUser == nil {
		t.Fatal("expected user to be created")
	}
	if createdUser.Username != "alice" {
		t.Errorf("username = %q, want %q（前後の空白は除去される）", createdUser.Username, "alice")
	}
	if createdUser.Email != "alice@example.com" {
		t.Errorf("email = %q, want %q", createdUser.Email, "alice@example.com")
	}
	if !createdUser.IsActive {
		t.Error("expected new user to be active")
	}

	// パスワードが平文で保存されないこと
	if createdUser.PasswordHash == "correct-horse" {
		t.Error("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(createdUser.PasswordHash), []byte("correct-horse")); err != nil {
		t.Errorf("stored hash does not verify against original password: %v", err)
	}

	// セッションが発行されること
	if session == nil || createdSession == nil {
		t.Fatal("expected session to be created")
	}
	if session.UserID != user.ID {
		t.Errorf("session userID = %q, want %q", session.UserID, user.ID)
	}
	if session.ExpiresAt.Before(time.Now()) {
		t.Error("session should not be expired")
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"ユーザー名必須", "   ", "correct-horse"},
		{"ユーザー名長すぎ", strings.Repeat("a", 151), "correct-horse"},
		{"パスワード短すぎ", "alice", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := &mockUserRepo{
				createFn: func(ctx context.Context, user *model.User) error {
					t.Error("バリデーションエラー時にCreateが呼ばれた")
					return nil
				},
			}
			svc := NewService(userRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

			_, _, err := svc.Register(context.Background(), tt.username, "", tt.password)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("APIErrorを期待したが err = %v", err)
			}
			if apiErr.Code != model.ErrCodeValidation {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
			}
		})
	}
}

func TestRegister_DuplicateUsername_ReturnsError(t *testing.T) {
	userRepo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return errors.New("pq: duplicate key value violates unique constraint")
		},
	}
	svc := NewService(userRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

	_, _, err := svc.Register(context.Background(), "alice", "", "correct-horse")
	if err == nil {
		t.Fatal("expected error for duplicate username")
	}
}

func TestLogin_ValidCredentials_CreatesSession(t *testing.T) {
	ctx := context.Background()
	hash := hashPassword(t, "correct-horse")

	var createdSession *model.Session
	userRepo := &mockUserRepo{
		findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			return &model.User{
				ID:           "user-1",
				Username:     "alice",
				PasswordHash: hash,
				IsActive:     true,
			}, nil
		},
	}
	sessionRepo := &mockSessionRepo{
		createFn: func(ctx context.Context, session *model.Session) error {
			createdSession = session
			return nil
		},
	}

	svc := NewService(userRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	user, session, err := svc.Login(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.ID != "user-1" {
		t.Errorf("user ID = %q, want %q", user.ID, "user-1")
	}
	if session == nil || createdSession == nil {
		t.Fatal("expected session to be created")
	}
	if session.UserID != "user-1" {
		t.Errorf("session userID = %q, want %q", session.UserID, "user-1")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	hash := hashPassword(t, "correct-horse")

	tests := []struct {
		name string
		user *model.User
	}{
		{
			name: "存在しないユーザー",
			user: nil,
		},
		{
			name: "パスワード不一致",
			user: &model.User{ID: "user-1", Username: "alice", PasswordHash: hash, IsActive: true},
		},
		{
			name: "無効化されたユーザー",
			user: &model.User{ID: "user-1", Username: "alice", PasswordHash: hash, IsActive: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := &mockUserRepo{
				findByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
					return tt.user, nil
				},
			}
			svc := NewService(userRepo, &mockSessionRepo{}, ServiceConfig{SessionMaxAge: 86400})

			_, _, err := svc.Login(context.Background(), "alice", "wrong-password")
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("APIErrorを期待したが err = %v", err)
			}
			// どの失敗理由でも同一のエラーコードを返す（ユーザー名の存在を漏らさない）
			if apiErr.Code != model.ErrCodeInvalidCredential {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredential)
			}
		})
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	ctx := context.Background()

	var deletedSessionID string

	sessionRepo := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deletedSessionID = id
			return nil
		},
	}

	svc := NewService(nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	err := svc.Logout(ctx, "session-to-delete")
	if err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	if deletedSessionID != "session-to-delete" {
		t.Errorf("deleted session ID = %q, want %q", deletedSessionID, "session-to-delete")
	}
}

func TestLogout_EmptySessionID_ReturnsError(t *testing.T) {
	svc := NewService(nil, nil, ServiceConfig{SessionMaxAge: 86400})

	err := svc.Logout(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestGetCurrentUser_ValidSession_ReturnsUser(t *testing.T) {
	ctx := context.Background()

	userID := "user-id-123"

	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{
				ID:        "session-valid",
				UserID:    userID,
				ExpiresAt: time.Now().Add(1 * time.Hour),
			}, nil
		},
	}

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{
				ID:       userID,
				Username: "alice",
				Email:    "user@example.com",
			}, nil
		},
	}

	svc := NewService(userRepo, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	user, err := svc.GetCurrentUser(ctx, "session-valid")
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}

	if user == nil {
		t.Fatal("expected non-nil user")
	}
	if user.ID != userID {
		t.Errorf("user ID = %q, want %q", user.ID, userID)
	}
}

func TestGetCurrentUser_ExpiredSession_ReturnsError(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			// 期限切れセッション -> リポジトリはnilを返す
			return nil, nil
		},
	}

	svc := NewService(nil, sessionRepo, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.GetCurrentUser(context.Background(), "expired-session")
	if err == nil {
		t.Fatal("expected error for expired session")
	}
}

func TestGetCurrentUser_EmptySessionID_ReturnsError(t *testing.T) {
	svc := NewService(nil, nil, ServiceConfig{SessionMaxAge: 86400})

	_, err := svc.GetCurrentUser(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty session ID")
	}
}
