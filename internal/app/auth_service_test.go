package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"mindtrack/internal/adapter/memory"
	"mindtrack/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

type mockUserRepo struct {
	getByEmailFn func(ctx context.Context, email string) (*domain.User, error)
	getByIDFn    func(ctx context.Context, id int64) (*domain.User, error)
	createFn     func(ctx context.Context, email, passwordHash string) (*domain.User, error)
}

func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, nil
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateUser(ctx context.Context, email, passwordHash string) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, email, passwordHash)
	}
	return &domain.User{ID: 1, Email: email, PasswordHash: passwordHash}, nil
}

func (m *mockUserRepo) CountUsers(ctx context.Context) (int, error) {
	return 0, nil
}

type mockSessionRepo struct {
	createFn func(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error
	getFn    func(ctx context.Context, token string) (*domain.Session, error)
	deleteFn func(ctx context.Context, token string) error
}

func (m *mockSessionRepo) CreateSession(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	if m.createFn != nil {
		return m.createFn(ctx, userID, token, userAgent, ip, expiresAt)
	}
	return nil
}

func (m *mockSessionRepo) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	if m.getFn != nil {
		return m.getFn(ctx, token)
	}
	return nil, domain.ErrNotFound
}

func (m *mockSessionRepo) DeleteSession(ctx context.Context, token string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, token)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpiredSessions(ctx context.Context) error {
	return nil
}

func TestAuthService_Login_Success(t *testing.T) {
	ctx := context.Background()
	password := "testpass123"
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)

	users := &mockUserRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.User, error) {
			if email != "ath@example.com" {
				t.Errorf("expected normalized email, got %q", email)
			}
			return &domain.User{ID: 1, Email: email, PasswordHash: string(hash)}, nil
		},
	}

	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
			if userID != 1 {
				t.Errorf("expected userID 1, got %d", userID)
			}
			if token == "" {
				t.Error("token should not be empty")
			}
			if userAgent != "test-agent" {
				t.Errorf("expected user agent to be stored, got %q", userAgent)
			}
			return nil
		},
	}

	svc := NewAuthService(users, sessions, nil, nil)
	token, err := svc.Login(ctx, " Ath@Example.com ", password, "test-agent", "127.0.0.1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if token == "" {
		t.Error("expected token, got empty string")
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	users := &mockUserRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: 1, Email: email, PasswordHash: string(hash)}, nil
		},
	}

	svc := NewAuthService(users, &mockSessionRepo{}, nil, nil)
	_, err := svc.Login(context.Background(), "a@example.com", "wrongpass", "ua", "ip")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_SSOAccountHasNoPassword(t *testing.T) {
	users := &mockUserRepo{
		getByEmailFn: func(ctx context.Context, email string) (*domain.User, error) {
			return &domain.User{ID: 1, Email: email}, nil
		},
	}
	svc := NewAuthService(users, &mockSessionRepo{}, nil, nil)
	if _, err := svc.Login(context.Background(), "a@example.com", "", "ua", "ip"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_ValidateSession(t *testing.T) {
	tests := []struct {
		name      string
		session   *domain.Session
		userAgent string
		wantErr   error
		deleted   bool
	}{
		{
			name:      "valid",
			session:   &domain.Session{Token: "t", UserID: 7, UserAgent: "ua", ExpiresAt: time.Now().Add(time.Hour)},
			userAgent: "ua",
		},
		{
			name:      "expired",
			session:   &domain.Session{Token: "t", UserID: 7, UserAgent: "ua", ExpiresAt: time.Now().Add(-time.Hour)},
			userAgent: "ua",
			wantErr:   ErrSessionExpired,
			deleted:   true,
		},
		{
			name:      "user agent changed",
			session:   &domain.Session{Token: "t", UserID: 7, UserAgent: "ua", ExpiresAt: time.Now().Add(time.Hour)},
			userAgent: "other",
			wantErr:   ErrSessionExpired,
			deleted:   true,
		},
		{
			name:      "missing",
			userAgent: "ua",
			wantErr:   ErrSessionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deleted := false
			sessions := &mockSessionRepo{
				getFn: func(ctx context.Context, token string) (*domain.Session, error) {
					if tt.session == nil {
						return nil, domain.ErrNotFound
					}
					return tt.session, nil
				},
				deleteFn: func(ctx context.Context, token string) error {
					deleted = true
					return nil
				},
			}
			users := &mockUserRepo{
				getByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
					return &domain.User{ID: id, Email: "a@example.com"}, nil
				},
			}

			svc := NewAuthService(users, sessions, nil, nil)
			user, err := svc.ValidateSession(context.Background(), "t", tt.userAgent)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantErr == nil && user.ID != 7 {
				t.Errorf("expected user 7, got %d", user.ID)
			}
			if deleted != tt.deleted {
				t.Errorf("expected deleted=%v, got %v", tt.deleted, deleted)
			}
		})
	}
}

func TestAuthService_Register(t *testing.T) {
	db := memory.New()
	svc := NewAuthService(db, db, db, nil)
	ctx := context.Background()

	token, user, err := svc.Register(ctx, "New@Example.com", "longenough", "ua", "ip")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if token == "" || user.Email != "new@example.com" {
		t.Errorf("unexpected register result: %q %+v", token, user)
	}

	p, _ := db.GetProfile(ctx, user.ID)
	if p == nil || p.CurrentLevel != 1 {
		t.Errorf("expected an empty profile to be provisioned, got %+v", p)
	}

	if _, _, err := svc.Register(ctx, "new@example.com", "longenough", "ua", "ip"); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict for duplicate email, got %v", err)
	}

	if _, err := svc.ValidateSession(ctx, token, "ua"); err != nil {
		t.Errorf("expected registration session to be valid, got %v", err)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := NewAuthService(memory.New(), memory.New(), nil, nil)
	cases := map[string][2]string{
		"bad email":      {"not-an-email", "longenough"},
		"display name":   {"Bob <bob@example.com>", "longenough"},
		"short password": {"bob@example.com", "short"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := svc.Register(context.Background(), c[0], c[1], "ua", "ip")
			if !domain.IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAuthService_ForwardAuthProvisionsOnce(t *testing.T) {
	db := memory.New()
	svc := NewAuthService(db, db, db, nil)
	ctx := context.Background()

	if _, err := svc.ValidateForwardAuth(ctx, ""); err == nil {
		t.Fatal("expected error for empty header")
	}

	first, err := svc.ValidateForwardAuth(ctx, "coach")
	if err != nil {
		t.Fatalf("ValidateForwardAuth: %v", err)
	}
	second, err := svc.ValidateForwardAuth(ctx, "Coach")
	if err != nil {
		t.Fatalf("ValidateForwardAuth: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same user, got %d and %d", first.ID, second.ID)
	}
	if n, _ := db.CountUsers(ctx); n != 1 {
		t.Errorf("expected 1 user, got %d", n)
	}
}

func TestConstantTimeCompare(t *testing.T) {
	if !ConstantTimeCompare("abc", "abc") {
		t.Error("expected equal strings to match")
	}
	if ConstantTimeCompare("abc", "abd") {
		t.Error("expected different strings not to match")
	}
}
