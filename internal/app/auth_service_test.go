package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"niblet/internal/adapter/memory"
	"niblet/internal/app"
	"niblet/internal/domain"

	"golang.org/x/crypto/bcrypt"
)

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)

	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			if username == "testuser" {
				return &domain.User{ID: 1, Username: "testuser", PasswordHash: string(hash)}, nil
			}
			return nil, nil
		},
	}

	var createdToken string
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
			createdToken = token
			if userID != 1 {
				t.Errorf("expected userID 1, got %d", userID)
			}
			if time.Until(expiresAt) < 29*24*time.Hour {
				t.Errorf("expected a 30 day session, expires %v", expiresAt)
			}
			return nil
		},
	}

	svc := app.NewAuthService(users, sessions, nil)

	user, token, err := svc.Login(ctx, "testuser", "password123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %s", user.Username)
	}
	if token == "" || token != createdToken {
		t.Errorf("expected stored token, got %q", token)
	}
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)

	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			if username == "testuser" {
				return &domain.User{ID: 1, Username: "testuser", PasswordHash: string(hash)}, nil
			}
			return nil, nil
		},
	}
	svc := app.NewAuthService(users, &mockSessionRepo{}, nil)

	for _, tc := range []struct{ name, user, pass string }{
		{"wrong password", "testuser", "wrong"},
		{"unknown user", "nobody", "password123"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := svc.Login(ctx, tc.user, tc.pass)
			if !errors.Is(err, app.ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
			if !errors.Is(err, domain.ErrAuth) {
				t.Errorf("expected ErrAuth in chain, got %v", err)
			}
		})
	}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	var role string
	users := &mockUserRepo{
		createFn: func(ctx context.Context, username, passwordHash, r string) (*domain.User, error) {
			role = r
			if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte("secret1")) != nil {
				t.Error("password was not hashed with bcrypt")
			}
			return &domain.User{ID: 7, Username: username, Role: r}, nil
		},
	}
	svc := app.NewAuthService(users, &mockSessionRepo{}, nil)

	user, token, err := svc.Register(ctx, "  alice ", "secret1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Username != "alice" || role != domain.RoleUser {
		t.Errorf("unexpected user %+v role %s", user, role)
	}
	if token == "" {
		t.Error("expected a session token")
	}

	if _, _, err := svc.Register(ctx, "bob", "123"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for short password, got %v", err)
	}
	if _, _, err := svc.Register(ctx, " ", "secret1"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error for blank username, got %v", err)
	}
}

func TestAuthService_Register_Taken(t *testing.T) {
	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			return &domain.User{ID: 1, Username: username}, nil
		},
	}
	svc := app.NewAuthService(users, &mockSessionRepo{}, nil)

	_, _, err := svc.Register(context.Background(), "alice", "secret1")
	if !errors.Is(err, app.ErrUsernameTaken) || !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestAuthService_ValidateSession(t *testing.T) {
	ctx := context.Background()

	users := &mockUserRepo{
		getByIDFn: func(ctx context.Context, id int64) (*domain.User, error) {
			if id == 1 {
				return &domain.User{ID: 1, Username: "testuser"}, nil
			}
			return nil, nil
		},
	}
	sessions := &mockSessionRepo{
		getByTokenFn: func(ctx context.Context, token string) (*domain.Session, error) {
			if token == "valid-token" {
				return &domain.Session{Token: "valid-token", UserID: 1, ExpiresAt: time.Now().Add(time.Hour)}, nil
			}
			return nil, nil
		},
	}
	svc := app.NewAuthService(users, sessions, nil)

	user, err := svc.ValidateSession(ctx, "valid-token")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.ID != 1 {
		t.Errorf("expected user ID 1, got %d", user.ID)
	}

	if _, err := svc.ValidateSession(ctx, "bogus"); !errors.Is(err, app.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAuthService_ValidateSession_Expired(t *testing.T) {
	ctx := context.Background()

	var deleted string
	sessions := &mockSessionRepo{
		getByTokenFn: func(ctx context.Context, token string) (*domain.Session, error) {
			return &domain.Session{Token: token, UserID: 1, ExpiresAt: time.Now().Add(-time.Hour)}, nil
		},
		deleteFn: func(ctx context.Context, token string) error {
			deleted = token
			return nil
		},
	}
	svc := app.NewAuthService(&mockUserRepo{}, sessions, nil)

	_, err := svc.ValidateSession(ctx, "expired-token")
	if !errors.Is(err, app.ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
	if deleted != "expired-token" {
		t.Errorf("expected expired session to be deleted, got %q", deleted)
	}
}

func TestAuthService_CreateInitialUser(t *testing.T) {
	ctx := context.Background()

	users := &mockUserRepo{
		countFn: func(ctx context.Context) (int, error) { return 0, nil },
		createFn: func(ctx context.Context, username, passwordHash, role string) (*domain.User, error) {
			if passwordHash == "" {
				t.Error("password hash should not be empty")
			}
			return &domain.User{ID: 1, Username: username, Role: role}, nil
		},
	}
	svc := app.NewAuthService(users, &mockSessionRepo{}, nil)

	u, err := svc.CreateInitialUser(ctx, "admin", "password123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !u.IsAdmin() {
		t.Errorf("expected admin role, got %q", u.Role)
	}
}

func TestAuthService_CreateInitialUser_UsersExist(t *testing.T) {
	users := &mockUserRepo{
		countFn: func(ctx context.Context) (int, error) { return 1, nil },
	}
	svc := app.NewAuthService(users, &mockSessionRepo{}, nil)

	_, err := svc.CreateInitialUser(context.Background(), "admin", "password123")
	if !errors.Is(err, app.ErrUsersExist) {
		t.Errorf("expected ErrUsersExist, got %v", err)
	}
}

func TestAuthService_ValidateForwardAuth_ExistingUser(t *testing.T) {
	users := &mockUserRepo{
		getByUsernameFn: func(ctx context.Context, username string) (*domain.User, error) {
			return &domain.User{ID: 1, Username: "ssouser"}, nil
		},
		createFn: func(ctx context.Context, username, passwordHash, role string) (*domain.User, error) {
			t.Error("existing user must not be re-created")
			return nil, errors.New("unexpected")
		},
	}
	svc := app.NewAuthService(users, &mockSessionRepo{}, nil)

	user, err := svc.ValidateForwardAuth(context.Background(), "ssouser")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Username != "ssouser" {
		t.Errorf("expected username 'ssouser', got %s", user.Username)
	}
}

func TestAuthService_ValidateForwardAuth_NewUser(t *testing.T) {
	users := &mockUserRepo{
		createFn: func(ctx context.Context, username, passwordHash, role string) (*domain.User, error) {
			if passwordHash != "" {
				t.Error("SSO users have no password")
			}
			return &domain.User{ID: 2, Username: username, Role: role}, nil
		},
	}
	svc := app.NewAuthService(users, &mockSessionRepo{}, nil)

	user, err := svc.ValidateForwardAuth(context.Background(), "newssouser")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Username != "newssouser" {
		t.Errorf("expected username 'newssouser', got %s", user.Username)
	}

	if _, err := svc.ValidateForwardAuth(context.Background(), ""); !errors.Is(err, domain.ErrAuth) {
		t.Errorf("expected ErrAuth for empty header, got %v", err)
	}
}

func TestAuthService_PasswordLifecycle(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	svc := app.NewAuthService(db, db.NewSessionRepo(), db)

	user, _, err := svc.Register(ctx, "carol", "first-pass")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.UpdatePassword(ctx, user.ID, "wrong", "second-pass"); !errors.Is(err, app.ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if err := svc.UpdatePassword(ctx, user.ID, "first-pass", "second-pass"); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	if _, _, err := svc.Login(ctx, "carol", "second-pass"); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}

	token, err := svc.ForgotPassword(ctx, "carol")
	if err != nil || token == "" {
		t.Fatalf("ForgotPassword: %q, %v", token, err)
	}
	session, err := svc.ResetPassword(ctx, token, "third-pass")
	if err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if u, err := svc.ValidateSession(ctx, session); err != nil || u.ID != user.ID {
		t.Errorf("reset session invalid: %+v, %v", u, err)
	}
	if _, _, err := svc.Login(ctx, "carol", "third-pass"); err != nil {
		t.Errorf("Login after reset: %v", err)
	}

	if _, err := svc.ResetPassword(ctx, token, "fourth-pass"); !errors.Is(err, app.ErrResetTokenInvalid) {
		t.Errorf("expected reused token to be rejected, got %v", err)
	}

	token, err = svc.ForgotPassword(ctx, "nobody")
	if err != nil || token != "" {
		t.Errorf("expected silent no-op for unknown user, got %q, %v", token, err)
	}
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	db := memory.New()
	svc := app.NewAuthService(db, db.NewSessionRepo(), db)

	_, token, err := svc.Register(ctx, "dave", "password")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := svc.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, err := svc.ValidateSession(ctx, token); !errors.Is(err, app.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after logout, got %v", err)
	}

	needs, _ := svc.NeedsSetup(ctx)
	if needs {
		t.Error("expected setup to be done once a user exists")
	}
}

func TestAuthService_PurgeExpired(t *testing.T) {
	calls := 0
	sessions := &mockSessionRepo{
		deleteExpiredFn: func(context.Context) error {
			calls++
			return nil
		},
	}
	svc := app.NewAuthService(&mockUserRepo{}, sessions, nil)
	if err := svc.PurgeExpired(context.Background()); err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if calls != 1 {
		t.Errorf("DeleteExpired called %d times", calls)
	}
}
