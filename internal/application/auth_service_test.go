package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/taskflow/internal/persistence"
)

func stubHash(password string) (string, error) { return "hashed:" + password, nil }

func stubVerify(hash, password string) error {
	if hash == "hashed:"+password {
		return nil
	}
	return ErrInvalidCredentials
}

func newTestAuthService(users *userRepositoryStub, sessions *sessionRepositoryStub) *AuthService {
	return NewAuthService(AuthServiceDeps{
		Users:          users,
		Sessions:       sessions,
		Hash:           stubHash,
		Verify:         stubVerify,
		IDGenerator:    sequence("id"),
		TokenGenerator: sequence("token"),
		Now:            fixedNow,
		SessionTTL:     time.Hour,
		Logger:         quietLogger(),
	})
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates the user with a personal workspace", func(t *testing.T) {
		t.Parallel()

		users := newUserRepositoryStub()
		svc := newTestAuthService(users, newSessionRepositoryStub())

		user, err := svc.Register(context.Background(), RegisterInput{
			Name:            " Ana ",
			Email:           "Ana@Example.com",
			Password:        "secret1",
			ConfirmPassword: "secret1",
		})
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		if user.PasswordHash != "" {
			t.Fatalf("expected password hash to be stripped, got %q", user.PasswordHash)
		}
		if user.Email != "ana@example.com" || user.Name != "Ana" || user.Role != "MEMBER" {
			t.Fatalf("unexpected user: %#v", user)
		}

		stored := users.users[user.ID]
		if stored.PasswordHash != "hashed:secret1" {
			t.Fatalf("expected stored hash, got %q", stored.PasswordHash)
		}
		if len(users.workspaces) != 1 || users.workspaces[0].Name != "Workspace de Ana" || users.workspaces[0].Color != "#7B68EE" {
			t.Fatalf("unexpected personal workspace: %#v", users.workspaces)
		}
		if owner := users.owners[0]; owner.Role != persistence.RoleOwner || owner.UserID != user.ID || owner.WorkspaceID != users.workspaces[0].ID {
			t.Fatalf("unexpected owner membership: %#v", owner)
		}
	})

	t.Run("rejects a taken email without writing", func(t *testing.T) {
		t.Parallel()

		users := newUserRepositoryStub(persistence.User{ID: "existing", Email: "ana@example.com"})
		svc := newTestAuthService(users, newSessionRepositoryStub())

		_, err := svc.Register(context.Background(), RegisterInput{
			Name:            "Ana",
			Email:           "ANA@example.com",
			Password:        "secret1",
			ConfirmPassword: "secret1",
		})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		if len(users.users) != 1 || len(users.workspaces) != 0 {
			t.Fatalf("expected no rows to be written, got %d users and %d workspaces", len(users.users), len(users.workspaces))
		}
	})

	tests := []struct {
		name  string
		input RegisterInput
		field string
	}{
		{name: "short name", input: RegisterInput{Name: "A", Email: "a@example.com", Password: "secret1", ConfirmPassword: "secret1"}, field: "name"},
		{name: "malformed email", input: RegisterInput{Name: "Ana", Email: "nope", Password: "secret1", ConfirmPassword: "secret1"}, field: "email"},
		{name: "short password", input: RegisterInput{Name: "Ana", Email: "a@example.com", Password: "12345", ConfirmPassword: "12345"}, field: "password"},
		{name: "confirmation mismatch", input: RegisterInput{Name: "Ana", Email: "a@example.com", Password: "secret1", ConfirmPassword: "secret2"}, field: "confirmPassword"},
	}
	for _, tc := range tests {
		t.Run("validates "+tc.name, func(t *testing.T) {
			t.Parallel()

			users := newUserRepositoryStub()
			svc := newTestAuthService(users, newSessionRepositoryStub())

			_, err := svc.Register(context.Background(), tc.input)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := vErr.FieldErrors[tc.field]; !ok {
				t.Fatalf("expected error on %q, got %#v", tc.field, vErr.FieldErrors)
			}
			if len(users.users) != 0 {
				t.Fatalf("expected no user to be stored")
			}
		})
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()

	account := persistence.User{ID: "user-1", Name: "Ana", Email: "ana@example.com", PasswordHash: "hashed:secret1"}

	t.Run("issues sessions for valid credentials", func(t *testing.T) {
		t.Parallel()

		sessions := newSessionRepositoryStub()
		svc := newTestAuthService(newUserRepositoryStub(account), sessions)

		result, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: " ANA@example.com ", Password: "secret1"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if result.Session.Token != "token-1" || result.Session.UserID != account.ID {
			t.Fatalf("unexpected session: %#v", result.Session)
		}
		if !result.Session.ExpiresAt.Equal(refTime.Add(time.Hour)) {
			t.Fatalf("expected expiry one ttl from now, got %v", result.Session.ExpiresAt)
		}
		if result.User.PasswordHash != "" {
			t.Fatalf("expected password hash to be stripped")
		}
		if _, ok := sessions.sessions["token-1"]; !ok {
			t.Fatalf("expected session to be persisted")
		}
	})

	failures := []struct {
		name   string
		params AuthenticateParams
	}{
		{name: "unknown email", params: AuthenticateParams{Email: "bob@example.com", Password: "secret1"}},
		{name: "wrong password", params: AuthenticateParams{Email: "ana@example.com", Password: "nope"}},
		{name: "missing password", params: AuthenticateParams{Email: "ana@example.com"}},
	}
	for _, tc := range failures {
		t.Run("rejects "+tc.name, func(t *testing.T) {
			t.Parallel()

			svc := newTestAuthService(newUserRepositoryStub(account), newSessionRepositoryStub())
			if _, err := svc.Authenticate(context.Background(), tc.params); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}

	t.Run("upgrades legacy hashes after a successful login", func(t *testing.T) {
		t.Parallel()

		legacy := account
		legacy.PasswordHash = "legacy:secret1"
		users := newUserRepositoryStub(legacy)
		svc := NewAuthService(AuthServiceDeps{
			Users:    users,
			Sessions: newSessionRepositoryStub(),
			Hash:     stubHash,
			Verify: func(hash, password string) error {
				if hash == "legacy:"+password {
					return nil
				}
				return ErrInvalidCredentials
			},
			NeedsRehash: func(hash string) bool { return hash == "legacy:secret1" },
			Now:         fixedNow,
			Logger:      quietLogger(),
		})

		if _, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: legacy.Email, Password: "secret1"}); err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if got := users.users[legacy.ID]; got.PasswordHash != "hashed:secret1" || !got.UpdatedAt.Equal(refTime) {
			t.Fatalf("expected upgraded hash, got %#v", got)
		}
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("boom")
		sessions := newSessionRepositoryStub()
		sessions.createErr = expected
		svc := newTestAuthService(newUserRepositoryStub(account), sessions)

		if _, err := svc.Authenticate(context.Background(), AuthenticateParams{Email: account.Email, Password: "secret1"}); !errors.Is(err, expected) {
			t.Fatalf("expected %v, got %v", expected, err)
		}
	})
}

func TestAuthService_ValidateSession(t *testing.T) {
	t.Parallel()

	account := persistence.User{ID: "user-1", Name: "Ana", Email: "ana@example.com"}
	revokedAt := refTime.Add(-time.Minute)

	tests := []struct {
		name    string
		session *persistence.Session
		token   string
		wantErr error
	}{
		{name: "active session", session: &persistence.Session{Token: "t", UserID: account.ID, ExpiresAt: refTime.Add(time.Minute)}, token: "t"},
		{name: "expired session", session: &persistence.Session{Token: "t", UserID: account.ID, ExpiresAt: refTime}, token: "t", wantErr: ErrSessionExpired},
		{name: "revoked session", session: &persistence.Session{Token: "t", UserID: account.ID, ExpiresAt: refTime.Add(time.Hour), RevokedAt: &revokedAt}, token: "t", wantErr: ErrSessionRevoked},
		{name: "unknown token", token: "missing", wantErr: ErrUnauthorized},
		{name: "empty token", token: "  ", wantErr: ErrUnauthorized},
		{name: "deleted user", session: &persistence.Session{Token: "t", UserID: "gone", ExpiresAt: refTime.Add(time.Hour)}, token: "t", wantErr: ErrUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sessions := newSessionRepositoryStub()
			if tc.session != nil {
				sessions.seed(*tc.session)
			}
			svc := newTestAuthService(newUserRepositoryStub(account), sessions)

			principal, err := svc.ValidateSession(context.Background(), tc.token)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateSession failed: %v", err)
			}
			if principal != (Principal{UserID: account.ID, Name: account.Name, Email: account.Email}) {
				t.Fatalf("unexpected principal: %#v", principal)
			}
		})
	}
}

func TestAuthService_RevokeSession(t *testing.T) {
	t.Parallel()

	sessions := newSessionRepositoryStub()
	sessions.seed(persistence.Session{Token: "t", UserID: "user-1", ExpiresAt: refTime.Add(time.Hour)})
	svc := newTestAuthService(newUserRepositoryStub(persistence.User{ID: "user-1"}), sessions)

	if err := svc.RevokeSession(context.Background(), "t"); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	if _, err := svc.ValidateSession(context.Background(), "t"); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected revoked session to be rejected, got %v", err)
	}
	if err := svc.RevokeSession(context.Background(), "other"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown token, got %v", err)
	}
}

func TestAuthService_PurgeExpiredSessions(t *testing.T) {
	t.Parallel()

	sessions := newSessionRepositoryStub()
	sessions.seed(persistence.Session{Token: "live", ExpiresAt: refTime.Add(time.Hour)})
	sessions.seed(persistence.Session{Token: "old", ExpiresAt: refTime.Add(-time.Hour)})
	svc := newTestAuthService(newUserRepositoryStub(), sessions)

	removed, err := svc.PurgeExpiredSessions(context.Background())
	if err != nil {
		t.Fatalf("PurgeExpiredSessions failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one session removed, got %d", removed)
	}
	if len(sessions.purgeAt) != 1 || !sessions.purgeAt[0].Equal(refTime) {
		t.Fatalf("expected purge to use the service clock, got %v", sessions.purgeAt)
	}
}

func TestAuthService_CurrentUser(t *testing.T) {
	t.Parallel()

	svc := newTestAuthService(newUserRepositoryStub(persistence.User{ID: "user-1", Name: "Ana", PasswordHash: "h"}), newSessionRepositoryStub())

	user, err := svc.CurrentUser(context.Background(), Principal{UserID: "user-1"})
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if user.Name != "Ana" || user.PasswordHash != "" {
		t.Fatalf("unexpected user: %#v", user)
	}
	if _, err := svc.CurrentUser(context.Background(), Principal{UserID: "ghost"}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
