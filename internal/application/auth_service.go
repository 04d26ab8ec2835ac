package application

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/taskflow/internal/persistence"
)

const (
	defaultColor           = "#7B68EE"
	personalWorkspaceNote  = "Tu espacio de trabajo personal"
	personalWorkspaceLabel = "Workspace de %s"
)

// AuthServiceDeps captures dependencies for constructing an auth service.
type AuthServiceDeps struct {
	Users          persistence.UserRepository
	Sessions       persistence.SessionRepository
	Hash           PasswordHasher
	Verify         PasswordVerifier
	// NeedsRehash decides whether a verified hash is upgraded on login.
	NeedsRehash    func(hash string) bool
	IDGenerator    func() string
	TokenGenerator func() string
	Now            func() time.Time
	SessionTTL     time.Duration
	Logger         *slog.Logger
}

// AuthService coordinates registration, login and the session gate.
type AuthService struct {
	users          persistence.UserRepository
	sessions       persistence.SessionRepository
	hashPassword   PasswordHasher
	verifyPassword PasswordVerifier
	needsRehash    func(hash string) bool
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(deps AuthServiceDeps) *AuthService {
	if deps.Hash == nil {
		deps.Hash = HashPassword
	}
	if deps.Verify == nil {
		deps.Verify = VerifyPassword
	}
	if deps.NeedsRehash == nil {
		deps.NeedsRehash = NeedsRehash
	}
	if deps.IDGenerator == nil {
		deps.IDGenerator = func() string { return "" }
	}
	if deps.TokenGenerator == nil {
		deps.TokenGenerator = NewSessionToken
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 24 * time.Hour
	}
	return &AuthService{
		users:          deps.Users,
		sessions:       deps.Sessions,
		hashPassword:   deps.Hash,
		verifyPassword: deps.Verify,
		needsRehash:    deps.NeedsRehash,
		idGenerator:    deps.IDGenerator,
		tokenGenerator: deps.TokenGenerator,
		now:            deps.Now,
		sessionTTL:     deps.SessionTTL,
		logger:         defaultLogger(deps.Logger),
	}
}

// NewSessionToken returns 32 random bytes encoded for use in cookies and headers.
func NewSessionToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("read random bytes: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Register creates an account with role MEMBER and a personal workspace it owns.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (user persistence.User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	logger := s.loggerWith(ctx, "Register", "email", input.Email)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "registration failed", err)
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user registered")
	}()

	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}

	if _, lookupErr := s.users.GetUserByEmail(ctx, input.Email); lookupErr == nil {
		err = ErrAlreadyExists
		return
	} else if !errors.Is(lookupErr, persistence.ErrNotFound) {
		err = lookupErr
		return
	}

	var hash string
	hash, err = s.hashPassword(input.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	user = persistence.User{
		ID:           s.idGenerator(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         string(persistence.RoleMember),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	workspace, owner := s.personalWorkspace(user, now)

	if err = s.users.RegisterUser(ctx, user, workspace, owner); err != nil {
		err = fromRepo(err)
		user = persistence.User{}
		return
	}

	user.PasswordHash = ""
	return
}

func (s *AuthService) personalWorkspace(user persistence.User, now time.Time) (persistence.Workspace, persistence.WorkspaceMember) {
	return newPersonalWorkspace(s.idGenerator, user.ID, user.Name, user.Email, now)
}

func newPersonalWorkspace(ids func() string, userID, name, email string, now time.Time) (persistence.Workspace, persistence.WorkspaceMember) {
	label := strings.TrimSpace(name)
	if label == "" {
		label = email
	}
	note := personalWorkspaceNote
	workspace := persistence.Workspace{
		ID:          ids(),
		Name:        fmt.Sprintf(personalWorkspaceLabel, label),
		Description: &note,
		Color:       defaultColor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	owner := persistence.WorkspaceMember{
		ID:          ids(),
		WorkspaceID: workspace.ID,
		UserID:      userID,
		Role:        persistence.RoleOwner,
		JoinedAt:    now,
	}
	return workspace, owner
}

// Authenticate validates credentials and issues a new session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.users == nil || s.sessions == nil {
		err = fmt.Errorf("auth repositories not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	password := params.Password

	logger := s.loggerWith(ctx, "Authenticate",
		"email", email,
	)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "authentication failed", err)
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	var user persistence.User
	user, err = s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if err = s.verifyPassword(user.PasswordHash, password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	s.upgradePasswordHash(ctx, logger, user, password, now)

	session := persistence.Session{
		ID:        s.idGenerator(),
		UserID:    user.ID,
		Token:     s.tokenGenerator(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	session, err = s.sessions.CreateSession(ctx, session)
	if err != nil {
		return
	}

	user.PasswordHash = ""
	result = AuthenticateResult{User: user, Session: session}
	return
}

// upgradePasswordHash re-hashes a just-verified password when the stored hash
// is legacy or weaker than the current parameters. Failures keep the old hash
// and never block the login.
func (s *AuthService) upgradePasswordHash(ctx context.Context, logger *slog.Logger, user persistence.User, password string, now time.Time) {
	if !s.needsRehash(user.PasswordHash) {
		return
	}
	hash, err := s.hashPassword(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash, now)
	}
	if err != nil {
		logger.WarnContext(ctx, "password hash upgrade failed", "user_id", user.ID, "error", err)
		return
	}
	logger.InfoContext(ctx, "password hash upgraded", "user_id", user.ID)
}

// RevokeSession invalidates an existing session token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrUnauthorized
	}

	logger := s.loggerWith(ctx, "RevokeSession")

	if _, err := s.sessions.RevokeSession(ctx, trimmed, s.now()); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			logFailure(ctx, logger, "failed to revoke session", ErrUnauthorized)
			return ErrUnauthorized
		}
		logFailure(ctx, logger, "failed to revoke session", err)
		return err
	}

	logger.InfoContext(ctx, "session revoked")
	return nil
}

// ValidateSession verifies that the provided token corresponds to an active session and returns its principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil || s.users == nil {
		err = fmt.Errorf("auth repositories not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "session validation failed", err)
			return
		}
		logger.With("principal_id", principal.UserID).DebugContext(ctx, "session validated")
	}()

	if trimmed == "" {
		err = ErrUnauthorized
		return
	}

	var session persistence.Session
	session, err = s.sessions.GetSession(ctx, trimmed)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	now := s.now()
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		err = ErrSessionRevoked
		return
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		err = ErrSessionExpired
		return
	}

	var user persistence.User
	user, err = s.users.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	principal = Principal{UserID: user.ID, Name: user.Name, Email: user.Email}
	return
}

// CurrentUser returns the account behind principal without its password hash.
func (s *AuthService) CurrentUser(ctx context.Context, principal Principal) (persistence.User, error) {
	if s == nil || s.users == nil {
		return persistence.User{}, fmt.Errorf("user repository not configured")
	}
	user, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.User{}, ErrUnauthorized
		}
		return persistence.User{}, err
	}
	user.PasswordHash = ""
	return user, nil
}

// PurgeExpiredSessions deletes sessions that expired or were revoked before now.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	if s == nil || s.sessions == nil {
		return 0, fmt.Errorf("session repository not configured")
	}

	logger := s.loggerWith(ctx, "PurgeExpiredSessions")
	removed, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		logFailure(ctx, logger, "failed to purge sessions", err)
		return 0, err
	}
	logger.InfoContext(ctx, "expired sessions purged", "removed", removed)
	return removed, nil
}
