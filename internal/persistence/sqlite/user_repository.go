package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/example/taskflow/internal/persistence"
)

// UserRepository implements persistence.UserRepository using SQLite.
type UserRepository struct {
	pool *ConnectionPool
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(pool *ConnectionPool) *UserRepository {
	return &UserRepository{pool: pool}
}

// RegisterUser inserts the user and their personal workspace in one transaction.
func (r *UserRepository) RegisterUser(ctx context.Context, user persistence.User, workspace persistence.Workspace, owner persistence.WorkspaceMember) error {
	if user.ID == "" || strings.TrimSpace(user.Email) == "" || user.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}
	user.Email = normalizeEmail(user.Email)

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, name, email, password_hash, role, avatar, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			user.ID,
			user.Name,
			user.Email,
			user.PasswordHash,
			user.Role,
			nullString(user.Avatar),
			formatTime(user.CreatedAt),
			formatTime(user.UpdatedAt),
		)
		if err != nil {
			return mapError(err)
		}

		if workspace.ID == "" {
			return nil
		}
		return insertWorkspace(ctx, tx, workspace, owner)
	})
}

// GetUser retrieves a user by identifier.
func (r *UserRepository) GetUser(ctx context.Context, id string) (persistence.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	return r.getBy(ctx, "email", normalizeEmail(email))
}

// UpdatePasswordHash replaces the stored hash, e.g. after upgrading a legacy bcrypt hash.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, userID, hash string, at time.Time) error {
	if userID == "" || hash == "" {
		return persistence.ErrConstraintViolation
	}
	res, err := r.pool.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, formatTime(at), userID,
	)
	if err != nil {
		return mapError(err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return mapError(err)
	} else if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *UserRepository) getBy(ctx context.Context, column, value string) (persistence.User, error) {
	if strings.TrimSpace(value) == "" {
		return persistence.User{}, persistence.ErrNotFound
	}

	var (
		user   persistence.User
		avatar sql.NullString
		ts     timeScanner
	)
	err := r.pool.conn(ctx).QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, role, avatar, created_at, updated_at
		FROM users
		WHERE `+column+` = ?
	`, value).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&avatar,
		ts.at(&user.CreatedAt),
		ts.at(&user.UpdatedAt),
	)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	if err := ts.parse(); err != nil {
		return persistence.User{}, err
	}
	user.Avatar = stringPtr(avatar)
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
