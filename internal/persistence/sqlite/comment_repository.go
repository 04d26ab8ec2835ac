package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/taskflow/internal/persistence"
)

// CommentRepository implements persistence.CommentRepository using SQLite.
type CommentRepository struct {
	pool *ConnectionPool
}

// NewCommentRepository creates a new SQLite comment repository.
func NewCommentRepository(pool *ConnectionPool) *CommentRepository {
	return &CommentRepository{pool: pool}
}

// CreateComment inserts a comment.
func (r *CommentRepository) CreateComment(ctx context.Context, comment persistence.Comment) error {
	if comment.ID == "" || comment.TaskID == "" || comment.AuthorID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO comments (id, task_id, author_id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		comment.ID,
		comment.TaskID,
		comment.AuthorID,
		comment.Content,
		formatTime(comment.CreatedAt),
		formatTime(comment.UpdatedAt),
	)
	return mapError(err)
}

const commentSelect = `
	SELECT c.id, c.task_id, c.author_id, c.content, c.created_at, c.updated_at, u.name, u.email, u.avatar
	FROM comments c
	JOIN users u ON u.id = c.author_id
`

func scanComment(scan func(dest ...any) error) (persistence.Comment, error) {
	var (
		comment     persistence.Comment
		name, email string
		avatar      sql.NullString
		ts          timeScanner
	)
	if err := scan(
		&comment.ID,
		&comment.TaskID,
		&comment.AuthorID,
		&comment.Content,
		ts.at(&comment.CreatedAt),
		ts.at(&comment.UpdatedAt),
		&name,
		&email,
		&avatar,
	); err != nil {
		return persistence.Comment{}, mapError(err)
	}
	if err := ts.parse(); err != nil {
		return persistence.Comment{}, err
	}
	comment.Author = userRefFrom(comment.AuthorID, name, email, avatar)
	return comment, nil
}

// GetComment retrieves a comment with its author.
func (r *CommentRepository) GetComment(ctx context.Context, id string) (persistence.Comment, error) {
	return scanComment(r.pool.conn(ctx).QueryRowContext(ctx, commentSelect+` WHERE c.id = ?`, id).Scan)
}

// ListComments returns the comments of a task, newest first.
func (r *CommentRepository) ListComments(ctx context.Context, taskID string) ([]persistence.Comment, error) {
	rows, err := r.pool.conn(ctx).QueryContext(ctx, commentSelect+` WHERE c.task_id = ? ORDER BY c.created_at DESC, c.id DESC`, taskID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var comments []persistence.Comment
	for rows.Next() {
		comment, err := scanComment(rows.Scan)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}
	return comments, mapError(rows.Err())
}

// DeleteComment removes a comment.
func (r *CommentRepository) DeleteComment(ctx context.Context, id string) error {
	result, err := r.pool.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}
