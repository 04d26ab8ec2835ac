package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/taskflow/internal/access"
	"github.com/example/taskflow/internal/persistence"
)

// CommentService manages task comments.
type CommentService struct {
	comments    persistence.CommentRepository
	authz       Authorizer
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewCommentService constructs a comment service with the provided dependencies.
func NewCommentService(comments persistence.CommentRepository, authz Authorizer, idGenerator func() string, now func() time.Time) *CommentService {
	return NewCommentServiceWithLogger(comments, authz, idGenerator, now, nil)
}

// NewCommentServiceWithLogger constructs a comment service with a specified logger.
func NewCommentServiceWithLogger(comments persistence.CommentRepository, authz Authorizer, idGenerator func() string, now func() time.Time, logger *slog.Logger) *CommentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &CommentService{comments: comments, authz: authz, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *CommentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "CommentService", operation, attrs...)
}

func (s *CommentService) ready() error {
	if s == nil || s.comments == nil || s.authz == nil {
		return fmt.Errorf("comment service not configured")
	}
	return nil
}

// Create adds a comment to a task visible to the caller.
func (s *CommentService) Create(ctx context.Context, principal Principal, input CommentInput) (comment persistence.Comment, err error) {
	if err = s.ready(); err != nil {
		return
	}

	input.Content = strings.TrimSpace(input.Content)
	logger := s.loggerWith(ctx, "Create", "principal_id", principal.UserID, "task_id", input.TaskID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to create comment", err)
			return
		}
		logger.With("comment_id", comment.ID).InfoContext(ctx, "comment created")
	}()

	if vErr := validateStruct(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if _, err = s.authz.Check(ctx, principal.UserID, access.Task(input.TaskID), access.WorkspaceMember); err != nil {
		err = fromAccess(err, ErrNotFound)
		return
	}

	now := s.now()
	record := persistence.Comment{
		ID:        s.idGenerator(),
		TaskID:    input.TaskID,
		AuthorID:  principal.UserID,
		Content:   input.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.comments.CreateComment(ctx, record); err != nil {
		err = fromRepo(err)
		return
	}

	comment, err = s.comments.GetComment(ctx, record.ID)
	return
}

// List returns a visible task's comments, newest first.
func (s *CommentService) List(ctx context.Context, principal Principal, taskID string) ([]persistence.Comment, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if _, err := s.authz.Check(ctx, principal.UserID, access.Task(taskID), access.WorkspaceMember); err != nil {
		return nil, fromAccess(err, ErrNotFound)
	}
	return s.comments.ListComments(ctx, taskID)
}

// Delete removes a comment. Only its author or a workspace ADMIN or OWNER may do so;
// everyone else sees not found.
func (s *CommentService) Delete(ctx context.Context, principal Principal, commentID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Delete", "principal_id", principal.UserID, "comment_id", commentID)
	defer func() {
		if err != nil {
			logFailure(ctx, logger, "failed to delete comment", err)
			return
		}
		logger.InfoContext(ctx, "comment deleted")
	}()

	if _, err = s.authz.Check(ctx, principal.UserID, access.Comment(commentID), access.AuthorOrWorkspaceAdmin); err != nil {
		err = fromAccess(err, ErrNotFound)
		return
	}
	err = fromRepo(s.comments.DeleteComment(ctx, commentID))
	return
}
