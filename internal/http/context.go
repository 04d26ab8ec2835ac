package http

import (
	"context"

	"github.com/example/taskflow/internal/application"
	"github.com/example/taskflow/internal/logging"
)

type principalKey struct{}

// ContextWithPrincipal stores the session's principal and tags the request
// logger, if any, with the caller's user id.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey{}, principal)
	if l := logging.FromContext(ctx); l != nil {
		ctx = logging.ContextWithLogger(ctx, l.With("user_id", principal.UserID))
	}
	return ctx
}

// PrincipalFromContext is only guaranteed to succeed behind RequireSession.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalKey{}).(application.Principal)
	return principal, ok
}
