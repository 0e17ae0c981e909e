package middleware

import (
	"context"

	"github.com/angelmondragon/crumbly-backend/pkg/outbox"
)

type contextKey string

const (
	ctxSubject contextKey = "subject"
	ctxRole    contextKey = "actor_role"
	ctxEmail   contextKey = "email"
)

func SubjectFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSubject).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// ActorFromContext builds the outbox actor for the authenticated caller, or
// nil for anonymous requests.
func ActorFromContext(ctx context.Context) *outbox.ActorRef {
	subject := SubjectFromContext(ctx)
	role := RoleFromContext(ctx)
	if subject == "" && role == "" {
		return nil
	}
	return &outbox.ActorRef{Subject: subject, Role: role}
}

// WithIdentity injects the caller identity into the context.
func WithIdentity(ctx context.Context, subject, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxSubject, subject)
	return context.WithValue(ctx, ctxRole, role)
}
