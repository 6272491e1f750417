package session

import (
	"context"

	"github.com/icap-edu/icap-portal-gateway/internal/models"
)

type contextKey struct{}

// NewContext stores the session in a request context so code that only sees
// the context, like the upstream 401 hook, can still reach it.
func NewContext(ctx context.Context, sess *models.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext retrieves the session stored by NewContext.
func FromContext(ctx context.Context) (*models.Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(*models.Session)
	return sess, ok
}
