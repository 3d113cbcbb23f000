package internal

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/hrm-access/internal/permission"
)

type ctxKey string

const ContextSessionKey ctxKey = "session"

// SessionFromContext returns the session attached by the auth middleware, or nil.
func SessionFromContext(ctx context.Context) *permission.Session {
	if ctx == nil {
		return nil
	}
	if s, ok := ctx.Value(ContextSessionKey).(*permission.Session); ok {
		return s
	}
	return nil
}

func ContextWithSession(ctx context.Context, session *permission.Session) context.Context {
	return context.WithValue(ctx, ContextSessionKey, session)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}

// IsTimeout reports whether err came from an expired deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
