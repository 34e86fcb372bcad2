// Package context holds the small context helpers shared by the concurrent
// layers around the pipeline engine.
package context

import (
	"context"
	"errors"
	"time"
)

// WithOptionalTimeout bounds parent by timeout. A non-positive timeout only
// adds a cancel function, so callers can defer cancel unconditionally.
func WithOptionalTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

// IsCanceled reports whether ctx is already done, without blocking.
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// IsTimeout reports whether err stems from an expired deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// Detached returns a context that keeps the values of ctx but is never
// canceled. Run history is recorded with it so a stopping scheduler still
// delivers the entry of a run that already finished.
func Detached(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
