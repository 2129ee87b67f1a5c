package mongo

import (
	"context"
	"time"
)

// WithTimeout bounds a single repository call. The driver looks the session
// up through ctx.Value, so calls made inside a transaction keep their session
// and still get the per-call bound.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, timeout)
}
