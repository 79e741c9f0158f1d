package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/hitster/internal/platform/logger"
	"golang.org/x/time/rate"
)

// Throttle wraps a Fetcher with a token-bucket limiter shared by every caller,
// so concurrent workers stay under the catalog's request budget.
type Throttle struct {
	next    Fetcher
	limiter *rate.Limiter
}

// NewThrottle returns a Fetcher allowing rps requests per second with the
// given burst. A non-positive rps disables limiting.
func NewThrottle(next Fetcher, rps float64, burst int) *Throttle {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttle{next: next, limiter: rate.NewLimiter(limit, burst)}
}

var _ Fetcher = (*Throttle)(nil)

// Fetch waits for a token and delegates. A wait that cannot finish before the
// context deadline is reported as ErrRateLimited without calling the catalog.
func (t *Throttle) Fetch(ctx context.Context, externalID string) (*Playlist, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		logger.FromContext(ctx).Warn("catalog request throttled",
			slog.String("external_id", externalID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return t.next.Fetch(ctx, externalID)
}
