package advisor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finwise/advisor/internal/storage"
)

// ErrQuotaExceeded is returned when a user has used up their advice quota
// for the trailing window.
var ErrQuotaExceeded = errors.New("advice quota exceeded")

// Limiter admits requests based on how many advice records a user has
// created within the trailing window. The decision is a pure query against
// the store: the check and the eventual record write are not atomic, so two
// concurrent requests from the same user can both pass before either
// persists. This is a soft limit by design; do not add locking here.
type Limiter struct {
	store  storage.Store
	limit  int
	window time.Duration
}

// NewLimiter creates a limiter admitting up to limit requests per window.
func NewLimiter(store storage.Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

// Limit returns the configured ceiling.
func (l *Limiter) Limit() int {
	return l.limit
}

// Allow checks the user's recent request count. It returns the remaining
// quota on admission, or ErrQuotaExceeded when the ceiling is reached.
func (l *Limiter) Allow(ctx context.Context, userID string, now time.Time) (remaining int, err error) {
	count, err := l.store.CountAdviceSince(ctx, userID, now.Add(-l.window))
	if err != nil {
		return 0, fmt.Errorf("failed to count recent requests: %w", err)
	}

	if count >= l.limit {
		return 0, ErrQuotaExceeded
	}

	// Remaining after this request is admitted.
	return l.limit - count - 1, nil
}
