// Package ratelimit gates message sends to one per rolling second per user.
// The gate is a single SET-if-absent with a 1s expiry in the ephemeral store,
// so it holds across process restarts and is independent of any HTTP-layer
// throttling.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/n8Develop/BeeBeeBee/internal/ephemeral"
)

const window = time.Second

func limitKey(userID string) string {
	return fmt.Sprintf("bbb:ratelimit:%s", userID)
}

type Limiter struct {
	store ephemeral.Store
}

func NewLimiter(store ephemeral.Store) *Limiter {
	return &Limiter{store: store}
}

// Allow reports whether the user may send right now. A true result consumes
// the user's slot for the next second.
func (l *Limiter) Allow(ctx context.Context, userID string) (bool, error) {
	return l.store.SetNX(ctx, limitKey(userID), "1", window)
}
