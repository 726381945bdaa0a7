package presence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/n8Develop/BeeBeeBee/internal/ephemeral"
)

func newTracker() *Tracker {
	return NewTracker(ephemeral.NewMemoryStore())
}

func TestMarkOnlineIsIdempotent(t *testing.T) {
	tr := newTracker()
	ctx := context.Background()

	require.NoError(t, tr.MarkOnline(ctx, "r1", "u1"))
	require.NoError(t, tr.MarkOnline(ctx, "r1", "u1"))
	require.NoError(t, tr.MarkOnline(ctx, "r1", "u2"))

	online, err := tr.ListOnline(ctx, "r1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"u1", "u2"}, online)

	require.NoError(t, tr.MarkOffline(ctx, "r1", "u1"))
	require.NoError(t, tr.MarkOffline(ctx, "r1", "u1"))

	online, err = tr.ListOnline(ctx, "r1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"u2"}, online)
}

func TestGlobalOnline(t *testing.T) {
	tr := newTracker()
	ctx := context.Background()

	require.NoError(t, tr.MarkGlobalOnline(ctx, "u1"))

	on, err := tr.IsGlobalOnline(ctx, "u1")
	require.NoError(t, err)
	require.True(t, on)

	status, err := tr.BatchOnlineStatus(ctx, []string{"u1", "u2"})
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"u1": true, "u2": false}, status)

	require.NoError(t, tr.MarkGlobalOffline(ctx, "u1"))
	on, err = tr.IsGlobalOnline(ctx, "u1")
	require.NoError(t, err)
	require.False(t, on)
}

func TestBlocklistIsBidirectional(t *testing.T) {
	tr := newTracker()
	ctx := context.Background()

	require.NoError(t, tr.CacheBlocklist(ctx, "a", []string{"b"}))

	blocked, err := tr.IsBlockedEitherDirection(ctx, "a", "b")
	require.NoError(t, err)
	require.True(t, blocked)

	// The same pair checked from the other side.
	blocked, err = tr.IsBlockedEitherDirection(ctx, "b", "a")
	require.NoError(t, err)
	require.True(t, blocked)

	blocked, err = tr.IsBlockedEitherDirection(ctx, "a", "c")
	require.NoError(t, err)
	require.False(t, blocked)
}

func TestCacheBlocklistReplaces(t *testing.T) {
	tr := newTracker()
	ctx := context.Background()

	require.NoError(t, tr.CacheBlocklist(ctx, "a", []string{"b", "c"}))
	require.NoError(t, tr.CacheBlocklist(ctx, "a", []string{"d"}))

	blocked, err := tr.IsBlockedEitherDirection(ctx, "a", "b")
	require.NoError(t, err)
	require.False(t, blocked, "replaced blocklist must not retain old entries")

	blocked, err = tr.IsBlockedEitherDirection(ctx, "a", "d")
	require.NoError(t, err)
	require.True(t, blocked)
}

func TestFilterBlocked(t *testing.T) {
	tr := newTracker()
	ctx := context.Background()

	require.NoError(t, tr.CacheBlocklist(ctx, "sender", []string{"x"}))
	require.NoError(t, tr.CacheBlocklist(ctx, "y", []string{"sender"}))

	blocked, err := tr.FilterBlocked(ctx, "sender", []string{"x", "y", "z"})
	require.NoError(t, err)
	require.Equal(t, map[string]bool{"x": true, "y": true, "z": false}, blocked)
}
