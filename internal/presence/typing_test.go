package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/n8Develop/BeeBeeBee/internal/ephemeral"
)

func TestTypingLifecycle(t *testing.T) {
	tr := newTracker()
	ctx := context.Background()

	require.NoError(t, tr.SetTyping(ctx, "r1", "u1"))
	require.NoError(t, tr.SetTyping(ctx, "r1", "u2"))

	users, err := tr.TypingUserIDs(ctx, "r1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"u1", "u2"}, users)

	require.NoError(t, tr.ClearTyping(ctx, "r1", "u1"))
	users, err = tr.TypingUserIDs(ctx, "r1")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"u2"}, users)
}

func TestTypingEntriesGoStale(t *testing.T) {
	mem := ephemeral.NewMemoryStore()
	tr := NewTracker(mem)
	ctx := context.Background()

	now := time.Now()
	tr.now = func() time.Time { return now }

	require.NoError(t, tr.SetTyping(ctx, "r1", "u1"))

	now = now.Add(3 * time.Second)
	require.NoError(t, tr.SetTyping(ctx, "r1", "u2"))

	// u1's signal is now 5s old and must be excluded even though it was
	// never explicitly stopped.
	now = now.Add(2 * time.Second)
	users, err := tr.TypingUserIDs(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, []string{"u2"}, users)

	// The stale entry was purged, not just filtered.
	entries, err := mem.HGetAll(ctx, "bbb:room:r1:typing")
	require.NoError(t, err)
	require.NotContains(t, entries, "u1")
}
