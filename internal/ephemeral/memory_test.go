package ephemeral

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreValuesExpire(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	s.Now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, "k", "v", time.Minute))

	val, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", val)

	ttl, err := s.TTL(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, time.Minute, ttl)

	now = now.Add(time.Minute)
	_, ok, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok, "expired key must read as absent")
}

func TestMemoryStoreSetNX(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	now := time.Now()
	s.Now = func() time.Time { return now }

	ok, err := s.SetNX(ctx, "gate", "1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.SetNX(ctx, "gate", "1", time.Second)
	require.NoError(t, err)
	require.False(t, ok, "second SetNX within the window must fail")

	now = now.Add(time.Second)
	ok, err = s.SetNX(ctx, "gate", "1", time.Second)
	require.NoError(t, err)
	require.True(t, ok, "SetNX must succeed again once the key expired")
}

func TestMemoryStoreLists(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.RPush(ctx, "l", "a", "b", "c", "b"))

	vals, err := s.LRange(ctx, "l")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c", "b"}, vals)

	require.NoError(t, s.LRemAll(ctx, "l", "b"))
	vals, err = s.LRange(ctx, "l")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c"}, vals)
}

func TestMemoryStoreSets(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.SAdd(ctx, "s", "u1", "u2"))
	require.NoError(t, s.SAdd(ctx, "s", "u1")) // idempotent

	members, err := s.SMembers(ctx, "s")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"u1", "u2"}, members)

	hits, err := s.SIsMemberBatch(ctx, []SetMember{
		{Key: "s", Member: "u1"},
		{Key: "s", Member: "u3"},
		{Key: "missing", Member: "u1"},
	})
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, false}, hits)

	require.NoError(t, s.SRem(ctx, "s", "u1", "u2"))
	members, err = s.SMembers(ctx, "s")
	require.NoError(t, err)
	require.Empty(t, members)
}

func TestMemoryStoreHashes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.HSet(ctx, "h", "f1", "v1"))
	require.NoError(t, s.HSet(ctx, "h", "f2", "v2"))

	all, err := s.HGetAll(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"f1": "v1", "f2": "v2"}, all)

	require.NoError(t, s.HDel(ctx, "h", "f1"))
	all, err = s.HGetAll(ctx, "h")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"f2": "v2"}, all)
}
