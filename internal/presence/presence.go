// Package presence tracks which users are online, per room and globally, in
// the ephemeral store, and mirrors block relationships for fast delivery
// filtering.
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/n8Develop/BeeBeeBee/internal/ephemeral"
)

const globalOnlineKey = "bbb:online"

func roomOnlineKey(roomID string) string {
	return fmt.Sprintf("bbb:room:%s:online", roomID)
}

func blocksKey(userID string) string {
	return fmt.Sprintf("bbb:blocks:%s", userID)
}

type Tracker struct {
	store ephemeral.Store
	now   func() time.Time
}

func NewTracker(store ephemeral.Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// MarkOnline adds the user to the room's online set. Idempotent.
func (t *Tracker) MarkOnline(ctx context.Context, roomID, userID string) error {
	return t.store.SAdd(ctx, roomOnlineKey(roomID), userID)
}

// MarkOffline removes the user from the room's online set. Idempotent.
func (t *Tracker) MarkOffline(ctx context.Context, roomID, userID string) error {
	return t.store.SRem(ctx, roomOnlineKey(roomID), userID)
}

func (t *Tracker) ListOnline(ctx context.Context, roomID string) ([]string, error) {
	return t.store.SMembers(ctx, roomOnlineKey(roomID))
}

func (t *Tracker) MarkGlobalOnline(ctx context.Context, userID string) error {
	return t.store.SAdd(ctx, globalOnlineKey, userID)
}

func (t *Tracker) MarkGlobalOffline(ctx context.Context, userID string) error {
	return t.store.SRem(ctx, globalOnlineKey, userID)
}

func (t *Tracker) IsGlobalOnline(ctx context.Context, userID string) (bool, error) {
	hits, err := t.store.SIsMemberBatch(ctx, []ephemeral.SetMember{
		{Key: globalOnlineKey, Member: userID},
	})
	if err != nil {
		return false, err
	}
	return hits[0], nil
}

// BatchOnlineStatus resolves the global online flag for many users in a
// single store round trip.
func (t *Tracker) BatchOnlineStatus(ctx context.Context, userIDs []string) (map[string]bool, error) {
	if len(userIDs) == 0 {
		return map[string]bool{}, nil
	}
	pairs := make([]ephemeral.SetMember, len(userIDs))
	for i, id := range userIDs {
		pairs[i] = ephemeral.SetMember{Key: globalOnlineKey, Member: id}
	}
	hits, err := t.store.SIsMemberBatch(ctx, pairs)
	if err != nil {
		return nil, err
	}
	status := make(map[string]bool, len(userIDs))
	for i, id := range userIDs {
		status[id] = hits[i]
	}
	return status, nil
}

// CacheBlocklist replaces the cached block set for the user. A replace, not a
// merge: the durable block list is the source of truth.
func (t *Tracker) CacheBlocklist(ctx context.Context, userID string, blockedIDs []string) error {
	key := blocksKey(userID)
	if err := t.store.Del(ctx, key); err != nil {
		return err
	}
	if len(blockedIDs) == 0 {
		return nil
	}
	return t.store.SAdd(ctx, key, blockedIDs...)
}

func (t *Tracker) ClearBlocklist(ctx context.Context, userID string) error {
	return t.store.Del(ctx, blocksKey(userID))
}

// IsBlockedEitherDirection reports whether a blocks b or b blocks a. Both
// probes go out in one round trip.
func (t *Tracker) IsBlockedEitherDirection(ctx context.Context, a, b string) (bool, error) {
	hits, err := t.store.SIsMemberBatch(ctx, []ephemeral.SetMember{
		{Key: blocksKey(a), Member: b},
		{Key: blocksKey(b), Member: a},
	})
	if err != nil {
		return false, err
	}
	return hits[0] || hits[1], nil
}

// FilterBlocked answers, for each candidate recipient, whether delivery
// between the sender and that candidate is suppressed in either direction.
// All probes are batched into a single round trip so fan-out latency does not
// grow with room size.
func (t *Tracker) FilterBlocked(ctx context.Context, senderID string, candidateIDs []string) (map[string]bool, error) {
	if len(candidateIDs) == 0 {
		return map[string]bool{}, nil
	}
	pairs := make([]ephemeral.SetMember, 0, len(candidateIDs)*2)
	for _, id := range candidateIDs {
		pairs = append(pairs,
			ephemeral.SetMember{Key: blocksKey(senderID), Member: id},
			ephemeral.SetMember{Key: blocksKey(id), Member: senderID},
		)
	}
	hits, err := t.store.SIsMemberBatch(ctx, pairs)
	if err != nil {
		return nil, err
	}
	blocked := make(map[string]bool, len(candidateIDs))
	for i, id := range candidateIDs {
		blocked[id] = hits[2*i] || hits[2*i+1]
	}
	return blocked, nil
}
