package presence

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// typingStaleAfter is how long a typing signal stays visible without being
// refreshed.
const typingStaleAfter = 5 * time.Second

func roomTypingKey(roomID string) string {
	return fmt.Sprintf("bbb:room:%s:typing", roomID)
}

// SetTyping records that the user is typing in the room right now.
func (t *Tracker) SetTyping(ctx context.Context, roomID, userID string) error {
	ts := strconv.FormatInt(t.now().UnixMilli(), 10)
	return t.store.HSet(ctx, roomTypingKey(roomID), userID, ts)
}

// ClearTyping drops the user's typing entry.
func (t *Tracker) ClearTyping(ctx context.Context, roomID, userID string) error {
	return t.store.HDel(ctx, roomTypingKey(roomID), userID)
}

// TypingUserIDs returns the users with a fresh typing signal. Entries older
// than the staleness window are excluded and purged opportunistically.
func (t *Tracker) TypingUserIDs(ctx context.Context, roomID string) ([]string, error) {
	key := roomTypingKey(roomID)
	entries, err := t.store.HGetAll(ctx, key)
	if err != nil {
		return nil, err
	}

	now := t.now().UnixMilli()
	active := make([]string, 0, len(entries))
	var stale []string
	for userID, raw := range entries {
		ts, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || now-ts >= typingStaleAfter.Milliseconds() {
			stale = append(stale, userID)
			continue
		}
		active = append(active, userID)
	}

	if len(stale) > 0 {
		if err := t.store.HDel(ctx, key, stale...); err != nil {
			return nil, err
		}
	}
	return active, nil
}
