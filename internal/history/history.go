// Package history stores room messages as expiring cache entries: a JSON body
// per message with a 48h TTL, plus a per-room list of message IDs in send
// order. Expired bodies are dropped from reads and their IDs pruned lazily.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/n8Develop/BeeBeeBee/internal/ephemeral"
)

// MessageTTL bounds how long a message survives. Updates preserve the
// remaining TTL; nothing ever extends it.
const MessageTTL = 48 * time.Hour

func messageKey(messageID string) string {
	return fmt.Sprintf("bbb:msg:%s", messageID)
}

func roomListKey(roomID string) string {
	return fmt.Sprintf("bbb:room:%s:msglist", roomID)
}

type Store struct {
	store  ephemeral.Store
	logger *slog.Logger
}

func NewStore(store ephemeral.Store, logger *slog.Logger) *Store {
	return &Store{
		store:  store,
		logger: logger.With(slog.String("component", "history")),
	}
}

// Store writes the message body with the full TTL and appends its ID to the
// room's ordered list.
func (s *Store) Store(ctx context.Context, roomID string, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := s.store.Set(ctx, messageKey(msg.ID), string(data), MessageTTL); err != nil {
		return err
	}
	return s.store.RPush(ctx, roomListKey(roomID), msg.ID)
}

// Get returns the message, or nil if it expired or never existed. The two
// cases are indistinguishable.
func (s *Store) Get(ctx context.Context, messageID string) (*Message, error) {
	data, ok, err := s.store.Get(ctx, messageKey(messageID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var msg Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message %s: %w", messageID, err)
	}
	return &msg, nil
}

// Update rewrites the message body preserving the TTL read just before the
// write. Returns false when the message expired in between; that race is
// accepted, not locked around.
func (s *Store) Update(ctx context.Context, messageID string, msg *Message) (bool, error) {
	key := messageKey(messageID)
	ttl, err := s.store.TTL(ctx, key)
	if err != nil {
		return false, err
	}
	if ttl <= 0 {
		return false, nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return false, fmt.Errorf("marshal message: %w", err)
	}
	if err := s.store.Set(ctx, key, string(data), ttl); err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the message body and its room-list entry.
func (s *Store) Delete(ctx context.Context, roomID, messageID string) error {
	if err := s.store.Del(ctx, messageKey(messageID)); err != nil {
		return err
	}
	return s.store.LRemAll(ctx, roomListKey(roomID), messageID)
}

// History returns the room's live messages in send order. IDs whose body has
// expired are dropped from the result and pruned from the list in the
// background; pruning never blocks the read and its failure is only logged.
func (s *Store) History(ctx context.Context, roomID string) ([]Message, error) {
	listKey := roomListKey(roomID)
	ids, err := s.store.LRange(ctx, listKey)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Message{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = messageKey(id)
	}
	bodies, err := s.store.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(ids))
	var stale []string
	for i, body := range bodies {
		if body == nil {
			stale = append(stale, ids[i])
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(*body), &msg); err != nil {
			s.logger.Warn("dropping undecodable message body", slog.String("messageID", ids[i]), slog.Any("error", err))
			stale = append(stale, ids[i])
			continue
		}
		messages = append(messages, msg)
	}

	if len(stale) > 0 {
		go s.prune(listKey, stale)
	}
	return messages, nil
}

// prune removes expired IDs from a room list. Best effort; runs detached from
// the read that discovered them.
func (s *Store) prune(listKey string, staleIDs []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.LRemAll(ctx, listKey, staleIDs...); err != nil {
		s.logger.Warn("failed to prune stale message ids",
			slog.String("listKey", listKey),
			slog.Int("count", len(staleIDs)),
			slog.Any("error", err),
		)
	}
}
