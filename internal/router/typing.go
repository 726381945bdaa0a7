package router

import (
	"context"
	"encoding/json"

	"github.com/n8Develop/BeeBeeBee/internal/session"
)

func (r *Router) handleTyping(ctx context.Context, sess *session.Session, raw json.RawMessage, start bool) error {
	var p roomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" {
		return validationError("roomId is required")
	}
	if err := r.requireMembership(ctx, sess.User.ID, p.RoomID); err != nil {
		return err
	}

	if start {
		if err := r.presence.SetTyping(ctx, p.RoomID, sess.User.ID); err != nil {
			return err
		}
	} else {
		if err := r.presence.ClearTyping(ctx, p.RoomID, sess.User.ID); err != nil {
			return err
		}
	}

	users, err := r.buildTypingList(ctx, p.RoomID)
	if err != nil {
		return err
	}
	// The typer already knows they are typing; only peers need the update.
	r.broadcastPeers(p.RoomID, sess.ID, EventTypingUpdate, typingUpdatePayload{
		RoomID: p.RoomID,
		Users:  users,
	})
	return nil
}
