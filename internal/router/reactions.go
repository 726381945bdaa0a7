package router

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/n8Develop/BeeBeeBee/internal/session"
)

// allowedEmojis is the closed reaction palette. Anything else is rejected
// before it touches the store.
var allowedEmojis = map[string]struct{}{
	"heart":      {},
	"laugh":      {},
	"fire":       {},
	"sad":        {},
	"thumbsup":   {},
	"thumbsdown": {},
	"star":       {},
	"question":   {},
}

func (r *Router) handleReaction(ctx context.Context, sess *session.Session, raw json.RawMessage, add bool) error {
	var p reactionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return validationError("Malformed reaction payload")
	}
	if p.RoomID == "" || p.MessageID == "" || p.Emoji == "" {
		return validationError("roomId, messageId and emoji are required")
	}
	if _, ok := allowedEmojis[p.Emoji]; !ok {
		return validationError("Unknown emoji: " + p.Emoji)
	}
	if err := r.requireMembership(ctx, sess.User.ID, p.RoomID); err != nil {
		return err
	}

	msg, err := r.history.Get(ctx, p.MessageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return errMessageNotFound
	}

	if add {
		msg.AddReaction(p.Emoji, sess.User.ID)
	} else {
		msg.RemoveReaction(p.Emoji, sess.User.ID)
	}

	// If the message expired between Get and Update the write is dropped and
	// the broadcast still goes out; clients reconcile on the next history
	// load. Racing reactions on the same message can overwrite each other,
	// which is acceptable for ephemeral state.
	updated, err := r.history.Update(ctx, p.MessageID, msg)
	if err != nil {
		return err
	}
	if !updated {
		r.logger.Debug("reaction update raced message expiry",
			slog.String("messageID", p.MessageID))
	}

	r.sessions.Publish(p.RoomID, EventReactionUpdated, reactionUpdatedPayload{
		RoomID:    p.RoomID,
		MessageID: p.MessageID,
		Reactions: msg.Reactions,
	})
	return nil
}
