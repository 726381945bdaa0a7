package router

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/n8Develop/BeeBeeBee/internal/session"
)

func (r *Router) handleRoomJoin(ctx context.Context, sess *session.Session, raw json.RawMessage) error {
	var p roomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" {
		return validationError("roomId is required")
	}
	if err := r.requireMembership(ctx, sess.User.ID, p.RoomID); err != nil {
		return err
	}

	if err := r.sessions.Subscribe(sess.ID, p.RoomID); err != nil {
		return err
	}
	if err := r.presence.MarkOnline(ctx, p.RoomID, sess.User.ID); err != nil {
		return err
	}

	// History and the current members list go to the joining session only.
	messages, err := r.history.History(ctx, p.RoomID)
	if err != nil {
		return err
	}
	sess.Send(EventRoomHistory, historyPayload{RoomID: p.RoomID, Messages: messages})

	members, err := r.buildMembersList(ctx, p.RoomID)
	if err != nil {
		return err
	}
	sess.Send(EventRoomMembers, membersPayload{RoomID: p.RoomID, Members: members})

	// Peers learn about the join and get the same refreshed members list.
	r.broadcastPeers(p.RoomID, sess.ID, EventRoomUserJoined, userPresencePayload{
		RoomID:   p.RoomID,
		UserID:   sess.User.ID,
		Username: sess.User.Username,
	})
	r.broadcastPeers(p.RoomID, sess.ID, EventRoomMembers, membersPayload{RoomID: p.RoomID, Members: members})

	r.logger.Debug("user joined room", slog.String("userID", sess.User.ID), slog.String("roomID", p.RoomID))
	return nil
}

func (r *Router) handleRoomLeave(ctx context.Context, sess *session.Session, raw json.RawMessage) error {
	var p roomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.RoomID == "" {
		return validationError("roomId is required")
	}
	return r.leaveRoom(ctx, sess, p.RoomID)
}

// leaveRoom is shared by the room:leave handler and per-room disconnect
// cleanup: presence and typing state go away, peers get a departure notice
// and a refreshed members list.
func (r *Router) leaveRoom(ctx context.Context, sess *session.Session, roomID string) error {
	r.sessions.Unsubscribe(sess.ID, roomID)

	if err := r.presence.MarkOffline(ctx, roomID, sess.User.ID); err != nil {
		return err
	}
	if err := r.presence.ClearTyping(ctx, roomID, sess.User.ID); err != nil {
		return err
	}

	r.broadcastPeers(roomID, sess.ID, EventRoomUserLeft, userPresencePayload{
		RoomID:   roomID,
		UserID:   sess.User.ID,
		Username: sess.User.Username,
	})
	members, err := r.buildMembersList(ctx, roomID)
	if err != nil {
		return err
	}
	r.broadcastPeers(roomID, sess.ID, EventRoomMembers, membersPayload{RoomID: roomID, Members: members})

	r.logger.Debug("user left room", slog.String("userID", sess.User.ID), slog.String("roomID", roomID))
	return nil
}
