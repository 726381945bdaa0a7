package router

import (
	"context"
	"log/slog"

	"github.com/n8Develop/BeeBeeBee/internal/session"
)

// HandleConnect runs once per established session. It joins the user's
// personal channel, publishes global presence, warms the block cache and
// notifies online friends. An error here aborts the connection.
func (r *Router) HandleConnect(ctx context.Context, sess *session.Session) error {
	if err := r.sessions.Subscribe(sess.ID, session.UserChannel(sess.User.ID)); err != nil {
		return err
	}
	if err := r.presence.MarkGlobalOnline(ctx, sess.User.ID); err != nil {
		return err
	}

	blocked, err := r.dir.BlockedUserIDs(ctx, sess.User.ID)
	if err != nil {
		return err
	}
	if err := r.presence.CacheBlocklist(ctx, sess.User.ID, blocked); err != nil {
		return err
	}

	friends, err := r.dir.Friends(ctx, sess.User.ID)
	if err != nil {
		return err
	}
	for _, f := range friends {
		r.sessions.Publish(session.UserChannel(f.UserID), EventFriendOnline, friendPresencePayload{
			UserID:   sess.User.ID,
			Username: sess.User.Username,
		})
	}

	r.logger.Info("session connected",
		slog.String("connID", sess.ID.String()),
		slog.String("userID", sess.User.ID),
	)
	return nil
}

// HandleDisconnect cleans up after a session that has already been removed
// from the registry. channels is the snapshot of subscriptions the session
// held. Cleanup is best effort: a failing step is logged and the rest still
// runs, since there is no way to retry against a gone connection.
//
// Presence is keyed by user, not by session, so closing one tab of a
// multi-tab user briefly flickers them offline until another tab re-joins.
func (r *Router) HandleDisconnect(ctx context.Context, sess *session.Session, channels []string) {
	for _, channel := range channels {
		if session.IsUserChannel(channel) {
			continue
		}
		roomID := channel
		if err := r.presence.MarkOffline(ctx, roomID, sess.User.ID); err != nil {
			r.logger.Warn("disconnect presence cleanup failed",
				slog.String("roomID", roomID), slog.Any("error", err))
		}
		if err := r.presence.ClearTyping(ctx, roomID, sess.User.ID); err != nil {
			r.logger.Warn("disconnect typing cleanup failed",
				slog.String("roomID", roomID), slog.Any("error", err))
		}

		r.sessions.Publish(roomID, EventRoomUserLeft, userPresencePayload{
			RoomID:   roomID,
			UserID:   sess.User.ID,
			Username: sess.User.Username,
		})
		members, err := r.buildMembersList(ctx, roomID)
		if err != nil {
			r.logger.Warn("disconnect members refresh failed",
				slog.String("roomID", roomID), slog.Any("error", err))
			continue
		}
		r.sessions.Publish(roomID, EventRoomMembers, membersPayload{RoomID: roomID, Members: members})
	}

	if err := r.presence.MarkGlobalOffline(ctx, sess.User.ID); err != nil {
		r.logger.Warn("disconnect global presence cleanup failed", slog.Any("error", err))
	}
	if err := r.presence.ClearBlocklist(ctx, sess.User.ID); err != nil {
		r.logger.Warn("disconnect blocklist cleanup failed", slog.Any("error", err))
	}

	friends, err := r.dir.Friends(ctx, sess.User.ID)
	if err != nil {
		r.logger.Warn("disconnect friend lookup failed", slog.Any("error", err))
	} else {
		for _, f := range friends {
			r.sessions.Publish(session.UserChannel(f.UserID), EventFriendOffline, friendPresencePayload{
				UserID:   sess.User.ID,
				Username: sess.User.Username,
			})
		}
	}

	r.logger.Info("session disconnected",
		slog.String("connID", sess.ID.String()),
		slog.String("userID", sess.User.ID),
	)
}
