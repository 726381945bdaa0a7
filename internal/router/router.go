// Package router dispatches inbound realtime events to their handlers and
// runs the connect/disconnect lifecycle. Every handler is individually
// fault-isolated: whatever goes wrong becomes a single "error" event back to
// the originating session and nothing else.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/n8Develop/BeeBeeBee/internal/directory"
	"github.com/n8Develop/BeeBeeBee/internal/history"
	"github.com/n8Develop/BeeBeeBee/internal/metrics"
	"github.com/n8Develop/BeeBeeBee/internal/presence"
	"github.com/n8Develop/BeeBeeBee/internal/ratelimit"
	"github.com/n8Develop/BeeBeeBee/internal/session"
)

// ImageRemover deletes an uploaded image by its content reference.
type ImageRemover interface {
	Remove(ref string) error
}

type Router struct {
	logger   *slog.Logger
	sessions *session.Manager
	presence *presence.Tracker
	history  *history.Store
	limiter  *ratelimit.Limiter
	dir      directory.Directory
	images   ImageRemover

	newMessageID func() string
	now          func() time.Time
}

func New(
	logger *slog.Logger,
	sessions *session.Manager,
	tracker *presence.Tracker,
	messages *history.Store,
	limiter *ratelimit.Limiter,
	dir directory.Directory,
	images ImageRemover,
) *Router {
	return &Router{
		logger:       logger.With(slog.String("component", "event_router")),
		sessions:     sessions,
		presence:     tracker,
		history:      messages,
		limiter:      limiter,
		dir:          dir,
		images:       images,
		newMessageID: func() string { return ulid.Make().String() },
		now:          time.Now,
	}
}

// HandleMessage is the transport callback for inbound frames. It runs on the
// connection's read pump, so events from one session are handled strictly in
// order.
func (r *Router) HandleMessage(ctx context.Context, connID uuid.UUID, msg []byte) {
	sess, ok := r.sessions.Get(connID)
	if !ok {
		r.logger.Warn("dropping event for unknown session", slog.String("connID", connID.String()))
		return
	}

	var cm clientMessage
	if err := json.Unmarshal(msg, &cm); err != nil {
		r.emitError(sess, "event", validationError("Malformed event frame"))
		return
	}

	metrics.EventsHandled.WithLabelValues(cm.Event).Inc()
	if err := r.handle(ctx, sess, cm); err != nil {
		r.emitError(sess, cm.Event, err)
	}
}

// handle dispatches one event, converting panics into errors so a broken
// handler can never take down the connection or its peers.
func (r *Router) handle(ctx context.Context, sess *session.Session, cm clientMessage) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic in event handler",
				slog.String("event", cm.Event),
				slog.String("userID", sess.User.ID),
				slog.Any("panic", rec),
			)
			err = &Error{Code: CodeInternal, Message: "Failed to handle " + cm.Event}
		}
	}()

	switch cm.Event {
	case EventRoomJoin:
		return r.handleRoomJoin(ctx, sess, cm.Payload)
	case EventRoomLeave:
		return r.handleRoomLeave(ctx, sess, cm.Payload)
	case EventMessageSend:
		return r.handleMessageSend(ctx, sess, cm.Payload)
	case EventMessageDelete:
		return r.handleMessageDelete(ctx, sess, cm.Payload)
	case EventReactionAdd:
		return r.handleReaction(ctx, sess, cm.Payload, true)
	case EventReactionRemove:
		return r.handleReaction(ctx, sess, cm.Payload, false)
	case EventTypingStart:
		return r.handleTyping(ctx, sess, cm.Payload, true)
	case EventTypingStop:
		return r.handleTyping(ctx, sess, cm.Payload, false)
	default:
		return validationError("Unknown event: " + cm.Event)
	}
}

// emitError reports a failure to the originating session only. Unexpected
// errors are logged with context and degraded to a generic message so
// internals never leak to clients.
func (r *Router) emitError(sess *session.Session, event string, err error) {
	protoErr, ok := err.(*Error)
	if !ok {
		r.logger.Error("event handler failed",
			slog.String("event", event),
			slog.String("userID", sess.User.ID),
			slog.Any("error", err),
		)
		protoErr = &Error{Code: CodeInternal, Message: "Failed to handle " + event}
	}
	metrics.EventErrors.WithLabelValues(protoErr.Code).Inc()
	sess.Send(EventError, protoErr)
}

// requireMembership resolves the room and the caller's membership in it.
func (r *Router) requireMembership(ctx context.Context, userID, roomID string) error {
	room, err := r.dir.FindRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return errRoomNotFound
	}
	member, err := r.dir.IsRoomMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !member {
		return errNotMember
	}
	return nil
}

// buildMembersList overlays the room's online set on its durable member list.
func (r *Router) buildMembersList(ctx context.Context, roomID string) ([]Member, error) {
	dbMembers, err := r.dir.RoomMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	online, err := r.presence.ListOnline(ctx, roomID)
	if err != nil {
		return nil, err
	}
	onlineSet := make(map[string]struct{}, len(online))
	for _, id := range online {
		onlineSet[id] = struct{}{}
	}

	members := make([]Member, 0, len(dbMembers))
	for _, m := range dbMembers {
		_, isOnline := onlineSet[m.ID]
		members = append(members, Member{UserID: m.ID, Username: m.Username, Online: isOnline})
	}
	return members, nil
}

// buildTypingList resolves fresh typing signals to room members with their
// usernames. Typing users who are no longer members are dropped.
func (r *Router) buildTypingList(ctx context.Context, roomID string) ([]TypingUser, error) {
	typingIDs, err := r.presence.TypingUserIDs(ctx, roomID)
	if err != nil {
		return nil, err
	}
	dbMembers, err := r.dir.RoomMembers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	usernames := make(map[string]string, len(dbMembers))
	for _, m := range dbMembers {
		usernames[m.ID] = m.Username
	}

	users := make([]TypingUser, 0, len(typingIDs))
	for _, id := range typingIDs {
		username, ok := usernames[id]
		if !ok {
			continue
		}
		users = append(users, TypingUser{UserID: id, Username: username})
	}
	return users, nil
}

// broadcastPeers delivers an event to every session in the room except the
// caller's.
func (r *Router) broadcastPeers(roomID string, exclude uuid.UUID, event string, payload any) {
	for _, peer := range r.sessions.SessionsIn(roomID) {
		if peer.ID == exclude {
			continue
		}
		peer.Send(event, payload)
	}
}
