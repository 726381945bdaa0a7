package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/n8Develop/BeeBeeBee/internal/history"
	"github.com/n8Develop/BeeBeeBee/internal/metrics"
	"github.com/n8Develop/BeeBeeBee/internal/session"
)

const maxTextLength = 2000

func (r *Router) handleMessageSend(ctx context.Context, sess *session.Session, raw json.RawMessage) error {
	var p sendPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return validationError("Malformed message:send payload")
	}
	if p.RoomID == "" || p.Type == "" || len(p.Content) == 0 {
		return validationError("roomId, type and content are required")
	}
	if err := validateContent(p.Type, p.Content); err != nil {
		return err
	}
	if err := r.requireMembership(ctx, sess.User.ID, p.RoomID); err != nil {
		return err
	}

	allowed, err := r.limiter.Allow(ctx, sess.User.ID)
	if err != nil {
		return err
	}
	if !allowed {
		metrics.RateLimitHits.Inc()
		return errRateLimited
	}

	// Resolve recipients before anything is stored: if the block filter is
	// unavailable the whole send fails, nothing is written and nothing can
	// leak across a block.
	recipients, err := r.roomRecipients(ctx, p.RoomID, sess.User.ID)
	if err != nil {
		return err
	}

	msg := &history.Message{
		ID:        r.newMessageID(),
		RoomID:    p.RoomID,
		UserID:    sess.User.ID,
		Username:  sess.User.Username,
		Type:      p.Type,
		Content:   p.Content,
		Reactions: []history.Reaction{},
		Timestamp: r.now().UTC().Format(time.RFC3339Nano),
	}
	if err := r.history.Store(ctx, p.RoomID, msg); err != nil {
		return err
	}
	metrics.MessagesSent.WithLabelValues(p.Type).Inc()

	for _, rcpt := range recipients {
		rcpt.Send(EventMessageNew, msg)
	}
	return nil
}

// roomRecipients resolves the sessions a sender's message reaches: everyone
// in the room minus users with a block in either direction.
func (r *Router) roomRecipients(ctx context.Context, roomID, senderID string) ([]*session.Session, error) {
	subscribers := r.sessions.SessionsIn(roomID)
	if len(subscribers) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(subscribers))
	candidates := make([]string, 0, len(subscribers))
	for _, sub := range subscribers {
		if sub.User.ID == senderID {
			continue
		}
		if _, ok := seen[sub.User.ID]; ok {
			continue
		}
		seen[sub.User.ID] = struct{}{}
		candidates = append(candidates, sub.User.ID)
	}

	blocked, err := r.presence.FilterBlocked(ctx, senderID, candidates)
	if err != nil {
		return nil, err
	}

	recipients := make([]*session.Session, 0, len(subscribers))
	for _, sub := range subscribers {
		if blocked[sub.User.ID] {
			continue
		}
		recipients = append(recipients, sub)
	}
	return recipients, nil
}

func (r *Router) handleMessageDelete(ctx context.Context, sess *session.Session, raw json.RawMessage) error {
	var p deletePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return validationError("Malformed message:delete payload")
	}
	if p.RoomID == "" || p.MessageID == "" {
		return validationError("roomId and messageId are required")
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
	if msg.UserID != sess.User.ID {
		return errNotAuthor
	}

	if msg.Type == history.TypeImage {
		var ref string
		if err := json.Unmarshal(msg.Content, &ref); err == nil && ref != "" {
			if err := r.images.Remove(ref); err != nil {
				// The message still goes away; the orphaned file is the
				// sweeper's problem.
				r.logger.Warn("failed to remove uploaded image",
					slog.String("messageID", p.MessageID), slog.Any("error", err))
			}
		}
	}

	if err := r.history.Delete(ctx, p.RoomID, p.MessageID); err != nil {
		return err
	}

	r.sessions.Publish(p.RoomID, EventMessageDeleted, messageDeletedPayload{
		RoomID:    p.RoomID,
		MessageID: p.MessageID,
	})
	return nil
}

func validateContent(msgType string, content json.RawMessage) error {
	switch msgType {
	case history.TypeText:
		var text string
		if err := json.Unmarshal(content, &text); err != nil {
			return validationError("Text content must be a string")
		}
		if n := utf8.RuneCountInString(text); n < 1 || n > maxTextLength {
			return validationError("Text must be between 1 and 2000 characters")
		}
	case history.TypeDrawing:
		parsed := gjson.ParseBytes(content)
		if !parsed.IsObject() {
			return validationError("Drawing content must be an object")
		}
		if !parsed.Get("operations").IsArray() {
			return validationError("Drawing content must include an operations array")
		}
		if !parsed.Get("width").Exists() || !parsed.Get("height").Exists() {
			return validationError("Drawing content must include width and height")
		}
	case history.TypeImage:
		var ref string
		if err := json.Unmarshal(content, &ref); err != nil || ref == "" {
			return validationError("Image content must be a non-empty string")
		}
	default:
		return validationError("Unknown message type: " + msgType)
	}
	return nil
}
