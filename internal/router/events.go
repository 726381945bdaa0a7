package router

import (
	"encoding/json"

	"github.com/n8Develop/BeeBeeBee/internal/history"
)

// Inbound event names.
const (
	EventRoomJoin       = "room:join"
	EventRoomLeave      = "room:leave"
	EventMessageSend    = "message:send"
	EventMessageDelete  = "message:delete"
	EventReactionAdd    = "reaction:add"
	EventReactionRemove = "reaction:remove"
	EventTypingStart    = "typing:start"
	EventTypingStop     = "typing:stop"
)

// Outbound event names.
const (
	EventRoomHistory     = "room:history"
	EventRoomMembers     = "room:members"
	EventRoomUserJoined  = "room:user-joined"
	EventRoomUserLeft    = "room:user-left"
	EventMessageNew      = "message:new"
	EventMessageDeleted  = "message:deleted"
	EventReactionUpdated = "reaction:updated"
	EventTypingUpdate    = "typing:update"
	EventFriendOnline    = "friend:online"
	EventFriendOffline   = "friend:offline"
	EventError           = "error"
)

// clientMessage is the inbound wire frame.
type clientMessage struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// --- Inbound payloads ---

type roomPayload struct {
	RoomID string `json:"roomId"`
}

type sendPayload struct {
	RoomID  string          `json:"roomId"`
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

type deletePayload struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
}

type reactionPayload struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
	Emoji     string `json:"emoji"`
}

// --- Outbound payloads ---

type historyPayload struct {
	RoomID   string            `json:"roomId"`
	Messages []history.Message `json:"messages"`
}

// Member is a room member with their live online flag overlaid.
type Member struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

type membersPayload struct {
	RoomID  string   `json:"roomId"`
	Members []Member `json:"members"`
}

type userPresencePayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type messageDeletedPayload struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
}

type reactionUpdatedPayload struct {
	RoomID    string             `json:"roomId"`
	MessageID string             `json:"messageId"`
	Reactions []history.Reaction `json:"reactions"`
}

// TypingUser is one entry of a typing:update broadcast.
type TypingUser struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type typingUpdatePayload struct {
	RoomID string       `json:"roomId"`
	Users  []TypingUser `json:"users"`
}

type friendPresencePayload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}
