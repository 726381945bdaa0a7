package history

import "encoding/json"

// Message types accepted on the wire.
const (
	TypeText    = "text"
	TypeDrawing = "drawing"
	TypeImage   = "image"
)

// Reaction groups the users who reacted with one emoji.
type Reaction struct {
	Emoji   string   `json:"emoji"`
	UserIDs []string `json:"userIds"`
}

// Message is an ephemeral chat message. It lives in the store until its TTL
// elapses; there is no durable copy.
type Message struct {
	ID       string `json:"id"`
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Type     string `json:"type"`
	// Content is type-dependent: a JSON string for text and image messages,
	// an object with operations/width/height for drawings.
	Content   json.RawMessage `json:"content"`
	Reactions []Reaction      `json:"reactions"`
	Timestamp string          `json:"timestamp"`
}

// AddReaction records userID under the emoji's group, creating the group if
// needed. Adding the same reaction twice is a no-op.
func (m *Message) AddReaction(emoji, userID string) {
	for i := range m.Reactions {
		if m.Reactions[i].Emoji != emoji {
			continue
		}
		for _, id := range m.Reactions[i].UserIDs {
			if id == userID {
				return
			}
		}
		m.Reactions[i].UserIDs = append(m.Reactions[i].UserIDs, userID)
		return
	}
	m.Reactions = append(m.Reactions, Reaction{Emoji: emoji, UserIDs: []string{userID}})
}

// RemoveReaction drops userID from the emoji's group and removes the group
// once it has no users left.
func (m *Message) RemoveReaction(emoji, userID string) {
	for i := range m.Reactions {
		if m.Reactions[i].Emoji != emoji {
			continue
		}
		ids := m.Reactions[i].UserIDs[:0]
		for _, id := range m.Reactions[i].UserIDs {
			if id != userID {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
		} else {
			m.Reactions[i].UserIDs = ids
		}
		return
	}
}
