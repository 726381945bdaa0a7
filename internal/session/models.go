package session

import (
	"time"

	"github.com/google/uuid"
)

// User is the immutable identity attached to a session at authentication.
type User struct {
	ID       string `json:"userId"`
	Username string `json:"username"`
}

// Transport is the slice of the connection the session layer needs. The
// production implementation is *transport.Connection.
type Transport interface {
	ID() uuid.UUID
	Send(message []byte)
	Close(err error)
	Done() <-chan struct{}
}

// Session is one authenticated realtime connection: its identity, its
// transport, and the set of channels it has joined. Channel membership is
// owned by the Manager; the sole reason a session remembers its rooms is
// disconnect cleanup.
type Session struct {
	ID        uuid.UUID
	User      User
	Transport Transport
	CreatedAt time.Time

	// channels this session is subscribed to, guarded by the Manager's lock.
	channels map[string]struct{}
}

// envelope is the wire frame for every outbound event.
type envelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}
