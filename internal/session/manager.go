// Package session owns the registry of live authenticated connections and
// the channel bus used to fan events out to them. A channel is either a room
// id or a per-user private channel ("user:<id>").
package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// UserChannel names the private channel every session joins at connect time.
// Friend notifications and application pushes (e.g. friend requests) land
// there.
func UserChannel(userID string) string {
	return "user:" + userID
}

// IsUserChannel reports whether the channel is a private per-user channel
// rather than a room.
func IsUserChannel(channel string) bool {
	return strings.HasPrefix(channel, "user:")
}

// Bus is the publish capability handed to the rest of the application: it
// delivers an event to every live session subscribed to the channel. It is
// constructor-injected, never a package global.
type Bus interface {
	Publish(channel, event string, payload any)
}

type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	byUser   map[string]map[uuid.UUID]*Session
	channels map[string]map[uuid.UUID]*Session

	logger *slog.Logger
}

var _ Bus = (*Manager)(nil)

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[uuid.UUID]*Session),
		byUser:   make(map[string]map[uuid.UUID]*Session),
		channels: make(map[string]map[uuid.UUID]*Session),
		logger:   logger.With(slog.String("component", "session_manager")),
	}
}

// Register creates a session for an authenticated connection.
func (m *Manager) Register(conn Transport, user User) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	connID := conn.ID()
	if _, exists := m.sessions[connID]; exists {
		return nil, errors.New("connection is already registered")
	}

	sess := &Session{
		ID:        connID,
		User:      user,
		Transport: conn,
		CreatedAt: time.Now(),
		channels:  make(map[string]struct{}),
	}
	m.sessions[connID] = sess

	userSessions, ok := m.byUser[user.ID]
	if !ok {
		userSessions = make(map[uuid.UUID]*Session)
		m.byUser[user.ID] = userSessions
	}
	userSessions[connID] = sess

	m.logger.Debug("session registered", slog.String("connID", connID.String()), slog.String("userID", user.ID))
	return sess, nil
}

// Deregister destroys the session and removes it from every channel. It
// returns the session with a snapshot of the channels it had joined so the
// caller can run disconnect cleanup; nil if the session was already gone.
func (m *Manager) Deregister(connID uuid.UUID) (*Session, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[connID]
	if !ok {
		return nil, nil
	}
	delete(m.sessions, connID)

	if userSessions, ok := m.byUser[sess.User.ID]; ok {
		delete(userSessions, connID)
		if len(userSessions) == 0 {
			delete(m.byUser, sess.User.ID)
		}
	}

	channels := make([]string, 0, len(sess.channels))
	for ch := range sess.channels {
		channels = append(channels, ch)
		m.dropFromChannel(ch, connID)
	}
	sort.Strings(channels)

	m.logger.Debug("session deregistered", slog.String("connID", connID.String()), slog.String("userID", sess.User.ID))
	return sess, channels
}

// caller must hold mu.
func (m *Manager) dropFromChannel(channel string, connID uuid.UUID) {
	members, ok := m.channels[channel]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(m.channels, channel)
	}
}

func (m *Manager) Get(connID uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[connID]
	return sess, ok
}

// Subscribe joins the session to a channel. Idempotent.
func (m *Manager) Subscribe(connID uuid.UUID, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[connID]
	if !ok {
		return errors.New("cannot subscribe unknown session")
	}
	sess.channels[channel] = struct{}{}

	members, ok := m.channels[channel]
	if !ok {
		members = make(map[uuid.UUID]*Session)
		m.channels[channel] = members
	}
	members[connID] = sess
	return nil
}

// Unsubscribe removes the session from a channel. Unknown sessions and
// channels are ignored.
func (m *Manager) Unsubscribe(connID uuid.UUID, channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[connID]; ok {
		delete(sess.channels, channel)
	}
	m.dropFromChannel(channel, connID)
}

// IsSubscribed reports whether the session has joined the channel.
func (m *Manager) IsSubscribed(connID uuid.UUID, channel string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members, ok := m.channels[channel]
	if !ok {
		return false
	}
	_, ok = members[connID]
	return ok
}

// SessionsIn snapshots the sessions currently subscribed to a channel.
func (m *Manager) SessionsIn(channel string) []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	members := m.channels[channel]
	out := make([]*Session, 0, len(members))
	for _, sess := range members {
		out = append(out, sess)
	}
	return out
}

// UserSessionCount returns the number of live sessions for a user. Used by
// the per-user connection limiter.
func (m *Manager) UserSessionCount(userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[userID]), nil
}

// OldestUserSession finds the longest-lived session for a user, the one the
// connection limiter cycles out first.
func (m *Manager) OldestUserSession(userID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var oldest *Session
	for _, sess := range m.byUser[userID] {
		if oldest == nil || sess.CreatedAt.Before(oldest.CreatedAt) {
			oldest = sess
		}
	}
	return oldest, oldest != nil
}

// AllSessions snapshots every live session. Used during graceful shutdown.
func (m *Manager) AllSessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, sess)
	}
	return out
}

// Publish fans an event out to every session in the channel. Marshal
// failures are logged and dropped; a channel with no subscribers is not an
// error.
func (m *Manager) Publish(channel, event string, payload any) {
	data, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		m.logger.Error("failed to marshal event", slog.String("event", event), slog.Any("error", err))
		return
	}
	for _, sess := range m.SessionsIn(channel) {
		sess.Transport.Send(data)
	}
}

// Send delivers an event to this session only.
func (s *Session) Send(event string, payload any) {
	data, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		return
	}
	s.Transport.Send(data)
}
