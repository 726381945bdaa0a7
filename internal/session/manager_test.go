package session

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubTransport struct {
	id uuid.UUID

	mu     sync.Mutex
	frames [][]byte
	done   chan struct{}
}

func newStubTransport() *stubTransport {
	return &stubTransport{id: uuid.New(), done: make(chan struct{})}
}

func (s *stubTransport) ID() uuid.UUID { return s.id }

func (s *stubTransport) Send(message []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, message)
}

func (s *stubTransport) Close(error) { close(s.done) }

func (s *stubTransport) Done() <-chan struct{} { return s.done }

func (s *stubTransport) frameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

func testManager() *Manager {
	return NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterRejectsDuplicateConnection(t *testing.T) {
	m := testManager()
	tr := newStubTransport()

	_, err := m.Register(tr, User{ID: "u1", Username: "ada"})
	require.NoError(t, err)

	_, err = m.Register(tr, User{ID: "u1", Username: "ada"})
	require.Error(t, err)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	m := testManager()
	sess, err := m.Register(newStubTransport(), User{ID: "u1", Username: "ada"})
	require.NoError(t, err)

	require.NoError(t, m.Subscribe(sess.ID, "lobby"))
	require.NoError(t, m.Subscribe(sess.ID, "lobby"))
	require.True(t, m.IsSubscribed(sess.ID, "lobby"))
	require.Len(t, m.SessionsIn("lobby"), 1)
}

func TestSubscribeUnknownSession(t *testing.T) {
	m := testManager()
	require.Error(t, m.Subscribe(uuid.New(), "lobby"))
}

func TestDeregisterReturnsChannelSnapshot(t *testing.T) {
	m := testManager()
	sess, err := m.Register(newStubTransport(), User{ID: "u1", Username: "ada"})
	require.NoError(t, err)

	require.NoError(t, m.Subscribe(sess.ID, UserChannel("u1")))
	require.NoError(t, m.Subscribe(sess.ID, "lobby"))
	require.NoError(t, m.Subscribe(sess.ID, "den"))

	gone, channels := m.Deregister(sess.ID)
	require.NotNil(t, gone)
	require.Equal(t, []string{"den", "lobby", UserChannel("u1")}, channels)

	_, found := m.Get(sess.ID)
	require.False(t, found)
	require.Empty(t, m.SessionsIn("lobby"))

	again, _ := m.Deregister(sess.ID)
	require.Nil(t, again)
}

func TestPublishReachesOnlySubscribers(t *testing.T) {
	m := testManager()
	trIn := newStubTransport()
	trOut := newStubTransport()

	in, err := m.Register(trIn, User{ID: "u1", Username: "ada"})
	require.NoError(t, err)
	_, err = m.Register(trOut, User{ID: "u2", Username: "bob"})
	require.NoError(t, err)
	require.NoError(t, m.Subscribe(in.ID, "lobby"))

	m.Publish("lobby", "room:user-joined", map[string]string{"userId": "u1"})

	require.Equal(t, 1, trIn.frameCount())
	require.Equal(t, 0, trOut.frameCount())

	var ev struct {
		Event   string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(trIn.frames[0], &ev))
	require.Equal(t, "room:user-joined", ev.Event)
}

func TestUserSessionAccounting(t *testing.T) {
	m := testManager()

	first, err := m.Register(newStubTransport(), User{ID: "u1", Username: "ada"})
	require.NoError(t, err)
	second, err := m.Register(newStubTransport(), User{ID: "u1", Username: "ada"})
	require.NoError(t, err)

	n, err := m.UserSessionCount("u1")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	oldest, ok := m.OldestUserSession("u1")
	require.True(t, ok)
	require.Equal(t, first.ID, oldest.ID)

	m.Deregister(first.ID)
	oldest, ok = m.OldestUserSession("u1")
	require.True(t, ok)
	require.Equal(t, second.ID, oldest.ID)

	m.Deregister(second.ID)
	_, ok = m.OldestUserSession("u1")
	require.False(t, ok)
}

func TestUserChannelNaming(t *testing.T) {
	require.Equal(t, "user:u1", UserChannel("u1"))
	require.True(t, IsUserChannel("user:u1"))
	require.False(t, IsUserChannel("lobby"))
}
