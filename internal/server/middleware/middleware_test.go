package middleware

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/n8Develop/BeeBeeBee/internal/directory"
	"github.com/n8Develop/BeeBeeBee/pkg/config"
)

const testSecret = "middleware-test-secret"

// userDir serves FindUserByID from a map; the other directory reads are not
// exercised by the middleware chain.
type userDir struct {
	users map[string]*directory.User
}

func (d *userDir) FindUserByID(_ context.Context, userID string) (*directory.User, error) {
	return d.users[userID], nil
}

func (d *userDir) FindRoomByID(context.Context, string) (*directory.Room, error) {
	return nil, nil
}

func (d *userDir) IsRoomMember(context.Context, string, string) (bool, error) {
	return false, nil
}

func (d *userDir) RoomMembers(context.Context, string) ([]directory.Member, error) {
	return nil, nil
}

func (d *userDir) Friends(context.Context, string) ([]directory.Friend, error) {
	return nil, nil
}

func (d *userDir) BlockedUserIDs(context.Context, string) ([]string, error) {
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

// authedChain builds metadata -> auth with a sink handler capturing the
// final request metadata.
func authedChain(dir directory.Directory, captured **RequestMetadata) http.Handler {
	sink := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured, _ = ReqMetadataFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	return Chain(sink,
		RequestMetadataMiddleware(),
		NewAuthMiddleware(discardLogger(), testSecret, dir),
	)
}

func TestMetadataExtractsClientIP(t *testing.T) {
	var meta *RequestMetadata
	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta, _ = ReqMetadataFrom(r.Context())
	}), RequestMetadataMiddleware())

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, meta)
	require.Equal(t, "192.0.2.7", meta.IP)
}

func TestAuthAcceptsValidTokenAndResolvesUser(t *testing.T) {
	dir := &userDir{users: map[string]*directory.User{
		"u1": {ID: "u1", Username: "ada"},
	}}
	var meta *RequestMetadata
	handler := authedChain(dir, &meta)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: signToken(t, "u1")})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, meta)
	require.Equal(t, "u1", meta.User.ID)
	require.Equal(t, "ada", meta.User.Username)
}

func TestAuthRejections(t *testing.T) {
	dir := &userDir{users: map[string]*directory.User{
		"u1": {ID: "u1", Username: "ada"},
	}}

	cases := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"missing cookie", func(r *http.Request) {}},
		{"garbage token", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "token", Value: "not.a.jwt"})
		}},
		{"wrong signing key", func(r *http.Request) {
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u1"})
			signed, err := token.SignedString([]byte("some-other-secret"))
			require.NoError(t, err)
			r.AddCookie(&http.Cookie{Name: "token", Value: signed})
		}},
		{"subject not in directory", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: "token", Value: signToken(t, "deleted-user")})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var meta *RequestMetadata
			handler := authedChain(dir, &meta)
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.Nil(t, meta)
		})
	}
}

func TestRequestLoggerCarriesAuthenticatedUser(t *testing.T) {
	dir := &userDir{users: map[string]*directory.User{
		"u1": {ID: "u1", Username: "ada"},
	}}
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}),
		RequestMetadataMiddleware(),
		NewAuthMiddleware(discardLogger(), testSecret, dir),
		NewRequestLogger(logger),
	)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: signToken(t, "u1")})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.Contains(t, buf.String(), "userID=u1")
	require.Contains(t, buf.String(), "username=ada")
}

func TestConnectionLimiter(t *testing.T) {
	sink := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	withUser := func(next http.Handler) http.Handler {
		return Chain(next, RequestMetadataMiddleware(), Middleware(func(h http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				meta, _ := ReqMetadataFrom(r.Context())
				meta.User.ID = "u1"
				h.ServeHTTP(w, r)
			})
		}))
	}

	t.Run("under the limit passes", func(t *testing.T) {
		limiter := NewConnectionLimiter(discardLogger(),
			func(string) (int, error) { return 1, nil },
			func(string) { t.Fatal("cycler must not run under the limit") },
			config.ConnectionLimitConfig{MaxPerUser: 2, Mode: "cycle"},
		)
		rec := httptest.NewRecorder()
		withUser(limiter(sink)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("reject mode refuses at the limit", func(t *testing.T) {
		limiter := NewConnectionLimiter(discardLogger(),
			func(string) (int, error) { return 2, nil },
			func(string) {},
			config.ConnectionLimitConfig{MaxPerUser: 2, Mode: "reject"},
		)
		rec := httptest.NewRecorder()
		withUser(limiter(sink)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
	})

	t.Run("cycle mode evicts and passes", func(t *testing.T) {
		cycled := false
		limiter := NewConnectionLimiter(discardLogger(),
			func(string) (int, error) { return 2, nil },
			func(userID string) { cycled = userID == "u1" },
			config.ConnectionLimitConfig{MaxPerUser: 2, Mode: "cycle"},
		)
		rec := httptest.NewRecorder()
		withUser(limiter(sink)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, cycled)
	})
}
