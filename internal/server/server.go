// Package server owns the HTTP surface: the authenticated /ws upgrade
// endpoint, health and metrics, and the graceful shutdown sequence.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/n8Develop/BeeBeeBee/internal/directory"
	"github.com/n8Develop/BeeBeeBee/internal/metrics"
	"github.com/n8Develop/BeeBeeBee/internal/router"
	"github.com/n8Develop/BeeBeeBee/internal/server/middleware"
	"github.com/n8Develop/BeeBeeBee/internal/session"
	"github.com/n8Develop/BeeBeeBee/pkg/config"
	"github.com/n8Develop/BeeBeeBee/pkg/transport"
)

// Pinger reports reachability of a backing store. Both the ephemeral store
// and the directory satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	logger   *slog.Logger
	sessions *session.Manager
	router   *router.Router
	wg       sync.WaitGroup
	http     *http.Server
	config   *config.Config

	ctx context.Context
}

func NewApp(
	logger *slog.Logger,
	rootCtx context.Context,
	cfg *config.Config,
	sessions *session.Manager,
	eventRouter *router.Router,
	dir directory.Directory,
	stores ...Pinger,
) *App {
	app := &App{
		logger:   logger,
		sessions: sessions,
		router:   eventRouter,
		config:   cfg,
		ctx:      rootCtx,
	}

	connCounter := middleware.UserConnectionCounter(sessions.UserSessionCount)
	connCycler := func(userID string) {
		oldest, found := sessions.OldestUserSession(userID)
		if found {
			logger.Info("Cycling connection: closing oldest",
				slog.String("userID", userID), slog.String("connID", oldest.ID.String()))
			oldest.Transport.Close(errors.New("connection cycled by new connection"))
		}
	}

	mux := http.NewServeMux()
	mux.Handle("/ws",
		middleware.Chain(http.HandlerFunc(app.upgradeHandler),
			middleware.RequestMetadataMiddleware(),
			middleware.NewAuthMiddleware(logger, cfg.Server.Auth.JWTSecret, dir),
			middleware.NewRequestLogger(app.logger),
			middleware.NewConnectionLimiter(logger, connCounter, connCycler, cfg.Server.ConnectionLimit),
		),
	)
	mux.Handle("/healthz", healthHandler(logger, stores...))
	mux.Handle("/metrics", promhttp.Handler())

	app.http = &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
		BaseContext: func(l net.Listener) context.Context {
			return app.ctx
		},
	}
	return app
}

// healthHandler reports whether every backing store answers a ping. An
// unreachable store means the engine cannot serve events, so the endpoint
// degrades to 503 and load balancers stop routing here.
func healthHandler(logger *slog.Logger, stores ...Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, store := range stores {
			if err := store.Ping(ctx); err != nil {
				logger.Warn("Health check failed", slog.Any("error", err))
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

func (a *App) Run() error {
	go func() {
		a.logger.Info("Server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed", slog.Any("error", err))
		}
	}()

	<-a.ctx.Done()
	return a.Shutdown()
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
	connLogger := a.logger.With(
		slog.String("remoteAddr", reqMeta.IP),
		slog.String("userID", reqMeta.User.ID),
	)

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		a.logger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(
		a.ctx,
		&a.wg,
		wsConn,
		transport.ConnectionConfig(a.config.Transport),
		nil,
		nil,
		connLogger,
	)

	sess, err := a.sessions.Register(conn, reqMeta.User)
	if err != nil {
		connLogger.Error("Failed to register session", slog.Any("error", err))
		conn.Close(err)
		return
	}
	if err := a.router.HandleConnect(a.ctx, sess); err != nil {
		connLogger.Error("Connect lifecycle failed", slog.Any("error", err))
		a.sessions.Deregister(sess.ID)
		conn.Close(err)
		return
	}
	metrics.ActiveConnections.Inc()

	conn.SetOnMessageHandler(a.router.HandleMessage)
	conn.SetOnCloseHandler(func(id uuid.UUID, err error) {
		metrics.ActiveConnections.Dec()
		gone, channels := a.sessions.Deregister(id)
		if gone == nil {
			return
		}
		// Disconnect cleanup must survive request cancellation; give it its
		// own deadline.
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.router.HandleDisconnect(cleanupCtx, gone, channels)
	})

	connLogger.Info("User connection fully established")
	conn.Run()
	<-conn.Done()
}

// Shutdown runs the graceful shutdown sequence: stop accepting upgrades,
// close every live connection, wait for their pumps to drain.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	a.logger.Info("Closing all active connections...")
	for _, sess := range a.sessions.AllSessions() {
		sess.Transport.Close(errors.New("graceful shutdown"))
	}

	a.wg.Wait()
	a.logger.Info("Server shut down gracefully.")
	return nil
}
