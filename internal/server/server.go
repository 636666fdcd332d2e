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

	"github.com/Saketh-spark/KLH-UniConnect-sub001/internal/hub"
	"github.com/Saketh-spark/KLH-UniConnect-sub001/internal/metrics"
	"github.com/Saketh-spark/KLH-UniConnect-sub001/internal/router"
	"github.com/Saketh-spark/KLH-UniConnect-sub001/internal/server/middleware"
	"github.com/Saketh-spark/KLH-UniConnect-sub001/pkg/config"
	"github.com/Saketh-spark/KLH-UniConnect-sub001/pkg/protocol"
	"github.com/Saketh-spark/KLH-UniConnect-sub001/pkg/transport"
)

type App struct {
	logger      *slog.Logger
	registry    *hub.Registry
	topics      *hub.Table
	eventRouter *router.Router
	wg          sync.WaitGroup
	http        *http.Server
	config      *config.Config

	ctx context.Context
}

func NewApp(logger *slog.Logger, rootCtx context.Context, cfg *config.Config) *App {
	registry := hub.NewRegistry(logger, cfg.Hub.Shards)
	topics := hub.NewTable(logger, cfg.Hub.Shards)
	eventRouter := router.New(logger, registry, topics)

	app := &App{
		logger:      logger,
		registry:    registry,
		topics:      topics,
		eventRouter: eventRouter,
		config:      cfg,
		ctx:         rootCtx,
	}

	mux := http.NewServeMux()
	upgradeHandler := http.HandlerFunc(app.upgradeHandler)
	// Cycle mode closes the user's oldest connection to make room.
	connCycler := func(userID string) {
		if oldest, found := registry.OldestConnection(userID); found {
			logger.Info("Cycling connection: closing oldest", slog.String("userID", userID))
			oldest.Close(errors.New("connection cycled by new connection"))
		}
	}

	mux.Handle("/ws",
		middleware.Chain(upgradeHandler,
			middleware.RequestMetadataMiddleware(),
			middleware.NewRequestLogger(app.logger),
			middleware.NewIdentityMiddleware(logger, app.config.Server.Auth.JWTSecret),
			middleware.NewConnectionLimiter(
				logger,
				registry.ConnectionCount,
				connCycler,
				app.config.Server.ConnectionLimit,
			),
		),
	)
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", metrics.Handler())
	}

	app.http = &http.Server{Addr: app.config.Server.Address, Handler: mux, BaseContext: func(l net.Listener) context.Context {
		return app.ctx
	}}

	return app
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

// upgradeHandler is the session bootstrap: it upgrades the channel, refuses
// unauthenticated handshakes, and pairs registration with exactly one
// unregistration on close.
func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
	connLogger := a.logger.With(
		slog.String("remoteAddr", reqMeta.IP),
		slog.String("userID", reqMeta.UserID),
	)

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		a.logger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	// An unauthenticated channel must never enter the registry.
	if reqMeta.UserID == "" {
		connLogger.Warn("Refusing connection without a resolvable user id")
		wsConn.Close(websocket.StatusPolicyViolation, "user id required")
		return
	}
	userID, role := reqMeta.UserID, reqMeta.Role

	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		transport.ConnectionConfig(a.config.Transport),
		a.logger,
	)

	sender := router.Sender{UserID: userID, Role: role, Conn: conn}
	conn.SetOnMessageHandler(func(ctx context.Context, _ uuid.UUID, msg []byte) {
		a.eventRouter.Route(ctx, sender, msg)
	})
	conn.SetOnCloseHandler(func(id uuid.UUID, err error) {
		connLogger.Info("Deregistering connection due to closure", slog.String("connID", id.String()))
		a.registry.Unregister(userID, id)
	})

	online := a.registry.Register(userID, role, conn)
	if snapshot, err := protocol.OnlineUsersFrame(online); err == nil {
		conn.Send(snapshot)
	}
	conn.Run()

	connLogger.Info("User connection fully established", slog.String("role", role))
	<-conn.Done()
}

// Shutdown runs the graceful shutdown sequence.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	// close all active WebSocket connections.
	a.logger.Info("Closing all active connections...")
	a.registry.CloseAll(errors.New("graceful shutdown"))

	// wait for all connection goroutines to finish their cleanup.
	a.wg.Wait()
	a.logger.Info("Server shut down gracefully.")
	return nil
}
