package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/a-essam23/go-devicehub/internal/admin"
	"github.com/a-essam23/go-devicehub/internal/bridge"
	"github.com/a-essam23/go-devicehub/internal/engine"
	"github.com/a-essam23/go-devicehub/internal/router"
	"github.com/a-essam23/go-devicehub/internal/server/middleware"
	"github.com/a-essam23/go-devicehub/internal/timers"
	"github.com/a-essam23/go-devicehub/pkg/config"
	"github.com/a-essam23/go-devicehub/pkg/graph"
	"github.com/a-essam23/go-devicehub/pkg/state"
	"github.com/a-essam23/go-devicehub/pkg/state/statemanager"
	"github.com/a-essam23/go-devicehub/pkg/transport"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

var (
	errShutdown = errors.New("graceful shutdown")
	errCycled   = errors.New("connection cycled by new connection")
)

var _ state.Transport = (*transport.Connection)(nil)

type App struct {
	logger       *slog.Logger
	stateManager state.Manager
	eventRouter  *router.EventRouter
	graphs       *graph.Store
	timers       *timers.Worker
	bridge       *bridge.Bridge
	wg           sync.WaitGroup
	http         *http.Server
	admin        *http.Server
	config       *config.Config

	ctx context.Context
}

// NewApp wires the server. cfg.Pipelines must already be compiled against
// registry.
func NewApp(logger *slog.Logger, rootCtx context.Context, cfg *config.Config, registry *engine.Registry) *App {
	stateManager := statemanager.NewInMemoryManager(logger)
	graphs := graph.NewStore(cfg.Graph.TTL, cfg.Graph.MaxSamples)

	app := &App{
		logger:       logger,
		stateManager: stateManager,
		eventRouter:  router.NewEventRouter(logger, stateManager, registry, cfg.Pipelines, graphs),
		graphs:       graphs,
		config:       cfg,
		ctx:          rootCtx,
	}
	if cfg.Timers.Enabled {
		app.timers = timers.NewWorker(logger, stateManager, cfg.Timers.Interval)
	}
	if cfg.MQTT.Enabled {
		app.bridge = bridge.New(logger, cfg.MQTT, stateManager)
	}

	mux := http.NewServeMux()
	upgradeHandler := http.HandlerFunc(app.upgradeHandler)
	connCounter := middleware.UserConnectionCounter(stateManager.GetUserConnectionCount)
	// Create a cycler function that closes over the stateManager and logger.
	connCycler := func(userID string) {
		oldest, found := stateManager.FindOldestUserConnection(userID)
		if found {
			logger.Info("Cycling connection: closing oldest", slog.String("userID", userID), slog.Any("connID", oldest.ID))
			oldest.Transport.Close(errCycled)
		}
	}

	mux.Handle("/ws",
		middleware.Chain(upgradeHandler,
			middleware.RequestMetadataMiddleware(),
			middleware.NewRequestLogger(logger),
			middleware.NewAuthMiddleware(logger, cfg.Server.Auth.JWTSecret, state.ParseRole),
			middleware.NewConnectionLimiter(logger, connCounter, connCycler, cfg.Server.ConnectionLimit),
		),
	)

	baseCtx := func(net.Listener) context.Context { return app.ctx }
	app.http = &http.Server{Addr: cfg.Server.Address, Handler: mux, BaseContext: baseCtx}
	if cfg.Server.AdminAddress != "" {
		app.admin = &http.Server{
			Addr:        cfg.Server.AdminAddress,
			Handler:     admin.NewRouter(logger, stateManager, graphs),
			BaseContext: baseCtx,
		}
	}
	return app
}

// Handler is the device and app facing handler.
func (a *App) Handler() http.Handler {
	return a.http.Handler
}

func (a *App) StateManager() state.Manager {
	return a.stateManager
}

func (a *App) listen(srv *http.Server, name string) {
	a.logger.Info("Server starting", slog.String("server", name), slog.String("addr", srv.Addr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("HTTP server failed", slog.String("server", name), slog.Any("error", err))
	}
}

func (a *App) Run() error {
	go a.graphs.Start()
	go a.listen(a.http, "ws")
	if a.admin != nil {
		go a.listen(a.admin, "admin")
	}
	if a.timers != nil {
		go a.timers.Run(a.ctx)
	}
	if a.bridge != nil {
		if err := a.bridge.Start(); err != nil {
			a.logger.Error("MQTT bridge disabled", slog.Any("error", err))
			a.bridge = nil
		}
	}

	<-a.ctx.Done()
	return a.Shutdown()
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
	connLogger := a.logger.With(
		slog.String("remoteAddr", reqMeta.IP),
		slog.String("userID", reqMeta.UserID),
		slog.String("role", reqMeta.Binding.Role.String()),
	)

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		connLogger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	// Handlers are attached before the connection becomes visible to the
	// state manager: anything that closes it from then on deregisters it.
	onClose := func(id uuid.UUID, err error) {
		connLogger.Info("Deregistering connection due to closure", slog.String("connID", id.String()))
		if dErr := a.stateManager.DeregisterConnection(id); dErr != nil {
			connLogger.Error("Failed to deregister connection from state", slog.Any("error", dErr))
		}
	}
	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		transport.ConnectionConfig{
			ReadTimeout:       a.config.Transport.ReadTimeout,
			SendBuffer:        a.config.Transport.SendBuffer,
			RequestsPerSecond: a.config.Quota.RequestsPerSecond,
			Burst:             a.config.Quota.Burst,
		},
		a.eventRouter.HandleMessage,
		onClose,
		a.logger,
	)
	// register new connection
	stateConn, err := a.stateManager.RegisterConnection(conn, reqMeta.IP)
	if err != nil {
		connLogger.Error("Failed to register connection state", slog.Any("error", err))
		conn.Close(err)
		return
	}
	// file the connection under the user's session. Fails if the connection
	// was closed, and so deregistered, in the meantime.
	if _, err := a.stateManager.AssociateUser(stateConn.ID, reqMeta.UserID, reqMeta.Binding); err != nil {
		connLogger.Error("Failed to associate user with connection", slog.Any("error", err))
		conn.Close(err)
		return
	}

	connLogger.Info("User connection fully established")
	conn.Run()
	<-conn.Done()
}

// graceful shutdown sequence.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if a.admin != nil {
		if err := a.admin.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.bridge != nil {
		a.bridge.Stop()
	}

	// close all active WebSocket connections.
	a.logger.Info("Closing all active connections...")
	a.stateManager.CloseAll(errShutdown)

	// wait for all connection goroutines to finish their cleanup.
	a.wg.Wait()
	a.graphs.Stop()
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	a.logger.Info("Server shut down gracefully.")
	return nil
}
