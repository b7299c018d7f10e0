package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/a-essam23/go-devicehub/internal/engine"
	"github.com/a-essam23/go-devicehub/pkg/graph"
	"github.com/a-essam23/go-devicehub/pkg/pipeline"
	"github.com/a-essam23/go-devicehub/pkg/protocol"
	"github.com/a-essam23/go-devicehub/pkg/state"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

type EventRouter struct {
	logger       *slog.Logger
	stateManager state.Manager
	registry     *engine.Registry
	pipelines    map[string]pipeline.Pipeline
	graphs       *graph.Store
	now          func() time.Time
}

func NewEventRouter(logger *slog.Logger, stateManager state.Manager, registry *engine.Registry, pipelines map[string]pipeline.Pipeline, graphs *graph.Store) *EventRouter {
	return &EventRouter{
		logger:       logger.With(slog.String("component", "event_router")),
		stateManager: stateManager,
		registry:     registry,
		pipelines:    pipelines,
		graphs:       graphs,
		now:          time.Now,
	}
}

// HandleMessage decodes one inbound frame and runs the pipeline configured
// for its command. The first failing step halts the pipeline and its error
// is answered with a response code.
func (r *EventRouter) HandleMessage(ctx context.Context, connID uuid.UUID, raw []byte) {
	conn, ok := r.stateManager.GetConnection(connID)
	if !ok {
		r.logger.Error("could not find connection for active transport", slog.Any("connID", connID))
		return
	}
	if conn.User == nil {
		r.logger.Warn("Message from unauthenticated connection dropped", slog.Any("connID", connID))
		return
	}
	conn.Transport.Mark()

	msg, err := protocol.Decode(raw)
	if err != nil {
		r.logger.Warn("Failed to decode client message", slog.Any("connID", connID), slog.Any("error", err))
		r.respond(conn, int(gjson.GetBytes(raw, "id").Int()), protocol.IllegalCommand)
		return
	}

	p, ok := r.pipelines[msg.Command]
	if !ok {
		r.logger.Warn("Received unknown command", slog.String("cmd", msg.Command), slog.Any("connID", connID))
		r.respond(conn, msg.ID, protocol.IllegalCommand)
		return
	}
	if !p.Roles.Allows(conn.Role) {
		r.logger.Warn("Command not allowed for role",
			slog.String("cmd", msg.Command),
			slog.String("role", conn.Role.String()),
			slog.Any("connID", connID),
		)
		r.respond(conn, msg.ID, protocol.NotAllowed)
		return
	}

	cargo := &pipeline.Cargo{
		Logger:       r.logger.With(slog.String("cmd", msg.Command), slog.Any("connID", connID)),
		Ctx:          ctx,
		User:         conn.User,
		Connection:   conn,
		StateManager: r.stateManager,
		Graphs:       r.graphs,
		Message:      msg,
		ReceivedAt:   r.now(),
	}

	r.logger.Debug("Executing event pipeline", slog.String("cmd", msg.Command), slog.Any("connID", connID))
	for _, step := range p.Steps {
		params, err := r.registry.ResolveParams(cargo, step.Params)
		if err == nil {
			err = step.Function(cargo, params...)
		}
		if err != nil {
			code := CodeFor(err)
			level := slog.LevelWarn
			if code == protocol.ServerError {
				level = slog.LevelError
			}
			r.logger.Log(ctx, level, "Step failed, halting pipeline",
				slog.String("step", step.Name),
				slog.Int("code", code),
				slog.Any("error", err),
			)
			r.respond(conn, msg.ID, code)
			return
		}
	}
}

func (r *EventRouter) respond(conn *state.Connection, msgID, code int) {
	raw, err := protocol.NewResponse(msgID, code).Encode()
	if err != nil {
		r.logger.Error("Failed to encode response", slog.Any("error", err))
		return
	}
	conn.Transport.Send(raw)
}
