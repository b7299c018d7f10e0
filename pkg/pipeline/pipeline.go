package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/a-essam23/go-devicehub/pkg/graph"
	"github.com/a-essam23/go-devicehub/pkg/protocol"
	"github.com/a-essam23/go-devicehub/pkg/state"
)

/*
 * The purpose of this is to detach the implementation of actions and modifiers
 * from the actual router
 */

type Cargo struct {
	Logger       *slog.Logger
	Ctx          context.Context
	User         *state.User
	Connection   *state.Connection
	StateManager state.Manager
	Graphs       *graph.Store
	Message      *protocol.Message
	ReceivedAt   time.Time
}

// simple, testable functions that receive a Cargo and resolved string parameters
type ActionFunc func(pctx *Cargo, params ...string) error

// represents one step in an execution pipeline
type Step struct {
	Name     string
	Function ActionFunc
	Params   []string // Raw template strings from YAML
}

// Pipeline is the compiled form of one configured event.
type Pipeline struct {
	Roles state.Role // roles allowed to send the event
	Steps []Step
}
