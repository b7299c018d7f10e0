package engine

import (
	"fmt"
	"strconv"

	"github.com/a-essam23/go-devicehub/pkg/pipeline"
	"github.com/a-essam23/go-devicehub/pkg/protocol"
	"github.com/a-essam23/go-devicehub/pkg/session"
)

func intParam(action, name, raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid %s '%s': %w", action, name, raw, protocol.ErrIllegalCommand)
	}
	return v, nil
}

func expectParams(action string, params []string, n int) error {
	if len(params) != n {
		return fmt.Errorf("%s requires %d parameters, got %d: %w", action, n, len(params), protocol.ErrIllegalCommand)
	}
	return nil
}

// reply writes msg back to the connection that sent the current message.
func reply(pctx *pipeline.Cargo, msg *protocol.Message) error {
	raw, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode reply: %w", err)
	}
	pctx.Connection.Transport.Send(raw)
	return nil
}

func userSession(pctx *pipeline.Cargo) (*session.Session, error) {
	if pctx.User == nil || pctx.User.Session == nil {
		return nil, fmt.Errorf("connection has no user session: %w", protocol.ErrNotAllowed)
	}
	return pctx.User.Session, nil
}
