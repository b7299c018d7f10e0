package engine

import (
	"fmt"

	"github.com/a-essam23/go-devicehub/pkg/pipeline"
	"github.com/a-essam23/go-devicehub/pkg/protocol"
)

// modifierQuota rejects the message when the sending connection is over its
// request quota.
func modifierQuota(pctx *pipeline.Cargo, params ...string) error {
	if len(params) != 0 {
		return fmt.Errorf("'quota' modifier does not accept any parameters: %w", protocol.ErrIllegalCommand)
	}
	if !pctx.Connection.Transport.Allow() {
		return protocol.ErrQuotaLimit
	}
	return nil
}
