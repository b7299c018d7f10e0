package router

import (
	"errors"

	"github.com/a-essam23/go-devicehub/pkg/model"
	"github.com/a-essam23/go-devicehub/pkg/protocol"
)

// CodeFor maps a pipeline error to the response code sent to the client.
func CodeFor(err error) int {
	switch {
	case err == nil:
		return protocol.OK
	case errors.Is(err, model.ErrDashNotFound), errors.Is(err, protocol.ErrIllegalCommand):
		return protocol.IllegalCommand
	case errors.Is(err, protocol.ErrQuotaLimit):
		return protocol.QuotaLimit
	case errors.Is(err, protocol.ErrNotAllowed):
		return protocol.NotAllowed
	default:
		return protocol.ServerError
	}
}
