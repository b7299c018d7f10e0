package model

import (
	"errors"
	"fmt"
)

var ErrDashNotFound = errors.New("dashboard not found")

// NotFoundError reports an unresolved dashboard id together with the id of
// the inbound message that referenced it.
type NotFoundError struct {
	DashID int
	MsgID  int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("requested non-existing '%d' dash id (msg %d)", e.DashID, e.MsgID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrDashNotFound
}
