package state

import (
	"time"

	"github.com/a-essam23/go-devicehub/pkg/model"
	"github.com/a-essam23/go-devicehub/pkg/session"
	"github.com/google/uuid"
)

// Transport is the live socket behind a Connection.
// *transport.Connection is the production implementation.
type Transport interface {
	session.Channel
	SetState(s any)
	Mark()
	Allow() bool
	OneMinuteRate() float64
	Done() <-chan struct{}
}

// representation of a single transport-layer connection.
type Connection struct {
	ID        uuid.UUID
	IPAddress string
	Transport Transport // The actual connection for sending messages
	User      *User     // Pointer to the owning user (nil until associated)
	Role      Role
	CreatedAt time.Time
}

// Binding describes what an authenticated connection is allowed to see.
type Binding struct {
	Role         Role
	DashID       int      // hardware only
	SharedTokens []string // app only
}

// canonical representation of a user, aggregating all their connections.
type User struct {
	ID          string
	Connections map[uuid.UUID]*Connection // All active connections for this user
	Profile     *model.Profile
	Session     *session.Session
}
