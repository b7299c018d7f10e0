package state

import (
	"github.com/a-essam23/go-devicehub/pkg/model"
	"github.com/google/uuid"
)

type Manager interface {
	// --- Connection Lifecycle ---
	RegisterConnection(conn Transport, ipAddr string) (*Connection, error)
	DeregisterConnection(connID uuid.UUID) error
	GetConnection(connID uuid.UUID) (*Connection, bool)
	FindOldestUserConnection(userID string) (*Connection, bool)

	// --- User Management ---
	// links a connection to a user, creating the user session if it doesn't
	// exist, and files the connection under the session partition of its role.
	AssociateUser(connID uuid.UUID, userID string, binding Binding) (*User, error)
	FindUser(userID string) (*User, bool)
	GetUserConnectionCount(userID string) (int, error)
	GetAllUsers() ([]*User, error)

	// Profile returns the user's profile, creating an empty one on first use.
	// Profiles outlive sessions.
	Profile(userID string) *model.Profile
	// FindProfile returns the user's profile without creating one.
	FindProfile(userID string) (*model.Profile, bool)

	// CloseAll closes every connection of every live session.
	CloseAll(reason error)
}
