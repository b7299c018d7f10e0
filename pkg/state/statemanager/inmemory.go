package statemanager

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/a-essam23/go-devicehub/pkg/model"
	"github.com/a-essam23/go-devicehub/pkg/session"
	"github.com/a-essam23/go-devicehub/pkg/state"
	"github.com/google/uuid"
)

var (
	ErrAlreadyRegistered = errors.New("connection is already registered")
	ErrUnknownConnection = errors.New("unknown connection")
	ErrInvalidRole       = errors.New("connection must be exactly one of hardware or app")
)

// Lock order: connMu before userMu. profileMu is never held with the others.
type InMemoryManager struct {
	conns    map[uuid.UUID]*state.Connection
	users    map[string]*state.User
	profiles map[string]*model.Profile

	connMu    sync.RWMutex
	userMu    sync.RWMutex
	profileMu sync.Mutex

	logger *slog.Logger
}

func NewInMemoryManager(logger *slog.Logger) *InMemoryManager {
	return &InMemoryManager{
		conns:    make(map[uuid.UUID]*state.Connection),
		users:    make(map[string]*state.User),
		profiles: make(map[string]*model.Profile),
		logger:   logger.With(slog.String("component", "state_manager_inmemory")),
	}
}

// compile-time check to ensure InMemoryManager implements Manager.
var _ state.Manager = (*InMemoryManager)(nil)

func (m *InMemoryManager) RegisterConnection(conn state.Transport, ipAddr string) (*state.Connection, error) {
	m.connMu.Lock()
	defer m.connMu.Unlock()

	connID := conn.ID()
	if _, exists := m.conns[connID]; exists {
		return nil, ErrAlreadyRegistered
	}
	newConn := &state.Connection{
		ID:        connID,
		IPAddress: ipAddr,
		Transport: conn,
		CreatedAt: time.Now(),
	}
	m.conns[connID] = newConn
	m.logger.Debug("Connection registered", slog.String("connID", connID.String()))
	return newConn, nil
}

func (m *InMemoryManager) DeregisterConnection(connID uuid.UUID) error {
	m.connMu.Lock()
	conn, ok := m.conns[connID]
	if !ok {
		// connection is already deregistered
		m.connMu.Unlock()
		return nil
	}
	delete(m.conns, connID)
	user := conn.User
	m.connMu.Unlock()

	if user == nil {
		m.logger.Debug("Connection deregistered", slog.String("connID", connID.String()))
		return nil
	}

	m.userMu.Lock()
	defer m.userMu.Unlock()

	delete(user.Connections, connID)
	user.Session.Remove(connID)
	if len(user.Connections) == 0 {
		// a later connection starts a fresh session over the same profile
		delete(m.users, user.ID)
		m.logger.Debug("Dropped empty user session", slog.String("userID", user.ID))
	}
	m.logger.Debug("Connection deregistered", slog.String("connID", connID.String()), slog.String("userID", user.ID))
	return nil
}

func (m *InMemoryManager) GetConnection(connID uuid.UUID) (*state.Connection, bool) {
	m.connMu.RLock()
	defer m.connMu.RUnlock()
	conn, ok := m.conns[connID]
	return conn, ok
}

func (m *InMemoryManager) GetUserConnectionCount(userID string) (int, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return 0, nil // User doesn't exist yet, so they have 0 connections.
	}
	return len(user.Connections), nil
}

func (m *InMemoryManager) FindOldestUserConnection(userID string) (*state.Connection, bool) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()

	user, ok := m.users[userID]
	if !ok {
		return nil, false
	}

	var oldestConn *state.Connection
	for _, conn := range user.Connections {
		if oldestConn == nil || conn.CreatedAt.Before(oldestConn.CreatedAt) {
			oldestConn = conn
		}
	}
	return oldestConn, oldestConn != nil
}

// --- User Management ---

func (m *InMemoryManager) AssociateUser(connID uuid.UUID, userID string, binding state.Binding) (*state.User, error) {
	if binding.Role != state.RoleHardware && binding.Role != state.RoleApp {
		return nil, ErrInvalidRole
	}
	profile := m.Profile(userID)

	m.connMu.Lock()
	defer m.connMu.Unlock()
	m.userMu.Lock()
	defer m.userMu.Unlock()

	conn, ok := m.conns[connID]
	if !ok {
		return nil, fmt.Errorf("cannot associate user '%s': %w", userID, ErrUnknownConnection)
	}

	// Find or create the user session.
	user, exists := m.users[userID]
	if !exists {
		user = &state.User{
			ID:          userID,
			Connections: make(map[uuid.UUID]*state.Connection),
			Profile:     profile,
			Session:     session.New(m.logger.With(slog.String("userID", userID)), connID),
		}
		m.users[userID] = user
		m.logger.Debug("Created new user session", slog.String("userID", userID))
	}

	conn.User = user
	conn.Role = binding.Role
	user.Connections[connID] = conn

	switch binding.Role {
	case state.RoleHardware:
		conn.Transport.SetState(&session.HardwareState{UserID: userID, DashID: binding.DashID})
		user.Session.AddHardware(conn.Transport)
	case state.RoleApp:
		conn.Transport.SetState(session.NewAppState(userID, binding.SharedTokens...))
		user.Session.AddApp(conn.Transport)
	}

	m.logger.Debug("Associated connection with user",
		slog.String("connID", connID.String()),
		slog.String("userID", userID),
		slog.String("role", binding.Role.String()),
	)
	return user, nil
}

func (m *InMemoryManager) FindUser(userID string) (*state.User, bool) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()
	user, ok := m.users[userID]
	return user, ok
}

func (m *InMemoryManager) GetAllUsers() ([]*state.User, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()

	users := make([]*state.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	return users, nil
}

func (m *InMemoryManager) Profile(userID string) *model.Profile {
	m.profileMu.Lock()
	defer m.profileMu.Unlock()

	p, ok := m.profiles[userID]
	if !ok {
		p = model.NewProfile()
		m.profiles[userID] = p
	}
	return p
}

func (m *InMemoryManager) FindProfile(userID string) (*model.Profile, bool) {
	m.profileMu.Lock()
	defer m.profileMu.Unlock()

	p, ok := m.profiles[userID]
	return p, ok
}

func (m *InMemoryManager) CloseAll(reason error) {
	users, _ := m.GetAllUsers()
	for _, user := range users {
		user.Session.CloseAll(reason)
	}
	m.logger.Info("Closed all user sessions", slog.Int("user_count", len(users)))
}
