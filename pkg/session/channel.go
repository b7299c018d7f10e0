package session

import (
	"sync"

	"github.com/google/uuid"
)

// Channel is a live connection handle as seen by the session. Send and
// Close are best effort and must not block; writes to a closed channel are
// dropped by the implementation.
type Channel interface {
	ID() uuid.UUID
	Send(msg []byte)
	Close(err error)
	// State returns the role specific state attached at authentication,
	// *HardwareState or *AppState, or nil before that.
	State() any
}

// RateMeter is implemented by channels that meter their inbound requests.
type RateMeter interface {
	OneMinuteRate() float64
}

// HardwareState binds a hardware connection to one dashboard.
type HardwareState struct {
	UserID string
	DashID int
}

// AppState tracks the shared dashboard tokens an app connection follows.
type AppState struct {
	UserID string

	mu     sync.RWMutex
	tokens map[string]struct{}
}

func NewAppState(userID string, sharedTokens ...string) *AppState {
	s := &AppState{UserID: userID, tokens: make(map[string]struct{}, len(sharedTokens))}
	for _, t := range sharedTokens {
		s.tokens[t] = struct{}{}
	}
	return s
}

func (s *AppState) Subscribe(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = struct{}{}
}

func (s *AppState) Unsubscribe(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func (s *AppState) Contains(token string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tokens[token]
	return ok
}

func hardwareState(ch Channel) *HardwareState {
	st, _ := ch.State().(*HardwareState)
	return st
}

// needSync reports whether an app channel follows the shared token.
func needSync(ch Channel, sharedToken string) bool {
	st, ok := ch.State().(*AppState)
	return ok && st != nil && st.Contains(sharedToken)
}
