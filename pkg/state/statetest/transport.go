// Package statetest provides an in-memory state.Transport for tests.
package statetest

import (
	"sync"
	"sync/atomic"

	"github.com/a-essam23/go-devicehub/pkg/protocol"
	"github.com/a-essam23/go-devicehub/pkg/state"
	"github.com/google/uuid"
)

// Transport records everything sent to it.
type Transport struct {
	id uuid.UUID

	mu       sync.Mutex
	sent     [][]byte
	state    any
	closeErr error

	marks     atomic.Int64
	Rate      float64
	Deny      atomic.Bool // Allow returns false while set
	closed    chan struct{}
	closeOnce sync.Once
}

var _ state.Transport = (*Transport)(nil)

func NewTransport() *Transport {
	return &Transport{id: uuid.New(), closed: make(chan struct{})}
}

func (t *Transport) ID() uuid.UUID { return t.id }

func (t *Transport) Send(raw []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, raw)
}

func (t *Transport) Close(err error) {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closeErr = err
		t.mu.Unlock()
		close(t.closed)
	})
}

func (t *Transport) State() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) SetState(s any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = s
}

func (t *Transport) Mark()                  { t.marks.Add(1) }
func (t *Transport) Marks() int64           { return t.marks.Load() }
func (t *Transport) Allow() bool            { return !t.Deny.Load() }
func (t *Transport) OneMinuteRate() float64 { return t.Rate }
func (t *Transport) Done() <-chan struct{}  { return t.closed }

func (t *Transport) Closed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

func (t *Transport) CloseErr() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeErr
}

// Messages decodes every frame sent so far.
func (t *Transport) Messages() []*protocol.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*protocol.Message, 0, len(t.sent))
	for _, raw := range t.sent {
		if msg, err := protocol.Decode(raw); err == nil {
			out = append(out, msg)
		}
	}
	return out
}

// Last returns the most recent decoded frame, or nil.
func (t *Transport) Last() *protocol.Message {
	msgs := t.Messages()
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

func (t *Transport) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = nil
}
