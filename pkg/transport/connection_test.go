package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConn(cfg ConnectionConfig, onClose OnCloseHandler) *Connection {
	var wg sync.WaitGroup
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewConnection(context.Background(), &wg, nil, cfg, nil, onClose, logger)
}

func TestSendQueuesWithoutBlocking(t *testing.T) {
	c := newTestConn(ConnectionConfig{SendBuffer: 2}, nil)
	defer c.Close(nil)

	c.Send([]byte("a"))
	c.Send([]byte("b"))
	c.Send([]byte("c")) // dropped, queue full

	require.Len(t, c.send, 2)
	assert.Equal(t, []byte("a"), <-c.send)
	assert.Equal(t, []byte("b"), <-c.send)
}

func TestSendAfterCloseIsDropped(t *testing.T) {
	c := newTestConn(ConnectionConfig{}, nil)
	c.Close(errors.New("gone"))

	assert.NotPanics(t, func() { c.Send([]byte("late")) })
	assert.Empty(t, c.send)
}

func TestCloseRunsHookOnce(t *testing.T) {
	calls := 0
	var gotID uuid.UUID
	c := newTestConn(ConnectionConfig{}, func(id uuid.UUID, err error) {
		calls++
		gotID = id
	})

	c.Close(nil)
	c.Close(nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, c.ID(), gotID)
	select {
	case <-c.Done():
	default:
		t.Fatal("Done channel not closed after Close")
	}
}

func TestState(t *testing.T) {
	c := newTestConn(ConnectionConfig{}, nil)
	defer c.Close(nil)

	assert.Nil(t, c.State())
	c.SetState("bound")
	assert.Equal(t, "bound", c.State())
}

func TestQuota(t *testing.T) {
	c := newTestConn(ConnectionConfig{RequestsPerSecond: 1, Burst: 2}, nil)
	defer c.Close(nil)

	assert.True(t, c.Allow())
	assert.True(t, c.Allow())
	assert.False(t, c.Allow())

	unlimited := newTestConn(ConnectionConfig{}, nil)
	defer unlimited.Close(nil)
	for k := 0; k < 1000; k++ {
		require.True(t, unlimited.Allow())
	}
}

func TestRateMeterReadableAfterClose(t *testing.T) {
	c := newTestConn(ConnectionConfig{}, nil)
	c.Mark()
	c.Close(nil)

	assert.GreaterOrEqual(t, c.OneMinuteRate(), 0.0)
}

func TestRunAfterCloseDoesNotHoldWaitGroup(t *testing.T) {
	var wg sync.WaitGroup
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewConnection(context.Background(), &wg, nil, ConnectionConfig{}, nil, nil, logger)

	c.Close(errors.New("cycled before start"))
	c.Run()

	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("wg.Wait blocked after Run on a closed connection")
	}
	assert.False(t, c.started)
}
