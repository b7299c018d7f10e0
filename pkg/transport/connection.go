package transport

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rcrowley/go-metrics"
	"golang.org/x/time/rate"
)

// callback executed when a message is received.
type MessageHandler func(ctx context.Context, connId uuid.UUID, msg []byte)

type OnCloseHandler func(connId uuid.UUID, err error)

type ConnectionConfig struct {
	ReadTimeout time.Duration
	SendBuffer  int
	// Inbound request quota. Zero RequestsPerSecond disables the quota.
	RequestsPerSecond float64
	Burst             int
}

const defaultSendBuffer = 256

type stateBox struct{ v any }

// Connection represents a single, thread-safe WebSocket connection.
type Connection struct {
	id     uuid.UUID
	conn   *websocket.Conn
	config ConnectionConfig
	send   chan []byte

	onMessage MessageHandler
	onClose   OnCloseHandler

	state   atomic.Pointer[stateBox]
	meter   metrics.Meter
	limiter *rate.Limiter

	done      chan struct{}
	wg        *sync.WaitGroup
	ctx       context.Context
	lifeMu    sync.Mutex // guards started and closed
	started   bool
	closed    bool
	closeOnce sync.Once
	cancel    context.CancelFunc

	logger *slog.Logger
}

func NewConnection(parentCtx context.Context, wg *sync.WaitGroup, conn *websocket.Conn, config ConnectionConfig, onMessage MessageHandler, onClose OnCloseHandler, logger *slog.Logger) *Connection {
	id := uuid.New()
	connCtx, cancel := context.WithCancel(parentCtx)
	connLogger := logger.With(slog.String("connID", id.String()))

	buf := config.SendBuffer
	if buf <= 0 {
		buf = defaultSendBuffer
	}
	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}
	burst := config.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Connection{
		id:        id,
		conn:      conn,
		logger:    connLogger,
		config:    config,
		onMessage: onMessage,
		send:      make(chan []byte, buf),
		meter:     metrics.NewMeter(),
		limiter:   rate.NewLimiter(limit, burst),
		done:      make(chan struct{}),
		ctx:       connCtx,
		cancel:    cancel,
		onClose:   onClose,
		wg:        wg,
	}
}

// Run starts the pumps. It is a no-op once the connection is closed, so a
// connection closed before Run never holds the WaitGroup.
func (c *Connection) Run() {
	c.lifeMu.Lock()
	if c.closed || c.started {
		c.lifeMu.Unlock()
		return
	}
	c.wg.Add(1)
	c.started = true
	c.lifeMu.Unlock()

	go c.readPump()
	go c.writePump()

	c.logger.Info("connection established")
}

// readPump pumps messages from the WebSocket connection to the message handler.
func (c *Connection) readPump() {
	var readErr error
	defer func() {
		c.Close(readErr)
	}()

	for {
		readCtx, cancelRead := context.WithTimeout(c.ctx, c.config.ReadTimeout)
		typ, message, err := c.conn.Read(readCtx)
		cancelRead()
		if err != nil {
			readErr = err
			return
		}
		if typ != websocket.MessageText && typ != websocket.MessageBinary {
			continue
		}
		if c.onMessage != nil {
			c.onMessage(c.ctx, c.id, message)
		}
	}
}

// writePump pumps messages from the send channel to the WebSocket connection.
func (c *Connection) writePump() {
	var writeErr error

	defer func() {
		c.Close(writeErr)
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.conn.Write(c.ctx, websocket.MessageText, message); err != nil {
				writeErr = err
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// Send queues a message for the client without blocking. Messages for a
// closed connection or a full queue are dropped.
func (c *Connection) Send(message []byte) {
	if c.ctx.Err() != nil {
		c.logger.Debug("Dropped message for closed connection")
		return
	}
	select {
	case c.send <- message:
	default:
		c.logger.Warn("Send queue full, dropping message", slog.Int("queued", len(c.send)))
	}
}

// gracefully shuts down the connection and its resources.
func (c *Connection) Close(err error) {
	c.closeOnce.Do(func() {
		status := websocket.CloseStatus(err)
		c.logger.Info("Transport connection closing", slog.Any("reason", err), slog.String("status", status.String()))

		c.lifeMu.Lock()
		c.closed = true
		started := c.started
		c.lifeMu.Unlock()

		c.cancel() // Signal goroutines to stop.
		c.meter.Stop()
		if c.conn != nil {
			c.conn.Close(websocket.StatusNormalClosure, "")
		}
		if c.onClose != nil {
			c.onClose(c.id, err)
		}
		if started {
			c.wg.Done()
		}
		close(c.done)
	})
}

// returns a channel that is closed when the connection is fully terminated.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// ID returns the unique identifier of the connection.
func (c *Connection) ID() uuid.UUID {
	return c.id
}

func (c *Connection) SetOnMessageHandler(handler MessageHandler) {
	c.onMessage = handler
}
func (c *Connection) SetOnCloseHandler(handler OnCloseHandler) {
	c.onClose = handler
}

// State returns the role state attached after authentication.
func (c *Connection) State() any {
	if b := c.state.Load(); b != nil {
		return b.v
	}
	return nil
}

func (c *Connection) SetState(s any) {
	c.state.Store(&stateBox{v: s})
}

// Mark records one inbound request on the connection's meter.
func (c *Connection) Mark() {
	c.meter.Mark(1)
}

// OneMinuteRate reads the meter's last computed one minute rate without
// forcing a tick.
func (c *Connection) OneMinuteRate() float64 {
	return c.meter.Rate1()
}

// Allow reports whether one more inbound request fits the quota.
func (c *Connection) Allow() bool {
	return c.limiter.Allow()
}
