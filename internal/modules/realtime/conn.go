package realtime

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Conn is one live realtime client. The websocket handler owns its lifetime;
// the registry and dispatcher only hold non-owning references and never
// close the underlying transport.
type Conn struct {
	accountID int64
	ws        *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool

	// Messages discarded because the outbound queue was full. A slow
	// consumer loses its own messages, never anyone else's.
	dropped atomic.Int64
}

func newConn(accountID int64, ws *websocket.Conn, sendBuffer int) *Conn {
	return &Conn{
		accountID: accountID,
		ws:        ws,
		send:      make(chan []byte, sendBuffer),
	}
}

func (c *Conn) AccountID() int64 { return c.accountID }

// trySend enqueues without blocking. Returns false when the queue is full
// and the message was dropped, or when the connection is already closed.
// The lock makes enqueue and close mutually exclusive: a dispatcher holding
// a stale reference can never hit a closed channel.
func (c *Conn) trySend(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		c.dropped.Add(1)
		return false
	}
}

func (c *Conn) Dropped() int64 { return c.dropped.Load() }

func (c *Conn) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
