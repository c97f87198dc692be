// Package ws implements the authenticated notification gateway: cookie-based
// handshake auth, role/room registries, heartbeat liveness and targeted
// broadcast fan-out.
package ws

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
)

const defaultWriteTimeout = 5 * time.Second

// socket is the slice of *websocket.Conn the registry needs.  Narrowing it
// to an interface keeps the heartbeat and broadcast paths testable without
// real network sockets.
type socket interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
}

// Conn is one live, authenticated notification socket.  Role decides which
// registries it joins; StudentID is set only for estudiante connections and
// keys the per-student room.  alive is the heartbeat flag: cleared by each
// sweep, set again when the ping's pong arrives.
type Conn struct {
	sock      socket
	UserID    uint64
	Role      string
	StudentID uint64

	writeTimeout time.Duration
	alive        atomic.Bool
	closeOnce    sync.Once
}

func newConn(sock socket, userID uint64, role string, studentID uint64) *Conn {
	c := &Conn{
		sock:         sock,
		UserID:       userID,
		Role:         role,
		StudentID:    studentID,
		writeTimeout: defaultWriteTimeout,
	}
	c.alive.Store(true)
	return c
}

// Send writes one already-serialized JSON frame with a bounded timeout.
// Errors are the caller's to ignore: a broken socket must never interrupt
// delivery to the rest of a room.
func (c *Conn) Send(ctx context.Context, frame []byte) error {
	wctx, cancel := context.WithTimeout(ctx, c.writeTimeout)
	defer cancel()
	return c.sock.Write(wctx, websocket.MessageText, frame)
}

// Terminate closes the underlying socket once.  Safe to call from the
// heartbeat sweep and the read loop concurrently.
func (c *Conn) Terminate(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		_ = c.sock.Close(code, reason)
	})
}
