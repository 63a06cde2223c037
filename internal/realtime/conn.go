package realtime

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"marketguard/internal/fanout"
)

// conn is the fanout.Handle of one websocket. Data frames are written under
// writeMu; control frames use WriteControl, which gorilla allows concurrently.
type conn struct {
	id           string
	ws           *websocket.Conn
	writeTimeout time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

func newConn(ws *websocket.Conn, writeTimeout time.Duration) *conn {
	return &conn{
		id:           uuid.NewString(),
		ws:           ws,
		writeTimeout: writeTimeout,
	}
}

func (c *conn) ID() string {
	return c.id
}

// Deliver writes event under the write deadline. The producer's context is
// not consulted: a caller giving up says nothing about this transport. A
// failed write closes the socket so the read loop exits and the session is
// never left half-open.
func (c *conn) Deliver(_ context.Context, event fanout.Event) error {
	if err := c.writeJSON(event); err != nil {
		c.close(websocket.CloseInternalServerErr, "delivery failed")
		return err
	}
	return nil
}

func (c *conn) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(v)
}

func (c *conn) writeText(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, []byte(text))
}

func (c *conn) ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

// close sends a close frame with code and reason, then releases the socket.
// Only the first call has an effect.
func (c *conn) close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		msg := websocket.FormatCloseMessage(code, reason)
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))
		_ = c.ws.Close()
	})
}

func (c *conn) isClosed() bool {
	return c.closed.Load()
}
