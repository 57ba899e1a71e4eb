package push

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Conn is the subset of *websocket.Conn the hub depends on.
type Conn interface {
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	ReadMessage() (int, []byte, error)
	Close() error
}

// Client is one live connection with a buffered outgoing channel.
type Client struct {
	ID     string
	UserID string

	hub       *Hub
	conn      Conn
	send      chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

// Serve runs the read and write pumps until the connection drops or ctx is
// cancelled. It always unregisters the client before returning.
func (c *Client) Serve(ctx context.Context) {
	go c.writePump()
	c.readPump(ctx)
}

// Enqueue offers a frame directly to this connection.
func (c *Client) Enqueue(frame Frame) {
	c.hub.enqueue(c, frame)
}

// writePump drains the send channel and keeps the connection alive with
// pings. Exits when the client is unregistered or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if err := c.conn.WriteJSON(frame); err != nil {
				c.hub.logger.Debug("push write failed",
					zap.String("connection_id", c.ID),
					zap.Error(err),
				)
				return
			}
			if c.hub.metrics != nil {
				c.hub.metrics.SentFrames.Inc()
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames (clients send nothing the server acts on
// today) and detects disconnects, including abnormal ones via pong timeouts.
func (c *Client) readPump(ctx context.Context) {
	defer c.hub.Unregister(context.WithoutCancel(ctx), c)

	_ = c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.PongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
