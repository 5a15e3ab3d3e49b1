package hub

import (
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"relayhub/logger"
)

// Client is one live transport session. Owned exclusively by the
// Registry; rooms hold only membership references, never ownership.
// A single user may have multiple clients (tabs/devices), each
// maintained separately.
type Client struct {
	ConnID   string
	UserID   string
	UserName string

	ws     *websocket.Conn
	Remote net.Addr

	// Send is the per-connection outbound queue, consumed by a single
	// writer goroutine. Never closed; the writer stops via done.
	Send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(connID, userID, userName string, ws *websocket.Conn, sendQueueSize int) *Client {
	c := &Client{
		ConnID:   connID,
		UserID:   userID,
		UserName: userName,
		ws:       ws,
		Send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
	}
	if ws != nil {
		c.Remote = ws.RemoteAddr()
	}
	return c
}

// Close tears the transport down; safe to call from any goroutine and
// idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ws != nil {
			_ = c.ws.Close()
		}
	})
}

func (c *Client) Done() <-chan struct{} { return c.done }

// writePump owns all writes on the socket: queued frames plus the
// ping keepalive. One goroutine per connection keeps wire order equal
// to queue order.
func (c *Client) writePump(pingInterval, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.Send:
			if err := c.writeMessage(websocket.TextMessage, payload, writeTimeout); err != nil {
				logger.Debugf("[ws] write err conn=%s user=%s: %v", c.ConnID, c.UserID, err)
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeTimeout)); err != nil {
				logger.Debugf("[ws] ping err conn=%s user=%s: %v", c.ConnID, c.UserID, err)
				return
			}
		}
	}
}

func (c *Client) writeMessage(mt int, data []byte, timeout time.Duration) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(mt, data)
}
