package live

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

var clientIDs atomic.Uint64

// client is one websocket connection. Only writeLoop writes to conn.
type client struct {
	id   uint64
	conn *websocket.Conn
	html bool

	// initial is written before anything from send.
	initial [][]byte
	send    chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, buffer int, html bool) *client {
	return &client{
		id:   clientIDs.Add(1),
		conn: conn,
		html: html,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// enqueue queues msg without blocking. It reports false when the queue is
// full or the client is closed.
func (c *client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *client) write(msg []byte, timeout time.Duration) error {
	c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteMessage(websocket.BinaryMessage, msg)
}

// writeLoop sends queued messages until the client is closed or a write
// fails, then closes the connection.
func (c *client) writeLoop(timeout time.Duration) error {
	defer c.conn.Close()
	defer c.close()

	for _, msg := range c.initial {
		if err := c.write(msg, timeout); err != nil {
			return err
		}
	}
	c.initial = nil

	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg, timeout); err != nil {
				return err
			}
		case <-c.done:
			c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			return nil
		}
	}
}
