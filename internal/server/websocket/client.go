// Package websocket implements the daemon's WebSocket bridge: connected
// preview shells receive reload events in real time and send back a small
// JSON command protocol (get_status, get_graph, reload, subscribe, ping).
//
// Each Client runs two goroutines: readPump feeds incoming messages to the
// command handler, writePump drains the buffered send channel onto the
// wire and keeps the connection alive with ping frames. Send is safe from
// any goroutine and never blocks; when a client falls too far behind, its
// messages are dropped rather than stalling the reload pipeline.
package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/declview/hotview/internal/sync"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 15 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Ping period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from a peer. Commands are small.
	maxMessageSize = 32 * 1024

	// Send buffer size per client. A save burst across a deep include
	// tree produces at most a few dozen events.
	sendBufferSize = 256

	// Application-level heartbeat interval, sent as a JSON event on top
	// of the protocol-level ping/pong frames.
	heartbeatInterval = 30 * time.Second
)

// CommandHandler is a function that handles incoming client messages.
type CommandHandler func(clientID string, message []byte)

// Client represents one connected preview shell.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	done           chan struct{}
	commandHandler CommandHandler
	onClose        func(id string)

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an upgraded connection. onClose runs once when the
// connection goes away, from either side.
func NewClient(conn *websocket.Conn, commandHandler CommandHandler, onClose func(id string)) *Client {
	return &Client{
		id:             uuid.New().String(),
		conn:           conn,
		send:           make(chan []byte, sendBufferSize),
		done:           make(chan struct{}),
		commandHandler: commandHandler,
		onClose:        onClose,
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() string {
	return c.id
}

// Start starts the client's read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// Send queues a message for delivery. Messages to slow clients are
// dropped once the buffer fills.
func (c *Client) Send(message []byte) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	select {
	case c.send <- message:
	default:
		log.Warn().Str("client_id", c.id).Msg("client send buffer full, dropping message")
	}
}

// Close shuts the client down. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
}

// IsClosed reports whether the client has been closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// readPump feeds messages from the connection to the command handler.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		_ = c.conn.Close()
		if c.onClose != nil {
			c.onClose(c.id)
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client_id", c.id).Msg("websocket read error")
			}
			return
		}

		if c.commandHandler != nil {
			c.commandHandler(c.id, message)
		}
	}
}

// writePump drains the send channel onto the wire. Each message goes out
// as its own text frame so clients never see concatenated JSON.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case message, ok := <-c.send:
			if !ok {
				return
			}

			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("write error")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("client_id", c.id).Msg("ping error")
				return
			}
		}
	}
}
