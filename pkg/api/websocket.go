package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gutsysingh/PTApp/pkg/broadcast"
	"github.com/gutsysingh/PTApp/pkg/engine"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins (CORS handled by main server)
		return true
	},
}

// Client bridges one hub subscription to a WebSocket connection. Only
// writePump writes to conn; readPump hands echo replies over via replies.
type Client struct {
	engine  *engine.Engine
	conn    *websocket.Conn
	sub     *broadcast.Subscription
	replies chan []byte
	log     *zap.SugaredLogger
}

// readPump drains inbound frames and queues an echo for each text frame.
// It returns when the peer goes away, at which point the subscription ends.
func (c *Client) readPump() {
	defer func() {
		c.engine.Unsubscribe(c.sub)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		kind, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debugw("ws_read_error", "subscriber", c.sub.ID(), "err", err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		select {
		case c.replies <- append([]byte("echo: "), message...):
		case <-c.sub.Done():
			return
		default:
			// writer is behind; drop the echo rather than stall reads
		}
	}
}

// writePump sends ticks from the subscription and queued echoes, one
// message per text frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.sub.Messages():
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.engine.Unsubscribe(c.sub)
				return
			}

		case reply := <-c.replies:
			if err := c.write(websocket.TextMessage, reply); err != nil {
				c.engine.Unsubscribe(c.sub)
				return
			}

		case <-c.sub.Done():
			// Hub removed us (disconnect or too slow)
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.engine.Unsubscribe(c.sub)
				return
			}
		}
	}
}

func (c *Client) write(kind int, payload []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(kind, payload)
}

// handleWebSocket handles WebSocket upgrade and client lifecycle
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Register before the handshake completes so the first tick after
	// the upgrade response is never missed.
	sub := s.engine.Subscribe()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.engine.Unsubscribe(sub)
		s.log.Warnw("ws_upgrade_failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	client := &Client{
		engine:  s.engine,
		conn:    conn,
		sub:     sub,
		replies: make(chan []byte, 8),
		log:     s.log,
	}

	// Start read and write pumps in separate goroutines
	go client.writePump()
	go client.readPump()
}
