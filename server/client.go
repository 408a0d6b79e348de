package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/teranos/smrt/assistant"
	"github.com/teranos/smrt/logger"
)

// WebSocket timeouts following the gorilla chat example
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // must be less than pongWait
	maxMessageSize = 64 * 1024
	sendBuffer     = 16
)

// chatClient is one websocket chat connection. Questions are answered in
// arrival order; replies are written by a single writer goroutine.
type chatClient struct {
	server    *Server
	conn      *websocket.Conn
	send      chan any
	done      chan struct{} // closed when the writer exits
	id        string
	closeOnce sync.Once
}

// chatError is sent in place of a reply when a question fails
type chatError struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	up := s.upgrader()
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		s.logger.Debugw("WebSocket upgrade failed", logger.FieldError, err)
		return
	}

	c := &chatClient{
		server: s,
		conn:   conn,
		send:   make(chan any, sendBuffer),
		done:   make(chan struct{}),
		id:     uuid.NewString(),
	}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Debugw("Chat client connected", "client_id", c.id)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		c.writePump()
	}()
	go func() {
		defer s.wg.Done()
		c.readPump()
	}()
}

func (c *chatClient) close() {
	c.closeOnce.Do(func() {
		c.conn.Close()
	})
}

func (c *chatClient) unregister() {
	c.server.mu.Lock()
	delete(c.server.clients, c)
	c.server.mu.Unlock()
}

// readPump answers each chat frame in turn until the connection closes
func (c *chatClient) readPump() {
	defer func() {
		c.unregister()
		close(c.send)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.server.logger.Warnw("Chat read error", logger.FieldError, err, "client_id", c.id)
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.deliver(chatError{Status: assistant.StatusError, Error: "invalid message: " + err.Error()})
			continue
		}

		ctx := logger.WithRequestID(c.server.ctx, uuid.NewString())
		reply, err := c.server.assistant.Ask(ctx, req.Message)
		if err != nil {
			c.deliver(chatError{Status: assistant.StatusError, Error: err.Error()})
			continue
		}
		c.deliver(reply)
	}
}

// deliver queues msg unless the writer is gone
func (c *chatClient) deliver(msg any) {
	select {
	case c.send <- msg:
	case <-c.done:
	}
}

// writePump writes replies and keepalive pings
func (c *chatClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		c.close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.server.logger.Debugw("Chat write error", logger.FieldError, err, "client_id", c.id)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
