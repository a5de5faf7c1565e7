package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"codeberg.org/codeshare/server/internal/errors"
	"codeberg.org/codeshare/server/internal/logger"
)

// creates a new websocket client connection
func NewClient(id, ipAddress string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:          id,
		IPAddress:   ipAddress,
		conn:        conn,
		hub:         hub,
		send:        make(chan []byte, 256),
		closed:      false,
		codeLimiter: rate.NewLimiter(rate.Limit(maxCodeUpdatesPerSecond), maxCodeUpdatesPerSecond),
		chatLimiter: rate.NewLimiter(rate.Every(time.Minute/maxChatMessagesPerMinute), maxChatMessagesPerMinute),
	}
}

// returns the session this client is currently joined to, empty when none
func (c *Client) Session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.sessionID
}

// records the client's room membership (called by the hub under its lock)
func (c *Client) setSession(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessionID = sessionID
}

// returns the short display name derived from the connection ID
func (c *Client) SenderName() string {
	if len(c.ID) <= senderNameLength {
		return c.ID
	}

	return c.ID[:senderNameLength]
}

// reads messages from the websocket connection to the hub for processing
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close() //nolint:errcheck,gosec // defer cleanup
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck,gosec // websocket setup
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck,gosec // pong handler
		return nil
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket error",
					"client_id", c.ID,
					"error", err,
				)
			}

			break
		}

		// parse the message
		var msg Message
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			logger.ErrorErr(err, "failed to unmarshal message",
				"client_id", c.ID,
			)

			c.SendError(errors.CodeBadRequest, "invalid message format", err.Error())
			continue
		}

		// stamp the message with its origin
		msg.ClientID = c.ID
		msg.Timestamp = time.Now()

		// forward to hub for processing
		c.hub.Inbound <- &msg
	}
}

// writes messages from the hub to the websocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck,gosec // defer cleanup
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck,gosec // websocket timing

			if !ok {
				// hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck,gosec // close message
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}

			w.Write(message) //nolint:errcheck,gosec // websocket write

			// add queued messages to the current websocket message
			n := len(c.send)

			for range n {
				w.Write([]byte{'\n'}) //nolint:errcheck,gosec // websocket write
				w.Write(<-c.send)     //nolint:errcheck,gosec // websocket write
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck,gosec // websocket ping timing

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sends a message to the client
func (c *Client) Send(msg *Message) (err error) {
	// recover from panic if channel is closed
	defer func() {
		if r := recover(); r != nil {
			err = ErrConnectionClosed
		}
	}()

	c.mu.RLock()

	if c.closed {
		c.mu.RUnlock()
		return ErrConnectionClosed
	}

	c.mu.RUnlock()

	messageBytes, marshalErr := json.Marshal(msg)
	if marshalErr != nil {
		return marshalErr
	}

	select {
	case c.send <- messageBytes:
		return nil
	default:
		// channel is full, send error directly to websocket before closing
		c.sendBufferOverflowError()
		c.Close()
		return ErrConnectionClosed
	}
}

// sends buffer overflow error directly to websocket (bypassing the full channel)
func (c *Client) sendBufferOverflowError() {
	errorMsg, err := NewMessage(TypeError, map[string]string{
		"error":   "buffer_overflow",
		"message": "message buffer full, connection will be closed",
		"details": "too many messages queued, please reconnect",
	})
	if err != nil {
		return
	}

	errorBytes, err := json.Marshal(errorMsg)
	if err != nil {
		return
	}

	// write directly to websocket with short deadline
	c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck,gosec
	c.conn.WriteMessage(websocket.TextMessage, errorBytes)   //nolint:errcheck,gosec
}

// sends an error message to the client
func (c *Client) SendError(code, message, details string) {
	errorMsg, err := NewMessage(TypeError, errors.ErrorResponse{
		Error:   code,
		Message: message,
		Details: details,
	})
	if err != nil {
		logger.ErrorErr(err, "failed to create error message",
			"client_id", c.ID,
			"error_code", code,
		)
		return
	}

	c.Send(errorMsg) //nolint:errcheck,gosec // best effort error notification
}

// closes the client connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// checks if the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.closed
}

// checks if the client may send another code update
func (c *Client) allowCodeUpdate() bool {
	return c.codeLimiter.Allow()
}

// checks if the client may send another chat message
func (c *Client) allowChatMessage() bool {
	return c.chatLimiter.Allow()
}
