package ws

import (
	"time"

	"codeberg.org/codeshare/server/internal/errors"
	"codeberg.org/codeshare/server/internal/logger"
)

func NewHub() *Hub {
	return &Hub{
		clients:          make(map[string]*Client),
		rooms:            make(map[string]map[string]*Client),
		Register:         make(chan *Client),
		Unregister:       make(chan *Client),
		Inbound:          make(chan *Message, 256),
		handlers:         make(map[string]MessageHandler),
		shutdown:         make(chan struct{}),
		sessionSequences: make(map[string]uint64),
	}
}

// registers a handler for a specific message type
func (h *Hub) RegisterHandler(messageType string, handler MessageHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[messageType] = handler
}

// sets callback to be called after a client disconnects and has been
// removed from its room; remaining is the room size after removal
func (h *Hub) OnClientDisconnect(callback func(client *Client, sessionID string, remaining int)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onClientDisconnect = callback
}

// starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case message := <-h.Inbound:
			h.handleMessage(message)

		case <-h.shutdown:
			h.closeAllConnections()
			return
		}
	}
}

// adds a client to the hub; the client has no room membership until it
// creates or joins a session
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[client.ID] = client

	logger.Info("client registered",
		"client_id", client.ID,
		"ip", client.IPAddress,
	)
}

// removes a client from the hub and from its room, if any
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()

	// capture callback reference under lock
	callback := h.onClientDisconnect

	if _, exists := h.clients[client.ID]; !exists {
		h.mu.Unlock()
		return
	}

	delete(h.clients, client.ID)

	sessionID := client.Session()
	remaining := 0

	if sessionID != "" {
		remaining = h.removeFromRoom(client, sessionID)
	}

	client.Close()

	logger.Info("client unregistered",
		"client_id", client.ID,
		"session_id", sessionID,
	)

	h.mu.Unlock()

	// call disconnect callback outside lock (may touch registry/store)
	if callback != nil {
		callback(client, sessionID, remaining)
	}
}

// adds a client to a session's room. a client is a member of at most
// one room at a time.
func (h *Hub) JoinRoom(client *Client, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.Session() != "" {
		return ErrAlreadyInSession
	}

	if h.rooms[sessionID] == nil {
		h.rooms[sessionID] = make(map[string]*Client)
	}

	h.rooms[sessionID][client.ID] = client
	client.setSession(sessionID)

	logger.Info("client joined room",
		"client_id", client.ID,
		"session_id", sessionID,
	)

	return nil
}

// removes a client from its current room and reports the session ID and
// how many members remain
func (h *Hub) LeaveRoom(client *Client) (string, int, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionID := client.Session()
	if sessionID == "" {
		return "", 0, false
	}

	remaining := h.removeFromRoom(client, sessionID)

	logger.Info("client left room",
		"client_id", client.ID,
		"session_id", sessionID,
	)

	return sessionID, remaining, true
}

// detaches a client from a room; must be called with the hub lock held
func (h *Hub) removeFromRoom(client *Client, sessionID string) int {
	room, exists := h.rooms[sessionID]
	if !exists {
		client.setSession("")
		return 0
	}

	delete(room, client.ID)
	client.setSession("")

	remaining := len(room)

	if remaining == 0 {
		delete(h.rooms, sessionID)
		delete(h.sessionSequences, sessionID)

		logger.Info("room has no more clients, removed",
			"session_id", sessionID,
		)
	}

	return remaining
}

// processes an incoming message
func (h *Hub) handleMessage(msg *Message) {
	h.mu.RLock()
	sender, exists := h.clients[msg.ClientID]
	h.mu.RUnlock()

	if !exists {
		logger.Warn("sender client not found for message",
			"client_id", msg.ClientID,
			"message_type", msg.Type,
		)
		return
	}

	h.mu.RLock()
	handler, exists := h.handlers[msg.Type]
	h.mu.RUnlock()

	if exists {
		// run handler asynchronously to avoid blocking the hub; the
		// coordinator serializes same-session work internally
		go func() {
			if err := handler(h, sender, msg); err != nil {
				logger.ErrorErr(err, "handler error",
					"message_type", msg.Type,
					"client_id", sender.ID,
				)
			}
		}()
	} else {
		// reject unhandled message types
		logger.Warn("unhandled message type received",
			"message_type", msg.Type,
			"client_id", sender.ID,
		)

		sender.SendError(errors.CodeBadRequest, "unsupported message type", "message type not recognized")
	}
}

// sends a message to all clients in a session's room
func (h *Hub) BroadcastToSession(sessionID string, msg *Message, excludeClientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastToSession(sessionID, msg, excludeClientID)
}

// the internal broadcast function (must be called with lock held)
func (h *Hub) broadcastToSession(sessionID string, msg *Message, excludeClientID string) {
	room, exists := h.rooms[sessionID]
	if !exists {
		return
	}

	// assign sequence number to message
	h.sessionSequences[sessionID]++
	msg.Sequence = h.sessionSequences[sessionID]

	for clientID, client := range room {
		if clientID == excludeClientID {
			continue
		}

		if err := client.Send(msg); err != nil {
			logger.ErrorErr(err, "failed to send message to client",
				"client_id", clientID,
				"session_id", sessionID,
			)
		}
	}
}

// returns all clients in a session's room
func (h *Hub) GetRoomClients(sessionID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, exists := h.rooms[sessionID]
	if !exists {
		return []*Client{}
	}

	clients := make([]*Client, 0, len(room))

	for _, client := range room {
		clients = append(clients, client)
	}

	return clients
}

// returns the number of clients in a session's room
func (h *Hub) RoomSize(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, exists := h.rooms[sessionID]
	if !exists {
		return 0
	}

	return len(room)
}

// returns the number of rooms with at least one member
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// signals the run loop to notify clients and stop; safe to call more
// than once and from any goroutine
func (h *Hub) Shutdown() {
	h.shutdownOnce.Do(func() {
		close(h.shutdown)
	})
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()

	logger.Info("notifying clients of server shutdown")

	shutdownMsg, err := NewMessage(TypeServerShutdown, ServerShutdownPayload{
		Reason: "server is shutting down for maintenance",
	})
	if err == nil {
		for _, client := range h.clients {
			if sendErr := client.Send(shutdownMsg); sendErr != nil {
				logger.ErrorErr(sendErr, "failed to send shutdown notification",
					"client_id", client.ID,
				)
			}
		}
	}

	h.mu.Unlock()

	// give clients time to receive the shutdown message
	time.Sleep(500 * time.Millisecond)

	h.mu.Lock()
	defer h.mu.Unlock()

	logger.Info("closing all websocket connections")

	for clientID, client := range h.clients {
		client.Close()
		logger.Debug("closed client",
			"client_id", clientID,
		)
	}

	h.clients = make(map[string]*Client)
	h.rooms = make(map[string]map[string]*Client)
	h.sessionSequences = make(map[string]uint64)
}
