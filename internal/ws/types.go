package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// message type constants for websocket communication
const (
	// sent by a client to create a new session
	TypeCreateSession = "create_session"

	// sent by a client to join an existing session
	TypeJoinSession = "join_session"

	// sent by a client on edit; sent by the server to the rest of the room
	TypeCodeUpdated = "code_updated"

	// sent by a client; relayed to the rest of the room, never persisted
	TypeChatMessage = "chat_message"

	// sent by a client to leave its session
	TypeLeaveSession = "leave_session"

	// sent to the creating client with the new session ID
	TypeSessionCreated = "session_created"

	// sent to the joining client with the join outcome
	TypeSessionJoined = "session_joined"

	// sent to a session's room when its owner connection drops
	TypeUserDisconnected = "user_disconnected"

	// sent when an error occurs
	TypeError = "error"

	// sent by clients to keep the connection alive
	TypePing = "ping"

	// sent by server in response to ping
	TypePong = "pong"

	// sent by server before shutdown
	TypeServerShutdown = "server_shutdown"
)

// client connection constants
const (
	// time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512 KB

	// rate limiting constants
	maxCodeUpdatesPerSecond  = 10 // maximum code updates per second
	maxChatMessagesPerMinute = 20 // maximum chat messages per minute

	// content size limits
	maxCodeSize        = 100 * 1024 // 100 KB maximum code size
	maxChatMessageSize = 5000       // 5000 characters maximum chat message size

	// chat sender names are a short prefix of the connection ID
	senderNameLength = 6
)

// errors
var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrNotInSession      = errors.New("client is not in a session")
	ErrAlreadyInSession  = errors.New("client is already in a session")
	ErrInvalidMessage    = errors.New("invalid message format")
	ErrConnectionClosed  = errors.New("connection closed")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrCodeTooLarge      = errors.New("code too large")
)

// represents a websocket message with typed payload
type Message struct {
	Type      string          `json:"type"`
	ClientID  string          `json:"-"` // internal only, not sent to clients
	Timestamp time.Time       `json:"timestamp"`
	Sequence  uint64          `json:"seq,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// identifies the session a client wants to join
type JoinSessionPayload struct {
	SessionID string `json:"sessionId"`
}

// carries document text; SessionID is set on client-originated updates
// and omitted on server broadcasts
type CodeUpdatePayload struct {
	SessionID string `json:"sessionId,omitempty"`
	Code      string `json:"code"`
}

// carries a chat message from a client
type ChatMessagePayload struct {
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message"`
}

// carries a relayed chat message with the derived sender name
type ChatBroadcastPayload struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// identifies the session a client wants to leave
type LeaveSessionPayload struct {
	SessionID string `json:"sessionId"`
}

// contains the ID of a freshly created session
type SessionCreatedPayload struct {
	SessionID string `json:"sessionId"`
}

// contains the outcome of a join attempt
type SessionJoinedPayload struct {
	Error     bool   `json:"error"`
	SessionID string `json:"sessionId,omitempty"`
	Message   string `json:"message,omitempty"`
}

// identifies a dropped owner connection
type UserDisconnectedPayload struct {
	UserID string `json:"userId"`
}

// contains information about server shutdown
type ServerShutdownPayload struct {
	Reason string `json:"reason"`
}

// represents a websocket client connection
type Client struct {
	// unique identifier for this client
	ID string

	// IP address of the client
	IPAddress string

	// websocket connection
	conn *websocket.Conn

	// hub reference for message routing
	hub *Hub

	// buffered channel of outbound messages
	send chan []byte

	// mutex for thread-safe operations
	mu sync.RWMutex

	// session this client is currently joined to, empty when none
	sessionID string

	// flag indicating if client is closed
	closed bool

	// rate limiters for client-originated events
	codeLimiter *rate.Limiter
	chatLimiter *rate.Limiter
}

// maintains the set of active clients and the per-session rooms used
// for broadcast fan-out
type Hub struct {
	// all connected clients by client ID
	clients map[string]*Client

	// room membership by session ID and client ID
	rooms map[string]map[string]*Client

	// register requests from clients
	Register chan *Client

	// unregister requests from clients
	Unregister chan *Client

	// inbound messages from clients
	Inbound chan *Message

	// mutex for thread-safe access to clients and rooms
	mu sync.RWMutex

	// message handlers for different message types
	handlers map[string]MessageHandler

	// channel to signal shutdown, closed exactly once
	shutdown     chan struct{}
	shutdownOnce sync.Once

	// sequence numbers per session for broadcast ordering
	sessionSequences map[string]uint64

	// callback for client disconnect (session cleanup, owner bookkeeping)
	onClientDisconnect func(client *Client, sessionID string, remaining int)
}

// processes a specific message type
type MessageHandler func(hub *Hub, client *Client, msg *Message) error
