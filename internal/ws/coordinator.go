package ws

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"codeberg.org/codeshare/server/internal/errors"
	"codeberg.org/codeshare/server/internal/logger"
	"codeberg.org/codeshare/server/internal/registry"
	"codeberg.org/codeshare/server/internal/versions"
)

// bounded timeout on every version store call made by the coordinator
const storeTimeout = 5 * time.Second

// the event-driven session core: owns the join/create/leave/disconnect
// rules, the write-through ordering of edits, and the fan-out of edits
// and chat to the rest of a session's room.
//
// every operation that reads or writes one session's state runs under
// that session's lock, so two concurrent edits can never observe the
// same version count; different sessions never contend.
type Coordinator struct {
	registry *registry.Registry
	store    versions.Store
	locks    *keyedMutex
}

func NewCoordinator(reg *registry.Registry, store versions.Store) *Coordinator {
	return &Coordinator{
		registry: reg,
		store:    store,
		locks:    newKeyedMutex(),
	}
}

// wires the coordinator's handlers into the hub
func (co *Coordinator) RegisterHandlers(hub *Hub) {
	hub.RegisterHandler(TypeCreateSession, co.handleCreateSession)
	hub.RegisterHandler(TypeJoinSession, co.handleJoinSession)
	hub.RegisterHandler(TypeCodeUpdated, co.handleCodeUpdate)
	hub.RegisterHandler(TypeChatMessage, co.handleChatMessage)
	hub.RegisterHandler(TypeLeaveSession, co.handleLeaveSession)
	hub.RegisterHandler(TypePing, co.handlePing)
	hub.OnClientDisconnect(co.handleDisconnect)
}

// creates a new empty session owned by the requesting connection and
// answers with session_created; the creator becomes the room's first
// member
func (co *Coordinator) handleCreateSession(hub *Hub, client *Client, _ *Message) error {
	if client.Session() != "" {
		client.SendError(errors.CodeValidationError, "already in a session, leave it first", "")
		return ErrAlreadyInSession
	}

	sessionID, err := GenerateSessionID()
	if err != nil {
		client.SendError(errors.CodeServerError, "failed to create session", "")
		return err
	}

	co.registry.Create(sessionID, client.ID, "")

	if err := hub.JoinRoom(client, sessionID); err != nil {
		co.registry.Remove(sessionID)
		client.SendError(errors.CodeValidationError, "already in a session, leave it first", "")
		return err
	}

	createdMsg, err := NewMessage(TypeSessionCreated, SessionCreatedPayload{
		SessionID: sessionID,
	})
	if err != nil {
		return err
	}

	logger.Info("session created",
		"session_id", sessionID,
		"client_id", client.ID,
	)

	return client.Send(createdMsg)
}

// adds the connection to a session's room. a session unknown to the
// registry is rehydrated from the version store's latest snapshot when
// one exists; otherwise the join fails with an error-flagged
// session_joined, never an auto-created session.
func (co *Coordinator) handleJoinSession(hub *Hub, client *Client, msg *Message) error {
	var payload JoinSessionPayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		client.SendError(errors.CodeValidationError, "failed to parse join request", err.Error())
		return err
	}

	if payload.SessionID == "" {
		client.SendError(errors.CodeValidationError, "sessionId is required", "")
		return ErrInvalidMessage
	}

	if client.Session() != "" {
		co.sendJoinRejected(client, "already in a session, leave it first")
		return ErrAlreadyInSession
	}

	co.locks.Lock(payload.SessionID)
	defer co.locks.Unlock(payload.SessionID)

	session, exists := co.registry.Get(payload.SessionID)

	if !exists {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		latest, err := co.store.Latest(ctx, payload.SessionID)

		if stderrors.Is(err, versions.ErrNotFound) {
			co.sendJoinRejected(client, "session not found")
			return ErrSessionNotFound
		}

		if err != nil {
			client.SendError(errors.CodeServerError, "failed to load session", "")
			return err
		}

		// the session has persisted history but no live state in this
		// process; re-create it from the latest snapshot, with no owner
		co.registry.Create(payload.SessionID, "", latest.Code)
		session, _ = co.registry.Get(payload.SessionID)

		logger.Info("session rehydrated from version store",
			"session_id", payload.SessionID,
			"version", latest.Version,
		)
	}

	if err := hub.JoinRoom(client, payload.SessionID); err != nil {
		co.sendJoinRejected(client, "already in a session, leave it first")
		return err
	}

	joinedMsg, err := NewMessage(TypeSessionJoined, SessionJoinedPayload{
		Error:     false,
		SessionID: payload.SessionID,
	})
	if err != nil {
		return err
	}

	if err := client.Send(joinedMsg); err != nil {
		return err
	}

	// deliver the current code to the joining connection only
	codeMsg, err := NewMessage(TypeCodeUpdated, CodeUpdatePayload{
		Code: session.Code,
	})
	if err != nil {
		return err
	}

	return client.Send(codeMsg)
}

// the authoritative write path: persist the snapshot, mirror it into
// the registry, then fan it out to the rest of the room. if persistence
// fails nothing is mirrored or broadcast and the sender is told.
func (co *Coordinator) handleCodeUpdate(hub *Hub, client *Client, msg *Message) error {
	if !client.allowCodeUpdate() {
		client.SendError(errors.CodeTooManyRequests, "too many code updates. maximum 10 per second.", "")
		return ErrRateLimitExceeded
	}

	var payload CodeUpdatePayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		client.SendError(errors.CodeValidationError, "failed to parse code update", err.Error())
		return err
	}

	if payload.SessionID == "" {
		client.SendError(errors.CodeValidationError, "sessionId is required", "")
		return ErrInvalidMessage
	}

	if client.Session() != payload.SessionID {
		client.SendError(errors.CodeValidationError, "not a member of this session", "")
		return ErrNotInSession
	}

	if len(payload.Code) > maxCodeSize {
		client.SendError(errors.CodeBadRequest, "code exceeds maximum size. maximum 100 KB allowed.", "")
		return ErrCodeTooLarge
	}

	co.locks.Lock(payload.SessionID)
	defer co.locks.Unlock(payload.SessionID)

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	record, err := co.store.Append(ctx, payload.SessionID, payload.Code)
	if err != nil {
		logger.ErrorErr(err, "failed to persist code update",
			"client_id", client.ID,
			"session_id", payload.SessionID,
		)

		client.SendError(errors.CodeServerError, "failed to save code update", "")
		return err
	}

	co.registry.SetCode(payload.SessionID, payload.Code)

	broadcastMsg, err := NewMessage(TypeCodeUpdated, CodeUpdatePayload{
		Code: payload.Code,
	})
	if err != nil {
		return err
	}

	// broadcast to all other clients in the session; still under the
	// session lock so broadcasts follow commit order
	hub.BroadcastToSession(payload.SessionID, broadcastMsg, client.ID)

	logger.Debug("code update persisted",
		"session_id", payload.SessionID,
		"version", record.Version,
		"client_id", client.ID,
	)

	return nil
}

// relays a chat message to the rest of the room. chat is ephemeral:
// neither the registry nor the version store is touched.
func (co *Coordinator) handleChatMessage(hub *Hub, client *Client, msg *Message) error {
	if !client.allowChatMessage() {
		client.SendError(errors.CodeTooManyRequests, "too many chat messages. maximum 20 per minute.", "")
		return ErrRateLimitExceeded
	}

	var payload ChatMessagePayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		client.SendError(errors.CodeValidationError, "failed to parse chat message", err.Error())
		return err
	}

	if payload.SessionID == "" {
		client.SendError(errors.CodeValidationError, "sessionId is required", "")
		return ErrInvalidMessage
	}

	if client.Session() != payload.SessionID {
		client.SendError(errors.CodeValidationError, "not a member of this session", "")
		return ErrNotInSession
	}

	if len([]rune(payload.Message)) > maxChatMessageSize {
		client.SendError(errors.CodeBadRequest, "message exceeds maximum size. maximum 5000 characters allowed.", "")
		return ErrInvalidMessage
	}

	trimmedMessage := strings.TrimSpace(payload.Message)

	if trimmedMessage == "" {
		client.SendError(errors.CodeBadRequest, "message cannot be empty", "")
		return ErrInvalidMessage
	}

	broadcastMsg, err := NewMessage(TypeChatMessage, ChatBroadcastPayload{
		Sender:  client.SenderName(),
		Message: trimmedMessage,
	})
	if err != nil {
		return err
	}

	hub.BroadcastToSession(payload.SessionID, broadcastMsg, client.ID)

	return nil
}

// removes the connection from its room; when the room empties the live
// session state is discarded (its history stays in the version store)
func (co *Coordinator) handleLeaveSession(hub *Hub, client *Client, msg *Message) error {
	var payload LeaveSessionPayload
	if err := msg.UnmarshalPayload(&payload); err != nil {
		client.SendError(errors.CodeValidationError, "failed to parse leave request", err.Error())
		return err
	}

	if client.Session() != payload.SessionID {
		client.SendError(errors.CodeValidationError, "not a member of this session", "")
		return ErrNotInSession
	}

	sessionID, remaining, ok := hub.LeaveRoom(client)
	if !ok {
		return nil
	}

	if remaining == 0 {
		co.removeIfEmpty(hub, sessionID)
	}

	return nil
}

// discards a session's live state if its room is still empty. the
// re-check runs under the session lock so a join that rehydrated the
// session in the meantime is never clobbered.
func (co *Coordinator) removeIfEmpty(hub *Hub, sessionID string) {
	co.locks.Lock(sessionID)
	defer co.locks.Unlock(sessionID)

	if hub.RoomSize(sessionID) > 0 {
		return
	}

	co.registry.Remove(sessionID)

	logger.Info("session removed after last participant left",
		"session_id", sessionID,
	)
}

// responds to keep-alive pings
func (co *Coordinator) handlePing(_ *Hub, client *Client, _ *Message) error {
	pongMsg, err := NewMessage(TypePong, nil)
	if err != nil {
		return err
	}

	client.Send(pongMsg) //nolint:errcheck,gosec // best-effort pong
	return nil
}

// invoked by the hub after a client's transport dropped and the hub
// removed it from its room. discards empty sessions and notifies every
// session the connection owned.
func (co *Coordinator) handleDisconnect(client *Client, sessionID string, remaining int) {
	if sessionID != "" && remaining == 0 {
		co.removeIfEmpty(client.hub, sessionID)
	}

	// clear ownership everywhere and tell the remaining participants;
	// sessions are not deleted just because their owner left
	for _, ownedID := range co.registry.MarkOwnerGone(client.ID) {
		disconnectedMsg, err := NewMessage(TypeUserDisconnected, UserDisconnectedPayload{
			UserID: client.ID,
		})
		if err != nil {
			logger.ErrorErr(err, "failed to create user_disconnected message",
				"session_id", ownedID,
			)
			continue
		}

		co.hubBroadcast(client, ownedID, disconnectedMsg)
	}
}

func (co *Coordinator) hubBroadcast(client *Client, sessionID string, msg *Message) {
	client.hub.BroadcastToSession(sessionID, msg, client.ID)
}

func (co *Coordinator) sendJoinRejected(client *Client, reason string) {
	rejectedMsg, err := NewMessage(TypeSessionJoined, SessionJoinedPayload{
		Error:   true,
		Message: reason,
	})
	if err != nil {
		logger.ErrorErr(err, "failed to create session_joined message",
			"client_id", client.ID,
		)
		return
	}

	client.Send(rejectedMsg) //nolint:errcheck,gosec // best effort rejection notice
}
