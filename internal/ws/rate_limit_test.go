package ws

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "codeberg.org/codeshare/server/internal/errors"
)

// code updates are limited to 10 per second per client
func TestCodeUpdateRateLimit(t *testing.T) {
	client := newTestClient("client-1", NewHub())

	for i := 0; i < maxCodeUpdatesPerSecond; i++ {
		assert.True(t, client.allowCodeUpdate(), "code update %d should have been allowed", i+1)
	}

	assert.False(t, client.allowCodeUpdate(), "11th code update should have been rate limited")
}

// chat messages are limited to 20 per minute per client
func TestChatRateLimit(t *testing.T) {
	client := newTestClient("client-1", NewHub())

	for i := 0; i < maxChatMessagesPerMinute; i++ {
		assert.True(t, client.allowChatMessage(), "chat message %d should have been allowed", i+1)
	}

	assert.False(t, client.allowChatMessage(), "21st chat message should have been rate limited")
}

// a rate-limited code update is rejected before persistence or broadcast
func TestCodeUpdateRateLimitedAtHandler(t *testing.T) {
	hub, reg, store, co := newTestCoordinator()
	sender := newTestClient("sender-1", hub)
	other := newTestClient("other-1", hub)

	reg.Create("session-1", sender.ID, "")
	require.NoError(t, hub.JoinRoom(sender, "session-1"))
	require.NoError(t, hub.JoinRoom(other, "session-1"))

	for i := 0; i < maxCodeUpdatesPerSecond; i++ {
		require.NoError(t, co.handleCodeUpdate(hub, sender, inboundMessage(t, TypeCodeUpdated, sender.ID, CodeUpdatePayload{
			SessionID: "session-1",
			Code:      fmt.Sprintf("v%d", i),
		})))
	}

	err := co.handleCodeUpdate(hub, sender, inboundMessage(t, TypeCodeUpdated, sender.ID, CodeUpdatePayload{
		SessionID: "session-1",
		Code:      "one too many",
	}))
	assert.ErrorIs(t, err, ErrRateLimitExceeded)

	msg := receiveMessage(t, sender)
	assert.Equal(t, TypeError, msg.Type)

	var payload apierrors.ErrorResponse
	require.NoError(t, msg.UnmarshalPayload(&payload))
	assert.Equal(t, apierrors.CodeTooManyRequests, payload.Error)

	// only the allowed updates were persisted and broadcast
	count, err := store.Count(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, maxCodeUpdatesPerSecond, count)

	for i := 0; i < maxCodeUpdatesPerSecond; i++ {
		broadcast := receiveMessage(t, other)
		assert.Equal(t, TypeCodeUpdated, broadcast.Type)
	}

	assertNoMessage(t, other)
}

// a rate-limited chat message is rejected before broadcast
func TestChatMessageRateLimitedAtHandler(t *testing.T) {
	hub, reg, _, co := newTestCoordinator()
	sender := newTestClient("sender-1", hub)
	other := newTestClient("other-1", hub)

	reg.Create("session-1", sender.ID, "")
	require.NoError(t, hub.JoinRoom(sender, "session-1"))
	require.NoError(t, hub.JoinRoom(other, "session-1"))

	for i := 0; i < maxChatMessagesPerMinute; i++ {
		require.NoError(t, co.handleChatMessage(hub, sender, inboundMessage(t, TypeChatMessage, sender.ID, ChatMessagePayload{
			SessionID: "session-1",
			Message:   fmt.Sprintf("hello %d", i),
		})))
	}

	err := co.handleChatMessage(hub, sender, inboundMessage(t, TypeChatMessage, sender.ID, ChatMessagePayload{
		SessionID: "session-1",
		Message:   "one too many",
	}))
	assert.ErrorIs(t, err, ErrRateLimitExceeded)

	msg := receiveMessage(t, sender)
	assert.Equal(t, TypeError, msg.Type)

	var payload apierrors.ErrorResponse
	require.NoError(t, msg.UnmarshalPayload(&payload))
	assert.Equal(t, apierrors.CodeTooManyRequests, payload.Error)

	for i := 0; i < maxChatMessagesPerMinute; i++ {
		broadcast := receiveMessage(t, other)
		assert.Equal(t, TypeChatMessage, broadcast.Type)
	}

	assertNoMessage(t, other)
}
