package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGet(t *testing.T) {
	r := New()

	r.Create("session-1", "conn-1", "")

	session, exists := r.Get("session-1")
	require.True(t, exists)
	assert.Equal(t, "session-1", session.ID)
	assert.Equal(t, "conn-1", session.OwnerConnID)
	assert.Equal(t, "", session.Code)
}

func TestGetAbsent(t *testing.T) {
	r := New()

	_, exists := r.Get("no-such-session")
	assert.False(t, exists)
}

func TestCreateOverwrites(t *testing.T) {
	r := New()

	r.Create("session-1", "conn-1", "old")
	r.Create("session-1", "conn-2", "")

	session, exists := r.Get("session-1")
	require.True(t, exists)
	assert.Equal(t, "conn-2", session.OwnerConnID)
	assert.Equal(t, "", session.Code)
}

func TestSetCode(t *testing.T) {
	r := New()

	r.Create("session-1", "conn-1", "")
	r.SetCode("session-1", "sound(\"bd\")")

	session, exists := r.Get("session-1")
	require.True(t, exists)
	assert.Equal(t, "sound(\"bd\")", session.Code)
}

func TestSetCodeAbsentIsNoOp(t *testing.T) {
	r := New()

	r.SetCode("no-such-session", "x")

	_, exists := r.Get("no-such-session")
	assert.False(t, exists)
}

func TestRemove(t *testing.T) {
	r := New()

	r.Create("session-1", "conn-1", "")
	r.Remove("session-1")

	_, exists := r.Get("session-1")
	assert.False(t, exists)
	assert.Equal(t, 0, r.Count())
}

func TestMarkOwnerGone(t *testing.T) {
	r := New()

	r.Create("session-1", "conn-1", "")
	r.Create("session-2", "conn-1", "")
	r.Create("session-3", "conn-2", "")

	affected := r.MarkOwnerGone("conn-1")
	assert.ElementsMatch(t, []string{"session-1", "session-2"}, affected)

	// ownership is cleared but sessions stay
	session, exists := r.Get("session-1")
	require.True(t, exists)
	assert.Equal(t, "", session.OwnerConnID)

	other, exists := r.Get("session-3")
	require.True(t, exists)
	assert.Equal(t, "conn-2", other.OwnerConnID)

	// a second disconnect finds nothing to clear
	assert.Empty(t, r.MarkOwnerGone("conn-1"))
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	r.Create("session-1", "conn-1", "")

	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			r.SetCode("session-1", "code")
		}()

		go func() {
			defer wg.Done()
			r.Get("session-1")
		}()
	}

	wg.Wait()

	session, exists := r.Get("session-1")
	require.True(t, exists)
	assert.Equal(t, "code", session.Code)
}
