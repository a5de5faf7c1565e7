package versions

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAssignsSequentialVersions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, err := store.Append(ctx, "session-1", "a")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Version)

	second, err := store.Append(ctx, "session-1", "ab")
	require.NoError(t, err)
	assert.Equal(t, 1, second.Version)

	// versions are per session
	other, err := store.Append(ctx, "session-2", "x")
	require.NoError(t, err)
	assert.Equal(t, 0, other.Version)
}

func TestLatest(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Latest(ctx, "session-1")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Append(ctx, "session-1", "a")
	require.NoError(t, err)
	_, err = store.Append(ctx, "session-1", "ab")
	require.NoError(t, err)

	latest, err := store.Latest(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, "ab", latest.Code)
	assert.Equal(t, 1, latest.Version)
}

func TestGetByID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	record, err := store.Append(ctx, "session-1", "a")
	require.NoError(t, err)

	loaded, err := store.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Code, loaded.Code)
	assert.Equal(t, record.Version, loaded.Version)

	_, err = store.GetByID(ctx, "no-such-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCount(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	count, err := store.Count(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	_, err = store.Append(ctx, "session-1", "a")
	require.NoError(t, err)
	_, err = store.Append(ctx, "session-1", "ab")
	require.NoError(t, err)

	count, err = store.Count(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

// concurrent appends on a single session must yield strictly increasing
// version numbers with no duplicates
func TestConcurrentAppendsUniqueVersions(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const writers = 20
	const appendsPerWriter = 10

	var wg sync.WaitGroup
	versionsSeen := make(chan int, writers*appendsPerWriter)

	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < appendsPerWriter; j++ {
				record, err := store.Append(ctx, "session-1", "code")
				assert.NoError(t, err)
				versionsSeen <- record.Version
			}
		}()
	}

	wg.Wait()
	close(versionsSeen)

	seen := make(map[int]bool)
	for v := range versionsSeen {
		assert.False(t, seen[v], "duplicate version %d", v)
		seen[v] = true
	}

	assert.Len(t, seen, writers*appendsPerWriter)

	latest, err := store.Latest(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, writers*appendsPerWriter-1, latest.Version)
}
