package versions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"codeberg.org/codeshare/server/internal/logger"
)

// redis key patterns
const (
	keySessionVersions = "codeshare:session:%s:versions" // list of JSON records, oldest first
	keySessionSeq      = "codeshare:session:%s:seq"      // per-session version counter
	keyVersionByID     = "codeshare:version:%s"          // record lookup by ID
)

// implements Store using Redis lists.
// INCR hands out version numbers, so concurrent appends are assigned
// distinct versions without any application-level locking.
type RedisStore struct {
	client *redis.Client
}

// creates a new Redis version store and verifies the connection
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("connected to redis")

	return &RedisStore{client: client}, nil
}

// closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// persists a new snapshot with an atomically assigned version number
func (s *RedisStore) Append(ctx context.Context, sessionID, code string) (*CodeVersion, error) {
	id, err := generateRecordID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate record id: %w", err)
	}

	seq, err := s.client.Incr(ctx, fmt.Sprintf(keySessionSeq, sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to assign version number: %w", err)
	}

	record := &CodeVersion{
		ID:        id,
		SessionID: sessionID,
		Code:      code,
		Version:   int(seq) - 1,
		CreatedAt: time.Now(),
	}

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal code version: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, fmt.Sprintf(keySessionVersions, sessionID), recordJSON)
	pipe.Set(ctx, fmt.Sprintf(keyVersionByID, id), recordJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		// roll the counter back so Count stays aligned with the list; if
		// the rollback fails too the counter runs ahead, leaving a gap in
		// version numbers but never a duplicate
		s.client.Decr(ctx, fmt.Sprintf(keySessionSeq, sessionID)) //nolint:errcheck,gosec // best-effort rollback
		return nil, fmt.Errorf("failed to append code version: %w", err)
	}

	return record, nil
}

// returns the most recent snapshot for a session
func (s *RedisStore) Latest(ctx context.Context, sessionID string) (*CodeVersion, error) {
	raw, err := s.client.LIndex(ctx, fmt.Sprintf(keySessionVersions, sessionID), -1).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load latest code version: %w", err)
	}

	return unmarshalRecord(raw)
}

// returns a snapshot by record ID
func (s *RedisStore) GetByID(ctx context.Context, id string) (*CodeVersion, error) {
	raw, err := s.client.Get(ctx, fmt.Sprintf(keyVersionByID, id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load code version: %w", err)
	}

	return unmarshalRecord(raw)
}

// returns the number of snapshots for a session
func (s *RedisStore) Count(ctx context.Context, sessionID string) (int, error) {
	raw, err := s.client.Get(ctx, fmt.Sprintf(keySessionSeq, sessionID)).Result()

	if errors.Is(err, redis.Nil) {
		return 0, nil
	}

	if err != nil {
		return 0, fmt.Errorf("failed to count code versions: %w", err)
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("corrupt version counter for session %s: %w", sessionID, err)
	}

	return count, nil
}

func unmarshalRecord(raw string) (*CodeVersion, error) {
	var record CodeVersion

	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal code version: %w", err)
	}

	return &record, nil
}
