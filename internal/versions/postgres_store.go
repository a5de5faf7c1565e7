package versions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS code_versions (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			code TEXT NOT NULL,
			version INTEGER NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_code_versions_session_version ON code_versions(session_id, version);
		CREATE INDEX IF NOT EXISTS idx_code_versions_session_id ON code_versions(session_id);
	`

	// the version is computed and inserted in a single statement; the
	// unique index on (session_id, version) turns a concurrent write into
	// a unique violation, which Append retries with a fresh version
	appendSQL = `
		INSERT INTO code_versions (id, session_id, code, version)
		VALUES ($1, $2, $3, (
			SELECT COALESCE(MAX(version), -1) + 1
			FROM code_versions
			WHERE session_id = $2
		))
		RETURNING id, session_id, code, version, created_at
	`

	latestSQL = `
		SELECT id, session_id, code, version, created_at
		FROM code_versions
		WHERE session_id = $1
		ORDER BY version DESC
		LIMIT 1
	`

	getByIDSQL = `
		SELECT id, session_id, code, version, created_at
		FROM code_versions
		WHERE id = $1
	`

	countSQL = `
		SELECT COUNT(*)
		FROM code_versions
		WHERE session_id = $1
	`
)

// postgres error code for unique constraint violations
const uniqueViolationCode = "23505"

// how many times Append retries after losing a version race
const maxAppendAttempts = 3

// implements Store using PostgreSQL
type PostgresStore struct {
	db *pgxpool.Pool
}

// creates a new PostgreSQL version store
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// creates the required tables if they don't exist
func (s *PostgresStore) Initialize(ctx context.Context) error {
	_, err := s.db.Exec(ctx, createTableSQL)
	return err
}

// persists a new snapshot with an atomically assigned version number
func (s *PostgresStore) Append(ctx context.Context, sessionID, code string) (*CodeVersion, error) {
	var lastErr error

	for attempt := 0; attempt < maxAppendAttempts; attempt++ {
		id, err := generateRecordID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate record id: %w", err)
		}

		var record CodeVersion

		err = s.db.QueryRow(ctx, appendSQL, id, sessionID, code).Scan(
			&record.ID,
			&record.SessionID,
			&record.Code,
			&record.Version,
			&record.CreatedAt,
		)

		if err == nil {
			return &record, nil
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			// another writer took this version number, try again
			lastErr = err
			continue
		}

		return nil, fmt.Errorf("failed to append code version: %w", err)
	}

	return nil, fmt.Errorf("%w: %v", ErrVersionConflict, lastErr)
}

// returns the most recent snapshot for a session
func (s *PostgresStore) Latest(ctx context.Context, sessionID string) (*CodeVersion, error) {
	var record CodeVersion

	err := s.db.QueryRow(ctx, latestSQL, sessionID).Scan(
		&record.ID,
		&record.SessionID,
		&record.Code,
		&record.Version,
		&record.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load latest code version: %w", err)
	}

	return &record, nil
}

// returns a snapshot by record ID
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*CodeVersion, error) {
	var record CodeVersion

	err := s.db.QueryRow(ctx, getByIDSQL, id).Scan(
		&record.ID,
		&record.SessionID,
		&record.Code,
		&record.Version,
		&record.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load code version: %w", err)
	}

	return &record, nil
}

// returns the number of snapshots for a session
func (s *PostgresStore) Count(ctx context.Context, sessionID string) (int, error) {
	var count int

	if err := s.db.QueryRow(ctx, countSQL, sessionID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count code versions: %w", err)
	}

	return count, nil
}
