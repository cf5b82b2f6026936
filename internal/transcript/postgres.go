package transcript

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the conversation_turns table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS conversation_turns (
    id         TEXT PRIMARY KEY,
    character  TEXT NOT NULL,
    visitor    TEXT NOT NULL,
    reply      TEXT NOT NULL,
    marker     TEXT NOT NULL DEFAULT 'NORMAL',
    cached     BOOLEAN NOT NULL DEFAULT FALSE,
    fallback   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_conversation_turns_character ON conversation_turns(character, created_at DESC);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given
// database connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// conversation_turns table and index if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("transcript: migrate: %w", err)
	}
	return nil
}

// Append records a completed turn and fills in its CreatedAt.
func (s *PostgresStore) Append(ctx context.Context, turn *Turn) error {
	if turn.ID == "" {
		return fmt.Errorf("transcript: turn ID must not be empty")
	}
	if turn.Character == "" {
		return fmt.Errorf("transcript: turn character must not be empty")
	}

	const query = `
		INSERT INTO conversation_turns (id, character, visitor, reply, marker, cached, fallback)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`

	err := s.db.QueryRow(ctx, query,
		turn.ID, turn.Character, turn.Visitor, turn.Reply, turn.Marker, turn.Cached, turn.Fallback,
	).Scan(&turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("transcript: append: %w", err)
	}
	return nil
}

// Recent returns up to limit turns for a character, newest first. A
// non-positive limit returns an empty slice.
func (s *PostgresStore) Recent(ctx context.Context, character string, limit int) ([]Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	const query = `
		SELECT id, character, visitor, reply, marker, cached, fallback, created_at
		FROM conversation_turns
		WHERE character = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, character, limit)
	if err != nil {
		return nil, fmt.Errorf("transcript: recent: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.Character, &t.Visitor, &t.Reply, &t.Marker, &t.Cached, &t.Fallback, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("transcript: recent scan: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript: recent: %w", err)
	}
	return turns, nil
}
