package realtime

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a MessageStore backed by PostgreSQL.
//
// Ownership model:
// - PostgresStore does NOT own the pgx pool. The caller must close the pool.
// - Close() is therefore a no-op.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// StoreOption configures PostgresStore behavior.
type StoreOption func(*PostgresStore) error

// WithStoreSchema sets the DB schema used by this store (default: "ripple").
// The schema name is validated and safely quoted in queries.
func WithStoreSchema(schema string) StoreOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("realtime: empty schema")
		}
		if !isValidPGIdent(schema) {
			return errors.New("realtime: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a Postgres-backed MessageStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...StoreOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "ripple",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, errors.New("realtime: nil pool")
	}
	return st, nil
}

// Close is a no-op because the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

// EnsureSchema creates the schema and tables if absent. Called once at startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errors.New("realtime: nil store")
	}

	schema := pgx.Identifier{s.schema}.Sanitize()
	rooms := pgIdent(s.schema, "rooms")
	messages := pgIdent(s.schema, "messages")

	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ` + schema,
		`CREATE TABLE IF NOT EXISTS ` + rooms + ` (
			id          text PRIMARY KEY,
			name        text NOT NULL,
			description text NOT NULL DEFAULT '',
			created_at  timestamptz NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + messages + ` (
			id        text PRIMARY KEY,
			room_id   text NOT NULL,
			sender_id text NOT NULL DEFAULT '',
			username  text NOT NULL,
			content   text NOT NULL,
			ts        bigint NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS messages_room_ts_idx
			ON ` + messages + ` (room_id, ts)`,
	}

	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Append persists msg, preserving the caller-supplied id.
func (s *PostgresStore) Append(ctx context.Context, msg Message) error {
	if s == nil || s.pool == nil {
		return errors.New("realtime: nil store")
	}
	if msg.ID == "" || msg.RoomID == "" {
		return errors.New("invalid message")
	}
	if msg.TimestampMillis == 0 {
		msg.TimestampMillis = time.Now().UTC().UnixMilli()
	}

	messages := pgIdent(s.schema, "messages")

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO `+messages+` (id, room_id, sender_id, username, content, ts)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		msg.ID, msg.RoomID, msg.SenderID, msg.Username, msg.Content, msg.TimestampMillis,
	); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// Recent returns the most recent `limit` messages in chronological order.
// The query walks the (room_id, ts) index backwards; the window is reversed
// before returning so callers always see oldest-first.
func (s *PostgresStore) Recent(ctx context.Context, roomID string, limit int) ([]Message, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("realtime: nil store")
	}
	if roomID == "" {
		return nil, errors.New("missing room id")
	}
	if limit <= 0 {
		limit = DefaultCacheCapacity
	}

	messages := pgIdent(s.schema, "messages")

	rows, err := s.pool.Query(ctx,
		`SELECT id, room_id, sender_id, username, content, ts
		   FROM `+messages+`
		  WHERE room_id = $1
		  ORDER BY ts DESC, id DESC
		  LIMIT $2`,
		roomID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := make([]Message, 0, limit)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.Username, &m.Content, &m.TimestampMillis); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Stats returns the room's message count and distinct senders within the
// trailing 24-hour window.
func (s *PostgresStore) Stats(ctx context.Context, roomID string) (RoomStats, error) {
	if s == nil || s.pool == nil {
		return RoomStats{}, errors.New("realtime: nil store")
	}
	if roomID == "" {
		return RoomStats{}, errors.New("missing room id")
	}

	cutoff := time.Now().UTC().UnixMilli() - statsWindowMillis
	messages := pgIdent(s.schema, "messages")

	var st RoomStats
	err := s.pool.QueryRow(ctx,
		`SELECT count(*),
		        count(DISTINCT username) FILTER (WHERE ts >= $2)
		   FROM `+messages+`
		  WHERE room_id = $1`,
		roomID, cutoff,
	).Scan(&st.MessageCount, &st.ActiveUsersInWindow)
	if err != nil {
		return RoomStats{}, err
	}
	return st, nil
}

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func isValidPGIdent(s string) bool {
	return pgIdentRE.MatchString(s)
}

func pgIdent(schema, table string) string {
	// pgx.Identifier safely quotes identifiers, preventing SQL injection.
	return pgx.Identifier{schema, table}.Sanitize()
}
