package realtime

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRoomDirectory is a RoomDirectory backed by PostgreSQL.
//
// Create-if-absent races between connections (and between gateway instances)
// are resolved by the database: INSERT ... ON CONFLICT (id) DO NOTHING, then
// read back whichever row won.
type PostgresRoomDirectory struct {
	pool   *pgxpool.Pool
	schema string
}

// RoomDirectoryOption configures PostgresRoomDirectory behavior.
type RoomDirectoryOption func(*PostgresRoomDirectory) error

// WithRoomSchema sets the DB schema used by the directory (default: "ripple").
func WithRoomSchema(schema string) RoomDirectoryOption {
	return func(d *PostgresRoomDirectory) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("realtime: empty schema")
		}
		if !isValidPGIdent(schema) {
			return errors.New("realtime: invalid schema identifier")
		}
		d.schema = schema
		return nil
	}
}

// NewPostgresRoomDirectory constructs a Postgres-backed RoomDirectory.
func NewPostgresRoomDirectory(pool *pgxpool.Pool, opts ...RoomDirectoryOption) (*PostgresRoomDirectory, error) {
	d := &PostgresRoomDirectory{
		pool:   pool,
		schema: "ripple",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.pool == nil {
		return nil, errors.New("realtime: nil pool")
	}
	return d, nil
}

// EnsureRoom returns the existing room or creates one atomically.
func (d *PostgresRoomDirectory) EnsureRoom(ctx context.Context, roomID, name string) (Room, error) {
	if d == nil || d.pool == nil {
		return Room{}, errors.New("realtime: nil room directory")
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return Room{}, errors.New("missing room id")
	}
	if name == "" {
		name = roomID
	}

	rooms := pgIdent(d.schema, "rooms")

	if _, err := d.pool.Exec(ctx,
		`INSERT INTO `+rooms+` (id, name, description) VALUES ($1, $2, '')
		 ON CONFLICT (id) DO NOTHING`,
		roomID, name,
	); err != nil {
		return Room{}, err
	}

	var r Room
	err := d.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at FROM `+rooms+` WHERE id = $1`,
		roomID,
	).Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt)
	if err != nil {
		return Room{}, err
	}
	return r, nil
}

// GetRoom returns the room if present.
func (d *PostgresRoomDirectory) GetRoom(ctx context.Context, roomID string) (Room, bool, error) {
	if d == nil || d.pool == nil {
		return Room{}, false, errors.New("realtime: nil room directory")
	}

	rooms := pgIdent(d.schema, "rooms")

	var r Room
	err := d.pool.QueryRow(ctx,
		`SELECT id, name, description, created_at FROM `+rooms+` WHERE id = $1`,
		roomID,
	).Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Room{}, false, nil
	}
	if err != nil {
		return Room{}, false, err
	}
	return r, true, nil
}

// ListRooms returns all rooms ordered by creation time.
func (d *PostgresRoomDirectory) ListRooms(ctx context.Context) ([]Room, error) {
	if d == nil || d.pool == nil {
		return nil, errors.New("realtime: nil room directory")
	}

	rooms := pgIdent(d.schema, "rooms")

	rows, err := d.pool.Query(ctx,
		`SELECT id, name, description, created_at FROM `+rooms+` ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Room, 0, 8)
	for rows.Next() {
		var r Room
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
