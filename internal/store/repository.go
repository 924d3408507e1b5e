// Package store owns persistence for readings: PostgreSQL as the append-only
// source of truth and Valkey as a latest-value hot cache for dashboards.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/duckception/wbudowane-backend/internal/reading"
)

// Row is one persisted reading as the query engine sees it. Which of
// Value/State matters depends on the kind the row was fetched for.
type Row struct {
	Value float64
	State int
	Relay int
	At    time.Time
}

// database is the slice of pgxpool.Pool the repository uses; tests stub it.
type database interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// Repository wraps both databases. Callers never see SQL or Redis keys.
type Repository struct {
	db     database
	redis  *redis.Client
	logger *slog.Logger
}

// Options carries the connection settings for both stores.
type Options struct {
	PostgresURL string
	ValkeyAddr  string
}

// NewRepository connects and pings both databases; a bridge without its
// stores is useless, so failures here are for the caller to treat as fatal.
func NewRepository(ctx context.Context, opts Options, logger *slog.Logger) (*Repository, error) {
	pool, err := pgxpool.New(ctx, opts.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: opts.ValkeyAddr,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("valkey unreachable: %w", err)
	}

	return &Repository{db: pool, redis: rdb, logger: logger}, nil
}

func (r *Repository) Close() {
	r.db.Close()
	r.redis.Close()
}

// EnsureSchema creates the readings table and its query index if missing.
// Rows are append-only; the serial id doubles as the insertion order the
// query engine sorts on.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS readings (
			id          BIGSERIAL PRIMARY KEY,
			kind        CHAR(1) NOT NULL,
			room        TEXT NOT NULL,
			value       DOUBLE PRECISION NOT NULL DEFAULT 0,
			state       INTEGER NOT NULL DEFAULT 0,
			relay       INTEGER NOT NULL DEFAULT 0,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS readings_room_kind_id_idx
			ON readings (room, kind, id DESC)`,
	}

	for _, stmt := range ddl {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	return nil
}

// hotTTL expires latest-value keys so rooms that went silent drop out of the
// hot cache instead of serving stale data forever.
const hotTTL = 24 * time.Hour

// Insert appends one reading. The timestamp is assigned here (database
// now()), never taken from the device. Only a Postgres write failure fails
// the insert: the latest-value mirror into Valkey is a convenience cache, so
// losing it is logged and the committed row stands.
func (r *Repository) Insert(ctx context.Context, rd reading.Reading) error {
	query := `INSERT INTO readings (kind, room, value, state, relay)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query,
		rd.Kind.String(), rd.Room, rd.Value, rd.State, rd.RelayIndex)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}

	if err := r.cacheLatest(ctx, rd); err != nil {
		r.logger.Warn("Hot cache update failed", "room", rd.Room, "kind", rd.Kind.String(), "error", err)
	}

	return nil
}

func (r *Repository) cacheLatest(ctx context.Context, rd reading.Reading) error {
	var hot any = rd.Value
	if !rd.Kind.Scalar() {
		hot = rd.State
	}
	return r.redis.Set(ctx, latestKey(rd.Room, rd.Kind), hot, hotTTL).Err()
}

// Recent returns up to limit rows for a room+kind, newest first (descending
// insertion order). relay filters by relay index when >= 0, which only makes
// sense for the relay kind. The query engine re-ascends the window itself.
func (r *Repository) Recent(ctx context.Context, room string, kind reading.Kind, relay int, limit int) ([]Row, error) {
	query := `SELECT value, state, relay, recorded_at FROM readings
		WHERE room = $1 AND kind = $2 ORDER BY id DESC LIMIT $3`
	args := []any{room, kind.String(), limit}

	if relay >= 0 {
		query = `SELECT value, state, relay, recorded_at FROM readings
			WHERE room = $1 AND kind = $2 AND relay = $3 ORDER BY id DESC LIMIT $4`
		args = []any{room, kind.String(), relay, limit}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.Value, &row.State, &row.Relay, &row.At); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read readings: %w", err)
	}

	return out, nil
}

// LatestValue reads the hot cache entry for a room+kind. A missing key is
// reported as found == false, not an error.
func (r *Repository) LatestValue(ctx context.Context, room string, kind reading.Kind) (string, bool, error) {
	val, err := r.redis.Get(ctx, latestKey(room, kind)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("hot cache get: %w", err)
	}
	return val, true, nil
}

func latestKey(room string, kind reading.Kind) string {
	return fmt.Sprintf("reading:last:%s:%s", room, kind)
}
