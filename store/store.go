package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/maago/notify-bridge/bridge"
	"github.com/maago/notify-bridge/dispatch"
	"github.com/maago/notify-bridge/variant"
)

const schema = `
CREATE TABLE IF NOT EXISTS callback_log (
	seq       BIGSERIAL PRIMARY KEY,
	device    TEXT        NOT NULL,
	event_id  UUID        NOT NULL,
	emitted   TIMESTAMPTZ NOT NULL,
	msg       TEXT        NOT NULL,
	leaf      TEXT        NOT NULL,
	path      TEXT[]      NOT NULL,
	body      JSONB       NOT NULL
);
CREATE INDEX IF NOT EXISTS callback_log_device_seq
	ON callback_log (device, seq DESC);
`

// Record is one persisted callback event.
type Record struct {
	Emitted time.Time
	Device  string
	Summary string
	Leaf    string
	Path    []string
	Body    []byte
	Seq     int64
	EventID uuid.UUID
}

// Store persists resolved events to Postgres, keyed by the device they
// came from. It is the durable tail of the dispatch pipeline: consumers
// that were not subscribed when an event fired can still read it back.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database at url and returns a ready store.
func Open(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("store: parse database url: %w", err)
	}
	cfg.MaxConns = 8

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool. The caller keeps ownership of the pool when
// constructing the store this way; Close still closes it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the callback log schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Append persists one resolved event under device.
func (s *Store) Append(ctx context.Context, device string, ev *variant.Event) error {
	if device == "" {
		return fmt.Errorf("store: empty device")
	}
	body, err := bridge.EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("store: encode event: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO callback_log (device, event_id, emitted, msg, leaf, path, body)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		device, ev.ID, ev.Timestamp, ev.Summary, ev.LeafTag(), ev.Path(), body)
	if err != nil {
		return fmt.Errorf("store: append: %w", err)
	}
	return nil
}

// Last returns the most recent n records for device, oldest first.
func (s *Store) Last(ctx context.Context, device string, n int) ([]Record, error) {
	if n <= 0 {
		return nil, fmt.Errorf("store: limit must be positive, got %d", n)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT seq, device, event_id, emitted, msg, leaf, path, body
		 FROM callback_log
		 WHERE device = $1
		 ORDER BY seq DESC
		 LIMIT $2`,
		device, n)
	if err != nil {
		return nil, fmt.Errorf("store: last: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Seq, &r.Device, &r.EventID, &r.Emitted,
			&r.Summary, &r.Leaf, &r.Path, &r.Body); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: last: %w", err)
	}

	// Newest-first from the index, oldest-first for the caller.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Drop deletes every record for device and returns how many were removed.
func (s *Store) Drop(ctx context.Context, device string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM callback_log WHERE device = $1`, device)
	if err != nil {
		return 0, fmt.Errorf("store: drop: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Devices lists every device that has at least one record.
func (s *Store) Devices(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT device FROM callback_log ORDER BY device`)
	if err != nil {
		return nil, fmt.Errorf("store: devices: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Handler adapts the store into a dispatch handler that persists every
// event under device. Persistence failures are logged, not propagated;
// a slow or down database must not stall the dispatch queue's worker.
func (s *Store) Handler(device string) dispatch.Handler {
	return dispatch.HandlerFunc(func(ctx context.Context, ev *variant.Event) {
		if err := s.Append(ctx, device, ev); err != nil {
			Logger().Warn("append failed",
				zap.String("device", device),
				zap.String("event_id", ev.ID.String()),
				zap.Error(err))
		}
	})
}
