package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"wealthlings/internal/game"
)

const pgSchema = `
CREATE SCHEMA IF NOT EXISTS game;
CREATE TABLE IF NOT EXISTS game.session_snapshots (
	session_id TEXT PRIMARY KEY,
	state JSONB NOT NULL,
	coins BIGINT NOT NULL DEFAULT 0,
	storm_active BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const maxSaveAttempts = 3

// PGStore keeps snapshots in Postgres as JSONB.
type PGStore struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func NewPGStore(pool *pgxpool.Pool, logger *slog.Logger) *PGStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGStore{db: pool, log: logger}
}

func (s *PGStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("ensure snapshot schema: %w", err)
	}
	return nil
}

func (s *PGStore) Save(ctx context.Context, id string, st game.State) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	raw, err := encode(st)
	if err != nil {
		return err
	}
	for attempt := 1; ; attempt++ {
		_, err = s.db.Exec(ctx, `
			INSERT INTO game.session_snapshots (session_id, state, coins, storm_active, updated_at)
			VALUES ($1, $2, $3, $4, now())
			ON CONFLICT (session_id) DO UPDATE
			SET state = EXCLUDED.state, coins = EXCLUDED.coins,
			    storm_active = EXCLUDED.storm_active, updated_at = now()
		`, id, raw, st.Coins, st.StormActive)
		if err == nil {
			return nil
		}
		if !isRetryable(err) || attempt >= maxSaveAttempts {
			return fmt.Errorf("save snapshot: %w", err)
		}
		s.log.Warn("snapshot save retry", "session_id", id, "attempt", attempt, "err", err)
		if err := sleepWithContext(ctx, time.Duration(attempt)*50*time.Millisecond); err != nil {
			return err
		}
	}
}

func (s *PGStore) Load(ctx context.Context, id string) (game.State, error) {
	id, err := normalizeID(id)
	if err != nil {
		return game.State{}, err
	}
	var raw []byte
	err = s.db.QueryRow(ctx, `SELECT state FROM game.session_snapshots WHERE session_id = $1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.State{}, ErrNotFound
	}
	if err != nil {
		return game.State{}, fmt.Errorf("load snapshot: %w", err)
	}
	return decode(raw)
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM game.session_snapshots WHERE session_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Close is a no-op: the pool belongs to the caller.
func (s *PGStore) Close() error {
	return nil
}

// Serialization failures and deadlocks are safe to retry for an upsert.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
