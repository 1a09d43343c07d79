package db

import (
	"context"
	"strconv"
)

// processing_state is a keyed map of the engine's only mutable globals:
//
//	cron_count             monotone tick counter
//	subreddits_index       rotating ingestion cursor
//	vertical_index         rotating competitor-mining cursor
//	last_trend_snapshot    YYYY-MM-DD of the last snapshot run
//	cron_in_progress       advisory lock held for the duration of a tick
//	filter_defaulted_count running count of binary-filter parse defaults
//
// All writes are atomic upserts; counters increment inside the statement so
// concurrent writers cannot lose updates to a read-modify-write race.

// GetState returns the value for a state key, or "" when unset.
func (s *Store) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM processing_state WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if notFoundOr(err) == ErrNotFound {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// SetState writes a state key unconditionally.
func (s *Store) SetState(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processing_state (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	return err
}

// GetStateInt returns an integer state value, 0 when unset or malformed.
func (s *Store) GetStateInt(ctx context.Context, key string) (int, error) {
	raw, err := s.GetState(ctx, key)
	if err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(raw)
	return n, nil
}

// IncrementState atomically adds delta to an integer state key and returns
// the new value.
func (s *Store) IncrementState(ctx context.Context, key string, delta int) (int, error) {
	var value string
	err := s.pool.QueryRow(ctx, `
		INSERT INTO processing_state (key, value, updated_at)
		VALUES ($1, $2::text, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = (processing_state.value::bigint + $2)::text, updated_at = NOW()
		RETURNING value`,
		key, delta).Scan(&value)
	if err != nil {
		return 0, err
	}
	n, _ := strconv.Atoi(value)
	return n, nil
}

// TryAcquireCronLock flips cron_in_progress from "0" (or absent) to "1".
// Returns false when another orchestrator run already holds it.
func (s *Store) TryAcquireCronLock(ctx context.Context) (bool, error) {
	var acquired bool
	err := s.pool.QueryRow(ctx, `
		INSERT INTO processing_state (key, value, updated_at)
		VALUES ('cron_in_progress', '1', NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = '1', updated_at = NOW()
		WHERE processing_state.value = '0'
		RETURNING TRUE`).Scan(&acquired)
	if err != nil {
		if notFoundOr(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return acquired, nil
}

// ReleaseCronLock releases the advisory tick lock.
func (s *Store) ReleaseCronLock(ctx context.Context) error {
	return s.SetState(ctx, "cron_in_progress", "0")
}
