// Package strikes implements the per-user strike ledger and suspension
// state machine backed by Postgres:
//
//	Clear (strikes < 3)  ->  Strike (1-2)  ->  Suspended (>= 3, 24h)  ->  Clear
//
// Strikes increment by one per confirmed chat violation and never decay
// automatically. Suspension expiry is lazy: it is lifted on the next
// send attempt after the window elapses, not by a background job, so a
// user who never returns simply stays marked suspended.
package strikes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sanemos/support-app/internal/metrics"
)

const (
	// SuspensionThreshold is the strike count at which a suspension is applied.
	SuspensionThreshold = 3

	// SuspensionWindow is how long a suspension lasts.
	SuspensionWindow = 24 * time.Hour
)

// State is a user's current moderation standing.
type State struct {
	UserID         string
	Strikes        int
	IsSuspended    bool
	SuspendedUntil *time.Time
}

// Ledger manages user moderation state in Postgres.
type Ledger struct {
	db *sql.DB
}

// NewLedger creates a strike ledger backed by the given database handle.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Get returns the user's current state. Users with no row are Clear.
func (l *Ledger) Get(ctx context.Context, userID string) (State, error) {
	const query = `
		SELECT strikes, is_suspended, suspended_until
		FROM user_moderation_state
		WHERE user_id = $1`

	state := State{UserID: userID}
	err := l.db.QueryRowContext(ctx, query, userID).
		Scan(&state.Strikes, &state.IsSuspended, &state.SuspendedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("strikes: get %s: %w", userID, err)
	}
	return state, nil
}

// RecordViolation increments the user's strike count by one, atomically
// in a single statement so two concurrent violations cannot read the
// same base value. Reaching the threshold flips the user to suspended
// with a fresh 24h window. It returns the resulting state.
func (l *Ledger) RecordViolation(ctx context.Context, userID string) (State, error) {
	const query = `
		INSERT INTO user_moderation_state (user_id, strikes, is_suspended, suspended_until)
		VALUES ($1, 1, false, NULL)
		ON CONFLICT (user_id) DO UPDATE
		SET strikes = user_moderation_state.strikes + 1
		RETURNING strikes`

	state := State{UserID: userID}
	if err := l.db.QueryRowContext(ctx, query, userID).Scan(&state.Strikes); err != nil {
		return state, fmt.Errorf("strikes: record violation %s: %w", userID, err)
	}
	metrics.StrikesTotal.Inc()

	if state.Strikes >= SuspensionThreshold {
		until := time.Now().Add(SuspensionWindow)
		const suspend = `
			UPDATE user_moderation_state
			SET is_suspended = true, suspended_until = $2
			WHERE user_id = $1`
		if _, err := l.db.ExecContext(ctx, suspend, userID, until); err != nil {
			return state, fmt.Errorf("strikes: suspend %s: %w", userID, err)
		}
		state.IsSuspended = true
		state.SuspendedUntil = &until
		metrics.SuspensionsTotal.Inc()
	}

	return state, nil
}

// CheckSuspension reports whether the user is currently suspended. An
// elapsed window is lifted here, before the caller evaluates the new
// message — this lazy expiry is the only way out of Suspended.
func (l *Ledger) CheckSuspension(ctx context.Context, userID string) (State, error) {
	state, err := l.Get(ctx, userID)
	if err != nil {
		return state, err
	}
	if !state.IsSuspended {
		return state, nil
	}

	if state.SuspendedUntil != nil && !state.SuspendedUntil.After(time.Now()) {
		const lift = `
			UPDATE user_moderation_state
			SET is_suspended = false, suspended_until = NULL
			WHERE user_id = $1`
		if _, err := l.db.ExecContext(ctx, lift, userID); err != nil {
			return state, fmt.Errorf("strikes: lift suspension %s: %w", userID, err)
		}
		state.IsSuspended = false
		state.SuspendedUntil = nil
	}

	return state, nil
}

// ResetStrikes clears a user's strikes and any active suspension. This
// is the manual admin escape hatch; nothing in the send path calls it.
func (l *Ledger) ResetStrikes(ctx context.Context, userID string) error {
	const query = `
		UPDATE user_moderation_state
		SET strikes = 0, is_suspended = false, suspended_until = NULL
		WHERE user_id = $1`

	if _, err := l.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("strikes: reset %s: %w", userID, err)
	}
	return nil
}
