// Package modlog provides PostgreSQL-backed storage for moderation
// verdicts on asynchronous content. Every gateway decision is recorded
// so the human-review queue has something to read: pending items wait
// for a reviewer, auto-approved and rejected items keep an audit trail.
package modlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded moderation verdict.
type Entry struct {
	ID          uuid.UUID
	Class       string // review | resource | therapist | journal | letter
	ItemRef     string // identifier of the moderated record in its own table
	SubmitterID string
	Decision    string
	Reason      string
	Confidence  float64
	AutoApprove bool
	ResolvedBy  *string // human reviewer, nil while pending
	CreatedAt   time.Time
}

// Store manages moderation log entries in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a moderation log store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create inserts a verdict record and returns its generated ID.
func (s *Store) Create(ctx context.Context, e *Entry) (uuid.UUID, error) {
	id := uuid.New()
	const query = `
		INSERT INTO moderation_log (id, class, item_ref, submitter_id, decision, reason, confidence, auto_approve)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		id, e.Class, e.ItemRef, e.SubmitterID,
		e.Decision, e.Reason, e.Confidence, e.AutoApprove,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("modlog: insert: %w", err)
	}
	return id, nil
}

// ListPending returns unresolved pending entries, oldest first, for the
// human review queue. A zero class lists every class.
func (s *Store) ListPending(ctx context.Context, class string, limit int) ([]Entry, error) {
	const query = `
		SELECT id, class, item_ref, submitter_id, decision, reason, confidence, auto_approve, resolved_by, created_at
		FROM moderation_log
		WHERE decision = 'pending'
		  AND resolved_by IS NULL
		  AND ($1 = '' OR class = $1)
		ORDER BY created_at
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, class, limit)
	if err != nil {
		return nil, fmt.Errorf("modlog: list pending: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Class, &e.ItemRef, &e.SubmitterID,
			&e.Decision, &e.Reason, &e.Confidence, &e.AutoApprove,
			&e.ResolvedBy, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("modlog: scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("modlog: rows: %w", err)
	}
	return entries, nil
}

// Resolve records a human reviewer's final decision on a pending entry.
func (s *Store) Resolve(ctx context.Context, id uuid.UUID, decision, reviewer string) error {
	const query = `
		UPDATE moderation_log
		SET decision = $2, resolved_by = $3
		WHERE id = $1 AND resolved_by IS NULL`

	result, err := s.db.ExecContext(ctx, query, id, decision, reviewer)
	if err != nil {
		return fmt.Errorf("modlog: resolve %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("modlog: resolve %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("modlog: entry %s not found or already resolved", id)
	}
	return nil
}
