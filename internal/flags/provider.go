// Package flags provides feature-flag lookup backed by the
// system_settings table. Flags are read fresh on every call — a flip
// takes effect on the very next lookup, and nothing caches stale
// values. An absent key means enabled.
package flags

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
)

// Provider reports whether a feature flag is enabled. Implementations
// must treat an absent key as enabled.
type Provider interface {
	Enabled(ctx context.Context, key string) (bool, error)
}

// ModerationKey returns the flag key gating moderation for a content
// class, e.g. "moderation_message_enabled".
func ModerationKey(class string) string {
	return "moderation_" + class + "_enabled"
}

// PGProvider reads flags from the system_settings table in Postgres.
type PGProvider struct {
	db *sql.DB
}

// NewPGProvider creates a flag provider backed by the given database handle.
func NewPGProvider(db *sql.DB) *PGProvider {
	return &PGProvider{db: db}
}

// Enabled looks up a flag key. A missing row defaults to enabled.
func (p *PGProvider) Enabled(ctx context.Context, key string) (bool, error) {
	const query = `SELECT value FROM system_settings WHERE key = $1`

	var value bool
	err := p.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("flags: lookup %q: %w", key, err)
	}
	return value, nil
}

// Static is an in-memory flag provider for tests and local development.
// Keys not present in the map are enabled, matching PGProvider.
type Static struct {
	mu     sync.RWMutex
	values map[string]bool
}

// NewStatic creates a Static provider seeded with the given values.
func NewStatic(values map[string]bool) *Static {
	copied := make(map[string]bool, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Static{values: copied}
}

// Enabled returns the seeded value, or true for unknown keys.
func (s *Static) Enabled(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return true, nil
	}
	return v, nil
}

// Set updates a flag value, taking effect on the next Enabled call.
func (s *Static) Set(key string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = enabled
}
