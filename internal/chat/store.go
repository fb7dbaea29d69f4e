// Package chat implements conversation storage and the message send
// path: participancy checks, suspension gating, synchronous moderation,
// strike escalation, persistence, and AI companion replies.
package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Conversation types.
const (
	TypeDirect      = "direct"
	TypeCommunity   = "community"
	TypeAICompanion = "ai_companion"
)

// Conversation is a chat room, direct conversation, or AI companion thread.
type Conversation struct {
	ID          string
	Type        string // direct | community | ai_companion
	IsPublic    bool   // community rooms anyone may join
	AgentName   string // ai_companion only
	AgentPrompt string // ai_companion only
	CreatedAt   time.Time
}

// IsAICompanion reports whether the conversation is an AI companion thread.
func (c *Conversation) IsAICompanion() bool {
	return c.Type == TypeAICompanion
}

// Message is one persisted chat message. Flagged messages were let
// through by moderation with a warning attached.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	Flagged        bool      `json:"flagged"`
	FlagReason     string    `json:"flag_reason,omitempty"`
	FromAgent      bool      `json:"from_agent"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store manages conversations and messages in Postgres.
type Store struct {
	db *sql.DB
}

// NewStore creates a chat store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetConversation retrieves a conversation. Returns nil if not found.
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	const query = `
		SELECT id, type, is_public, agent_name, agent_prompt, created_at
		FROM conversations
		WHERE id = $1`

	var c Conversation
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&c.ID, &c.Type, &c.IsPublic, &c.AgentName, &c.AgentPrompt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chat: get conversation %s: %w", id, err)
	}
	return &c, nil
}

// IsParticipant reports whether a user belongs to a conversation.
func (s *Store) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM conversation_participants
			WHERE conversation_id = $1 AND user_id = $2
		)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, conversationID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("chat: participant check: %w", err)
	}
	return exists, nil
}

// AddParticipant joins a user to a conversation. Joining twice is a no-op.
func (s *Store) AddParticipant(ctx context.Context, conversationID, userID string) error {
	const query = `
		INSERT INTO conversation_participants (conversation_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`

	if _, err := s.db.ExecContext(ctx, query, conversationID, userID); err != nil {
		return fmt.Errorf("chat: add participant: %w", err)
	}
	return nil
}

// InsertMessage persists a message. ID and CreatedAt are filled in if zero.
func (s *Store) InsertMessage(ctx context.Context, m *Message) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	const query = `
		INSERT INTO messages (id, conversation_id, sender_id, content, flagged, flag_reason, from_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		m.ID, m.ConversationID, m.SenderID, m.Content,
		m.Flagged, m.FlagReason, m.FromAgent, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("chat: insert message: %w", err)
	}
	return nil
}

// RecentMessages returns the last limit messages of a conversation in
// chronological order (oldest first).
func (s *Store) RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	const query = `
		SELECT id, conversation_id, sender_id, content, flagged, flag_reason, from_agent, created_at
		FROM (
			SELECT id, conversation_id, sender_id, content, flagged, flag_reason, from_agent, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("chat: recent messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content,
			&m.Flagged, &m.FlagReason, &m.FromAgent, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("chat: scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat: rows: %w", err)
	}
	return messages, nil
}
