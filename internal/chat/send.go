package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sanemos/support-app/internal/completion"
	"github.com/sanemos/support-app/internal/metrics"
	"github.com/sanemos/support-app/internal/moderation"
	"github.com/sanemos/support-app/internal/ratelimit"
	"github.com/sanemos/support-app/internal/strikes"
)

// Sentinel errors the API layer maps to HTTP statuses.
var (
	ErrConversationNotFound = errors.New("chat: conversation not found")
	ErrNotParticipant       = errors.New("chat: sender is not a participant")
	ErrSuspended            = errors.New("chat: sender is suspended")
	ErrRateLimited          = errors.New("chat: rate limited")
)

// fallbackReply is persisted when the AI companion backend fails. The
// companion must never dead-end on the user, so they get an apology in
// both languages the community writes in instead of an error.
const fallbackReply = "Lo siento, ahora mismo no puedo responderte. Por favor, inténtalo de nuevo en unos minutos. Estoy aquí para ti. / " +
	"I'm sorry, I can't respond right now. Please try again in a few minutes. I'm here for you."

// ConversationStore is the persistence surface the sender needs.
type ConversationStore interface {
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	IsParticipant(ctx context.Context, conversationID, userID string) (bool, error)
	AddParticipant(ctx context.Context, conversationID, userID string) error
	InsertMessage(ctx context.Context, m *Message) error
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]Message, error)
}

// Moderator evaluates one content item. Implementations never fail;
// they degrade internally to a safe verdict.
type Moderator interface {
	Moderate(ctx context.Context, item moderation.ContentItem) moderation.Verdict
}

// StrikeLedger is the suspension state machine surface.
type StrikeLedger interface {
	CheckSuspension(ctx context.Context, userID string) (strikes.State, error)
	RecordViolation(ctx context.Context, userID string) (strikes.State, error)
}

// EventPublisher fans persisted messages out to the realtime tier.
type EventPublisher interface {
	PublishChatEvent(conversationID string, data []byte) error
}

// RateLimiter throttles sends per user.
type RateLimiter interface {
	Allow(ctx context.Context, identifier string, rule ratelimit.Rule) (bool, error)
}

// SendResult is the outcome of one send attempt that was not rejected
// outright. A blocked result means moderation confirmed a violation:
// nothing was persisted and the strike state describes the sanction.
type SendResult struct {
	Message *Message
	AIReply *Message

	Blocked     bool
	BlockReason string
	Strikes     int
	Suspended   bool
}

// Sender orchestrates the chat send path.
type Sender struct {
	store      ConversationStore
	moderator  Moderator
	ledger     StrikeLedger
	completion completion.Service
	events     EventPublisher
	limiter    RateLimiter
	context    *ContextBuffer
}

// NewSender wires the send orchestrator. events and limiter may be nil
// (no fan-out, no throttling), which tests use.
func NewSender(store ConversationStore, mod Moderator, ledger StrikeLedger, svc completion.Service, events EventPublisher, limiter RateLimiter) *Sender {
	return &Sender{
		store:      store,
		moderator:  mod,
		ledger:     ledger,
		completion: svc,
		events:     events,
		limiter:    limiter,
		context:    NewContextBuffer(),
	}
}

// Send runs the full message path for (conversationID, senderID, content):
// validation, participancy (with auto-join for public rooms), rate
// limiting, suspension gating, moderation, strike escalation,
// persistence, fan-out, and — for AI companion threads — the reply.
func (s *Sender) Send(ctx context.Context, conversationID, senderID, content string) (*SendResult, error) {
	if err := ValidateMessage(content); err != nil {
		return nil, fmt.Errorf("chat: invalid message: %w", err)
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}

	participant, err := s.store.IsParticipant(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	if !participant {
		if conv.Type != TypeCommunity || !conv.IsPublic {
			return nil, ErrNotParticipant
		}
		if err := s.store.AddParticipant(ctx, conversationID, senderID); err != nil {
			return nil, err
		}
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, senderID, ratelimit.RuleSend)
		if err == nil && !allowed {
			return nil, ErrRateLimited
		}
	}

	msg := &Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	}
	result := &SendResult{Message: msg}

	// AI companion threads are private self-expression; moderation and
	// suspension gating apply to human-facing conversations only.
	if !conv.IsAICompanion() {
		state, err := s.ledger.CheckSuspension(ctx, senderID)
		if err != nil {
			return nil, err
		}
		if state.IsSuspended {
			return nil, ErrSuspended
		}

		verdict := s.moderator.Moderate(ctx, moderation.MessageItem{Text: content})
		switch verdict.Decision {
		case moderation.DecisionViolation:
			state, err := s.ledger.RecordViolation(ctx, senderID)
			if err != nil {
				// The block stands even if the strike write failed.
				log.Printf("[send] strike write failed user=%s: %v", senderID, err)
			}
			metrics.MessagesTotal.WithLabelValues("blocked").Inc()
			result.Blocked = true
			result.BlockReason = verdict.Reason
			result.Strikes = state.Strikes
			result.Suspended = state.IsSuspended
			return result, nil

		case moderation.DecisionWarn:
			msg.Flagged = true
			msg.FlagReason = verdict.Reason
			metrics.MessagesTotal.WithLabelValues("flagged").Inc()
		}
	}

	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}
	if !msg.Flagged {
		metrics.MessagesTotal.WithLabelValues("sent").Inc()
	}
	s.publish(conv.ID, msg)

	if conv.IsAICompanion() {
		reply, err := s.companionReply(ctx, conv, msg)
		if err != nil {
			return nil, err
		}
		result.AIReply = reply
	}

	return result, nil
}

// companionReply generates, persists, and fans out the AI companion's
// answer. A completion failure degrades to the fixed bilingual fallback
// rather than an error.
func (s *Sender) companionReply(ctx context.Context, conv *Conversation, msg *Message) (*Message, error) {
	history, warm := s.context.Get(conv.ID)
	if warm {
		s.context.Add(conv.ID, *msg)
		history = append(history, *msg)
		if len(history) > MaxContextMessages {
			history = history[len(history)-MaxContextMessages:]
		}
	} else {
		// Cold buffer, first send since startup: rebuild from the
		// message table, which already holds msg.
		stored, err := s.store.RecentMessages(ctx, conv.ID, MaxContextMessages)
		if err != nil {
			log.Printf("[send] context load failed conversation=%s: %v", conv.ID, err)
			stored = []Message{*msg}
		}
		s.context.Warm(conv.ID, stored)
		history = stored
	}

	messages := make([]completion.Message, 0, len(history))
	for _, m := range history {
		role := completion.RoleUser
		if m.FromAgent {
			role = completion.RoleAssistant
		}
		messages = append(messages, completion.Message{Role: role, Content: m.Content})
	}

	start := time.Now()
	text, err := s.completion.GenerateResponse(ctx, messages, completion.AgentConfig{
		Name:         conv.AgentName,
		SystemPrompt: conv.AgentPrompt,
	})
	metrics.CompletionLatency.Observe(time.Since(start).Seconds())
	if err != nil || text == "" {
		if err != nil {
			log.Printf("[send] companion completion failed conversation=%s: %v (using fallback)", conv.ID, err)
		}
		text = fallbackReply
	}

	reply := &Message{
		ConversationID: conv.ID,
		SenderID:       conv.AgentName,
		Content:        text,
		FromAgent:      true,
	}
	if err := s.store.InsertMessage(ctx, reply); err != nil {
		return nil, err
	}
	metrics.MessagesTotal.WithLabelValues("ai_reply").Inc()
	s.context.Add(conv.ID, *reply)
	s.publish(conv.ID, reply)

	return reply, nil
}

// publish fans the message out to the realtime tier, best effort.
func (s *Sender) publish(conversationID string, m *Message) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(newMessageEvent(m))
	if err != nil {
		log.Printf("[send] marshal event message=%s: %v", m.ID, err)
		return
	}
	if err := s.events.PublishChatEvent(conversationID, data); err != nil {
		log.Printf("[send] publish event message=%s: %v", m.ID, err)
	}
}
