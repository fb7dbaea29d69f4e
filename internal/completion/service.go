// Package completion abstracts the text-completion backend used for
// moderation verdicts and AI companion replies. The rest of the
// application only depends on the Service interface, so the concrete
// provider can be swapped without touching callers.
package completion

import "context"

// Roles understood by every supported backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AgentConfig describes the persona the model should adopt for a call.
type AgentConfig struct {
	Name         string
	SystemPrompt string
}

// Service produces a text completion for a message list under the given
// agent configuration. Implementations may call remote APIs and can
// fail; callers decide how to degrade.
type Service interface {
	GenerateResponse(ctx context.Context, messages []Message, agent AgentConfig) (string, error)
}
