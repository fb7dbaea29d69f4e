package completion

import (
	"context"
	"fmt"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig holds settings for the OpenAI-backed Service.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string // empty means the public API
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultOpenAIConfig returns sensible defaults, overridable via
// OPENAI_API_KEY, OPENAI_MODEL and OPENAI_BASE_URL.
func DefaultOpenAIConfig() OpenAIConfig {
	config := OpenAIConfig{
		APIKey:      os.Getenv("OPENAI_API_KEY"),
		Model:       "gpt-4o-mini",
		Temperature: 0.4,
		MaxTokens:   1024,
		Timeout:     30 * time.Second,
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		config.Model = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		config.BaseURL = v
	}
	return config
}

// OpenAIService implements Service against the OpenAI chat completions API.
type OpenAIService struct {
	client *openai.Client
	config OpenAIConfig
}

// NewOpenAIService creates an OpenAI-backed completion service.
// It returns an error if no API key is configured.
func NewOpenAIService(config OpenAIConfig) (*OpenAIService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("completion: missing OpenAI API key")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &OpenAIService{
		client: openai.NewClientWithConfig(clientConfig),
		config: config,
	}, nil
}

// GenerateResponse sends the agent's system prompt followed by the
// message list and returns the model's text. The configured timeout
// bounds the call; the core never waits on a hung upstream forever.
func (s *OpenAIService) GenerateResponse(ctx context.Context, messages []Message, agent AgentConfig) (string, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if agent.SystemPrompt != "" {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: agent.SystemPrompt,
		})
	}
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Messages:    chatMessages,
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("completion: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion: empty response from model")
	}

	return resp.Choices[0].Message.Content, nil
}
