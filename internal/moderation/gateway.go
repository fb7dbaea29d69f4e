package moderation

import (
	"context"
	"log"
	"time"

	"github.com/sanemos/support-app/internal/completion"
	"github.com/sanemos/support-app/internal/flags"
	"github.com/sanemos/support-app/internal/metrics"
)

// Gateway is the single entry point for moderating content of any
// class. It checks the class feature flag, invokes the completion
// backend with the class prompt, and applies the class decision policy.
// Moderate never returns an error: every internal failure is converted
// to the class's safe fallback verdict.
type Gateway struct {
	completion completion.Service
	flags      flags.Provider
}

// NewGateway creates a moderation gateway over the given completion
// backend and flag provider.
func NewGateway(svc completion.Service, provider flags.Provider) *Gateway {
	return &Gateway{completion: svc, flags: provider}
}

// Moderate evaluates one content item and returns the final verdict.
// The flag is read fresh on every call, so flipping it takes effect on
// the next submission.
func (g *Gateway) Moderate(ctx context.Context, item ContentItem) Verdict {
	class := item.Class()
	policy := PolicyFor(class)

	enabled, err := g.flags.Enabled(ctx, flags.ModerationKey(string(class)))
	if err != nil {
		// Flag storage trouble must not take moderation down with it;
		// absent knowledge means enabled, same as an absent key.
		log.Printf("[gateway] flag lookup failed class=%s: %v (treating enabled)", class, err)
		enabled = true
	}
	if !enabled {
		return g.finish(class, policy.Disabled)
	}

	payload, err := item.Payload()
	if err != nil {
		log.Printf("[gateway] payload build failed class=%s: %v (falling back)", class, err)
		metrics.ModerationFailures.WithLabelValues(string(class)).Inc()
		return g.finish(class, policy.Fallback)
	}

	start := time.Now()
	text, err := g.completion.GenerateResponse(ctx,
		[]completion.Message{{Role: completion.RoleUser, Content: string(payload)}},
		completion.AgentConfig{Name: "moderator", SystemPrompt: PromptFor(class)},
	)
	metrics.CompletionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		log.Printf("[gateway] completion failed class=%s: %v (falling back)", class, err)
		metrics.ModerationFailures.WithLabelValues(string(class)).Inc()
		return g.finish(class, policy.Fallback)
	}

	parsed := ParseVerdict(text)
	if parsed == nil {
		log.Printf("[gateway] unparseable model answer class=%s (falling back)", class)
		metrics.ModerationFailures.WithLabelValues(string(class)).Inc()
		return g.finish(class, policy.Fallback)
	}

	verdict := policy.Apply(parsed)

	// The model never sees cover images, so an image-bearing resource
	// cannot be auto-approved no matter how confident the text verdict is.
	if resource, ok := item.(ResourceItem); ok && resource.HasImage() && verdict.AutoApprove {
		verdict.AutoApprove = false
		verdict.Decision = DecisionPending
		verdict.Reason = "cover image requires human review"
	}

	return g.finish(class, verdict)
}

func (g *Gateway) finish(class Class, v Verdict) Verdict {
	metrics.ModerationVerdicts.WithLabelValues(string(class), string(v.Decision)).Inc()
	return v
}
