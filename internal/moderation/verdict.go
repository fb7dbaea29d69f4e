// Package moderation implements the AI-backed content review engine.
// Submitted content is serialized, sent to the completion backend with a
// class-specific prompt, and the model's answer is parsed and mapped to
// a final verdict through per-class decision policies. Infrastructure
// failures never surface to users: asynchronous content degrades to
// human review, chat messages degrade to "allow".
package moderation

// Decision is the closed set of outcomes the model may return and the
// policies may produce.
type Decision string

const (
	DecisionApprove   Decision = "approve"
	DecisionReject    Decision = "reject"
	DecisionPending   Decision = "pending"
	DecisionPass      Decision = "pass"
	DecisionWarn      Decision = "warn"
	DecisionViolation Decision = "violation"
)

// validDecisions guards the parser against invented decision tags.
var validDecisions = map[Decision]bool{
	DecisionApprove:   true,
	DecisionReject:    true,
	DecisionPending:   true,
	DecisionPass:      true,
	DecisionWarn:      true,
	DecisionViolation: true,
}

// Valid reports whether d is a member of the closed decision set.
func (d Decision) Valid() bool {
	return validDecisions[d]
}

// Verdict is the result of one moderation evaluation. It is produced
// fresh per call and never cached. Confidence is self-reported by the
// model and treated as an untrusted heuristic.
type Verdict struct {
	Decision    Decision `json:"decision"`
	Reason      string   `json:"reason"`
	Confidence  float64  `json:"confidence"`
	AutoApprove bool     `json:"auto_approve"`
}
