package moderation

// ChatViolationConfidence is the minimum self-reported confidence at
// which a chat-message violation is confirmed and the message blocked.
// Below it the violation degrades to warn-and-allow: blocking a
// legitimate grief expression costs more than letting through a
// borderline message a human can still review from reports.
const ChatViolationConfidence = 0.75

// Policy maps a parsed model answer to a final verdict for one content
// class. Thresholds are class-specific and not interchangeable.
type Policy struct {
	// ApproveThreshold is the minimum confidence for auto-approval.
	ApproveThreshold float64

	// AllowReject permits the model to reject outright. Classes where a
	// false rejection is expensive (therapist directory) route rejects
	// to the pending queue instead.
	AllowReject bool

	// Chat switches to the three-way message policy (violation / warn /
	// pass) instead of the approve / reject / pending policy.
	Chat bool

	// Disabled is returned when the class's feature flag is off.
	Disabled Verdict

	// Fallback is returned when the completion backend fails or its
	// answer is unparseable.
	Fallback Verdict
}

// policies is the per-class decision table. Asynchronous classes fail
// to human review (pending); chat fails open (pass). Journal and letter
// default to auto-approval when moderation is switched off because the
// write flow would otherwise strand personal entries in review.
var policies = map[Class]Policy{
	ClassResource: {
		ApproveThreshold: 0.85,
		AllowReject:      true,
		Disabled:         Verdict{Decision: DecisionPending, Reason: "moderation disabled"},
		Fallback:         Verdict{Decision: DecisionPending, Reason: "moderation unavailable"},
	},
	ClassReview: {
		ApproveThreshold: 0.85,
		AllowReject:      true,
		Disabled:         Verdict{Decision: DecisionPending, Reason: "moderation disabled"},
		Fallback:         Verdict{Decision: DecisionPending, Reason: "moderation unavailable"},
	},
	ClassTherapist: {
		ApproveThreshold: 0.92,
		AllowReject:      false,
		Disabled:         Verdict{Decision: DecisionPending, Reason: "moderation disabled"},
		Fallback:         Verdict{Decision: DecisionPending, Reason: "moderation unavailable"},
	},
	ClassJournal: {
		ApproveThreshold: 0.85,
		AllowReject:      true,
		Disabled:         Verdict{Decision: DecisionApprove, Reason: "moderation disabled", Confidence: 1, AutoApprove: true},
		Fallback:         Verdict{Decision: DecisionPending, Reason: "moderation unavailable"},
	},
	ClassLetter: {
		ApproveThreshold: 0.85,
		AllowReject:      true,
		Disabled:         Verdict{Decision: DecisionApprove, Reason: "moderation disabled", Confidence: 1, AutoApprove: true},
		Fallback:         Verdict{Decision: DecisionPending, Reason: "moderation unavailable"},
	},
	ClassMessage: {
		Chat:     true,
		Disabled: Verdict{Decision: DecisionPass, Reason: "moderation disabled"},
		Fallback: Verdict{Decision: DecisionPass, Reason: "moderation unavailable"},
	},
}

// PolicyFor returns the decision policy for a content class. Unknown
// classes get the most conservative asynchronous policy (everything
// pending, nothing auto-approved).
func PolicyFor(class Class) Policy {
	if p, ok := policies[class]; ok {
		return p
	}
	return Policy{
		Disabled: Verdict{Decision: DecisionPending, Reason: "unknown content class"},
		Fallback: Verdict{Decision: DecisionPending, Reason: "unknown content class"},
	}
}

// Apply maps a parsed model answer to the final verdict. A nil parsed
// verdict means the model's answer was unusable and yields the class
// fallback.
func (p Policy) Apply(parsed *Verdict) Verdict {
	if parsed == nil {
		return p.Fallback
	}
	if p.Chat {
		return p.applyChat(parsed)
	}
	return p.applyAsync(parsed)
}

// applyAsync implements the approve / reject / pending policy used by
// every content class except chat messages.
func (p Policy) applyAsync(parsed *Verdict) Verdict {
	v := Verdict{
		Decision:   parsed.Decision,
		Reason:     parsed.Reason,
		Confidence: parsed.Confidence,
	}

	switch parsed.Decision {
	case DecisionApprove:
		if parsed.Confidence >= p.ApproveThreshold {
			v.AutoApprove = true
			return v
		}
		v.Decision = DecisionPending
		return v

	case DecisionReject, DecisionViolation:
		if p.AllowReject {
			v.Decision = DecisionReject
			return v
		}
		// Rejection is structurally impossible for this class; route to
		// the human-review queue instead.
		v.Decision = DecisionPending
		return v

	default:
		v.Decision = DecisionPending
		return v
	}
}

// applyChat implements the three-way message policy: a high-confidence
// violation blocks, an ambiguous violation or an explicit warn is let
// through flagged, everything else passes.
func (p Policy) applyChat(parsed *Verdict) Verdict {
	v := Verdict{
		Decision:   parsed.Decision,
		Reason:     parsed.Reason,
		Confidence: parsed.Confidence,
	}

	switch parsed.Decision {
	case DecisionViolation:
		if parsed.Confidence >= ChatViolationConfidence {
			return v
		}
		v.Decision = DecisionWarn
		return v

	case DecisionWarn:
		return v

	default:
		v.Decision = DecisionPass
		return v
	}
}
