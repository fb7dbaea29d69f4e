package moderation

import (
	"encoding/json"
	"strings"
)

// rawVerdict is the loose shape decoded from model output before
// validation. Confidence is decoded as json.Number so a non-numeric
// value fails the parse instead of silently becoming zero.
type rawVerdict struct {
	Decision   string      `json:"decision"`
	Reason     string      `json:"reason"`
	Confidence json.Number `json:"confidence"`
}

// ParseVerdict extracts a structured verdict from freeform model text.
// It tolerates markdown code fences and surrounding prose by locating
// the first balanced {...} substring. Any failure (no JSON, unknown
// decision tag, non-numeric confidence) returns nil: callers must treat
// nil as "the model's answer was unusable", never as an implicit
// pending-with-zero-confidence — that mapping belongs to the policy.
func ParseVerdict(text string) *Verdict {
	candidate := extractJSONObject(stripCodeFences(text))
	if candidate == "" {
		return nil
	}

	var raw rawVerdict
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil
	}

	decision := Decision(strings.ToLower(strings.TrimSpace(raw.Decision)))
	if !decision.Valid() {
		return nil
	}

	confidence, err := raw.Confidence.Float64()
	if err != nil {
		return nil
	}

	return &Verdict{
		Decision:   decision,
		Reason:     raw.Reason,
		Confidence: confidence,
	}
}

// stripCodeFences removes markdown fence markers (``` and ```json)
// while leaving the fenced content in place.
func stripCodeFences(text string) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// extractJSONObject returns the first balanced {...} substring of text,
// or "" if none exists. Braces inside JSON strings are ignored, as are
// escaped quotes within those strings.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}
