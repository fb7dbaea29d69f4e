package moderation

import "testing"

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		want       *Verdict
		wantNil    bool
	}{
		{
			name:  "clean JSON",
			input: `{"decision":"approve","reason":"fine","confidence":0.9}`,
			want:  &Verdict{Decision: DecisionApprove, Reason: "fine", Confidence: 0.9},
		},
		{
			name:  "markdown json fence",
			input: "```json\n{\"decision\":\"approve\",\"confidence\":0.9}\n```",
			want:  &Verdict{Decision: DecisionApprove, Confidence: 0.9},
		},
		{
			name:  "generic fence",
			input: "```\n{\"decision\":\"violation\",\"confidence\":0.8}\n```",
			want:  &Verdict{Decision: DecisionViolation, Confidence: 0.8},
		},
		{
			name:  "surrounding prose",
			input: "Here is my assessment:\n{\"decision\":\"warn\",\"reason\":\"hostile tone\",\"confidence\":0.6}\nHope that helps!",
			want:  &Verdict{Decision: DecisionWarn, Reason: "hostile tone", Confidence: 0.6},
		},
		{
			name:  "braces inside reason string",
			input: `{"decision":"reject","reason":"contains {spam} markers","confidence":0.95}`,
			want:  &Verdict{Decision: DecisionReject, Reason: "contains {spam} markers", Confidence: 0.95},
		},
		{
			name:  "escaped quotes in reason",
			input: `{"decision":"pass","reason":"said \"hello\"","confidence":0.5}`,
			want:  &Verdict{Decision: DecisionPass, Reason: `said "hello"`, Confidence: 0.5},
		},
		{
			name:  "uppercase decision normalized",
			input: `{"decision":"APPROVE","confidence":1}`,
			want:  &Verdict{Decision: DecisionApprove, Confidence: 1},
		},
		{
			name:  "integer confidence",
			input: `{"decision":"pending","confidence":1}`,
			want:  &Verdict{Decision: DecisionPending, Confidence: 1},
		},
		{
			name:    "no JSON at all",
			input:   "I think this is fine",
			wantNil: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantNil: true,
		},
		{
			name:    "unknown decision tag",
			input:   `{"decision":"maybe","confidence":0.9}`,
			wantNil: true,
		},
		{
			name:    "missing decision",
			input:   `{"confidence":0.9}`,
			wantNil: true,
		},
		{
			name:    "non-numeric confidence",
			input:   `{"decision":"approve","confidence":"high"}`,
			wantNil: true,
		},
		{
			name:    "missing confidence",
			input:   `{"decision":"approve"}`,
			wantNil: true,
		},
		{
			name:    "unbalanced braces",
			input:   `{"decision":"approve","confidence":0.9`,
			wantNil: true,
		},
		{
			name:    "malformed JSON",
			input:   `{decision: approve}`,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseVerdict(tt.input)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("ParseVerdict(%q) = %+v, want nil", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParseVerdict(%q) = nil, want %+v", tt.input, tt.want)
			}
			if got.Decision != tt.want.Decision {
				t.Errorf("Decision = %q, want %q", got.Decision, tt.want.Decision)
			}
			if got.Reason != tt.want.Reason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.want.Reason)
			}
			if got.Confidence != tt.want.Confidence {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.want.Confidence)
			}
			if got.AutoApprove {
				t.Error("parser must never set AutoApprove; that is the policy's job")
			}
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"nested object", `{"a":{"b":2}}`, `{"a":{"b":2}}`},
		{"first of two", `{"a":1} {"b":2}`, `{"a":1}`},
		{"prefix junk", `result: {"a":1}`, `{"a":1}`},
		{"no object", "plain text", ""},
		{"only open brace", "{", ""},
		{"brace in string", `{"s":"}{"}`, `{"s":"}{"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractJSONObject(tt.input); got != tt.want {
				t.Errorf("extractJSONObject(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
