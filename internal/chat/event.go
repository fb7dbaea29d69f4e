package chat

// Event is the payload published to NATS chat.<conversation_id>
// subjects. The realtime delivery tier subscribes and fans events out
// to connected clients; this service only publishes.
type Event struct {
	Type      string `json:"type"` // "message"
	MessageID string `json:"message_id"`
	From      string `json:"from"` // sender's user ID, or the agent name
	Text      string `json:"text"`
	Flagged   bool   `json:"flagged,omitempty"`
	FromAgent bool   `json:"from_agent,omitempty"`
	Ts        int64  `json:"ts"`
}

// newMessageEvent builds the fan-out event for a persisted message.
func newMessageEvent(m *Message) Event {
	return Event{
		Type:      "message",
		MessageID: m.ID,
		From:      m.SenderID,
		Text:      m.Content,
		Flagged:   m.Flagged,
		FromAgent: m.FromAgent,
		Ts:        m.CreatedAt.Unix(),
	}
}
