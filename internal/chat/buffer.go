package chat

import "sync"

// MaxContextMessages is the number of recent messages sent to the AI
// companion as conversation context.
const MaxContextMessages = 20

// ContextBuffer keeps the last N messages per AI companion conversation
// in memory, as a write-through cache over the message table: warm
// conversations skip a database query per send. It is goroutine-safe
// and uses a ring buffer internally.
type ContextBuffer struct {
	mu      sync.RWMutex
	buffers map[string]*ringBuffer // conversationID -> ring buffer
}

// ringBuffer is a fixed-size circular buffer of Message.
type ringBuffer struct {
	items []Message
	pos   int
	count int
}

// NewContextBuffer creates a new empty ContextBuffer.
func NewContextBuffer() *ContextBuffer {
	return &ContextBuffer{
		buffers: make(map[string]*ringBuffer),
	}
}

// Add appends a message to the conversation's ring buffer. If the
// buffer is full, the oldest message is overwritten.
func (cb *ContextBuffer) Add(conversationID string, msg Message) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	rb, ok := cb.buffers[conversationID]
	if !ok {
		rb = &ringBuffer{
			items: make([]Message, MaxContextMessages),
		}
		cb.buffers[conversationID] = rb
	}

	rb.items[rb.pos] = msg
	rb.pos = (rb.pos + 1) % MaxContextMessages
	if rb.count < MaxContextMessages {
		rb.count++
	}
}

// Get returns the buffered messages for a conversation in chronological
// order (oldest first), and whether the conversation has a warm buffer
// at all. A cold buffer means the caller must load context from the
// message store and Warm the buffer with the result.
func (cb *ContextBuffer) Get(conversationID string) ([]Message, bool) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	rb, ok := cb.buffers[conversationID]
	if !ok {
		return nil, false
	}

	result := make([]Message, rb.count)
	// The oldest message is at position (pos - count) mod MaxContextMessages.
	start := (rb.pos - rb.count + MaxContextMessages) % MaxContextMessages
	for i := 0; i < rb.count; i++ {
		result[i] = rb.items[(start+i)%MaxContextMessages]
	}
	return result, true
}

// Warm seeds the buffer for a conversation from stored history,
// replacing whatever was there.
func (cb *ContextBuffer) Warm(conversationID string, history []Message) {
	cb.mu.Lock()
	delete(cb.buffers, conversationID)
	cb.mu.Unlock()

	for _, m := range history {
		cb.Add(conversationID, m)
	}
}

// Remove deletes the buffer for a conversation.
func (cb *ContextBuffer) Remove(conversationID string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	delete(cb.buffers, conversationID)
}
