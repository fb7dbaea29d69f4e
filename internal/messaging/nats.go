// Package messaging provides a NATS client wrapper for pub/sub
// messaging between the API server, the moderation worker, and the
// realtime delivery tier. It handles connection lifecycle, subject
// naming, and convenience methods for the chat and moderation channels.
package messaging

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects used across the backend.
const (
	// SubjectChat carries persisted chat events, one subject per
	// conversation: chat.<conversation_id>. The realtime tier
	// subscribes and fans out to connected clients.
	SubjectChat = "chat"

	// SubjectModerationSubmit is the work queue for asynchronous
	// content moderation (reviews, resources, therapists, journals,
	// letters). The moderator worker consumes it with a queue group so
	// multiple workers share the load.
	SubjectModerationSubmit = "moderation.submit"

	// SubjectModerationResult carries finished verdicts, one subject
	// per content class: moderation.result.<class>.
	SubjectModerationResult = "moderation.result"

	// ModerationQueueGroup is the queue group name for worker instances.
	ModerationQueueGroup = "moderators"
)

// NATSClient wraps the NATS connection with helper methods for pub/sub.
type NATSClient struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NATSConfig holds NATS connection settings.
type NATSConfig struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultNATSConfig returns sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           "nats://localhost:4222",
		Name:          "sanemos",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NewNATSClient connects to NATS with the given config and returns a
// ready client. It returns an error if the initial connection fails.
func NewNATSClient(config NATSConfig) (*NATSClient, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &NATSClient{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// Publish sends data to the given NATS subject.
func (c *NATSClient) Publish(subject string, data []byte) error {
	return c.conn.Publish(subject, data)
}

// Subscribe registers a handler for the given subject and stores the
// subscription internally for later cleanup.
func (c *NATSClient) Subscribe(subject string, handler func(msg *nats.Msg)) error {
	sub, err := c.conn.Subscribe(subject, handler)
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()

	return nil
}

// PublishChatEvent publishes data to the chat.<conversationID> subject.
func (c *NATSClient) PublishChatEvent(conversationID string, data []byte) error {
	return c.Publish(SubjectChat+"."+conversationID, data)
}

// SubscribeChat subscribes to chat events for one conversation.
func (c *NATSClient) SubscribeChat(conversationID string, handler func(data []byte)) error {
	subject := SubjectChat + "." + conversationID
	return c.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

// UnsubscribeChat unsubscribes from a conversation's chat events.
func (c *NATSClient) UnsubscribeChat(conversationID string) error {
	return c.unsubscribe(SubjectChat + "." + conversationID)
}

// PublishModerationSubmit enqueues an asynchronous moderation request.
func (c *NATSClient) PublishModerationSubmit(data []byte) error {
	return c.Publish(SubjectModerationSubmit, data)
}

// SubscribeModerationSubmit consumes moderation requests as part of the
// worker queue group, so concurrent workers split the stream instead of
// each receiving every request.
func (c *NATSClient) SubscribeModerationSubmit(handler func(data []byte)) error {
	sub, err := c.conn.QueueSubscribe(SubjectModerationSubmit, ModerationQueueGroup, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("nats queue subscribe %s: %w", SubjectModerationSubmit, err)
	}

	c.mu.Lock()
	c.subs[SubjectModerationSubmit] = sub
	c.mu.Unlock()
	return nil
}

// PublishModerationResult publishes a finished verdict for a content class.
func (c *NATSClient) PublishModerationResult(class string, data []byte) error {
	return c.Publish(SubjectModerationResult+"."+class, data)
}

// SubscribeModerationResults subscribes to verdicts for every content
// class (moderation.result.*).
func (c *NATSClient) SubscribeModerationResults(handler func(data []byte)) error {
	return c.Subscribe(SubjectModerationResult+".*", func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

// Close drains all active subscriptions and closes the NATS connection.
func (c *NATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", subject, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}

	log.Printf("[nats] client closed")
}

// unsubscribe removes and unsubscribes from a specific subject.
func (c *NATSClient) unsubscribe(subject string) error {
	c.mu.Lock()
	sub, ok := c.subs[subject]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("nats: no subscription for subject %s", subject)
	}
	delete(c.subs, subject)
	c.mu.Unlock()

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("nats unsubscribe %s: %w", subject, err)
	}
	return nil
}
