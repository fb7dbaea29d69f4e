// Package api exposes the HTTP surface of the backend: the chat send
// endpoint, synchronous and queued moderation entry points, the human
// review queue, health, and metrics. Session handling and user
// authentication live in the outer web tier, which forwards the
// authenticated user ID in the X-User-ID header.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sanemos/support-app/internal/chat"
	"github.com/sanemos/support-app/internal/metrics"
	"github.com/sanemos/support-app/internal/moderation"
	"github.com/sanemos/support-app/internal/modlog"
)

// MessageSender runs the chat send path.
type MessageSender interface {
	Send(ctx context.Context, conversationID, senderID, content string) (*chat.SendResult, error)
}

// ContentModerator evaluates one content item synchronously.
type ContentModerator interface {
	Moderate(ctx context.Context, item moderation.ContentItem) moderation.Verdict
}

// ModerationQueue enqueues asynchronous moderation requests.
type ModerationQueue interface {
	PublishModerationSubmit(data []byte) error
}

// ReviewLog is the moderation log surface the API needs.
type ReviewLog interface {
	Create(ctx context.Context, e *modlog.Entry) (uuid.UUID, error)
	ListPending(ctx context.Context, class string, limit int) ([]modlog.Entry, error)
	Resolve(ctx context.Context, id uuid.UUID, decision, reviewer string) error
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr:   ":8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}

// Server is the HTTP API server.
type Server struct {
	config     ServerConfig
	sender     MessageSender
	moderator  ContentModerator
	queue      ModerationQueue
	reviews    ReviewLog
	httpServer *http.Server
}

// NewServer creates the API server. queue and reviews may be nil in
// tests; the corresponding endpoints then answer 503.
func NewServer(config ServerConfig, sender MessageSender, moderator ContentModerator, queue ModerationQueue, reviews ReviewLog) *Server {
	return &Server{
		config:    config,
		sender:    sender,
		moderator: moderator,
		queue:     queue,
		reviews:   reviews,
	}
}

// Routes returns the server's handler with all endpoints registered.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat/send", s.handleChatSend)
	mux.HandleFunc("POST /api/moderation/check", s.handleModerationCheck)
	mux.HandleFunc("POST /api/moderation/submit", s.handleModerationSubmit)
	mux.HandleFunc("GET /api/moderation/pending", s.handleModerationPending)
	mux.HandleFunc("POST /api/moderation/resolve", s.handleModerationResolve)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())
	return mux
}

// Start runs the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      s.Routes(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api: http server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
