package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/sanemos/support-app/internal/chat"
	"github.com/sanemos/support-app/internal/moderation"
	"github.com/sanemos/support-app/internal/modlog"
)

// userHeader carries the authenticated user ID, injected by the web
// tier after session validation.
const userHeader = "X-User-ID"

type chatSendRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

type chatSendResponse struct {
	Success    bool          `json:"success"`
	Message    *chat.Message `json:"message,omitempty"`
	AIResponse *chat.Message `json:"ai_response,omitempty"`
}

type violationResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason"`
	Strikes   int    `json:"strikes"`
	Suspended bool   `json:"suspended"`
}

func (s *Server) handleChatSend(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req chatSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ConversationID == "" {
		writeError(w, http.StatusBadRequest, "conversation_id is required")
		return
	}

	result, err := s.sender.Send(r.Context(), req.ConversationID, userID, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrConversationNotFound):
			writeError(w, http.StatusNotFound, "conversation not found")
		case errors.Is(err, chat.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "not a participant")
		case errors.Is(err, chat.ErrSuspended):
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "suspended"})
		case errors.Is(err, chat.ErrRateLimited):
			writeError(w, http.StatusTooManyRequests, "rate limited")
		default:
			log.Printf("[api] chat send user=%s conversation=%s: %v", userID, req.ConversationID, err)
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	if result.Blocked {
		writeJSON(w, http.StatusUnprocessableEntity, violationResponse{
			Error:     "moderation_violation",
			Reason:    result.BlockReason,
			Strikes:   result.Strikes,
			Suspended: result.Suspended,
		})
		return
	}

	writeJSON(w, http.StatusOK, chatSendResponse{
		Success:    true,
		Message:    result.Message,
		AIResponse: result.AIReply,
	})
}

// handleModerationCheck evaluates content synchronously and returns the
// verdict. Pending and rejected verdicts are recorded in the review log
// when one is configured.
func (s *Server) handleModerationCheck(w http.ResponseWriter, r *http.Request) {
	var req moderation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := req.ContentItem()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	verdict := s.moderator.Moderate(r.Context(), item)

	if s.reviews != nil {
		if _, err := s.reviews.Create(r.Context(), &modlog.Entry{
			Class:       string(req.Class),
			ItemRef:     req.ItemRef,
			SubmitterID: req.SubmitterID,
			Decision:    string(verdict.Decision),
			Reason:      verdict.Reason,
			Confidence:  verdict.Confidence,
			AutoApprove: verdict.AutoApprove,
		}); err != nil {
			log.Printf("[api] review log write class=%s ref=%s: %v", req.Class, req.ItemRef, err)
		}
	}

	writeJSON(w, http.StatusOK, verdict)
}

// handleModerationSubmit enqueues an asynchronous moderation request
// for the worker and answers immediately.
func (s *Server) handleModerationSubmit(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeError(w, http.StatusServiceUnavailable, "moderation queue unavailable")
		return
	}

	var req moderation.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := req.ContentItem(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := json.Marshal(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := s.queue.PublishModerationSubmit(data); err != nil {
		log.Printf("[api] moderation enqueue class=%s ref=%s: %v", req.Class, req.ItemRef, err)
		writeError(w, http.StatusServiceUnavailable, "moderation queue unavailable")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (s *Server) handleModerationPending(w http.ResponseWriter, r *http.Request) {
	if s.reviews == nil {
		writeError(w, http.StatusServiceUnavailable, "review log unavailable")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	entries, err := s.reviews.ListPending(r.Context(), r.URL.Query().Get("class"), limit)
	if err != nil {
		log.Printf("[api] list pending: %v", err)
		writeError(w, http.StatusInternalServerError, "could not list pending items")
		return
	}
	if entries == nil {
		entries = []modlog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type resolveRequest struct {
	ID       string `json:"id"`
	Decision string `json:"decision"` // approve | reject
}

func (s *Server) handleModerationResolve(w http.ResponseWriter, r *http.Request) {
	reviewer := r.Header.Get(userHeader)
	if reviewer == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}
	if s.reviews == nil {
		writeError(w, http.StatusServiceUnavailable, "review log unavailable")
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	if req.Decision != string(moderation.DecisionApprove) && req.Decision != string(moderation.DecisionReject) {
		writeError(w, http.StatusBadRequest, "decision must be approve or reject")
		return
	}

	if err := s.reviews.Resolve(r.Context(), id, req.Decision, reviewer); err != nil {
		log.Printf("[api] resolve %s: %v", req.ID, err)
		writeError(w, http.StatusNotFound, "entry not found or already resolved")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
