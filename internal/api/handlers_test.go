package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/sanemos/support-app/internal/chat"
	"github.com/sanemos/support-app/internal/moderation"
	"github.com/sanemos/support-app/internal/modlog"
)

type fakeSender struct {
	result *chat.SendResult
	err    error
}

func (f *fakeSender) Send(_ context.Context, _, _, _ string) (*chat.SendResult, error) {
	return f.result, f.err
}

type fakeModerator struct {
	verdict moderation.Verdict
	calls   int
}

func (f *fakeModerator) Moderate(_ context.Context, _ moderation.ContentItem) moderation.Verdict {
	f.calls++
	return f.verdict
}

type fakeQueue struct {
	published [][]byte
	err       error
}

func (f *fakeQueue) PublishModerationSubmit(data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, data)
	return nil
}

type fakeReviews struct {
	entries  []modlog.Entry
	resolved map[uuid.UUID]string
}

func newFakeReviews() *fakeReviews {
	return &fakeReviews{resolved: make(map[uuid.UUID]string)}
}

func (f *fakeReviews) Create(_ context.Context, e *modlog.Entry) (uuid.UUID, error) {
	e.ID = uuid.New()
	f.entries = append(f.entries, *e)
	return e.ID, nil
}

func (f *fakeReviews) ListPending(_ context.Context, class string, limit int) ([]modlog.Entry, error) {
	var out []modlog.Entry
	for _, e := range f.entries {
		if e.Decision != string(moderation.DecisionPending) {
			continue
		}
		if class != "" && e.Class != class {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeReviews) Resolve(_ context.Context, id uuid.UUID, decision, reviewer string) error {
	f.resolved[id] = decision
	return nil
}

func testServer(sender MessageSender, mod ContentModerator, queue ModerationQueue, reviews ReviewLog) *Server {
	return NewServer(DefaultServerConfig(), sender, mod, queue, reviews)
}

func doRequest(t *testing.T, handler http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set(userHeader, userID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatSendSuccess(t *testing.T) {
	sender := &fakeSender{result: &chat.SendResult{
		Message: &chat.Message{ID: "m1", Content: "hola"},
	}}
	srv := testServer(sender, &fakeModerator{}, nil, nil)

	rec := doRequest(t, srv.Routes(), http.MethodPost, "/api/chat/send", "u1",
		chatSendRequest{ConversationID: "c1", Content: "hola"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var resp chatSendResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.Message == nil || resp.Message.ID != "m1" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestChatSendMissingIdentity(t *testing.T) {
	srv := testServer(&fakeSender{}, &fakeModerator{}, nil, nil)

	rec := doRequest(t, srv.Routes(), http.MethodPost, "/api/chat/send", "",
		chatSendRequest{ConversationID: "c1", Content: "hola"})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestChatSendViolation(t *testing.T) {
	sender := &fakeSender{result: &chat.SendResult{
		Blocked:     true,
		BlockReason: "targeted insult",
		Strikes:     2,
	}}
	srv := testServer(sender, &fakeModerator{}, nil, nil)

	rec := doRequest(t, srv.Routes(), http.MethodPost, "/api/chat/send", "u1",
		chatSendRequest{ConversationID: "c1", Content: "..."})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var resp violationResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "moderation_violation" {
		t.Errorf("error = %q, want moderation_violation", resp.Error)
	}
	if resp.Reason != "targeted insult" || resp.Strikes != 2 || resp.Suspended {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestChatSendErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", chat.ErrConversationNotFound, http.StatusNotFound},
		{"not participant", chat.ErrNotParticipant, http.StatusForbidden},
		{"suspended", chat.ErrSuspended, http.StatusForbidden},
		{"rate limited", chat.ErrRateLimited, http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := testServer(&fakeSender{err: tc.err}, &fakeModerator{}, nil, nil)
			rec := doRequest(t, srv.Routes(), http.MethodPost, "/api/chat/send", "u1",
				chatSendRequest{ConversationID: "c1", Content: "hola"})
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestChatSendSuspendedBody(t *testing.T) {
	srv := testServer(&fakeSender{err: chat.ErrSuspended}, &fakeModerator{}, nil, nil)
	rec := doRequest(t, srv.Routes(), http.MethodPost, "/api/chat/send", "u1",
		chatSendRequest{ConversationID: "c1", Content: "hola"})

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["error"] != "suspended" {
		t.Errorf("error = %q, want suspended", resp["error"])
	}
}

func TestModerationCheckRecordsPending(t *testing.T) {
	mod := &fakeModerator{verdict: moderation.Verdict{
		Decision:   moderation.DecisionPending,
		Reason:     "needs human review",
		Confidence: 0.5,
	}}
	reviews := newFakeReviews()
	srv := testServer(&fakeSender{}, mod, nil, reviews)

	item, _ := json.Marshal(moderation.ReviewItem{Rating: 1, Comment: "terrible"})
	rec := doRequest(t, srv.Routes(), http.MethodPost, "/api/moderation/check", "u1", moderation.Request{
		Class:       moderation.ClassReview,
		ItemRef:     "rev-1",
		SubmitterID: "u1",
		Item:        item,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	var verdict moderation.Verdict
	if err := json.NewDecoder(rec.Body).Decode(&verdict); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if verdict.Decision != moderation.DecisionPending {
		t.Errorf("decision = %q, want pending", verdict.Decision)
	}
	if len(reviews.entries) != 1 {
		t.Fatalf("expected 1 review log entry, got %d", len(reviews.entries))
	}
	if reviews.entries[0].ItemRef != "rev-1" {
		t.Errorf("entry ref = %q", reviews.entries[0].ItemRef)
	}
}

func TestModerationCheckBadClass(t *testing.T) {
	srv := testServer(&fakeSender{}, &fakeModerator{}, nil, nil)

	rec := doRequest(t, srv.Routes(), http.MethodPost, "/api/moderation/check", "u1", moderation.Request{
		Class: "unknown",
		Item:  json.RawMessage(`{}`),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestModerationSubmitQueues(t *testing.T) {
	queue := &fakeQueue{}
	srv := testServer(&fakeSender{}, &fakeModerator{}, queue, nil)

	item, _ := json.Marshal(moderation.JournalItem{Title: "hoy", Body: "un día difícil"})
	rec := doRequest(t, srv.Routes(), http.MethodPost, "/api/moderation/submit", "u1", moderation.Request{
		Class:       moderation.ClassJournal,
		ItemRef:     "j-1",
		SubmitterID: "u1",
		Item:        item,
	})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body %s", rec.Code, rec.Body)
	}
	if len(queue.published) != 1 {
		t.Fatalf("expected 1 queued request, got %d", len(queue.published))
	}
	var queued moderation.Request
	if err := json.Unmarshal(queue.published[0], &queued); err != nil {
		t.Fatalf("unmarshal queued: %v", err)
	}
	if queued.ItemRef != "j-1" || queued.Class != moderation.ClassJournal {
		t.Errorf("queued request: %+v", queued)
	}
}

func TestModerationSubmitNoQueue(t *testing.T) {
	srv := testServer(&fakeSender{}, &fakeModerator{}, nil, nil)

	item, _ := json.Marshal(moderation.JournalItem{Body: "x"})
	rec := doRequest(t, srv.Routes(), http.MethodPost, "/api/moderation/submit", "u1", moderation.Request{
		Class: moderation.ClassJournal,
		Item:  item,
	})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestModerationPending(t *testing.T) {
	reviews := newFakeReviews()
	reviews.Create(context.Background(), &modlog.Entry{
		Class:    "journal",
		ItemRef:  "j-1",
		Decision: string(moderation.DecisionPending),
	})
	reviews.Create(context.Background(), &modlog.Entry{
		Class:    "review",
		ItemRef:  "rev-1",
		Decision: string(moderation.DecisionPending),
	})
	srv := testServer(&fakeSender{}, &fakeModerator{}, nil, reviews)

	rec := doRequest(t, srv.Routes(), http.MethodGet, "/api/moderation/pending?class=journal", "mod1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var entries []modlog.Entry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].ItemRef != "j-1" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestModerationPendingEmptyIsArray(t *testing.T) {
	srv := testServer(&fakeSender{}, &fakeModerator{}, nil, newFakeReviews())

	rec := doRequest(t, srv.Routes(), http.MethodGet, "/api/moderation/pending", "mod1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", got)
	}
}

func TestModerationResolve(t *testing.T) {
	reviews := newFakeReviews()
	id, _ := reviews.Create(context.Background(), &modlog.Entry{
		Class:    "journal",
		Decision: string(moderation.DecisionPending),
	})
	srv := testServer(&fakeSender{}, &fakeModerator{}, nil, reviews)

	rec := doRequest(t, srv.Routes(), http.MethodPost, "/api/moderation/resolve", "mod1",
		resolveRequest{ID: id.String(), Decision: "approve"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body)
	}
	if reviews.resolved[id] != "approve" {
		t.Errorf("resolution = %q, want approve", reviews.resolved[id])
	}
}

func TestModerationResolveValidation(t *testing.T) {
	reviews := newFakeReviews()
	srv := testServer(&fakeSender{}, &fakeModerator{}, nil, reviews)
	routes := srv.Routes()

	// Bad UUID.
	rec := doRequest(t, routes, http.MethodPost, "/api/moderation/resolve", "mod1",
		resolveRequest{ID: "not-a-uuid", Decision: "approve"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad uuid: status = %d, want 400", rec.Code)
	}

	// Decision outside approve/reject.
	rec = doRequest(t, routes, http.MethodPost, "/api/moderation/resolve", "mod1",
		resolveRequest{ID: uuid.NewString(), Decision: "pending"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad decision: status = %d, want 400", rec.Code)
	}

	// Missing reviewer identity.
	rec = doRequest(t, routes, http.MethodPost, "/api/moderation/resolve", "",
		resolveRequest{ID: uuid.NewString(), Decision: "approve"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no reviewer: status = %d, want 401", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(&fakeSender{}, &fakeModerator{}, nil, nil)

	rec := doRequest(t, srv.Routes(), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
