package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/llm"
	"github.com/conorfennell/taxtutor/internal/seed"
	"github.com/conorfennell/taxtutor/internal/storage"
	"github.com/conorfennell/taxtutor/internal/store"
	"github.com/conorfennell/taxtutor/internal/tutor"
)

var fixedNow = time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)

type fakeLLM struct {
	configured bool
	tokens     []string
	err        error
	got        [][]domain.ChatMessage
}

func (f *fakeLLM) Configured() bool { return f.configured }

func (f *fakeLLM) Models(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"openai/gpt-oss-20b"}, nil
}

func (f *fakeLLM) Complete(_ context.Context, msgs []domain.ChatMessage) (string, error) {
	f.got = append(f.got, msgs)
	return strings.Join(f.tokens, ""), f.err
}

func (f *fakeLLM) Stream(_ context.Context, msgs []domain.ChatMessage, onToken func(string)) (string, error) {
	f.got = append(f.got, msgs)
	var full strings.Builder
	for _, tok := range f.tokens {
		full.WriteString(tok)
		onToken(tok)
	}
	return full.String(), f.err
}

func newTestServer(t *testing.T, backend *fakeLLM) (*Server, *store.Store) {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	st, err := store.New(context.Background(), store.Options{
		Persister: storage.NewMemory(),
		Seed:      seed.Snapshot(fixedNow),
		Clock:     clock,
	})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	opts := Options{Store: st, Clock: clock}
	if backend != nil {
		opts.LLM = backend
	}
	return NewServer(opts), st
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeLLM
		status  int
		ok      bool
	}{
		{"no backend", nil, http.StatusInternalServerError, false},
		{"no key", &fakeLLM{}, http.StatusInternalServerError, false},
		{"upstream down", &fakeLLM{configured: true, err: errors.New("dial tcp: refused")}, http.StatusInternalServerError, false},
		{"healthy", &fakeLLM{configured: true}, http.StatusOK, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, tt.backend)
			rec := do(t, srv, http.MethodGet, "/api/health", "")
			if rec.Code != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, rec.Code)
			}
			got := decodeBody[healthResponse](t, rec)
			if got.OK != tt.ok {
				t.Errorf("Unexpected health %+v", got)
			}
			if tt.ok && (len(got.Models) != 1 || got.Models[0] != "openai/gpt-oss-20b") {
				t.Errorf("Unexpected models %v", got.Models)
			}
		})
	}
}

func TestChat(t *testing.T) {
	backend := &fakeLLM{configured: true, tokens: []string{"Section 80C ", "caps at ₹1.5 lakh."}}
	srv, _ := newTestServer(t, backend)

	rec := do(t, srv, http.MethodPost, "/api/chat", `{"messages":[{"role":"user","content":"80C?"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if got := decodeBody[map[string]string](t, rec); got["content"] != "Section 80C caps at ₹1.5 lakh." {
		t.Errorf("Unexpected content %q", got["content"])
	}
	if sent := backend.got[0]; len(sent) != 2 || sent[0].Role != domain.RoleSystem || sent[0].Content != tutor.DefaultSystemPrompt {
		t.Errorf("Expected the system prompt prepended, got %+v", sent)
	}

	do(t, srv, http.MethodPost, "/api/chat", `{"messages":[{"role":"system","content":"be brief"},{"role":"user","content":"hi"}]}`)
	if sent := backend.got[1]; len(sent) != 2 || sent[0].Content != "be brief" {
		t.Errorf("Expected the caller's system prompt kept, got %+v", sent)
	}

	for _, body := range []string{`{}`, `{"messages":"nope"}`, `{"messages":[{"role":"bot","content":"x"}]}`, ``} {
		if rec := do(t, srv, http.MethodPost, "/api/chat", body); rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for %q, got %d", body, rec.Code)
		}
	}

	backend.err = &llm.HTTPError{StatusCode: 503, Message: "busy"}
	rec = do(t, srv, http.MethodPost, "/api/chat", `{"messages":[]}`)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("Expected 502 for an upstream failure, got %d", rec.Code)
	}
	if got := decodeBody[errorResponse](t, rec); got.Details == "" {
		t.Errorf("Expected error details, got %+v", got)
	}
}

func TestChatStreamFraming(t *testing.T) {
	backend := &fakeLLM{configured: true, tokens: []string{"Hel", "lo"}}
	srv, _ := newTestServer(t, backend)

	rec := do(t, srv, http.MethodPost, "/api/chat/stream", `{"messages":[{"role":"user","content":"hi"}]}`)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("Unexpected response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	want := "data: {\"token\":\"Hel\"}\n\ndata: {\"token\":\"lo\"}\n\nevent: done\ndata: [DONE]\n\n"
	if rec.Body.String() != want {
		t.Errorf("Unexpected stream\n got %q\nwant %q", rec.Body.String(), want)
	}

	backend.err = errors.New("stream error: rate limited")
	rec = do(t, srv, http.MethodPost, "/api/chat/stream", `{"messages":[]}`)
	if !strings.HasSuffix(rec.Body.String(), "event: error\ndata: \"stream error: rate limited\"\n\n") {
		t.Errorf("Expected a trailing error event, got %q", rec.Body.String())
	}

	rec = do(t, srv, http.MethodPost, "/api/chat/stream", `{}`)
	if rec.Code != http.StatusBadRequest || rec.Body.String() != "event: error\ndata: messages must be an array\n\n" {
		t.Errorf("Unexpected bad request stream %d %q", rec.Code, rec.Body.String())
	}

	unconfigured, _ := newTestServer(t, &fakeLLM{})
	rec = do(t, unconfigured, http.MethodPost, "/api/chat/stream", `{"messages":[]}`)
	if rec.Code != http.StatusInternalServerError || !strings.Contains(rec.Body.String(), missingKeyMessage) {
		t.Errorf("Unexpected missing key stream %d %q", rec.Code, rec.Body.String())
	}
}

func TestFlashcardLifecycle(t *testing.T) {
	srv, st := newTestServer(t, nil)

	rec := do(t, srv, http.MethodPost, "/api/flashcards", `{"front":"What is TDS?","back":"Tax deducted at source","tag":"TDS"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body)
	}
	card := decodeBody[domain.Flashcard](t, rec)
	if card.ID == "" || card.Easiness != 2.5 || card.Interval != 1 || !card.Due.Equal(fixedNow) {
		t.Fatalf("Unexpected new card %+v", card)
	}
	if rec := do(t, srv, http.MethodPost, "/api/flashcards", `{"front":"","back":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an empty front, got %d", rec.Code)
	}

	path := "/api/flashcards/" + card.ID
	if rec := do(t, srv, http.MethodPost, path+"/review", `{"quality":7}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for quality 7, got %d", rec.Code)
	}
	rec = do(t, srv, http.MethodPost, path+"/review", `{"quality":4}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if got := decodeBody[domain.Flashcard](t, rec); got.Reps != 1 || !got.Due.After(fixedNow) {
		t.Errorf("Expected the card rescheduled, got %+v", got)
	}

	rec = do(t, srv, http.MethodGet, path+"/preview", "")
	if previews := decodeBody[[]schedulePreview](t, rec); len(previews) != 5 || previews[0].Label != "Again" || previews[0].Interval != 1 {
		t.Errorf("Unexpected preview %+v", previews)
	}

	rec = do(t, srv, http.MethodPatch, path, `{"tag":"Compliance"}`)
	if got := decodeBody[domain.Flashcard](t, rec); got.Tag != "Compliance" || got.Reps != 1 {
		t.Errorf("Expected only the tag patched, got %+v", got)
	}

	rec = do(t, srv, http.MethodPost, path+"/duplicate", "")
	dup := decodeBody[domain.Flashcard](t, rec)
	if rec.Code != http.StatusCreated || dup.ID == card.ID || dup.Front != "What is TDS? (Copy)" || dup.Reps != 0 {
		t.Errorf("Unexpected duplicate %d %+v", rec.Code, dup)
	}

	rec = do(t, srv, http.MethodGet, "/api/flashcards?q=tds&tag=Compliance", "")
	if got := decodeBody[[]domain.Flashcard](t, rec); len(got) != 2 {
		t.Errorf("Expected the card and its copy, got %d", len(got))
	}
	if rec := do(t, srv, http.MethodGet, "/api/flashcards?set=someday", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown set, got %d", rec.Code)
	}

	if rec := do(t, srv, http.MethodDelete, path, ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	for _, tc := range []struct{ method, target, body string }{
		{http.MethodDelete, path, ""},
		{http.MethodGet, path, ""},
		{http.MethodPatch, path, `{"tag":"x"}`},
		{http.MethodPost, path + "/review", `{"quality":3}`},
		{http.MethodPost, path + "/duplicate", ""},
	} {
		if rec := do(t, srv, tc.method, tc.target, tc.body); rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: expected 404, got %d", tc.method, tc.target, rec.Code)
		}
	}

	rec = do(t, srv, http.MethodGet, "/api/flashcards/stats", "")
	stats := decodeBody[map[string]any](t, rec)
	if stats["totalCards"] != float64(len(st.Flashcards())) {
		t.Errorf("Unexpected stats %v", stats)
	}
}

func TestPracticeAndCases(t *testing.T) {
	srv, st := newTestServer(t, nil)

	rec := do(t, srv, http.MethodGet, "/api/questions?type=mcq&count=1", "")
	qs := decodeBody[[]domain.Question](t, rec)
	if len(qs) != 1 || qs[0].Type != domain.QuestionMCQ {
		t.Fatalf("Unexpected questions %+v", qs)
	}

	body, _ := json.Marshal(practiceRequest{Type: "mcq", Questions: qs, Answers: []string{qs[0].Answer}, ElapsedSec: 42})
	rec = do(t, srv, http.MethodPost, "/api/practice", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if p := st.Progress()["mcq Practice"]; p != (domain.ProgressByTopic{Attempts: 1, Correct: 1, TimeSec: 42}) {
		t.Errorf("Unexpected progress %+v", p)
	}
	if rec := do(t, srv, http.MethodPost, "/api/practice", `{"type":"mcq"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without questions, got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/api/cases/tax_planning_scenario", `{"choices":[1],"elapsedSec":30}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if got := decodeBody[caseResponse](t, rec); !got.Passed || got.Percent != 100 {
		t.Errorf("Unexpected case outcome %+v", got)
	}
	if rec := do(t, srv, http.MethodPost, "/api/cases/tax_planning_scenario", `{"choices":[9]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an invalid choice, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/cases/unknown", `{"choices":[0]}`); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown case, got %d", rec.Code)
	}
	if n := len(st.AttemptLogs()); n != 2 {
		t.Errorf("Expected 2 attempt logs, got %d", n)
	}

	rec = do(t, srv, http.MethodGet, "/api/progress?period=week", "")
	prog := decodeBody[progressResponse](t, rec)
	if prog.Summary.TotalQuestions != 6 || prog.Summary.TotalCorrect != 6 || len(prog.WeakAreas) != 2 {
		t.Errorf("Unexpected progress %+v", prog)
	}
	if rec := do(t, srv, http.MethodGet, "/api/progress?period=decade", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown period, got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/progress/export", "")
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="taxtutor-progress-2024-07-15.json"` {
		t.Errorf("Unexpected disposition %q", cd)
	}
	if !strings.Contains(rec.Body.String(), "\n  \"summary\": {") {
		t.Errorf("Expected an indented export, got %s", rec.Body)
	}

	rec = do(t, srv, http.MethodGet, "/api/overview", "")
	if ov := decodeBody[map[string]any](t, rec); ov["totalAttempts"] != float64(2) || ov["studyStreak"] != float64(1) {
		t.Errorf("Unexpected overview %v", ov)
	}
}

func TestConversation(t *testing.T) {
	backend := &fakeLLM{configured: true, tokens: []string{"HRA is ", "House Rent Allowance."}}
	srv, st := newTestServer(t, backend)

	rec := do(t, srv, http.MethodPost, "/api/tutor", `{"message":"What is HRA?"}`)
	if got := decodeBody[tutorResponse](t, rec); got.Error != "" || got.Message.Content != "HRA is House Rent Allowance." {
		t.Fatalf("Unexpected tutor reply %+v", got)
	}
	if rec := do(t, srv, http.MethodPost, "/api/tutor", `{"message":"  "}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a blank message, got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/api/tutor/stream", `{"message":"And 80C?"}`)
	if !strings.HasPrefix(rec.Body.String(), "data: {\"token\":\"HRA is \"}\n\n") || !strings.HasSuffix(rec.Body.String(), "event: done\ndata: [DONE]\n\n") {
		t.Errorf("Unexpected tutor stream %q", rec.Body.String())
	}
	if n := len(st.ChatMessages()); n != 4 {
		t.Fatalf("Expected 4 messages, got %d", n)
	}

	rec = do(t, srv, http.MethodGet, "/api/conversation/export?indices=0,2", "")
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "taxtutor-selected-messages-2024-07-15.json") {
		t.Errorf("Unexpected disposition %q", cd)
	}
	exported := rec.Body.String()
	if !strings.Contains(exported, `"exportedBy": "user"`) {
		t.Errorf("Expected a partial export, got %s", exported)
	}

	if rec := do(t, srv, http.MethodPatch, "/api/conversation/0", `{"content":"What is HRA exactly?"}`); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/conversation/9", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}

	if rec := do(t, srv, http.MethodDelete, "/api/conversation", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}
	if n := len(st.ChatMessages()); n != 0 {
		t.Fatalf("Expected an empty conversation, got %d", n)
	}

	rec = do(t, srv, http.MethodPost, "/api/conversation/import", exported)
	if got := decodeBody[map[string]int](t, rec); got["imported"] != 2 {
		t.Errorf("Unexpected import %v", got)
	}
	msgs := st.ChatMessages()
	if len(msgs) != 2 || msgs[0].Content != "What is HRA?" || msgs[1].Content != "And 80C?" {
		t.Errorf("Unexpected conversation after import %+v", msgs)
	}
	if rec := do(t, srv, http.MethodPost, "/api/conversation/import", `{"timestamp":"x"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a document without messages, got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/conversation", "")
	if got := decodeBody[conversationResponse](t, rec); got.Stats.TotalMessages != 2 {
		t.Errorf("Unexpected conversation %+v", got)
	}
}

func TestTutorWithoutBackend(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	if rec := do(t, srv, http.MethodPost, "/api/tutor", `{"message":"hi"}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", rec.Code)
	}
}

func TestSourcesAndSync(t *testing.T) {
	srv, st := newTestServer(t, nil)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "deck.md"), []byte("Q: PAN?\nA: Permanent account number\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := do(t, srv, http.MethodPost, "/api/sources", `{"path":`+string(mustJSON(t, dir))+`}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body)
	}
	src := decodeBody[domain.DeckSource](t, rec)
	if src.Type != domain.SourceLocal || src.ID == "" {
		t.Fatalf("Unexpected source %+v", src)
	}
	if rec := do(t, srv, http.MethodPost, "/api/sources", `{"path":""}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an empty path, got %d", rec.Code)
	}

	rec = do(t, srv, http.MethodPost, "/api/sync", "")
	results := decodeBody[[]map[string]any](t, rec)
	if len(results) != 1 || results[0]["added"] != float64(1) {
		t.Errorf("Unexpected sync results %v", results)
	}
	if _, ok := st.Flashcard(domain.ByFront("PAN?")); !ok {
		t.Error("Expected the deck card imported")
	}

	if rec := do(t, srv, http.MethodPost, "/api/sources/"+src.ID+"/sync", ""); rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/sources/nope/sync", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/sources/"+src.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/sources/"+src.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on the second delete, got %d", rec.Code)
	}
}

func TestStateAndView(t *testing.T) {
	srv, st := newTestServer(t, nil)
	if rec := do(t, srv, http.MethodPut, "/api/view", `{"view":"Flashcards"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", rec.Code)
	}
	if st.CurrentView() != domain.ViewFlashcards {
		t.Errorf("Expected the view stored, got %q", st.CurrentView())
	}
	if rec := do(t, srv, http.MethodPut, "/api/view", `{"view":"Settings"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unknown view, got %d", rec.Code)
	}

	rec := do(t, srv, http.MethodGet, "/api/state", "")
	snap := decodeBody[domain.Snapshot](t, rec)
	if snap.CurrentTab != domain.ViewFlashcards || len(snap.Questions) == 0 {
		t.Errorf("Unexpected state %+v", snap)
	}

	if rec := do(t, srv, http.MethodOptions, "/api/state", ""); rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Unexpected preflight response %d", rec.Code)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return raw
}
