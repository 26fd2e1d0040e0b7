package tutor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/llm"
	"github.com/conorfennell/taxtutor/internal/storage"
	"github.com/conorfennell/taxtutor/internal/store"
)

type fakeBackend struct {
	tokens []string
	err    error
	got    [][]domain.ChatMessage
}

func (f *fakeBackend) Stream(_ context.Context, msgs []domain.ChatMessage, onToken func(string)) (string, error) {
	f.got = append(f.got, msgs)
	var full strings.Builder
	for _, tok := range f.tokens {
		full.WriteString(tok)
		if onToken != nil {
			onToken(tok)
		}
	}
	return full.String(), f.err
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(context.Background(), store.Options{Persister: storage.NewMemory()})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return s
}

func TestSendAppendsBothTurns(t *testing.T) {
	s := newTestStore(t)
	backend := &fakeBackend{tokens: []string{"80C caps ", "at ₹1.5 lakh."}}
	tu := New(s, backend, Options{})

	var streamed []string
	msg, err := tu.Send(context.Background(), "What is the 80C limit?", func(tok string) { streamed = append(streamed, tok) })
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if msg.Content != "80C caps at ₹1.5 lakh." || len(streamed) != 2 {
		t.Errorf("Unexpected reply %q, tokens %v", msg.Content, streamed)
	}
	history := s.ChatMessages()
	if len(history) != 2 || history[0].Role != domain.RoleUser || history[1].Role != domain.RoleAssistant {
		t.Fatalf("Expected user then assistant turn, got %+v", history)
	}

	sent := backend.got[0]
	if sent[0].Role != domain.RoleSystem || sent[0].Content != DefaultSystemPrompt {
		t.Errorf("Expected the system prompt first, got %+v", sent[0])
	}
	if len(sent) != 2 || sent[1].Content != "What is the 80C limit?" {
		t.Errorf("Expected the new user turn to be sent, got %+v", sent)
	}
}

func TestSendNeverHalfAppends(t *testing.T) {
	s := newTestStore(t)
	backend := &fakeBackend{tokens: []string{"partial "}, err: &llm.HTTPError{StatusCode: 503, Message: "busy"}}
	tu := New(s, backend, Options{})

	msg, err := tu.Send(context.Background(), "Explain TDS", nil)
	var herr *llm.HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("Expected the backend error to be returned, got %v", err)
	}

	history := s.ChatMessages()
	if len(history) != 2 {
		t.Fatalf("Expected exactly one assistant turn, got %+v", history)
	}
	if strings.Contains(history[1].Content, "partial") {
		t.Error("Expected the partial reply to be discarded")
	}
	if !strings.HasPrefix(msg.Content, "Connection error") || history[1] != msg {
		t.Errorf("Expected a formatted connection error, got %q", msg.Content)
	}
}

func TestSendEmptyReply(t *testing.T) {
	s := newTestStore(t)
	tu := New(s, &fakeBackend{}, Options{})

	if _, err := tu.Send(context.Background(), "hello", nil); !errors.Is(err, llm.ErrEmptyCompletion) {
		t.Errorf("Expected ErrEmptyCompletion, got %v", err)
	}
	if n := len(s.ChatMessages()); n != 2 {
		t.Errorf("Expected 2 messages, got %d", n)
	}
}

func TestSendRejectsBlank(t *testing.T) {
	s := newTestStore(t)
	tu := New(s, &fakeBackend{tokens: []string{"x"}}, Options{})

	if _, err := tu.Send(context.Background(), "   ", nil); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Expected ErrEmptyMessage, got %v", err)
	}
	if n := len(s.ChatMessages()); n != 0 {
		t.Errorf("Expected nothing recorded, got %d messages", n)
	}
}

func TestRetry(t *testing.T) {
	s := newTestStore(t)
	backend := &fakeBackend{err: llm.ErrMissingAPIKey}
	tu := New(s, backend, Options{SystemPrompt: "custom prompt"})
	ctx := context.Background()

	if _, err := tu.Retry(ctx, nil); !errors.Is(err, ErrNothingToRetry) {
		t.Fatalf("Expected ErrNothingToRetry, got %v", err)
	}

	tu.Send(ctx, "What is HRA?", nil)
	backend.err = nil
	backend.tokens = []string{"House Rent Allowance."}

	msg, err := tu.Retry(ctx, nil)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if msg.Content != "House Rent Allowance." {
		t.Errorf("Unexpected reply %q", msg.Content)
	}

	sent := backend.got[1]
	if len(sent) != 2 || sent[0].Content != "custom prompt" || sent[1].Content != "What is HRA?" {
		t.Errorf("Expected retry to resend up to the last user turn, got %+v", sent)
	}
	if n := len(s.ChatMessages()); n != 3 {
		t.Errorf("Expected user, error reply and new reply, got %d messages", n)
	}
}

func TestWithSystemPrompt(t *testing.T) {
	own := []domain.ChatMessage{{Role: domain.RoleSystem, Content: "mine"}, {Role: domain.RoleUser, Content: "hi"}}
	if got := WithSystemPrompt(own, "other"); len(got) != 2 || got[0].Content != "mine" {
		t.Errorf("Expected an existing system message to be kept, got %+v", got)
	}

	plain := []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}}
	got := WithSystemPrompt(plain, "")
	if len(got) != 2 || got[0].Content != DefaultSystemPrompt || len(plain) != 1 {
		t.Errorf("Expected the default prompt prepended without touching the input, got %+v", got)
	}
}

func TestConversationEdits(t *testing.T) {
	s := newTestStore(t)
	tu := New(s, &fakeBackend{tokens: []string{"ok"}}, Options{})
	ctx := context.Background()
	tu.Send(ctx, "first", nil)

	if res := tu.Edit(ctx, 0, "edited"); res != domain.Updated {
		t.Errorf("Expected Updated, got %v", res)
	}
	if res := tu.Delete(ctx, 1); res != domain.Updated {
		t.Errorf("Expected Updated, got %v", res)
	}
	if msgs := s.ChatMessages(); len(msgs) != 1 || msgs[0].Content != "edited" {
		t.Errorf("Unexpected conversation %+v", msgs)
	}
	tu.Clear(ctx)
	if n := len(s.ChatMessages()); n != 0 {
		t.Errorf("Expected an empty conversation, got %d", n)
	}
}

func TestConversationStats(t *testing.T) {
	msgs := []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "How do 80C deductions work?"},
		{Role: domain.RoleAssistant, Content: "They reduce taxable income."},
		{Role: domain.RoleUser, Content: "And TDS on salary?"},
	}
	st := ConversationStats(msgs)
	if st.TotalMessages != 3 || st.UserMessages != 2 || st.AssistantMessages != 1 || st.TotalWords != 13 {
		t.Errorf("Unexpected counts %+v", st)
	}
	want := []string{"Section 80C", "Deductions", "Salary", "TDS"}
	if len(st.Topics) != len(want) {
		t.Fatalf("Expected topics %v, got %v", want, st.Topics)
	}
	for i := range want {
		if st.Topics[i] != want[i] {
			t.Errorf("Topic %d: expected %q, got %q", i, want[i], st.Topics[i])
		}
	}
}
