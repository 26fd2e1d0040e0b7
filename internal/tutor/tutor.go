// Package tutor runs the chat conversation: it records turns in the store and
// relays them to the language model.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/llm"
	"github.com/conorfennell/taxtutor/internal/logger"
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrNothingToRetry = errors.New("no user message to retry")
)

// Backend produces a streamed assistant reply.
type Backend interface {
	Stream(ctx context.Context, messages []domain.ChatMessage, onToken func(token string)) (string, error)
}

// ChatStore is the part of the state store the tutor writes to.
type ChatStore interface {
	ChatMessages() []domain.ChatMessage
	AppendChatMessage(ctx context.Context, m domain.ChatMessage) domain.Result
	EditChatMessage(ctx context.Context, index int, content string) domain.Result
	RemoveChatMessages(ctx context.Context, indices ...int) domain.Result
	ReplaceSnapshot(ctx context.Context, p domain.SnapshotPatch) domain.Result
}

type Options struct {
	SystemPrompt string
	Logger       *logger.Logger
}

type Tutor struct {
	store   ChatStore
	backend Backend
	prompt  string
	log     *logger.Logger
}

func New(store ChatStore, backend Backend, opts Options) *Tutor {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	prompt := strings.TrimSpace(opts.SystemPrompt)
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	return &Tutor{
		store:   store,
		backend: backend,
		prompt:  prompt,
		log:     opts.Logger.With("component", "tutor"),
	}
}

// Send records text as a user turn and then exactly one assistant turn: the
// full reply, or a readable error message when the backend fails. The
// backend error, if any, is returned alongside the recorded message.
func (t *Tutor) Send(ctx context.Context, text string, onToken func(string)) (domain.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ChatMessage{}, ErrEmptyMessage
	}
	t.store.AppendChatMessage(ctx, domain.ChatMessage{Role: domain.RoleUser, Content: text})
	return t.respond(ctx, t.store.ChatMessages(), onToken)
}

// Retry asks again for a reply to the most recent user turn. Later turns
// stay in the conversation but are not sent to the model.
func (t *Tutor) Retry(ctx context.Context, onToken func(string)) (domain.ChatMessage, error) {
	history := t.store.ChatMessages()
	last := lastUserIndex(history)
	if last < 0 {
		return domain.ChatMessage{}, ErrNothingToRetry
	}
	return t.respond(ctx, history[:last+1], onToken)
}

func (t *Tutor) respond(ctx context.Context, history []domain.ChatMessage, onToken func(string)) (domain.ChatMessage, error) {
	reply, err := t.backend.Stream(ctx, WithSystemPrompt(history, t.prompt), onToken)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = llm.ErrEmptyCompletion
	}

	msg := domain.ChatMessage{Role: domain.RoleAssistant, Content: reply}
	if err != nil {
		t.log.Warn("tutor reply failed", "error", err)
		msg.Content = FormatError(err)
	}
	// A cancelled request still gets its turn recorded, so use a context that outlives it.
	t.store.AppendChatMessage(context.WithoutCancel(ctx), msg)
	return msg, err
}

// FormatError renders a backend failure as an assistant message.
func FormatError(err error) string {
	var herr *llm.HTTPError
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		return "Connection error\n\nThe tutor is not configured: no API key is set for the language model.\n\n" +
			"What you can do:\n- Set GROQ_API_KEY (or TAXTUTOR_LLM__API_KEY) and restart\n\n" +
			fmt.Sprintf("Error details: %v", err)
	case errors.As(err, &herr), errors.Is(err, context.DeadlineExceeded):
		return "Connection error\n\nI'm having trouble reaching the AI service. This could be due to:\n" +
			"- Network connectivity issues\n- Server maintenance\n- High demand\n\n" +
			"What you can do:\n- Check your connection\n- Try again in a few moments\n\n" +
			fmt.Sprintf("Error details: %v", err)
	default:
		return "Unexpected error\n\nSomething went wrong while preparing the answer.\n\n" +
			"What you can do:\n- Try again in a few moments\n\n" +
			fmt.Sprintf("Error: %v", err)
	}
}

// Edit replaces the content of the message at index.
func (t *Tutor) Edit(ctx context.Context, index int, content string) domain.Result {
	return t.store.EditChatMessage(ctx, index, content)
}

// Delete removes the messages at the given indices.
func (t *Tutor) Delete(ctx context.Context, indices ...int) domain.Result {
	return t.store.RemoveChatMessages(ctx, indices...)
}

// Clear empties the conversation.
func (t *Tutor) Clear(ctx context.Context) domain.Result {
	return t.store.ReplaceSnapshot(ctx, domain.SnapshotPatch{ChatMessages: &[]domain.ChatMessage{}})
}

// Replace swaps the whole conversation, as done by an import.
func (t *Tutor) Replace(ctx context.Context, messages []domain.ChatMessage) domain.Result {
	return t.store.ReplaceSnapshot(ctx, domain.SnapshotPatch{ChatMessages: &messages})
}

func lastUserIndex(msgs []domain.ChatMessage) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == domain.RoleUser {
			return i
		}
	}
	return -1
}
