package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/conorfennell/taxtutor/internal/domain"
)

// ErrNoMessages is returned when an import document has no messages array.
var ErrNoMessages = errors.New("conversation import has no messages array")

// ChatExport is the downloadable conversation document.
type ChatExport struct {
	Timestamp  time.Time            `json:"timestamp"`
	Messages   []domain.ChatMessage `json:"messages"`
	ExportedBy string               `json:"exportedBy,omitempty"`
}

// ExportChat wraps the whole conversation.
func ExportChat(msgs []domain.ChatMessage, now time.Time) ChatExport {
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	return ChatExport{Timestamp: now.UTC(), Messages: msgs}
}

// ExportSelected wraps the messages at indices, in conversation order.
// Out of range indices are skipped.
func ExportSelected(msgs []domain.ChatMessage, indices []int, now time.Time) ChatExport {
	idx := slices.Clone(indices)
	slices.Sort(idx)
	idx = slices.Compact(idx)
	out := make([]domain.ChatMessage, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(msgs) {
			out = append(out, msgs[i])
		}
	}
	return ChatExport{Timestamp: now.UTC(), Messages: out, ExportedBy: "user"}
}

// ParseChatImport decodes an exported conversation and validates its messages.
func ParseChatImport(data []byte) ([]domain.ChatMessage, error) {
	var doc struct {
		Messages *[]domain.ChatMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}
	if doc.Messages == nil {
		return nil, ErrNoMessages
	}
	for i, m := range *doc.Messages {
		if err := domain.Validate(m); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}
	return *doc.Messages, nil
}

// ChatFilename names a conversation download made at now.
func ChatFilename(now time.Time, selected bool) string {
	kind := "conversation"
	if selected {
		kind = "selected-messages"
	}
	return "taxtutor-" + kind + "-" + now.UTC().Format(time.DateOnly) + ".json"
}
