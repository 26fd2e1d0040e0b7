package tutor

import (
	"strings"

	"github.com/conorfennell/taxtutor/internal/domain"
)

// Stats summarises a conversation.
type Stats struct {
	TotalMessages     int      `json:"totalMessages"`
	UserMessages      int      `json:"userMessages"`
	AssistantMessages int      `json:"assistantMessages"`
	TotalWords        int      `json:"totalWords"`
	Topics            []string `json:"topicsDiscussed"`
}

// topicKeywords maps a lower-case keyword found in a user turn to a topic.
var topicKeywords = []struct{ keyword, topic string }{
	{"80c", "Section 80C"},
	{"deduction", "Deductions"},
	{"salary", "Salary"},
	{"house property", "House Property"},
	{"capital gain", "Capital Gains"},
	{"tds", "TDS"},
	{"advance tax", "Advance Tax"},
	{"itr", "Filing"},
	{"slab", "Tax Slabs"},
	{"assessment year", "Basic Concepts"},
	{"previous year", "Basic Concepts"},
}

// ConversationStats counts turns and words and lists the topics raised by
// the learner, in first-seen order.
func ConversationStats(msgs []domain.ChatMessage) Stats {
	st := Stats{TotalMessages: len(msgs), Topics: []string{}}
	seen := make(map[string]bool)
	for _, m := range msgs {
		st.TotalWords += len(strings.Fields(m.Content))
		switch m.Role {
		case domain.RoleUser:
			st.UserMessages++
			content := strings.ToLower(m.Content)
			for _, kw := range topicKeywords {
				if strings.Contains(content, kw.keyword) && !seen[kw.topic] {
					seen[kw.topic] = true
					st.Topics = append(st.Topics, kw.topic)
				}
			}
		case domain.RoleAssistant:
			st.AssistantMessages++
		}
	}
	return st
}
