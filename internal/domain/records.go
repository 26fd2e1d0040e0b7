package domain

import "time"

// AttemptLog records one completed quiz, case or practice session.
type AttemptLog struct {
	Timestamp  time.Time       `json:"ts"`
	Topic      string          `json:"topic" validate:"required"`
	Score      int             `json:"score" validate:"gte=0"`
	Total      int             `json:"total" validate:"gte=0"`
	ElapsedSec int             `json:"elapsedSec" validate:"gte=0"`
	Answers    []AttemptAnswer `json:"answers" validate:"dive"`
}

// AttemptAnswer is the outcome of a single question within an attempt.
type AttemptAnswer struct {
	Question string `json:"q"`
	Type     string `json:"type"`
	Answer   string `json:"your"`
	Correct  bool   `json:"correct"`
}

// ProgressByTopic aggregates attempts for one topic.
type ProgressByTopic struct {
	Attempts int `json:"attempts"`
	Correct  int `json:"correct"`
	TimeSec  int `json:"timeSec"`
}

// Accuracy returns the rounded percentage of correct attempts.
func (p ProgressByTopic) Accuracy() int {
	if p.Attempts == 0 {
		return 0
	}
	return Percent(p.Correct, p.Attempts)
}

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one turn of the tutor conversation.
type ChatMessage struct {
	Role    Role   `json:"role" validate:"oneof=user assistant system"`
	Content string `json:"content"`
}

// Deck source types.
const (
	SourceLocal = "local"
	SourceGit   = "git"
)

// DeckSource is a directory or git repository of markdown decks.
type DeckSource struct {
	ID          string     `json:"id"`
	Path        string     `json:"path" validate:"required"`
	Type        string     `json:"type" validate:"oneof=local git"`
	LastScanned *time.Time `json:"lastScanned,omitempty"`
}

// View names the active screen of the application.
type View string

const (
	ViewDashboard  View = "Dashboard"
	ViewLearn      View = "Learn"
	ViewPractice   View = "Practice"
	ViewCaseLab    View = "CaseLab"
	ViewFlashcards View = "Flashcards"
	ViewChat       View = "Chat"
	ViewProgress   View = "Progress"
	ViewAdmin      View = "Admin"
)

// IsValid reports whether v names a known screen.
func (v View) IsValid() bool {
	switch v {
	case ViewDashboard, ViewLearn, ViewPractice, ViewCaseLab, ViewFlashcards, ViewChat, ViewProgress, ViewAdmin:
		return true
	}
	return false
}

// Percent returns round(part/whole*100), or 0 when whole is zero.
func Percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int((float64(part)/float64(whole))*100 + 0.5)
}
