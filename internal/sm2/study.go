package sm2

import (
	"fmt"
	"strings"
	"time"

	"github.com/conorfennell/taxtutor/internal/domain"
)

// StudySet selects which cards a study session draws from.
type StudySet string

const (
	SetDue    StudySet = "due"    // due <= now
	SetNew    StudySet = "new"    // never passed a review
	SetReview StudySet = "review" // reviewed at least once
	SetCram   StudySet = "cram"   // everything
)

// ParseStudySet validates a study set name. The empty string selects SetDue.
func ParseStudySet(s string) (StudySet, error) {
	switch set := StudySet(strings.ToLower(strings.TrimSpace(s))); set {
	case "":
		return SetDue, nil
	case SetDue, SetNew, SetReview, SetCram:
		return set, nil
	default:
		return "", fmt.Errorf("unknown study set %q", s)
	}
}

// IsDue reports whether the card is eligible for review at now.
func IsDue(card domain.Flashcard, now time.Time) bool {
	return !card.Due.After(now)
}

// IsMastered reports whether the card is considered learned.
func IsMastered(card domain.Flashcard) bool {
	return card.Easiness >= 2.5 && card.Interval >= 30
}

// Partition returns the cards belonging to set, preserving order.
func Partition(cards []domain.Flashcard, set StudySet, now time.Time) []domain.Flashcard {
	out := make([]domain.Flashcard, 0, len(cards))
	for _, c := range cards {
		var keep bool
		switch set {
		case SetDue:
			keep = IsDue(c, now)
		case SetNew:
			keep = c.Reps == 0
		case SetReview:
			keep = c.Reps > 0
		default:
			keep = true
		}
		if keep {
			out = append(out, c)
		}
	}
	return out
}

// Filter narrows a deck by free-text search and tag.
type Filter struct {
	Query string // case-insensitive substring of front, back or tag
	Tag   string // exact tag; "" or "all" matches every tag
}

// Match reports whether the card passes the filter.
func (f Filter) Match(c domain.Flashcard) bool {
	if f.Tag != "" && f.Tag != "all" && c.Tag != f.Tag {
		return false
	}
	q := strings.ToLower(f.Query)
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Front), q) ||
		strings.Contains(strings.ToLower(c.Back), q) ||
		strings.Contains(strings.ToLower(c.Tag), q)
}

// Apply returns the cards that pass the filter.
func (f Filter) Apply(cards []domain.Flashcard) []domain.Flashcard {
	out := make([]domain.Flashcard, 0, len(cards))
	for _, c := range cards {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// StudyCards filters the deck and then selects the study set.
func StudyCards(cards []domain.Flashcard, set StudySet, f Filter, now time.Time) []domain.Flashcard {
	return Partition(f.Apply(cards), set, now)
}

// Tags lists the distinct tags in first-seen order.
func Tags(cards []domain.Flashcard) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, c := range cards {
		if !seen[c.Tag] {
			seen[c.Tag] = true
			tags = append(tags, c.Tag)
		}
	}
	return tags
}

// Stats summarises a deck.
type Stats struct {
	Total       int     `json:"totalCards"`
	Due         int     `json:"dueCards"`
	New         int     `json:"newCards"`
	Mastered    int     `json:"masteredCards"`
	AvgEasiness float64 `json:"avgEasiness"`
}

// ComputeStats summarises cards at now.
func ComputeStats(cards []domain.Flashcard, now time.Time) Stats {
	var st Stats
	var sum float64
	for _, c := range cards {
		st.Total++
		sum += c.Easiness
		if IsDue(c, now) {
			st.Due++
		}
		if c.Reps == 0 {
			st.New++
		}
		if IsMastered(c) {
			st.Mastered++
		}
	}
	if st.Total > 0 {
		st.AvgEasiness = sum / float64(st.Total)
	}
	return st
}
