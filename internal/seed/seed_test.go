package seed

import (
	"testing"
	"time"

	"github.com/conorfennell/taxtutor/internal/domain"
)

func TestSnapshot(t *testing.T) {
	now := time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC)
	s := Snapshot(now)

	if len(s.Lessons) != 2 || len(s.Questions) != 4 || len(s.Cases) != 1 || len(s.Flashcards) != 3 {
		t.Fatalf("Unexpected seed sizes: %d lessons, %d questions, %d cases, %d cards",
			len(s.Lessons), len(s.Questions), len(s.Cases), len(s.Flashcards))
	}
	if s.CurrentTab != domain.ViewChat {
		t.Errorf("Expected default view Chat, got %q", s.CurrentTab)
	}

	lesson := s.Lessons[0]
	if lesson.ContentBlocks[1].Type != "bullets" || len(lesson.ContentBlocks[1].Items) != 3 {
		t.Errorf("Expected bullet block with 3 items, got %+v", lesson.ContentBlocks[1])
	}

	c := s.Cases[0]
	if c.ID != "tax_planning_scenario" || len(c.Nodes[0].Options) != 4 || c.Nodes[0].Options[1].Score != 5 {
		t.Errorf("Unexpected case: %+v", c)
	}

	for _, card := range s.Flashcards {
		if card.ID == "" || !card.Due.Equal(now) || card.Easiness != domain.DefaultEasiness || card.Tag == "" {
			t.Errorf("Unexpected starter card: %+v", card)
		}
	}
}

func TestStarterCardIDsAreStable(t *testing.T) {
	a := Snapshot(time.Now())
	b := Snapshot(time.Now().Add(time.Hour))
	for i := range a.Flashcards {
		if a.Flashcards[i].ID != b.Flashcards[i].ID {
			t.Errorf("Card %d: id changed between loads", i)
		}
	}
}

func TestParseRejectsInvalidContent(t *testing.T) {
	tests := map[string]string{
		"bad yaml":     "questions: [",
		"bad question": "questions:\n  - type: essay\n    q: Why?\n",
		"blank card":   "flashcards:\n  - front: ''\n    back: x\n",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(raw), time.Now()); err == nil {
				t.Error("Expected an error")
			}
		})
	}
}
