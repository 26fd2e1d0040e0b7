// Package seed provides the built-in lessons, questions, cases and starter
// flashcards used when no saved state exists.
package seed

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/conorfennell/taxtutor/internal/domain"
)

//go:embed seed.yaml
var content []byte

// cardNamespace derives stable ids for starter cards, so a card keeps its id
// across restarts even before the state is first saved.
var cardNamespace = uuid.MustParse("5f0c2d1e-8f6a-4b7e-9d3c-2a1b0c9e8d7f")

type document struct {
	Lessons    []domain.Lesson       `yaml:"lessons"`
	Questions  []domain.Question     `yaml:"questions"`
	Cases      []domain.CaseScenario `yaml:"cases"`
	Flashcards []struct {
		Front string `yaml:"front"`
		Back  string `yaml:"back"`
		Tag   string `yaml:"tag"`
	} `yaml:"flashcards"`
}

// Parse decodes seed content from YAML. Starter cards are due at now.
func Parse(raw []byte, now time.Time) (domain.Snapshot, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to parse seed content: %w", err)
	}
	for _, q := range doc.Questions {
		if err := domain.Validate(q); err != nil {
			return domain.Snapshot{}, fmt.Errorf("invalid seed question %q: %w", q.Q, err)
		}
	}

	cards := make([]domain.Flashcard, 0, len(doc.Flashcards))
	for _, fc := range doc.Flashcards {
		card, err := domain.NewFlashcard(fc.Front, fc.Back, fc.Tag, now)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("invalid seed flashcard %q: %w", fc.Front, err)
		}
		card.ID = uuid.NewSHA1(cardNamespace, []byte(fc.Front)).String()
		cards = append(cards, card)
	}

	return domain.Snapshot{
		Lessons:      doc.Lessons,
		Questions:    doc.Questions,
		Cases:        doc.Cases,
		Flashcards:   cards,
		AttemptLogs:  []domain.AttemptLog{},
		ChatMessages: []domain.ChatMessage{},
		Progress:     map[string]domain.ProgressByTopic{},
		CurrentTab:   domain.ViewChat,
		DeckSources:  []domain.DeckSource{},
	}, nil
}

// Snapshot returns the built-in default state.
func Snapshot(now time.Time) domain.Snapshot {
	s, err := Parse(content, now)
	if err != nil {
		// The embedded content is fixed at build time and covered by tests.
		panic(err)
	}
	return s
}
