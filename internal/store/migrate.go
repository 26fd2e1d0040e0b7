package store

import (
	"encoding/json"
	"fmt"

	"github.com/conorfennell/taxtutor/internal/domain"
)

// CurrentSchemaVersion is the version written by this build. Version 2 added
// bestStudyStreak.
const CurrentSchemaVersion = 2

// hydrate decodes a persisted document over seed. Each top-level field
// present in doc replaces the seed's field wholesale; absent fields keep the
// seed value. The result is migrated to CurrentSchemaVersion.
func hydrate(doc []byte, seed domain.Snapshot) (domain.Snapshot, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to decode state document: %w", err)
	}
	var decoded domain.Snapshot
	if err := json.Unmarshal(doc, &decoded); err != nil {
		return domain.Snapshot{}, fmt.Errorf("failed to decode state document: %w", err)
	}

	out := seed.Clone()
	for key := range fields {
		switch key {
		case "lessons":
			out.Lessons = decoded.Lessons
		case "questions":
			out.Questions = decoded.Questions
		case "cases":
			out.Cases = decoded.Cases
		case "flashcards":
			out.Flashcards = decoded.Flashcards
		case "attemptLogs":
			out.AttemptLogs = decoded.AttemptLogs
		case "chatMessages":
			out.ChatMessages = decoded.ChatMessages
		case "progress":
			out.Progress = decoded.Progress
		case "currentTab":
			out.CurrentTab = decoded.CurrentTab
		case "deckSources":
			out.DeckSources = decoded.DeckSources
		case "bestStudyStreak":
			out.BestStudyStreak = decoded.BestStudyStreak
		}
	}

	version := 0
	if _, ok := fields["schemaVersion"]; ok {
		version = decoded.SchemaVersion
	}
	if err := migrate(&out, version); err != nil {
		return domain.Snapshot{}, err
	}
	return out, nil
}

func migrate(s *domain.Snapshot, from int) error {
	if from > CurrentSchemaVersion {
		return fmt.Errorf("state schema version %d is newer than supported version %d", from, CurrentSchemaVersion)
	}
	normalizeCards(s)
	if s.BestStudyStreak < 0 {
		s.BestStudyStreak = 0
	}
	s.SchemaVersion = CurrentSchemaVersion
	if s.Progress == nil {
		s.Progress = make(map[string]domain.ProgressByTopic)
	}
	if s.CurrentTab == "" {
		s.CurrentTab = domain.ViewChat
	}
	return nil
}

// normalizeCards repairs every card on load, including legacy cards without
// surrogate ids.
func normalizeCards(s *domain.Snapshot) {
	for i := range s.Flashcards {
		s.Flashcards[i] = normalizeCard(s.Flashcards[i])
	}
}
