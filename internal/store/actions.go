package store

import (
	"slices"
	"strings"
	"time"

	"github.com/conorfennell/taxtutor/internal/domain"
)

// Action is a state transition accepted by Store.Dispatch. The set is closed:
// only the types in this file implement it.
type Action interface {
	apply(s *domain.Snapshot, now time.Time) domain.Result
}

// SetActiveView moves the UI cursor. Any view name is accepted.
type SetActiveView struct {
	View domain.View
}

func (a SetActiveView) apply(s *domain.Snapshot, _ time.Time) domain.Result {
	s.CurrentTab = a.View
	return domain.Updated
}

// AppendChatMessage adds a message to the end of the conversation.
type AppendChatMessage struct {
	Message domain.ChatMessage
}

func (a AppendChatMessage) apply(s *domain.Snapshot, _ time.Time) domain.Result {
	s.ChatMessages = append(s.ChatMessages, a.Message)
	return domain.Updated
}

// EditChatMessage replaces the content of the message at Index.
type EditChatMessage struct {
	Index   int
	Content string
}

func (a EditChatMessage) apply(s *domain.Snapshot, _ time.Time) domain.Result {
	if a.Index < 0 || a.Index >= len(s.ChatMessages) {
		return domain.NotFound
	}
	s.ChatMessages[a.Index].Content = a.Content
	return domain.Updated
}

// RemoveChatMessages deletes the messages at the given indices. Every index
// must be in range, otherwise nothing is removed.
type RemoveChatMessages struct {
	Indices []int
}

func (a RemoveChatMessages) apply(s *domain.Snapshot, _ time.Time) domain.Result {
	if len(a.Indices) == 0 {
		return domain.NotFound
	}
	drop := make(map[int]bool, len(a.Indices))
	for _, i := range a.Indices {
		if i < 0 || i >= len(s.ChatMessages) {
			return domain.NotFound
		}
		drop[i] = true
	}
	kept := make([]domain.ChatMessage, 0, len(s.ChatMessages)-len(drop))
	for i, m := range s.ChatMessages {
		if !drop[i] {
			kept = append(kept, m)
		}
	}
	s.ChatMessages = kept
	return domain.Updated
}

// AppendAttemptLog records a finished attempt. Logs are never modified afterwards.
type AppendAttemptLog struct {
	Log domain.AttemptLog
}

func (a AppendAttemptLog) apply(s *domain.Snapshot, _ time.Time) domain.Result {
	log := a.Log
	log.Answers = slices.Clone(a.Log.Answers)
	s.AttemptLogs = append(s.AttemptLogs, log)
	return domain.Updated
}

// UpdateFlashcard merges Patch into the first card matching Key.
type UpdateFlashcard struct {
	Key   domain.CardKey
	Patch domain.FlashcardPatch
}

func (a UpdateFlashcard) apply(s *domain.Snapshot, _ time.Time) domain.Result {
	i := findCard(s.Flashcards, a.Key)
	if i < 0 {
		return domain.NotFound
	}
	a.Patch.Apply(&s.Flashcards[i])
	return domain.Updated
}

// ModifyFlashcard computes a patch from the current value of the first card
// matching Key and merges it, with no other write in between.
type ModifyFlashcard struct {
	Key domain.CardKey
	Fn  func(domain.Flashcard) domain.FlashcardPatch
}

func (a ModifyFlashcard) apply(s *domain.Snapshot, _ time.Time) domain.Result {
	i := findCard(s.Flashcards, a.Key)
	if i < 0 || a.Fn == nil {
		return domain.NotFound
	}
	a.Fn(s.Flashcards[i]).Apply(&s.Flashcards[i])
	return domain.Updated
}

// AddFlashcard appends a card. Missing identity and schedule fields are
// filled in; fronts are not deduplicated.
type AddFlashcard struct {
	Card domain.Flashcard
}

func (a AddFlashcard) apply(s *domain.Snapshot, now time.Time) domain.Result {
	s.Flashcards = append(s.Flashcards, prepareCard(a.Card, now))
	return domain.Updated
}

// DeleteFlashcard removes every card matching Key.
type DeleteFlashcard struct {
	Key domain.CardKey
}

func (a DeleteFlashcard) apply(s *domain.Snapshot, _ time.Time) domain.Result {
	n := len(s.Flashcards)
	s.Flashcards = slices.DeleteFunc(s.Flashcards, a.Key.Matches)
	if len(s.Flashcards) == n {
		return domain.NotFound
	}
	return domain.Updated
}

// IncrementTopicProgress counts one attempt against Topic. A negative TimeSec
// still counts the attempt but adds no time, so the aggregate never shrinks.
type IncrementTopicProgress struct {
	Topic   string
	Correct bool
	TimeSec int
}

func (a IncrementTopicProgress) apply(s *domain.Snapshot, _ time.Time) domain.Result {
	if s.Progress == nil {
		s.Progress = make(map[string]domain.ProgressByTopic)
	}
	p := s.Progress[a.Topic]
	p.Attempts++
	if a.Correct {
		p.Correct++
	}
	if a.TimeSec > 0 {
		p.TimeSec += a.TimeSec
	}
	s.Progress[a.Topic] = p
	return domain.Updated
}

// ReplaceSnapshot overwrites whole top-level collections. It is used for
// imports and bulk resets.
type ReplaceSnapshot struct {
	Patch domain.SnapshotPatch
}

func (a ReplaceSnapshot) apply(s *domain.Snapshot, now time.Time) domain.Result {
	a.Patch.Apply(s)
	if a.Patch.Flashcards != nil {
		for i := range s.Flashcards {
			s.Flashcards[i] = prepareCard(s.Flashcards[i], now)
		}
	}
	if s.BestStudyStreak < 0 {
		s.BestStudyStreak = 0
	}
	return domain.Updated
}

// RecordStudyStreak raises the best study streak to Streak. A streak that
// does not beat the stored best is NotFound and nothing is persisted.
type RecordStudyStreak struct {
	Streak int
}

func (a RecordStudyStreak) apply(s *domain.Snapshot, _ time.Time) domain.Result {
	if a.Streak <= s.BestStudyStreak {
		return domain.NotFound
	}
	s.BestStudyStreak = a.Streak
	return domain.Updated
}

// AddDeckSource registers a deck source. An empty ID is assigned.
type AddDeckSource struct {
	Source domain.DeckSource
}

func (a AddDeckSource) apply(s *domain.Snapshot, _ time.Time) domain.Result {
	src := a.Source
	if src.ID == "" {
		src.ID = domain.NewID()
	}
	if src.LastScanned != nil {
		t := *src.LastScanned
		src.LastScanned = &t
	}
	s.DeckSources = append(s.DeckSources, src)
	return domain.Updated
}

// RemoveDeckSource unregisters a source. Cards imported from it are kept
// as ordinary cards with their schedule.
type RemoveDeckSource struct {
	ID string
}

func (a RemoveDeckSource) apply(s *domain.Snapshot, _ time.Time) domain.Result {
	n := len(s.DeckSources)
	s.DeckSources = slices.DeleteFunc(s.DeckSources, func(src domain.DeckSource) bool { return src.ID == a.ID })
	if len(s.DeckSources) == n {
		return domain.NotFound
	}
	for i := range s.Flashcards {
		if s.Flashcards[i].SourceID == a.ID {
			s.Flashcards[i].SourceID = ""
			s.Flashcards[i].SourceKey = ""
		}
	}
	return domain.Updated
}

// MarkDeckSourceScanned stamps the time a source was last synchronised.
type MarkDeckSourceScanned struct {
	ID string
	At time.Time
}

func (a MarkDeckSourceScanned) apply(s *domain.Snapshot, _ time.Time) domain.Result {
	for i := range s.DeckSources {
		if s.DeckSources[i].ID == a.ID {
			at := a.At
			s.DeckSources[i].LastScanned = &at
			return domain.Updated
		}
	}
	return domain.NotFound
}

func findCard(cards []domain.Flashcard, key domain.CardKey) int {
	return slices.IndexFunc(cards, key.Matches)
}

func prepareCard(c domain.Flashcard, now time.Time) domain.Flashcard {
	if c.Due.IsZero() {
		c.Due = now
	}
	return normalizeCard(c)
}

// normalizeCard assigns the defaults a stored card must carry and clamps its
// scheduling fields.
func normalizeCard(c domain.Flashcard) domain.Flashcard {
	if c.ID == "" {
		c.ID = domain.NewID()
	}
	if strings.TrimSpace(c.Tag) == "" {
		c.Tag = domain.DefaultTag
	}
	if c.Easiness == 0 {
		c.Easiness = domain.DefaultEasiness
	}
	c.Normalize()
	return c
}
