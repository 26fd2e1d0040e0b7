// Package store holds the application state behind a single writer. Every
// change goes through Dispatch; every accepted change is persisted as one
// JSON document.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/logger"
	"github.com/conorfennell/taxtutor/internal/sm2"
)

// Persister stores the encoded state document.
type Persister interface {
	// Load returns nil, nil when nothing has been saved yet.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, doc []byte) error
}

type Options struct {
	Persister Persister
	Seed      domain.Snapshot
	Clock     func() time.Time
	Logger    *logger.Logger
}

type Store struct {
	mu         sync.RWMutex
	state      domain.Snapshot
	persister  Persister
	now        func() time.Time
	log        *logger.Logger
	persistErr error
}

var _ sm2.SessionStore = (*Store)(nil)

// New rehydrates the store from opts.Persister. A missing, unreadable or
// unsupported document leaves the store on the seed state.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Persister == nil {
		return nil, errors.New("store: persister is required")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}

	s := &Store{
		persister: opts.Persister,
		now:       opts.Clock,
		log:       opts.Logger.With("component", "store"),
	}

	seed := opts.Seed.Clone()
	if err := migrate(&seed, CurrentSchemaVersion); err != nil {
		return nil, err
	}
	s.state = seed

	doc, err := opts.Persister.Load(ctx)
	switch {
	case err != nil:
		s.log.Warn("failed to load state, using defaults", "error", err)
	case doc == nil:
		s.log.Debug("no saved state, using defaults")
	default:
		restored, err := hydrate(doc, seed)
		if err != nil {
			s.log.Warn("discarding saved state, using defaults", "error", err)
			break
		}
		s.state = restored
	}
	return s, nil
}

// Dispatch applies one action. Updated results are persisted; a persistence
// failure is logged and reported by PersistErr but does not undo the change.
func (s *Store) Dispatch(ctx context.Context, a Action) domain.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := a.apply(&s.state, s.now())
	if res != domain.Updated {
		return res
	}
	s.persistLocked(ctx)
	return res
}

func (s *Store) persistLocked(ctx context.Context) {
	doc, err := json.Marshal(s.state)
	if err == nil {
		err = s.persister.Save(ctx, doc)
	}
	if err != nil {
		s.persistErr = fmt.Errorf("failed to persist state: %w", err)
		s.log.Error("failed to persist state", "error", err)
		return
	}
	s.persistErr = nil
}

// PersistErr returns the error of the most recent save, or nil.
func (s *Store) PersistErr() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.persistErr
}

// Snapshot returns a deep copy of the whole state.
func (s *Store) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

func (s *Store) Flashcards() []domain.Flashcard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Flashcards)
}

// Flashcard returns the first card matching key.
func (s *Store) Flashcard(key domain.CardKey) (domain.Flashcard, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := findCard(s.state.Flashcards, key); i >= 0 {
		return s.state.Flashcards[i], true
	}
	return domain.Flashcard{}, false
}

func (s *Store) ChatMessages() []domain.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.ChatMessages)
}

func (s *Store) AttemptLogs() []domain.AttemptLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone().AttemptLogs
}

func (s *Store) Progress() map[string]domain.ProgressByTopic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.state.Progress)
}

func (s *Store) CurrentView() domain.View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentTab
}

func (s *Store) DeckSources() []domain.DeckSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone().DeckSources
}

func (s *Store) Questions() []domain.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone().Questions
}

func (s *Store) Cases() []domain.CaseScenario {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone().Cases
}

// BestStudyStreak returns the longest passing run recorded by a study session.
func (s *Store) BestStudyStreak() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.BestStudyStreak
}

func (s *Store) Lessons() []domain.Lesson {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone().Lessons
}

// DueFlashcards returns the cards due at now, in deck order.
func (s *Store) DueFlashcards(now time.Time) []domain.Flashcard {
	return sm2.Partition(s.Flashcards(), sm2.SetDue, now)
}

// StudyCards returns the filtered cards of a study set.
func (s *Store) StudyCards(set sm2.StudySet, f sm2.Filter, now time.Time) []domain.Flashcard {
	return sm2.StudyCards(s.Flashcards(), set, f, now)
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) SetActiveView(ctx context.Context, v domain.View) domain.Result {
	return s.Dispatch(ctx, SetActiveView{View: v})
}

func (s *Store) AppendChatMessage(ctx context.Context, m domain.ChatMessage) domain.Result {
	return s.Dispatch(ctx, AppendChatMessage{Message: m})
}

func (s *Store) EditChatMessage(ctx context.Context, index int, content string) domain.Result {
	return s.Dispatch(ctx, EditChatMessage{Index: index, Content: content})
}

func (s *Store) RemoveChatMessages(ctx context.Context, indices ...int) domain.Result {
	return s.Dispatch(ctx, RemoveChatMessages{Indices: indices})
}

func (s *Store) AppendAttemptLog(ctx context.Context, log domain.AttemptLog) domain.Result {
	return s.Dispatch(ctx, AppendAttemptLog{Log: log})
}

func (s *Store) UpdateFlashcard(ctx context.Context, key domain.CardKey, p domain.FlashcardPatch) domain.Result {
	return s.Dispatch(ctx, UpdateFlashcard{Key: key, Patch: p})
}

// ModifyFlashcard is the read-compute-write primitive used by the scheduler.
func (s *Store) ModifyFlashcard(ctx context.Context, key domain.CardKey, fn func(domain.Flashcard) domain.FlashcardPatch) domain.Result {
	return s.Dispatch(ctx, ModifyFlashcard{Key: key, Fn: fn})
}

// AddFlashcard appends card and returns it as stored, with its id assigned.
func (s *Store) AddFlashcard(ctx context.Context, card domain.Flashcard) (domain.Flashcard, domain.Result) {
	card = prepareCard(card, s.now())
	return card, s.Dispatch(ctx, AddFlashcard{Card: card})
}

func (s *Store) DeleteFlashcard(ctx context.Context, key domain.CardKey) domain.Result {
	return s.Dispatch(ctx, DeleteFlashcard{Key: key})
}

func (s *Store) IncrementTopicProgress(ctx context.Context, topic string, correct bool, timeSec int) domain.Result {
	return s.Dispatch(ctx, IncrementTopicProgress{Topic: topic, Correct: correct, TimeSec: timeSec})
}

func (s *Store) ReplaceSnapshot(ctx context.Context, p domain.SnapshotPatch) domain.Result {
	return s.Dispatch(ctx, ReplaceSnapshot{Patch: p})
}

func (s *Store) RecordStudyStreak(ctx context.Context, streak int) domain.Result {
	return s.Dispatch(ctx, RecordStudyStreak{Streak: streak})
}

// AddDeckSource registers src and returns it with its id assigned.
func (s *Store) AddDeckSource(ctx context.Context, src domain.DeckSource) (domain.DeckSource, domain.Result) {
	if src.ID == "" {
		src.ID = domain.NewID()
	}
	return src, s.Dispatch(ctx, AddDeckSource{Source: src})
}

func (s *Store) RemoveDeckSource(ctx context.Context, id string) domain.Result {
	return s.Dispatch(ctx, RemoveDeckSource{ID: id})
}

func (s *Store) MarkDeckSourceScanned(ctx context.Context, id string, at time.Time) domain.Result {
	return s.Dispatch(ctx, MarkDeckSourceScanned{ID: id, At: at})
}
