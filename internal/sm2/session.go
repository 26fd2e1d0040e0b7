package sm2

import (
	"context"
	"sync"

	"github.com/conorfennell/taxtutor/internal/domain"
)

// SessionStore is what a study session writes through: card reviews and the
// best streak.
type SessionStore interface {
	CardUpdater
	RecordStudyStreak(ctx context.Context, streak int) domain.Result
}

// SessionStats is the running tally of a study session.
type SessionStats struct {
	Correct    int     `json:"correct"`
	Incorrect  int     `json:"incorrect"`
	Total      int     `json:"total"`
	Streak     int     `json:"streak"`
	BestStreak int     `json:"bestStreak"`
	Remaining  int     `json:"remaining"`
	Accuracy   float64 `json:"accuracy"`
}

// Session walks a fixed list of cards once. A rating of Good or better
// extends the streak; anything lower resets it.
type Session struct {
	mu    sync.Mutex
	cards []domain.Flashcard
	pos   int
	stats SessionStats
}

// NewSession starts a session over cards. best is the stored best streak the
// session has to beat before it records a new one.
func NewSession(cards []domain.Flashcard, best int) *Session {
	return &Session{
		cards: append([]domain.Flashcard(nil), cards...),
		stats: SessionStats{BestStreak: max(best, 0)},
	}
}

// Current returns the card awaiting a rating.
func (s *Session) Current() (domain.Flashcard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.cards) {
		return domain.Flashcard{}, false
	}
	return s.cards[s.pos], true
}

// Done reports whether every card has been rated or skipped.
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos >= len(s.cards)
}

// Skip moves past the current card without rating it. It reports false when
// the session is already done.
func (s *Session) Skip() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.cards) {
		return false
	}
	s.pos++
	return true
}

func (s *Session) Stats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statsLocked()
}

func (s *Session) statsLocked() SessionStats {
	st := s.stats
	st.Remaining = len(s.cards) - s.pos
	if st.Total > 0 {
		st.Accuracy = float64(st.Correct) / float64(st.Total)
	}
	return st
}

// Rate reviews the current card with q through e and advances. A new best
// streak is written to st as soon as it is reached. The result is NotFound
// when the session is done or the card has been deleted since the session
// started; a deleted card is skipped and not counted.
func (s *Session) Rate(ctx context.Context, e *Engine, st SessionStore, q Quality) (Schedule, domain.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.cards) {
		return Schedule{}, domain.NotFound
	}
	q = ClampQuality(q)
	card := s.cards[s.pos]
	s.pos++

	next, res := e.Review(ctx, st, domain.ByID(card.ID), q)
	if res != domain.Updated {
		return next, res
	}

	s.stats.Total++
	if q.Passed() {
		s.stats.Correct++
		s.stats.Streak++
		if s.stats.Streak > s.stats.BestStreak {
			s.stats.BestStreak = s.stats.Streak
			st.RecordStudyStreak(ctx, s.stats.Streak)
		}
	} else {
		s.stats.Incorrect++
		s.stats.Streak = 0
	}
	return next, res
}
