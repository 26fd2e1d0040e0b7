// Package sm2 implements the simplified SM-2 spaced repetition policy used to
// schedule flashcard reviews.
package sm2

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/conorfennell/taxtutor/internal/domain"
)

// Quality is the learner's self-assessed recall on a 1-5 scale.
type Quality int

const (
	Again   Quality = 1 // Total failure to recall.
	Hard    Quality = 2
	Good    Quality = 3 // Lowest passing grade.
	Easy    Quality = 4
	Perfect Quality = 5
)

var qualityNames = [...]string{Again: "Again", Hard: "Hard", Good: "Good", Easy: "Easy", Perfect: "Perfect"}

// IsValid reports whether q is within 1..5.
func (q Quality) IsValid() bool {
	return q >= Again && q <= Perfect
}

// Passed reports whether q is a passing grade.
func (q Quality) Passed() bool {
	return q >= Good
}

func (q Quality) String() string {
	if q.IsValid() {
		return qualityNames[q]
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// ClampQuality maps any rating into 1..5. Callers outside the trusted
// boundary should reject invalid ratings instead.
func ClampQuality(q Quality) Quality {
	switch {
	case q < Again:
		return Again
	case q > Perfect:
		return Perfect
	default:
		return q
	}
}

// ParseQuality accepts a number (1-5) or a name such as "good".
func ParseQuality(s string) (Quality, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		q := Quality(n)
		if !q.IsValid() {
			return 0, fmt.Errorf("quality %d out of range 1-5", n)
		}
		return q, nil
	}
	for q := Again; q <= Perfect; q++ {
		if strings.EqualFold(qualityNames[q], s) {
			return q, nil
		}
	}
	return 0, fmt.Errorf("unknown quality %q", s)
}

// Schedule is the scheduling state produced by a review.
type Schedule struct {
	Easiness float64
	Interval int
	Reps     int
	Due      time.Time
}

// Patch converts the schedule into a flashcard update.
func (s Schedule) Patch() domain.FlashcardPatch {
	easiness, interval, reps, due := s.Easiness, s.Interval, s.Reps, s.Due
	return domain.FlashcardPatch{
		Easiness: &easiness,
		Interval: &interval,
		Reps:     &reps,
		Due:      &due,
	}
}

// NextEasiness applies the SM-2 ease adjustment, floored at domain.MinEasiness.
func NextEasiness(easiness float64, q Quality) float64 {
	d := float64(5 - q)
	return math.Max(domain.MinEasiness, easiness+(0.1-d*(0.08+d*0.02)))
}

// NextDueDate returns the moment a card with the given interval becomes due again.
func NextDueDate(now time.Time, intervalDays int) time.Time {
	return now.AddDate(0, 0, intervalDays)
}

// Reschedule computes the next schedule of card after a review rated q at now.
// The interval growth uses the card's easiness before this review.
func Reschedule(card domain.Flashcard, q Quality, now time.Time) Schedule {
	q = ClampQuality(q)

	reps := card.Reps
	interval := card.Interval
	if !q.Passed() {
		reps = 0
		interval = 1
	} else {
		reps++
		switch reps {
		case 1:
			interval = 1
		case 2:
			interval = 6
		default:
			interval = int(math.Round(float64(card.Interval) * card.Easiness))
		}
	}
	if interval < 1 {
		interval = 1
	}

	return Schedule{
		Easiness: NextEasiness(card.Easiness, q),
		Interval: interval,
		Reps:     reps,
		Due:      NextDueDate(now, interval),
	}
}

// CardUpdater is the flashcard-update primitive of the state store. fn sees
// the current card and returns the fields to merge, atomically.
type CardUpdater interface {
	ModifyFlashcard(ctx context.Context, key domain.CardKey, fn func(domain.Flashcard) domain.FlashcardPatch) domain.Result
}

// Engine applies reviews to stored flashcards.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an engine using clock for "now"; nil means time.Now.
func NewEngine(clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{now: clock}
}

// Review reschedules the card identified by key and writes the result back
// through u. The returned Result is domain.NotFound when no card matched.
func (e *Engine) Review(ctx context.Context, u CardUpdater, key domain.CardKey, q Quality) (Schedule, domain.Result) {
	now := e.now()
	var next Schedule
	res := u.ModifyFlashcard(ctx, key, func(card domain.Flashcard) domain.FlashcardPatch {
		next = Reschedule(card, q, now)
		return next.Patch()
	})
	return next, res
}

// Preview returns the schedule each rating would produce, without storing anything.
func (e *Engine) Preview(card domain.Flashcard) map[Quality]Schedule {
	now := e.now()
	out := make(map[Quality]Schedule, 5)
	for q := Again; q <= Perfect; q++ {
		out[q] = Reschedule(card, q, now)
	}
	return out
}
