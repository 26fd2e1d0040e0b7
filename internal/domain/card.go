package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scheduling defaults and bounds for a flashcard.
const (
	DefaultEasiness = 2.5
	MinEasiness     = 1.3
	DefaultInterval = 1
	DefaultTag      = "General"
)

// ErrEmptyCard is returned when a flashcard is created without a front or back.
var ErrEmptyCard = errors.New("flashcard front and back are required")

// Flashcard is a single front/back study card with its review schedule.
// ID is assigned once at creation and never changes; Front is ordinary content.
type Flashcard struct {
	ID        string    `json:"id"`
	Front     string    `json:"front" validate:"required"`
	Back      string    `json:"back" validate:"required"`
	Tag       string    `json:"tag"`
	Easiness  float64   `json:"easiness" validate:"gte=1.3"`
	Interval  int       `json:"interval" validate:"gte=1"`
	Due       time.Time `json:"due"`
	Reps      int       `json:"reps" validate:"gte=0"`
	SourceID  string    `json:"sourceId,omitempty"`
	SourceKey string    `json:"sourceKey,omitempty"`
}

// NewFlashcard builds a card with a fresh schedule that is due immediately.
func NewFlashcard(front, back, tag string, now time.Time) (Flashcard, error) {
	if strings.TrimSpace(front) == "" || strings.TrimSpace(back) == "" {
		return Flashcard{}, ErrEmptyCard
	}
	if strings.TrimSpace(tag) == "" {
		tag = DefaultTag
	}
	return Flashcard{
		ID:       NewID(),
		Front:    front,
		Back:     back,
		Tag:      tag,
		Easiness: DefaultEasiness,
		Interval: DefaultInterval,
		Due:      now,
	}, nil
}

// Duplicate returns a copy of the card under a new identity with its schedule reset.
// The copy is not linked to the card's deck source.
func (c Flashcard) Duplicate(now time.Time) Flashcard {
	return Flashcard{
		ID:       NewID(),
		Front:    c.Front + " (Copy)",
		Back:     c.Back,
		Tag:      c.Tag,
		Easiness: DefaultEasiness,
		Interval: DefaultInterval,
		Due:      now,
	}
}

// IsNew reports whether the card has no qualifying reviews.
func (c Flashcard) IsNew() bool { return c.Reps == 0 }

// Normalize enforces the scheduling invariants in place.
func (c *Flashcard) Normalize() {
	if c.Easiness < MinEasiness {
		c.Easiness = MinEasiness
	}
	if c.Interval < DefaultInterval {
		c.Interval = DefaultInterval
	}
	if c.Reps < 0 {
		c.Reps = 0
	}
}

// CardKey identifies the flashcards an update or delete applies to.
// A non-empty ID matches by surrogate identity; otherwise Front matches by
// front text, which may select several cards.
type CardKey struct {
	ID    string `json:"id,omitempty"`
	Front string `json:"front,omitempty"`
}

// ByID keys a card by its surrogate identifier.
func ByID(id string) CardKey { return CardKey{ID: id} }

// ByFront keys cards by front text.
func ByFront(front string) CardKey { return CardKey{Front: front} }

// Matches reports whether the card is selected by the key.
func (k CardKey) Matches(c Flashcard) bool {
	if k.ID != "" {
		return c.ID == k.ID
	}
	return c.Front == k.Front
}

func (k CardKey) String() string {
	if k.ID != "" {
		return "id:" + k.ID
	}
	return "front:" + k.Front
}

// FlashcardPatch carries the fields of a partial flashcard update.
// Nil fields are left untouched.
type FlashcardPatch struct {
	Front    *string    `json:"front,omitempty"`
	Back     *string    `json:"back,omitempty"`
	Tag      *string    `json:"tag,omitempty"`
	Easiness *float64   `json:"easiness,omitempty"`
	Interval *int       `json:"interval,omitempty"`
	Due      *time.Time `json:"due,omitempty"`
	Reps     *int       `json:"reps,omitempty"`
}

// Apply merges the patch into c and re-establishes the scheduling invariants.
func (p FlashcardPatch) Apply(c *Flashcard) {
	if p.Front != nil {
		c.Front = *p.Front
	}
	if p.Back != nil {
		c.Back = *p.Back
	}
	if p.Tag != nil {
		c.Tag = *p.Tag
	}
	if p.Easiness != nil {
		c.Easiness = *p.Easiness
	}
	if p.Interval != nil {
		c.Interval = *p.Interval
	}
	if p.Due != nil {
		c.Due = *p.Due
	}
	if p.Reps != nil {
		c.Reps = *p.Reps
	}
	c.Normalize()
}

// NewID returns a fresh opaque identifier.
func NewID() string {
	return uuid.New().String()
}
