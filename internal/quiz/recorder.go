package quiz

import (
	"context"

	"github.com/conorfennell/taxtutor/internal/domain"
)

// Store is the part of the state store results are written to.
type Store interface {
	AppendAttemptLog(ctx context.Context, log domain.AttemptLog) domain.Result
	IncrementTopicProgress(ctx context.Context, topic string, correct bool, timeSec int) domain.Result
}

// Recorder writes graded sessions to the store.
type Recorder struct {
	store Store
}

func NewRecorder(s Store) *Recorder {
	return &Recorder{store: s}
}

// RecordPractice logs the session and counts it as correct when at least one
// answer was right.
func (r *Recorder) RecordPractice(ctx context.Context, o Outcome) {
	r.store.AppendAttemptLog(ctx, o.Log)
	r.store.IncrementTopicProgress(ctx, o.Log.Topic, o.Correct > 0, o.Log.ElapsedSec)
}

// RecordCase logs the case and counts it as correct when it passed.
func (r *Recorder) RecordCase(ctx context.Context, o CaseOutcome) {
	r.store.AppendAttemptLog(ctx, o.Log)
	r.store.IncrementTopicProgress(ctx, o.Log.Topic, o.Passed(), o.Log.ElapsedSec)
}

// RecordLesson logs a lesson's exit quiz and counts it as correct when it
// passed.
func (r *Recorder) RecordLesson(ctx context.Context, o Outcome) {
	r.store.AppendAttemptLog(ctx, o.Log)
	r.store.IncrementTopicProgress(ctx, o.Log.Topic, o.Passed(), o.Log.ElapsedSec)
}
