// Package report derives progress summaries, streaks and exports from the
// recorded attempts.
package report

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/conorfennell/taxtutor/internal/domain"
)

// Period limits a report to recent attempts.
type Period string

const (
	PeriodAll     Period = "all"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
)

// ParsePeriod validates a period name. The empty string selects PeriodAll.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodAll, nil
	case PeriodAll, PeriodWeek, PeriodMonth, PeriodQuarter:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}

// Cutoff returns the earliest timestamp included in p, and false for PeriodAll.
func (p Period) Cutoff(now time.Time) (time.Time, bool) {
	switch p {
	case PeriodWeek:
		return now.AddDate(0, 0, -7), true
	case PeriodMonth:
		return now.AddDate(0, -1, 0), true
	case PeriodQuarter:
		return now.AddDate(0, -3, 0), true
	default:
		return time.Time{}, false
	}
}

// FilterLogs keeps the logs at or after the period's cutoff.
func FilterLogs(logs []domain.AttemptLog, p Period, now time.Time) []domain.AttemptLog {
	cutoff, ok := p.Cutoff(now)
	if !ok {
		return logs
	}
	out := make([]domain.AttemptLog, 0, len(logs))
	for _, l := range logs {
		if !l.Timestamp.Before(cutoff) {
			out = append(out, l)
		}
	}
	return out
}

// Summary totals a set of attempts.
type Summary struct {
	TotalQuestions   int `json:"totalQuestions"`
	TotalCorrect     int `json:"totalCorrect"`
	OverallAccuracy  int `json:"overallAccuracy"`
	TotalTimeMinutes int `json:"totalTimeMinutes"`
}

func Summarize(logs []domain.AttemptLog) Summary {
	var s Summary
	totalSec := 0
	for _, l := range logs {
		s.TotalQuestions += l.Total
		s.TotalCorrect += l.Score
		totalSec += l.ElapsedSec
	}
	s.OverallAccuracy = domain.Percent(s.TotalCorrect, s.TotalQuestions)
	s.TotalTimeMinutes = int(math.Round(float64(totalSec) / 60))
	return s
}

// ProgressExport is the downloadable progress document.
type ProgressExport struct {
	Summary        Summary                           `json:"summary"`
	TopicProgress  map[string]domain.ProgressByTopic `json:"topicProgress"`
	AttemptHistory []domain.AttemptLog               `json:"attemptHistory"`
}

// BuildProgressExport summarises the logs of period p. Topic progress is
// cumulative and not filtered.
func BuildProgressExport(progress map[string]domain.ProgressByTopic, logs []domain.AttemptLog, p Period, now time.Time) ProgressExport {
	filtered := FilterLogs(logs, p, now)
	if progress == nil {
		progress = map[string]domain.ProgressByTopic{}
	}
	if filtered == nil {
		filtered = []domain.AttemptLog{}
	}
	return ProgressExport{
		Summary:        Summarize(filtered),
		TopicProgress:  progress,
		AttemptHistory: filtered,
	}
}

// WeakArea is a topic ranked by accuracy.
type WeakArea struct {
	Topic      string `json:"topic"`
	Accuracy   int    `json:"accuracy"`
	Attempts   int    `json:"attempts"`
	AvgTimeSec int    `json:"avgTime"`
}

// WeakAreas lists topics from least to most accurate; ties keep topic order.
func WeakAreas(progress map[string]domain.ProgressByTopic) []WeakArea {
	out := make([]WeakArea, 0, len(progress))
	for topic, p := range progress {
		if p.Attempts == 0 {
			continue
		}
		out = append(out, WeakArea{
			Topic:      topic,
			Accuracy:   p.Accuracy(),
			Attempts:   p.Attempts,
			AvgTimeSec: int(math.Round(float64(p.TimeSec) / float64(p.Attempts))),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Accuracy != out[j].Accuracy {
			return out[i].Accuracy < out[j].Accuracy
		}
		return out[i].Topic < out[j].Topic
	})
	return out
}

// Streak counts consecutive study days ending today. Logs are walked from
// newest to oldest; each log exactly streak days before the previously
// counted one extends the streak, and a gap larger than one day ends it.
func Streak(logs []domain.AttemptLog, now time.Time) int {
	if len(logs) == 0 {
		return 0
	}
	sorted := make([]domain.AttemptLog, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })

	streak := 0
	current := now
	for _, l := range sorted {
		daysDiff := int(math.Floor(current.Sub(l.Timestamp).Hours() / 24))
		if daysDiff == streak {
			streak++
			current = l.Timestamp
		} else if daysDiff > streak+1 {
			break
		}
	}
	return streak
}

// ProgressFilename names a progress download made at now.
func ProgressFilename(now time.Time) string {
	return "taxtutor-progress-" + now.UTC().Format(time.DateOnly) + ".json"
}
