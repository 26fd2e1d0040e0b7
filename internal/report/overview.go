package report

import (
	"time"

	"github.com/conorfennell/taxtutor/internal/domain"
	"github.com/conorfennell/taxtutor/internal/sm2"
)

// Activity is one recent attempt as shown on the dashboard.
type Activity struct {
	Topic string    `json:"topic"`
	Score int       `json:"score"`
	Total int       `json:"total"`
	At    time.Time `json:"ts"`
}

// Overview is the dashboard summary.
type Overview struct {
	StudyStreak      int        `json:"studyStreak"`
	OverallAccuracy  int        `json:"overallAccuracy"`
	TotalQuestions   int        `json:"totalQuestions"`
	TotalAttempts    int        `json:"totalAttempts"`
	LessonsAvailable int        `json:"lessonsAvailable"`
	FlashcardsDue    int        `json:"flashcardsDue"`
	RecentActivity   []Activity `json:"recentActivity"`
	WeakAreas        []WeakArea `json:"weakAreas"`
}

const recentActivityLimit = 5

// BuildOverview summarises the whole snapshot at now.
func BuildOverview(s domain.Snapshot, now time.Time) Overview {
	sum := Summarize(s.AttemptLogs)
	o := Overview{
		StudyStreak:      Streak(s.AttemptLogs, now),
		OverallAccuracy:  sum.OverallAccuracy,
		TotalQuestions:   sum.TotalQuestions,
		TotalAttempts:    len(s.AttemptLogs),
		LessonsAvailable: len(s.Lessons),
		FlashcardsDue:    len(sm2.Partition(s.Flashcards, sm2.SetDue, now)),
		RecentActivity:   []Activity{},
		WeakAreas:        WeakAreas(s.Progress),
	}
	for i := len(s.AttemptLogs) - 1; i >= 0 && len(o.RecentActivity) < recentActivityLimit; i-- {
		l := s.AttemptLogs[i]
		o.RecentActivity = append(o.RecentActivity, Activity{Topic: l.Topic, Score: l.Score, Total: l.Total, At: l.Timestamp})
	}
	return o
}
