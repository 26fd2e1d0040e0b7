// Package quiz grades practice sessions and case studies and records the
// results as attempt logs and topic progress.
package quiz

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/conorfennell/taxtutor/internal/domain"
)

// PassPercent is the score a lesson quiz or case study needs to count as
// correct in topic progress.
const PassPercent = 60

// MinLongAnswer is the shortest long-form answer that can be graded correct.
const MinLongAnswer = 20

// Grade reports whether answer is correct for q. Blank answers are always wrong.
//   - mcq: exact match with the expected option.
//   - short: the expected answer is a ";" separated keyword list; any keyword
//     found in the answer (case-insensitive) is enough.
//   - long: at least MinLongAnswer characters and mentions any word of the
//     expected answer longer than three letters.
func Grade(q domain.Question, answer string) bool {
	if strings.TrimSpace(answer) == "" {
		return false
	}
	lower := strings.ToLower(answer)

	switch q.Type {
	case domain.QuestionMCQ:
		return answer == q.Answer
	case domain.QuestionShort:
		for _, kw := range strings.Split(strings.ToLower(q.Answer), ";") {
			if kw = strings.TrimSpace(kw); kw != "" && strings.Contains(lower, kw) {
				return true
			}
		}
		return false
	case domain.QuestionLong:
		if utf8.RuneCountInString(strings.TrimSpace(answer)) < MinLongAnswer {
			return false
		}
		for _, word := range strings.Fields(strings.ToLower(q.Answer)) {
			if utf8.RuneCountInString(word) > 3 && strings.Contains(lower, word) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Difficulty narrows a practice set by Bloom level.
type Difficulty string

const (
	DifficultyMixed  Difficulty = "mixed"
	DifficultyEasy   Difficulty = "easy"   // Remember
	DifficultyMedium Difficulty = "medium" // Understand, Apply
	DifficultyHard   Difficulty = "hard"   // Evaluate
)

func (d Difficulty) match(q domain.Question) bool {
	switch d {
	case DifficultyEasy:
		return q.Bloom == "Remember"
	case DifficultyMedium:
		return q.Bloom == "Understand" || q.Bloom == "Apply"
	case DifficultyHard:
		return q.Bloom == "Evaluate"
	default:
		return true
	}
}

// Selection describes which questions a practice session draws.
type Selection struct {
	Type       string // mcq, short, long or "all"
	Difficulty Difficulty
	Count      int
}

// Select filters questions by type and difficulty and returns up to Count
// of them in random order. A nil rng uses the global source.
func Select(questions []domain.Question, sel Selection, rng *rand.Rand) []domain.Question {
	var pool []domain.Question
	for _, q := range questions {
		if sel.Type != "" && sel.Type != "all" && q.Type != sel.Type {
			continue
		}
		if !sel.Difficulty.match(q) {
			continue
		}
		pool = append(pool, q)
	}
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if sel.Count > 0 && sel.Count < len(pool) {
		pool = pool[:sel.Count]
	}
	return pool
}

// Outcome is a graded practice session.
type Outcome struct {
	Log      domain.AttemptLog `json:"log"`
	Correct  int               `json:"correct"`
	Accuracy int               `json:"accuracy"`
}

// PracticeTopic names the progress topic of a practice session.
func PracticeTopic(practiceType string) string {
	if practiceType == "" {
		practiceType = "all"
	}
	return practiceType + " Practice"
}

// GradePractice grades answers[i] against questions[i]. Missing answers
// count as blank.
func GradePractice(practiceType string, questions []domain.Question, answers []string, elapsed time.Duration, now time.Time) Outcome {
	log := domain.AttemptLog{
		Timestamp:  now,
		Topic:      PracticeTopic(practiceType),
		Total:      len(questions),
		ElapsedSec: int(elapsed / time.Second),
		Answers:    make([]domain.AttemptAnswer, 0, len(questions)),
	}
	for i, q := range questions {
		var answer string
		if i < len(answers) {
			answer = answers[i]
		}
		ok := Grade(q, answer)
		if ok {
			log.Score++
		}
		log.Answers = append(log.Answers, domain.AttemptAnswer{Question: q.Q, Type: q.Type, Answer: answer, Correct: ok})
	}
	return Outcome{Log: log, Correct: log.Score, Accuracy: domain.Percent(log.Score, log.Total)}
}

// GradeLessonQuiz grades a lesson's exit quiz. Every answer must match the
// expected answer exactly, whatever the question type. The session is logged
// under the lesson's topic.
func GradeLessonQuiz(lesson domain.Lesson, answers []string, elapsed time.Duration, now time.Time) Outcome {
	log := domain.AttemptLog{
		Timestamp:  now,
		Topic:      lesson.Topic,
		Total:      len(lesson.ExitQuiz),
		ElapsedSec: int(elapsed / time.Second),
		Answers:    make([]domain.AttemptAnswer, 0, len(lesson.ExitQuiz)),
	}
	for i, q := range lesson.ExitQuiz {
		var answer string
		if i < len(answers) {
			answer = answers[i]
		}
		ok := answer != "" && answer == q.Answer
		if ok {
			log.Score++
		}
		log.Answers = append(log.Answers, domain.AttemptAnswer{Question: q.Q, Type: q.Type, Answer: answer, Correct: ok})
	}
	return Outcome{Log: log, Correct: log.Score, Accuracy: domain.Percent(log.Score, log.Total)}
}

// Passed reports whether the session reached PassPercent.
func (o Outcome) Passed() bool { return o.Accuracy >= PassPercent }

// LessonCompleted reports whether the lesson's exit quiz has been taken.
func LessonCompleted(progress map[string]domain.ProgressByTopic, lesson domain.Lesson) bool {
	return progress[lesson.Topic].Attempts > 0
}

// CaseDecision is the answer type recorded for case study choices.
const CaseDecision = "case_decision"

// MaxScore is the sum of the best option score of every node.
func MaxScore(c domain.CaseScenario) int {
	total := 0
	for _, n := range c.Nodes {
		best := 0
		for i, o := range n.Options {
			if i == 0 || o.Score > best {
				best = o.Score
			}
		}
		total += best
	}
	return total
}

// CaseOutcome is a completed case study.
type CaseOutcome struct {
	Log     domain.AttemptLog `json:"log"`
	Score   int               `json:"score"`
	Max     int               `json:"max"`
	Percent int               `json:"percent"`
	Label   string            `json:"label"`
}

// Passed reports whether the case counts as a correct attempt.
func (o CaseOutcome) Passed() bool { return o.Percent >= PassPercent }

// ScoreCase totals the option chosen at every node; choices[i] indexes the
// options of node i.
func ScoreCase(c domain.CaseScenario, choices []int, elapsed time.Duration, now time.Time) (CaseOutcome, error) {
	if len(choices) != len(c.Nodes) {
		return CaseOutcome{}, fmt.Errorf("case %s has %d decisions, got %d choices", c.ID, len(c.Nodes), len(choices))
	}
	log := domain.AttemptLog{
		Timestamp:  now,
		Topic:      "Case: " + c.Title,
		Total:      MaxScore(c),
		ElapsedSec: int(elapsed / time.Second),
		Answers:    make([]domain.AttemptAnswer, 0, len(choices)),
	}
	for i, choice := range choices {
		node := c.Nodes[i]
		if choice < 0 || choice >= len(node.Options) {
			return CaseOutcome{}, fmt.Errorf("choice %d out of range for decision %d of case %s", choice, i+1, c.ID)
		}
		opt := node.Options[choice]
		log.Score += opt.Score
		log.Answers = append(log.Answers, domain.AttemptAnswer{Question: node.Prompt, Type: CaseDecision, Answer: opt.Label, Correct: true})
	}
	pct := domain.Percent(log.Score, log.Total)
	return CaseOutcome{Log: log, Score: log.Score, Max: log.Total, Percent: pct, Label: ScoreLabel(pct)}, nil
}

// ScoreLabel rates a case percentage.
func ScoreLabel(percent int) string {
	switch {
	case percent >= 80:
		return "Excellent Decision Making"
	case percent >= 60:
		return "Good Decision Making"
	default:
		return "Needs Improvement"
	}
}

// OptionFeedback explains a single choice by its score.
func OptionFeedback(o domain.CaseOption) string {
	switch {
	case o.Score >= 4:
		return "Excellent choice! This decision maximizes positive outcomes."
	case o.Score >= 3:
		return "Good decision! This option provides solid benefits."
	case o.Score >= 2:
		return "Moderate choice. Consider if there are better alternatives."
	default:
		return "This decision may have negative consequences. Review your options."
	}
}

// Hint points at the highest scoring option of a node.
func Hint(n domain.CaseNode) string {
	if len(n.Options) == 0 {
		return ""
	}
	best := n.Options[0]
	for _, o := range n.Options[1:] {
		if o.Score > best.Score {
			best = o
		}
	}
	return fmt.Sprintf("Consider the option with the highest impact score: %q", best.Label)
}
