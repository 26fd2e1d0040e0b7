package domain

import (
	"maps"
	"slices"
)

// Snapshot is the complete application state and the unit of persistence.
type Snapshot struct {
	SchemaVersion int                        `json:"schemaVersion"`
	Lessons       []Lesson                   `json:"lessons"`
	Questions     []Question                 `json:"questions"`
	Cases         []CaseScenario             `json:"cases"`
	Flashcards    []Flashcard                `json:"flashcards"`
	AttemptLogs   []AttemptLog               `json:"attemptLogs"`
	ChatMessages  []ChatMessage              `json:"chatMessages"`
	Progress      map[string]ProgressByTopic `json:"progress"`
	CurrentTab    View                       `json:"currentTab"`
	DeckSources   []DeckSource               `json:"deckSources"`

	// BestStudyStreak is the longest run of passing ratings in one study
	// session.
	BestStudyStreak int `json:"bestStudyStreak"`
}

// SnapshotPatch replaces whole top-level collections of a snapshot.
// Nil fields are left untouched; collections are never merged element-wise.
type SnapshotPatch struct {
	Lessons         *[]Lesson                   `json:"lessons,omitempty"`
	Questions       *[]Question                 `json:"questions,omitempty"`
	Cases           *[]CaseScenario             `json:"cases,omitempty"`
	Flashcards      *[]Flashcard                `json:"flashcards,omitempty"`
	AttemptLogs     *[]AttemptLog               `json:"attemptLogs,omitempty"`
	ChatMessages    *[]ChatMessage              `json:"chatMessages,omitempty"`
	Progress        *map[string]ProgressByTopic `json:"progress,omitempty"`
	CurrentTab      *View                       `json:"currentTab,omitempty"`
	DeckSources     *[]DeckSource               `json:"deckSources,omitempty"`
	BestStudyStreak *int                        `json:"bestStudyStreak,omitempty"`
}

// Apply overwrites the collections present in the patch. Values are copied
// so the patch's backing arrays are never shared with s.
func (p SnapshotPatch) Apply(s *Snapshot) {
	if p.Lessons != nil {
		s.Lessons = cloneLessons(*p.Lessons)
	}
	if p.Questions != nil {
		s.Questions = cloneQuestions(*p.Questions)
	}
	if p.Cases != nil {
		s.Cases = cloneCases(*p.Cases)
	}
	if p.Flashcards != nil {
		s.Flashcards = slices.Clone(*p.Flashcards)
	}
	if p.AttemptLogs != nil {
		s.AttemptLogs = cloneLogs(*p.AttemptLogs)
	}
	if p.ChatMessages != nil {
		s.ChatMessages = slices.Clone(*p.ChatMessages)
	}
	if p.Progress != nil {
		s.Progress = maps.Clone(*p.Progress)
		if s.Progress == nil {
			s.Progress = map[string]ProgressByTopic{}
		}
	}
	if p.CurrentTab != nil {
		s.CurrentTab = *p.CurrentTab
	}
	if p.DeckSources != nil {
		s.DeckSources = cloneSources(*p.DeckSources)
	}
	if p.BestStudyStreak != nil {
		s.BestStudyStreak = *p.BestStudyStreak
	}
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Lessons = cloneLessons(s.Lessons)
	out.Questions = cloneQuestions(s.Questions)
	out.Cases = cloneCases(s.Cases)
	out.Flashcards = slices.Clone(s.Flashcards)
	out.AttemptLogs = cloneLogs(s.AttemptLogs)
	out.ChatMessages = slices.Clone(s.ChatMessages)
	out.Progress = maps.Clone(s.Progress)
	out.DeckSources = cloneSources(s.DeckSources)
	return out
}

func cloneLessons(in []Lesson) []Lesson {
	if in == nil {
		return nil
	}
	out := make([]Lesson, len(in))
	for i, l := range in {
		out[i] = l
		out[i].Objectives = slices.Clone(l.Objectives)
		out[i].KeyTerms = slices.Clone(l.KeyTerms)
		out[i].ExitQuiz = cloneQuestions(l.ExitQuiz)
		if l.ContentBlocks != nil {
			out[i].ContentBlocks = make([]ContentBlock, len(l.ContentBlocks))
			for j, b := range l.ContentBlocks {
				b.Items = slices.Clone(b.Items)
				out[i].ContentBlocks[j] = b
			}
		}
	}
	return out
}

func cloneQuestions(in []Question) []Question {
	if in == nil {
		return nil
	}
	out := make([]Question, len(in))
	for i, q := range in {
		q.Options = slices.Clone(q.Options)
		q.Rubric = slices.Clone(q.Rubric)
		out[i] = q
	}
	return out
}

func cloneCases(in []CaseScenario) []CaseScenario {
	if in == nil {
		return nil
	}
	out := make([]CaseScenario, len(in))
	for i, c := range in {
		out[i] = c
		if c.Nodes != nil {
			out[i].Nodes = make([]CaseNode, len(c.Nodes))
			for j, n := range c.Nodes {
				n.Options = slices.Clone(n.Options)
				out[i].Nodes[j] = n
			}
		}
	}
	return out
}

func cloneLogs(in []AttemptLog) []AttemptLog {
	if in == nil {
		return nil
	}
	out := make([]AttemptLog, len(in))
	for i, l := range in {
		l.Answers = slices.Clone(l.Answers)
		out[i] = l
	}
	return out
}

func cloneSources(in []DeckSource) []DeckSource {
	if in == nil {
		return nil
	}
	out := make([]DeckSource, len(in))
	for i, s := range in {
		if s.LastScanned != nil {
			t := *s.LastScanned
			s.LastScanned = &t
		}
		out[i] = s
	}
	return out
}
