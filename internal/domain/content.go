package domain

// Question types.
const (
	QuestionMCQ   = "mcq"
	QuestionShort = "short"
	QuestionLong  = "long"
)

// Lesson is a static unit of teaching content.
type Lesson struct {
	Topic         string         `json:"topic" yaml:"topic"`
	Objectives    []string       `json:"objectives" yaml:"objectives"`
	ContentBlocks []ContentBlock `json:"contentBlocks" yaml:"contentBlocks"`
	KeyTerms      []string       `json:"keyTerms" yaml:"keyTerms"`
	ExitQuiz      []Question     `json:"exitQuiz" yaml:"exitQuiz"`
}

// ContentBlock is one paragraph, bullet list or worked example of a lesson.
// Text is used by "text" and "example" blocks, Items by "bullets".
type ContentBlock struct {
	Type  string   `json:"type" yaml:"type"`
	Text  string   `json:"text,omitempty" yaml:"text,omitempty"`
	Items []string `json:"items,omitempty" yaml:"items,omitempty"`
}

// Question is a practice question.
type Question struct {
	Type    string   `json:"type" yaml:"type" validate:"oneof=mcq short long"`
	Q       string   `json:"q" yaml:"q" validate:"required"`
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`
	Answer  string   `json:"answer" yaml:"answer"`
	Rubric  []string `json:"rubric,omitempty" yaml:"rubric,omitempty"`
	Bloom   string   `json:"bloom,omitempty" yaml:"bloom,omitempty"`
}

// CaseScenario is a branching decision exercise.
type CaseScenario struct {
	ID       string     `json:"id" yaml:"id"`
	Title    string     `json:"title" yaml:"title"`
	Scenario string     `json:"scenario" yaml:"scenario"`
	Nodes    []CaseNode `json:"nodes" yaml:"nodes"`
	Explain  string     `json:"explain" yaml:"explain"`
}

// CaseNode is one decision point of a case.
type CaseNode struct {
	Prompt  string       `json:"prompt" yaml:"prompt"`
	Options []CaseOption `json:"options" yaml:"options"`
}

// CaseOption is a choice at a decision point.
type CaseOption struct {
	Label  string `json:"label" yaml:"label"`
	Impact string `json:"impact" yaml:"impact"`
	Score  int    `json:"score" yaml:"score"`
}
