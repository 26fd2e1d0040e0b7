package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conorfennell/taxtutor/internal/domain"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected []domain.DeckEntry
	}{
		{
			name:     "Simple front and back",
			input:    "Q: What is the 80C limit?\nA: ₹1.5 lakh",
			expected: []domain.DeckEntry{{Front: "What is the 80C limit?", Back: "₹1.5 lakh"}},
		},
		{
			name:     "Front, back and tag",
			input:    "Q: What is TDS?\nA: Tax deducted at source\nT: tds",
			expected: []domain.DeckEntry{{Front: "What is TDS?", Back: "Tax deducted at source", Tag: "tds"}},
		},
		{
			name: "Multiline back",
			input: `
Q: Name the heads of income
A: Salary
House property
Business or profession

Q: Next
A: Card
`,
			expected: []domain.DeckEntry{
				{Front: "Name the heads of income", Back: "Salary\nHouse property\nBusiness or profession"},
				{Front: "Next", Back: "Card"},
			},
		},
		{
			name: "Separator closes an entry",
			input: `Q: First
A: One
---
stray text is ignored
Q: Second
A: Two
---`,
			expected: []domain.DeckEntry{{Front: "First", Back: "One"}, {Front: "Second", Back: "Two"}},
		},
		{
			name:     "No entries, just text",
			input:    "This file has no questions.",
			expected: nil,
		},
		{
			name:     "Prefixes with no space",
			input:    "Q:Question\r\nA:Answer\r\n",
			expected: []domain.DeckEntry{{Front: "Question", Back: "Answer"}},
		},
		{
			name:     "Back without front is dropped",
			input:    "A: orphan\n---\nQ: kept",
			expected: []domain.DeckEntry{{Front: "kept"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := Parse(strings.NewReader(tc.input))
			if err != nil {
				t.Fatalf("Parse() returned an unexpected error: %v", err)
			}
			if len(entries) != len(tc.expected) {
				t.Fatalf("Expected %d entries, but got %d: %+v", len(tc.expected), len(entries), entries)
			}
			for i := range tc.expected {
				if entries[i] != tc.expected[i] {
					t.Errorf("Entry %d: expected %+v, got %+v", i, tc.expected[i], entries[i])
				}
			}
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.md")
	if err := os.WriteFile(path, []byte("Q: PY?\nA: Previous year\nT: basics\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(entries) != 1 || entries[0].Tag != "basics" {
		t.Errorf("Unexpected entries %+v", entries)
	}

	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.md")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestParseLongLines(t *testing.T) {
	long := strings.Repeat("x", 70*1024)
	entries, err := Parse(strings.NewReader("Q: Long answer\nA: " + long + "\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 || entries[0].Back != long {
		t.Errorf("Expected the long back to survive intact, got %d entries", len(entries))
	}

	tooLong := strings.Repeat("x", MaxLineSize+1)
	if _, err := Parse(strings.NewReader("Q: " + tooLong)); err == nil {
		t.Error("Expected an error for a line over MaxLineSize")
	}
}
