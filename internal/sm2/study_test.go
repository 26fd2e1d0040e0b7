package sm2

import (
	"math"
	"testing"
	"time"

	"github.com/conorfennell/taxtutor/internal/domain"
)

func TestPartitionDue(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	cards := []domain.Flashcard{
		{ID: "yesterday", Due: now.AddDate(0, 0, -1)},
		{ID: "now", Due: now},
		{ID: "tomorrow", Due: now.AddDate(0, 0, 1)},
	}

	due := Partition(cards, SetDue, now)
	if len(due) != 2 || due[0].ID != "yesterday" || due[1].ID != "now" {
		t.Errorf("Expected the first two cards in order, got %+v", due)
	}
}

func TestPartitionSets(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	cards := []domain.Flashcard{
		{ID: "new", Reps: 0, Due: now.AddDate(0, 0, 3)},
		{ID: "seen", Reps: 2, Due: now.AddDate(0, 0, 3)},
	}

	tests := []struct {
		set  StudySet
		want []string
	}{
		{SetDue, nil},
		{SetNew, []string{"new"}},
		{SetReview, []string{"seen"}},
		{SetCram, []string{"new", "seen"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.set), func(t *testing.T) {
			got := Partition(cards, tt.set, now)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d cards, got %d", len(tt.want), len(got))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("Card %d: expected %q, got %q", i, id, got[i].ID)
				}
			}
		})
	}
}

func TestParseStudySet(t *testing.T) {
	if set, err := ParseStudySet(""); err != nil || set != SetDue {
		t.Errorf("Expected empty input to select due, got %q, %v", set, err)
	}
	if set, err := ParseStudySet("Cram"); err != nil || set != SetCram {
		t.Errorf("Expected cram, got %q, %v", set, err)
	}
	if _, err := ParseStudySet("later"); err == nil {
		t.Error("Expected an error for an unknown set")
	}
}

func TestFilter(t *testing.T) {
	cards := []domain.Flashcard{
		{ID: "1", Front: "What is Section 80C?", Back: "Deduction for investments", Tag: "Deductions"},
		{ID: "2", Front: "Define MBO", Back: "Management by Objectives", Tag: "Planning"},
		{ID: "3", Front: "Old regime slabs", Back: "Progressive rates", Tag: "Slabs"},
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty matches all", Filter{}, []string{"1", "2", "3"}},
		{"query on front", Filter{Query: "80c"}, []string{"1"}},
		{"query on back", Filter{Query: "objectives"}, []string{"2"}},
		{"query on tag", Filter{Query: "slab"}, []string{"3"}},
		{"tag filter", Filter{Tag: "Planning"}, []string{"2"}},
		{"tag all", Filter{Tag: "all", Query: "de"}, []string{"1", "2"}},
		{"tag and query", Filter{Tag: "Slabs", Query: "mbo"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(cards)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %+v", tt.want, got)
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("Card %d: expected %q, got %q", i, id, got[i].ID)
				}
			}
		})
	}
}

func TestTags(t *testing.T) {
	cards := []domain.Flashcard{{Tag: "B"}, {Tag: "A"}, {Tag: "B"}, {Tag: "C"}}
	got := Tags(cards)
	want := []string{"B", "A", "C"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tag %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestComputeStats(t *testing.T) {
	now := time.Date(2024, 7, 15, 12, 0, 0, 0, time.UTC)
	cards := []domain.Flashcard{
		{Easiness: 2.5, Interval: 1, Reps: 0, Due: now},
		{Easiness: 2.7, Interval: 45, Reps: 6, Due: now.AddDate(0, 1, 0)},
		{Easiness: 1.3, Interval: 1, Reps: 0, Due: now.AddDate(0, 0, -2)},
	}

	st := ComputeStats(cards, now)
	if st.Total != 3 || st.Due != 2 || st.New != 2 || st.Mastered != 1 {
		t.Errorf("Unexpected stats: %+v", st)
	}
	if math.Abs(st.AvgEasiness-2.5) > 1e-9 {
		t.Errorf("Expected average easiness 2.5, got %.4f", st.AvgEasiness)
	}

	if empty := ComputeStats(nil, now); empty != (Stats{}) {
		t.Errorf("Expected zero stats for an empty deck, got %+v", empty)
	}
}
