package similarity

import (
	"math"
	"testing"
)

func TestExtractKeywords_CourseCode(t *testing.T) {
	got := ExtractKeywords("MATH 0180 Homework 1")
	want := []string{"MATH0180", "math", "0180", "homework"}

	if len(got) != len(want) {
		t.Fatalf("expected %d keywords, got %d: %v", len(want), len(got), got)
	}
	for _, kw := range want {
		if !got[kw] {
			t.Errorf("expected keyword %q in %v", kw, got)
		}
	}
}

func TestExtractKeywords_LowercaseCourseCode(t *testing.T) {
	got := ExtractKeywords("csci 0200 lab")

	if !got["CSCI0200"] {
		t.Errorf("expected course code CSCI0200 in %v", got)
	}
	// "lab" has only three letters and falls under the length filter.
	if got["lab"] {
		t.Errorf("did not expect short word %q in %v", "lab", got)
	}
}

func TestExtractKeywords_Stopwords(t *testing.T) {
	got := ExtractKeywords("Meeting with the team about budget")

	for _, kw := range []string{"meeting", "team", "budget"} {
		if !got[kw] {
			t.Errorf("expected keyword %q in %v", kw, got)
		}
	}
	for _, stop := range []string{"with", "the", "about"} {
		if got[stop] {
			t.Errorf("did not expect stopword %q in %v", stop, got)
		}
	}
}

func TestExtractKeywords_NoBoundaryInsideWord(t *testing.T) {
	// Letters running straight into digits do not form a course code.
	got := ExtractKeywords("ABCDE123")
	if got["ABCDE123"] || got["ABCD123"] || got["BCDE123"] {
		t.Errorf("did not expect a course code in %v", got)
	}
	if !got["abcde123"] {
		t.Errorf("expected plain word keyword in %v", got)
	}
}

func TestExtractKeywords_Empty(t *testing.T) {
	if got := ExtractKeywords(""); len(got) != 0 {
		t.Errorf("expected no keywords for empty title, got %v", got)
	}
}

func TestJaccard(t *testing.T) {
	set := func(words ...string) map[string]bool {
		m := make(map[string]bool, len(words))
		for _, w := range words {
			m[w] = true
		}
		return m
	}

	tests := []struct {
		name string
		a, b map[string]bool
		want float64
	}{
		{"identical", set("math", "homework"), set("math", "homework"), 1.0},
		{"disjoint", set("math"), set("doctor"), 0.0},
		{"partial overlap", set("math", "homework", "0180"), set("math", "exam"), 0.25},
		{"both empty", set(), set(), 0.0},
		{"one empty", set(), set("math"), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}
