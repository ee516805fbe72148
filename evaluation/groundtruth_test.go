package evaluation

import (
	"testing"

	"github.com/hrygo/exemplar/event"
)

func mathCorpus() []event.Event {
	return []event.Event{
		{ID: "hw1", Title: "MATH 0180 Homework 1", IsAllDay: true, CalendarName: "School"},
		{ID: "hw2", Title: "MATH 0180 Homework 2", IsAllDay: true, CalendarName: "School"},
		{ID: "hw3", Title: "MATH 0180 Homework 3", IsAllDay: true, CalendarName: "School"},
		{ID: "mtg", Title: "Team Meeting", IsAllDay: false, CalendarName: "Work"},
		{ID: "doc", Title: "Doctor Appointment", IsAllDay: false, CalendarName: "Personal"},
	}
}

func TestExpectedMatches(t *testing.T) {
	query := event.Event{ID: "q", Title: "MATH 0180 Homework 4", CalendarName: "School"}

	expected := ExpectedMatches(query, mathCorpus(), DefaultJaccardThreshold)
	if len(expected) != 3 {
		t.Fatalf("expected 3 matches, got %d: %v", len(expected), expected)
	}
	for _, id := range []string{"hw1", "hw2", "hw3"} {
		if !expected[id] {
			t.Errorf("expected %s to match", id)
		}
	}
	if expected["mtg"] || expected["doc"] {
		t.Error("events on other calendars must not match")
	}
}

func TestExpectedMatches_CalendarCaseFolded(t *testing.T) {
	query := event.Event{ID: "q", Title: "MATH 0180 Homework 4", CalendarName: " SCHOOL "}

	expected := ExpectedMatches(query, mathCorpus(), DefaultJaccardThreshold)
	if len(expected) != 3 {
		t.Errorf("expected calendar matching to fold case, got %v", expected)
	}
}

func TestExpectedMatches_ExcludesSelf(t *testing.T) {
	corpus := mathCorpus()
	query := corpus[0]

	expected := ExpectedMatches(query, corpus, DefaultJaccardThreshold)
	if expected["hw1"] {
		t.Error("a query must not match its own corpus entry")
	}
	if !expected["hw2"] || !expected["hw3"] {
		t.Errorf("expected the sibling homeworks to match, got %v", expected)
	}
}

func TestExpectedMatches_BelowThreshold(t *testing.T) {
	// One shared keyword out of six is below the 0.3 overlap floor.
	query := event.Event{ID: "q", Title: "math review session", CalendarName: "School"}

	expected := ExpectedMatches(query, mathCorpus(), DefaultJaccardThreshold)
	if len(expected) != 0 {
		t.Errorf("expected no matches below the overlap floor, got %v", expected)
	}
}

func TestExpectedMatches_RequiresSameCalendar(t *testing.T) {
	query := event.Event{ID: "q", Title: "MATH 0180 Homework 4", CalendarName: "Personal"}

	expected := ExpectedMatches(query, mathCorpus(), DefaultJaccardThreshold)
	if len(expected) != 0 {
		t.Errorf("keyword overlap alone must not match across calendars, got %v", expected)
	}
}
