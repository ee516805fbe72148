// Package event defines the calendar event value type the retrieval
// engine consumes.
package event

import (
	"strings"
	"time"
)

// Event is one calendar event as supplied by the caller. Identity is the
// caller-assigned ID; the engine treats events as immutable values during
// a search and never mutates or persists them.
type Event struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	IsAllDay     bool       `json:"is_all_day"`
	CalendarName string     `json:"calendar_name"`
	Description  string     `json:"description,omitempty"`
	Location     string     `json:"location,omitempty"`
	StartTime    *time.Time `json:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
}

// HasTitle reports whether the event carries a usable title. Events
// without one are legal input; they score zero everywhere instead of
// failing.
func (e Event) HasTitle() bool {
	return strings.TrimSpace(e.Title) != ""
}

// NormalizedTitle returns the title trimmed and lower-cased, the form
// used for cache keys.
func (e Event) NormalizedTitle() string {
	return strings.ToLower(strings.TrimSpace(e.Title))
}

// NormalizedCalendar returns the calendar name trimmed and lower-cased.
func (e Event) NormalizedCalendar() string {
	return strings.ToLower(strings.TrimSpace(e.CalendarName))
}
