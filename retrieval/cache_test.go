package retrieval

import (
	"testing"

	"github.com/hrygo/exemplar/event"
)

func results(score float64) []SimilarEvent {
	return []SimilarEvent{{Score: score, Rank: 1}}
}

func TestResultCache_GetSet(t *testing.T) {
	c := newResultCache(10)

	if _, ok := c.get("a"); ok {
		t.Error("expected miss for unknown key")
	}

	c.set("a", results(0.9))
	got, ok := c.get("a")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if got[0].Score != 0.9 {
		t.Errorf("expected stored score 0.9, got %f", got[0].Score)
	}
	if c.size() != 1 {
		t.Errorf("expected size 1, got %d", c.size())
	}
}

// Eviction is insertion-ordered. Reading an entry must not protect it.
func TestResultCache_FIFOEviction(t *testing.T) {
	c := newResultCache(2)

	c.set("a", results(0.1))
	c.set("b", results(0.2))
	c.get("a") // read does not refresh position
	c.set("c", results(0.3))

	if _, ok := c.get("a"); ok {
		t.Error("expected oldest entry evicted despite the read")
	}
	if _, ok := c.get("b"); !ok {
		t.Error("expected b to survive")
	}
	if _, ok := c.get("c"); !ok {
		t.Error("expected c to survive")
	}
	if c.evictions() != 1 {
		t.Errorf("expected 1 eviction, got %d", c.evictions())
	}
}

func TestResultCache_OverwriteKeepsPosition(t *testing.T) {
	c := newResultCache(2)

	c.set("a", results(0.1))
	c.set("b", results(0.2))
	c.set("a", results(0.5)) // overwrite, position unchanged
	c.set("c", results(0.3))

	if _, ok := c.get("a"); ok {
		t.Error("expected a evicted: overwriting must not move it to the back")
	}
	got, ok := c.get("b")
	if !ok {
		t.Fatal("expected b to survive")
	}
	if got[0].Score != 0.2 {
		t.Errorf("expected b unchanged, got score %f", got[0].Score)
	}
}

func TestResultCache_CapacityBound(t *testing.T) {
	c := newResultCache(3)

	for _, key := range []string{"a", "b", "c", "d", "e"} {
		c.set(key, results(0.5))
	}

	if c.size() != 3 {
		t.Errorf("expected size bounded at 3, got %d", c.size())
	}
	if c.evicted != 2 {
		t.Errorf("expected 2 evictions, got %d", c.evicted)
	}
}

func TestResultCache_Clear(t *testing.T) {
	c := newResultCache(2)
	c.set("a", results(0.1))
	c.set("b", results(0.2))
	c.set("c", results(0.3)) // evicts a

	c.clear()

	if c.size() != 0 {
		t.Errorf("expected empty cache after clear, got size %d", c.size())
	}
	if _, ok := c.get("b"); ok {
		t.Error("expected all entries gone after clear")
	}
	if c.evictions() != 1 {
		t.Errorf("eviction counter should survive clear, got %d", c.evictions())
	}

	c.set("d", results(0.4))
	if c.size() != 1 {
		t.Errorf("expected cache usable after clear, got size %d", c.size())
	}
}

func TestResultCache_DefaultCapacity(t *testing.T) {
	if c := newResultCache(0); c.capacity != DefaultCacheCapacity {
		t.Errorf("expected default capacity %d, got %d", DefaultCacheCapacity, c.capacity)
	}
}

func TestCacheKey_Normalization(t *testing.T) {
	base := cacheKey(event.Event{Title: "MATH 0180 Homework 1", IsAllDay: true, CalendarName: "School"})

	folded := cacheKey(event.Event{Title: "  math 0180 homework 1 ", IsAllDay: true, CalendarName: " SCHOOL "})
	if folded != base {
		t.Error("expected case and whitespace variants to share one key")
	}

	timed := cacheKey(event.Event{Title: "MATH 0180 Homework 1", IsAllDay: false, CalendarName: "School"})
	if timed == base {
		t.Error("expected the all-day flag to change the key")
	}

	otherCalendar := cacheKey(event.Event{Title: "MATH 0180 Homework 1", IsAllDay: true, CalendarName: "Personal"})
	if otherCalendar == base {
		t.Error("expected the calendar name to change the key")
	}

	otherTitle := cacheKey(event.Event{Title: "MATH 0180 Homework 2", IsAllDay: true, CalendarName: "School"})
	if otherTitle == base {
		t.Error("expected the title to change the key")
	}
}
