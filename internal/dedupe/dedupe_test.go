package dedupe

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/dgnsrekt/livechat-tts/internal/chat"
)

func msgs(ids ...string) []chat.Message {
	out := make([]chat.Message, len(ids))
	for i, id := range ids {
		out[i] = chat.Message{ID: id, Text: "text " + id}
	}
	return out
}

func ids(ms []chat.Message) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilter_OverlappingPages(t *testing.T) {
	d := New(nil)

	var emitted []string
	emitted = append(emitted, ids(d.Filter(msgs("m1", "m2")))...)
	emitted = append(emitted, ids(d.Filter(msgs("m2", "m3")))...)

	want := []string{"m1", "m2", "m3"}
	if !equal(emitted, want) {
		t.Errorf("emitted %v, want %v", emitted, want)
	}
}

func TestFilter_DuplicateWithinBatchKeepsFirst(t *testing.T) {
	d := New(nil)

	batch := []chat.Message{
		{ID: "a", Text: "first"},
		{ID: "b", Text: "b"},
		{ID: "a", Text: "second"},
	}
	got := d.Filter(batch)

	if !equal(ids(got), []string{"a", "b"}) {
		t.Fatalf("got %v, want [a b]", ids(got))
	}
	if got[0].Text != "first" {
		t.Errorf("expected first occurrence to win, got %q", got[0].Text)
	}
}

func TestFilter_DropsEmptyIDs(t *testing.T) {
	d := New(nil)
	got := d.Filter(msgs("", "x", ""))
	if !equal(ids(got), []string{"x"}) {
		t.Errorf("got %v, want [x]", ids(got))
	}
}

func TestFilter_PreservesSourceOrder(t *testing.T) {
	d := New(nil)
	got := d.Filter(msgs("z", "a", "m", "b"))
	if !equal(ids(got), []string{"z", "a", "m", "b"}) {
		t.Errorf("order changed: %v", ids(got))
	}
}

// TestFilter_RandomPagesEmitEachIDOnce feeds random overlapping pages and
// checks every id is emitted at most once, in first-seen order.
func TestFilter_RandomPagesEmitEachIDOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		d := New(NewSeenSet(10000, 0))

		var firstSeen []string
		known := make(map[string]bool)
		var emitted []string

		next := 0
		for page := 0; page < 20; page++ {
			var batch []string
			size := rng.Intn(8)
			for i := 0; i < size; i++ {
				var id string
				if next > 0 && rng.Intn(3) == 0 {
					id = fmt.Sprintf("m%d", rng.Intn(next))
				} else {
					id = fmt.Sprintf("m%d", next)
					next++
				}
				batch = append(batch, id)
				if !known[id] {
					known[id] = true
					firstSeen = append(firstSeen, id)
				}
			}
			emitted = append(emitted, ids(d.Filter(msgs(batch...)))...)
		}

		counts := make(map[string]int)
		for _, id := range emitted {
			counts[id]++
			if counts[id] > 1 {
				t.Fatalf("round %d: id %s emitted %d times", round, id, counts[id])
			}
		}
		if !equal(emitted, firstSeen) {
			t.Fatalf("round %d: emitted %v, want first-seen order %v", round, emitted, firstSeen)
		}
	}
}

func TestSeenSet_CountWindow(t *testing.T) {
	s := NewSeenSet(3, 0)
	for _, id := range []string{"a", "b", "c"} {
		if !s.Add(id) {
			t.Fatalf("Add(%s) returned false for new id", id)
		}
	}
	if s.Add("a") {
		t.Error("Add(a) returned true for a present id")
	}

	s.Add("d") // evicts a
	if s.Contains("a") {
		t.Error("expected oldest id to be evicted")
	}
	for _, id := range []string{"b", "c", "d"} {
		if !s.Contains(id) {
			t.Errorf("expected %s to be present", id)
		}
	}
	if s.Len() != 3 {
		t.Errorf("expected len 3, got %d", s.Len())
	}
	if s.Evictions() != 1 {
		t.Errorf("expected 1 eviction, got %d", s.Evictions())
	}
}

func TestSeenSet_AgeWindow(t *testing.T) {
	s := NewSeenSet(100, time.Minute)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Add("old")
	now = now.Add(30 * time.Second)
	s.Add("mid")
	now = now.Add(45 * time.Second)

	if s.Contains("old") {
		t.Error("expected id older than maxAge to expire")
	}
	if !s.Contains("mid") {
		t.Error("expected recent id to remain")
	}
}

func TestSeenSet_DefaultCapacity(t *testing.T) {
	if got := NewSeenSet(0, 0).Capacity(); got != DefaultWindowSize {
		t.Errorf("expected default capacity %d, got %d", DefaultWindowSize, got)
	}
}

// Overlap deeper than the window is re-emitted: the documented trade-off of a
// bounded set.
func TestFilter_OverlapBeyondWindowIsReemitted(t *testing.T) {
	d := New(NewSeenSet(2, 0))
	d.Filter(msgs("a", "b", "c"))

	got := d.Filter(msgs("a"))
	if !equal(ids(got), []string{"a"}) {
		t.Errorf("expected evicted id to be emitted again, got %v", ids(got))
	}
}

func BenchmarkFilter(b *testing.B) {
	d := New(NewSeenSet(DefaultWindowSize, 0))
	page := make([]chat.Message, 200)
	for i := 0; i < b.N; i++ {
		for j := range page {
			page[j] = chat.Message{ID: fmt.Sprintf("m%d", i*100+j)}
		}
		d.Filter(page)
	}
}
