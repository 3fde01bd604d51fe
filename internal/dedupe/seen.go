// Package dedupe filters overlapping chat pages down to an ordered sequence of
// messages that have not been emitted before.
package dedupe

import (
	"container/list"
	"time"
)

// DefaultWindowSize is the number of message ids remembered by default.
const DefaultWindowSize = 5000

// SeenSet is a bounded set of message ids. It forgets the oldest inserted id
// once it holds capacity ids, and optionally any id older than maxAge.
// It is not safe for concurrent use.
type SeenSet struct {
	capacity int
	maxAge   time.Duration

	items map[string]*list.Element
	order *list.List // front is newest

	now       func() time.Time
	evictions int64
}

type seenEntry struct {
	id    string
	added time.Time
}

// NewSeenSet creates a set remembering at most capacity ids. A non-positive
// capacity uses DefaultWindowSize. A zero maxAge disables age-based eviction.
func NewSeenSet(capacity int, maxAge time.Duration) *SeenSet {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}
	return &SeenSet{
		capacity: capacity,
		maxAge:   maxAge,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
		now:      time.Now,
	}
}

// Contains reports whether id has been seen and not yet evicted.
func (s *SeenSet) Contains(id string) bool {
	s.expire()
	_, ok := s.items[id]
	return ok
}

// Add records id. It returns false if id was already present. Re-adding an id
// does not refresh its position.
func (s *SeenSet) Add(id string) bool {
	s.expire()
	if _, ok := s.items[id]; ok {
		return false
	}

	for s.order.Len() >= s.capacity {
		s.evictOldest()
	}

	elem := s.order.PushFront(&seenEntry{id: id, added: s.now()})
	s.items[id] = elem
	return true
}

// Len returns the number of remembered ids.
func (s *SeenSet) Len() int {
	return s.order.Len()
}

// Capacity returns the maximum number of remembered ids.
func (s *SeenSet) Capacity() int {
	return s.capacity
}

// Evictions returns how many ids have been forgotten so far.
func (s *SeenSet) Evictions() int64 {
	return s.evictions
}

// expire drops ids older than maxAge.
func (s *SeenSet) expire() {
	if s.maxAge <= 0 {
		return
	}
	cutoff := s.now().Add(-s.maxAge)
	for {
		back := s.order.Back()
		if back == nil || !back.Value.(*seenEntry).added.Before(cutoff) {
			return
		}
		s.remove(back)
	}
}

func (s *SeenSet) evictOldest() {
	if back := s.order.Back(); back != nil {
		s.remove(back)
	}
}

func (s *SeenSet) remove(elem *list.Element) {
	entry := s.order.Remove(elem).(*seenEntry)
	delete(s.items, entry.id)
	s.evictions++
}
