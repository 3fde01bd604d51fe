package dedupe

import (
	"github.com/dgnsrekt/livechat-tts/internal/chat"
)

// Deduplicator emits each message id at most once, in first-seen order.
type Deduplicator struct {
	seen *SeenSet
}

// New creates a Deduplicator backed by seen. A nil set gets a default one.
func New(seen *SeenSet) *Deduplicator {
	if seen == nil {
		seen = NewSeenSet(DefaultWindowSize, 0)
	}
	return &Deduplicator{seen: seen}
}

// Filter returns the messages of items whose id has not been seen, preserving
// their relative order, and records them as seen. Within one batch the first
// occurrence of an id wins. Messages without an id are dropped.
func (d *Deduplicator) Filter(items []chat.Message) []chat.Message {
	fresh := make([]chat.Message, 0, len(items))
	for _, m := range items {
		if m.ID == "" {
			continue
		}
		if d.seen.Add(m.ID) {
			fresh = append(fresh, m)
		}
	}
	return fresh
}

// Seen returns the underlying set.
func (d *Deduplicator) Seen() *SeenSet {
	return d.seen
}
