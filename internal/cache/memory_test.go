package cache

import (
	"bytes"
	"testing"
	"time"
)

func TestMemoryCache_BasicOperations(t *testing.T) {
	c := NewMemoryCache(1024)

	if err := c.Put("k", []byte("value")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := c.Get("k")
	if !ok || string(got) != "value" {
		t.Fatalf("Get = %q, %v; want value, true", got, ok)
	}
	if c.Size() != 5 {
		t.Errorf("Size = %d, want 5", c.Size())
	}

	c.Delete("k")
	if c.Contains("k") {
		t.Error("key still present after Delete")
	}
	if c.Size() != 0 {
		t.Errorf("Size = %d after delete, want 0", c.Size())
	}
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemoryCache(30)
	chunk := bytes.Repeat([]byte("x"), 10)

	_ = c.Put("a", chunk)
	_ = c.Put("b", chunk)
	_ = c.Put("c", chunk)

	// Touch a so b becomes the oldest.
	c.Get("a")
	_ = c.Put("d", chunk)

	if c.Contains("b") {
		t.Error("expected b to be evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if !c.Contains(k) {
			t.Errorf("expected %s to remain", k)
		}
	}
	if s := c.Stats(); s.Evictions != 1 || s.Items != 3 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestMemoryCache_ItemTooLarge(t *testing.T) {
	c := NewMemoryCache(4)
	if err := c.Put("big", []byte("12345")); err != ErrItemTooLarge {
		t.Errorf("expected ErrItemTooLarge, got %v", err)
	}
}

func TestMemoryCache_Overwrite(t *testing.T) {
	c := NewMemoryCache(100)
	_ = c.Put("k", []byte("short"))
	_ = c.Put("k", []byte("a longer value"))

	got, _ := c.Get("k")
	if string(got) != "a longer value" {
		t.Errorf("got %q", got)
	}
	if c.Size() != int64(len("a longer value")) {
		t.Errorf("size not updated: %d", c.Size())
	}
}

func TestMemoryCache_Prune(t *testing.T) {
	c := NewMemoryCache(100)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Put("old", []byte("1"))
	now = now.Add(time.Hour)
	_ = c.Put("new", []byte("2"))

	if n := c.Prune(30 * time.Minute); n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
	if c.Contains("old") || !c.Contains("new") {
		t.Error("wrong entry pruned")
	}
}

func TestMemoryCache_HitRate(t *testing.T) {
	c := NewMemoryCache(100)
	_ = c.Put("k", []byte("v"))
	c.Get("k")
	c.Get("missing")

	if r := c.Stats().HitRate(); r != 0.5 {
		t.Errorf("hit rate = %v, want 0.5", r)
	}
}
