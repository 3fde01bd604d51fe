package cache

import (
	"testing"
)

func TestManager_MemoryOnly(t *testing.T) {
	m, err := NewManager(Config{MemoryCapacity: 1024})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close() //nolint:errcheck

	key := Key("hello", "alloy", "openai")
	if _, ok := m.Get(key); ok {
		t.Fatal("empty cache returned a hit")
	}
	if err := m.Put(key, []byte("pcm")); err != nil {
		t.Fatal(err)
	}
	if got, ok := m.Get(key); !ok || string(got) != "pcm" {
		t.Fatalf("Get = %q, %v", got, ok)
	}

	s := m.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.MemoryHits != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestManager_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{MemoryCapacity: 1024, DiskPath: dir, DiskCapacity: 1 << 20, CompressionLevel: 3}

	first, err := NewManager(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Put("k", []byte("from disk")); err != nil {
		t.Fatal(err)
	}
	// Close waits for the background disk write.
	if err := first.Close(); err != nil {
		t.Fatal(err)
	}

	second, err := NewManager(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close() //nolint:errcheck

	got, ok := second.Get("k")
	if !ok || string(got) != "from disk" {
		t.Fatalf("Get = %q, %v", got, ok)
	}
	if !second.memory.Contains("k") {
		t.Error("disk hit was not promoted to memory")
	}
	if s := second.Stats(); s.DiskHits != 1 {
		t.Errorf("expected one disk hit, got %+v", s)
	}
}

func TestManager_PutAfterClose(t *testing.T) {
	m, err := NewManager(Config{})
	if err != nil {
		t.Fatal(err)
	}
	_ = m.Close()
	if err := m.Put("k", []byte("v")); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestKey(t *testing.T) {
	a := Key("hi", "alloy", "openai")
	if a != Key("hi", "alloy", "openai") {
		t.Error("Key is not deterministic")
	}
	for _, other := range []string{
		Key("hi", "echo", "openai"),
		Key("hi", "alloy", "piper"),
		Key("hi!", "alloy", "openai"),
	} {
		if other == a {
			t.Error("distinct inputs produced the same key")
		}
	}
}
