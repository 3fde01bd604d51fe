package cache

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"
)

func TestDiskCache_CompressedRoundTrip(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close() //nolint:errcheck

	// Silence compresses well.
	value := make([]byte, 16*1024)
	if err := dc.Put("silence", value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entry := dc.index["silence"]
	if !entry.Compressed {
		t.Error("expected large repetitive value to be compressed")
	}
	if !strings.HasSuffix(entry.File, ".zst") {
		t.Errorf("unexpected file name %s", entry.File)
	}
	if dc.Size() >= int64(len(value)) {
		t.Errorf("disk size %d not smaller than raw %d", dc.Size(), len(value))
	}

	got, ok := dc.Get("silence")
	if !ok || !bytes.Equal(got, value) {
		t.Fatal("round trip mismatch")
	}
}

func TestDiskCache_SmallValuesStoredRaw(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close() //nolint:errcheck

	if err := dc.Put("tiny", []byte("abc")); err != nil {
		t.Fatal(err)
	}
	if dc.index["tiny"].Compressed {
		t.Error("values under the threshold should not be compressed")
	}
}

func TestDiskCache_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	dc, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := dc.Put("k", []byte("persisted")); err != nil {
		t.Fatal(err)
	}
	if err := dc.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close() //nolint:errcheck

	got, ok := reopened.Get("k")
	if !ok || string(got) != "persisted" {
		t.Fatalf("Get after reopen = %q, %v", got, ok)
	}
	if reopened.Size() != int64(len("persisted")) {
		t.Errorf("size not restored: %d", reopened.Size())
	}
}

func TestDiskCache_MissingFileIsMiss(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close() //nolint:errcheck

	_ = dc.Put("k", []byte("v"))
	_ = os.Remove(dc.index["k"].File)

	if _, ok := dc.Get("k"); ok {
		t.Error("expected miss for deleted file")
	}
	if s := dc.Stats(); s.Items != 0 || s.Size != 0 {
		t.Errorf("stale entry kept: %+v", s)
	}
}

func TestDiskCache_EvictsLeastRecentlyAccessed(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close() //nolint:errcheck

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dc.now = func() time.Time { now = now.Add(time.Second); return now }

	_ = dc.Put("a", bytes.Repeat([]byte("a"), 10))
	_ = dc.Put("b", bytes.Repeat([]byte("b"), 10))
	dc.Get("a")
	_ = dc.Put("c", bytes.Repeat([]byte("c"), 10))

	if _, ok := dc.index["b"]; ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := dc.index["a"]; !ok {
		t.Error("expected recently read a to remain")
	}
}

func TestDiskCache_RemoveOlderThan(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 1<<20, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close() //nolint:errcheck

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dc.now = func() time.Time { return now }
	_ = dc.Put("old", []byte("1"))
	now = now.Add(48 * time.Hour)
	_ = dc.Put("new", []byte("2"))

	if n := dc.RemoveOlderThan(now.Add(-24 * time.Hour)); n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
}
