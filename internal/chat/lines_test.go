package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestLineSource(t *testing.T) {
	s := NewLineSource(strings.NewReader("hello\n\nworld\n"), "")
	ctx := context.Background()

	var texts []string
	var cursor Cursor
	for {
		page, err := s.Fetch(ctx, cursor)
		if errors.Is(err, ErrStreamEnded) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if len(page.Messages) != 1 {
			t.Fatalf("expected one message per page, got %d", len(page.Messages))
		}
		texts = append(texts, page.Messages[0].Text)
		cursor = page.Next
	}

	if strings.Join(texts, "|") != "hello||world" {
		t.Errorf("texts = %q", texts)
	}
	if cursor != "3" {
		t.Errorf("cursor = %q", cursor)
	}
}

func TestLineSource_IDsAreUnique(t *testing.T) {
	s := NewLineSource(strings.NewReader("same\nsame\n"), "me")
	a, _ := s.Fetch(context.Background(), "")
	b, _ := s.Fetch(context.Background(), a.Next)
	if a.Messages[0].ID == b.Messages[0].ID {
		t.Error("repeated lines must get distinct ids")
	}
	if a.Messages[0].Author != "me" {
		t.Errorf("author = %q", a.Messages[0].Author)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestLineSource_ReadError(t *testing.T) {
	s := NewLineSource(failingReader{}, "")
	_, err := s.Fetch(context.Background(), "")
	if !IsFatal(err) {
		t.Errorf("expected fatal error, got %v", err)
	}
}

func TestLineSource_CloseStopsReader(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close() //nolint:errcheck

	s := NewLineSource(r, "")
	// The reader now holds a line nobody fetches.
	if _, err := w.Write([]byte("unread\n")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	select {
	case <-s.exited:
	case <-time.After(time.Second):
		t.Fatal("reader goroutine still blocked after Close")
	}
	if _, err := s.Fetch(context.Background(), ""); !errors.Is(err, ErrStreamEnded) {
		t.Errorf("fetch after Close: expected ErrStreamEnded, got %v", err)
	}
	_ = s.Close()
}

func TestLineSource_Cancel(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close() //nolint:errcheck

	s := NewLineSource(r, "")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := s.Fetch(ctx, ""); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}
