package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"
)

// LineSource is a Source reading one message per line of r. It backs the
// speak command. The stream ends at EOF or Close.
type LineSource struct {
	author string
	lines  chan string
	err    error // set before lines is closed
	n      int

	done      chan struct{}
	closeOnce sync.Once
	exited    chan struct{}
}

// NewLineSource starts reading r in the background. Call Close when done
// fetching.
func NewLineSource(r io.Reader, author string) *LineSource {
	s := &LineSource{
		author: author,
		lines:  make(chan string),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go s.scan(r)
	return s
}

func (s *LineSource) scan(r io.Reader) {
	defer close(s.exited)
	defer close(s.lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		select {
		case s.lines <- sc.Text():
		case <-s.done:
			return
		}
	}
	s.err = sc.Err()
}

// Close stops the background reader once its pending read returns. Later
// fetches report the end of the stream.
func (s *LineSource) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

// Fetch returns the next line as a single-message page. It blocks until a
// line is available or ctx is done.
func (s *LineSource) Fetch(ctx context.Context, _ Cursor) (Page, error) {
	select {
	case <-ctx.Done():
		return Page{}, ctx.Err()
	case <-s.done:
		return Page{}, ErrStreamEnded
	case line, ok := <-s.lines:
		if !ok {
			if s.err != nil {
				return Page{}, &FatalFetchError{Op: "read", Err: fmt.Errorf("read input: %w", s.err)}
			}
			return Page{}, ErrStreamEnded
		}
		s.n++
		id := strconv.Itoa(s.n)
		return Page{
			Messages: []Message{{ID: "line-" + id, Author: s.author, Text: line, PublishedAt: time.Now()}},
			Next:     Cursor(id),
		}, nil
	}
}
