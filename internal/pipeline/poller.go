package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/livechat-tts/internal/chat"
	"github.com/dgnsrekt/livechat-tts/internal/dedupe"
)

// FatalError stops the pipeline. Cursor is the last cursor that was
// fetched successfully.
type FatalError struct {
	Err    error
	Cursor chat.Cursor
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("chat polling stopped at cursor %q: %v", e.Cursor, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Outcome is why a Poller stopped without error.
type Outcome int

const (
	// OutcomeCancelled means ctx was cancelled
	OutcomeCancelled Outcome = iota

	// OutcomeEnded means the stream ended
	OutcomeEnded
)

func (o Outcome) String() string {
	if o == OutcomeEnded {
		return "ended"
	}
	return "cancelled"
}

// Handler receives each new message in order. Returning an error stops
// the poller; ctx errors are treated as cancellation.
type Handler func(ctx context.Context, m chat.Message) error

// PollStats are the poller counters.
type PollStats struct {
	Ticks             int64
	Fetched           int64
	New               int64
	Backlog           int64
	TransientFailures int64
}

type pollCounters struct {
	ticks, fetched, fresh, backlog, transient atomic.Int64
}

// Poller fetches pages from a Source and feeds unseen messages to a
// Handler. It is not safe for concurrent Run calls.
type Poller struct {
	source chat.Source
	dedup  *dedupe.Deduplicator
	opts   Options
	logger *log.Logger

	cursor   atomic.Value // chat.Cursor
	counters pollCounters

	// sleep waits d or until ctx is done. Replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller creates a poller. A nil dedup gets a default window.
func NewPoller(source chat.Source, dedup *dedupe.Deduplicator, opts Options, logger *log.Logger) *Poller {
	if dedup == nil {
		dedup = dedupe.New(nil)
	}
	if logger == nil {
		logger = log.WithPrefix("poller")
	}
	p := &Poller{
		source: source,
		dedup:  dedup,
		opts:   opts.withDefaults(),
		logger: logger,
		sleep:  sleepCtx,
	}
	p.cursor.Store(chat.Cursor(""))
	return p
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Cursor returns the last successfully fetched cursor.
func (p *Poller) Cursor() chat.Cursor {
	return p.cursor.Load().(chat.Cursor)
}

// Stats returns a snapshot of the counters.
func (p *Poller) Stats() PollStats {
	return PollStats{
		Ticks:             p.counters.ticks.Load(),
		Fetched:           p.counters.fetched.Load(),
		New:               p.counters.fresh.Load(),
		Backlog:           p.counters.backlog.Load(),
		TransientFailures: p.counters.transient.Load(),
	}
}

// Run polls until the stream ends, ctx is cancelled or a fatal error
// occurs. A non-nil error is always a *FatalError.
func (p *Poller) Run(ctx context.Context, handle Handler) (Outcome, error) {
	b := p.opts.Backoff.newBackOff()
	failures := 0
	first := true

	for {
		if ctx.Err() != nil {
			return OutcomeCancelled, nil
		}

		p.counters.ticks.Add(1)
		cursor := p.Cursor()
		page, err := p.source.Fetch(ctx, cursor)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return OutcomeCancelled, nil
			case errors.Is(err, chat.ErrStreamEnded):
				p.logger.Info("stream ended")
				return OutcomeEnded, nil
			case chat.IsFatal(err):
				return OutcomeCancelled, &FatalError{Err: err, Cursor: cursor}
			}

			// Unclassified errors are retried like transient ones.
			failures++
			p.counters.transient.Add(1)
			if limit := p.opts.Backoff.MaxRetries; limit > 0 && failures > limit {
				return OutcomeCancelled, &FatalError{
					Err:    fmt.Errorf("giving up after %d consecutive failures: %w", failures, err),
					Cursor: cursor,
				}
			}

			delay := b.NextBackOff()
			p.logger.Warn("fetch failed, backing off", "err", err, "attempt", failures, "delay", delay)
			if p.sleep(ctx, delay) != nil {
				return OutcomeCancelled, nil
			}
			continue
		}

		if failures > 0 {
			p.logger.Info("fetch recovered", "after", failures)
		}
		failures = 0
		b.Reset()

		fresh := p.dedup.Filter(page.Messages)
		p.counters.fetched.Add(int64(len(page.Messages)))
		if page.Next != "" {
			p.cursor.Store(page.Next)
		}

		if first && p.opts.SkipBacklog && len(fresh) > 0 {
			p.logger.Info("skipping chat backlog", "messages", len(fresh))
			p.counters.backlog.Add(int64(len(fresh)))
			fresh = nil
		}
		first = false

		p.counters.fresh.Add(int64(len(fresh)))
		p.logger.Debug("fetched", "items", len(page.Messages), "new", len(fresh), "poll_after", page.PollAfter)

		for _, m := range fresh {
			if err := handle(ctx, m); err != nil {
				if ctx.Err() != nil {
					return OutcomeCancelled, nil
				}
				return OutcomeCancelled, &FatalError{Err: err, Cursor: p.Cursor()}
			}
		}

		if page.Ended {
			p.logger.Info("stream ended")
			return OutcomeEnded, nil
		}

		if p.sleep(ctx, max(p.opts.PollInterval, page.PollAfter)) != nil {
			return OutcomeCancelled, nil
		}
	}
}
