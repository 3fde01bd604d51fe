package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// PlaybackQueue is a bounded FIFO of utterances drained by a single
// consumer goroutine. Playback never overlaps and order is preserved.
type PlaybackQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond

	items    []Utterance
	capacity int
	overflow OverflowPolicy
	player   Player

	state   State
	closing bool
	drain   bool
	started bool
	done    chan struct{}

	playCtx    context.Context
	cancelPlay context.CancelFunc

	stats    Stats
	onPlayed func(Utterance)
	logger   *log.Logger
}

// Option configures a PlaybackQueue.
type Option func(*PlaybackQueue)

// WithLogger sets the queue logger.
func WithLogger(l *log.Logger) Option {
	return func(q *PlaybackQueue) { q.logger = l }
}

// WithOnPlayed registers a callback run after each utterance finishes
// playing. It runs on the consumer goroutine.
func WithOnPlayed(fn func(Utterance)) Option {
	return func(q *PlaybackQueue) { q.onPlayed = fn }
}

// New creates a queue. Nothing plays until Start is called.
func New(capacity int, overflow OverflowPolicy, player Player, opts ...Option) *PlaybackQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if overflow == "" {
		overflow = OverflowBlock
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &PlaybackQueue{
		items:      make([]Utterance, 0, capacity),
		capacity:   capacity,
		overflow:   overflow,
		player:     player,
		done:       make(chan struct{}),
		playCtx:    ctx,
		cancelPlay: cancel,
		logger:     log.WithPrefix("queue"),
	}
	q.notEmpty = sync.NewCond(&q.mu)
	q.notFull = sync.NewCond(&q.mu)
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds u to the tail. When the queue is full it either waits for
// space (block) or evicts the oldest pending utterance (drop-oldest).
// A blocked Enqueue returns ctx.Err() if ctx is done first, and
// ErrQueueClosed if the queue shuts down while it waits.
func (q *PlaybackQueue) Enqueue(ctx context.Context, u Utterance) error {
	if u.EnqueuedAt.IsZero() {
		u.EnqueuedAt = time.Now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closing {
		return ErrQueueClosed
	}

	if len(q.items) >= q.capacity {
		switch q.overflow {
		case OverflowDropOldest:
			for len(q.items) >= q.capacity {
				dropped := q.items[0]
				q.items[0] = Utterance{}
				q.items = q.items[1:]
				q.stats.Dropped++
				q.logger.Warn("queue full, dropping oldest",
					"id", dropped.MessageID,
					"author", dropped.Author,
					"size", humanize.Bytes(uint64(len(dropped.Audio.Data))))
			}
		default:
			if err := q.waitForSpace(ctx); err != nil {
				return err
			}
		}
	}

	q.items = append(q.items, u)
	q.stats.Enqueued++
	if len(q.items) > q.stats.PeakSize {
		q.stats.PeakSize = len(q.items)
	}
	q.notEmpty.Signal()
	return nil
}

// waitForSpace blocks on notFull until there is room, the queue closes or
// ctx is done. Must be called with q.mu held.
func (q *PlaybackQueue) waitForSpace(ctx context.Context) error {
	// Wake the waiter if ctx is cancelled while parked on the cond.
	stop := context.AfterFunc(ctx, func() {
		q.mu.Lock()
		q.notFull.Broadcast()
		q.mu.Unlock()
	})
	defer stop()

	for len(q.items) >= q.capacity && !q.closing {
		if err := ctx.Err(); err != nil {
			return err
		}
		q.notFull.Wait()
	}
	if q.closing {
		return ErrQueueClosed
	}
	return ctx.Err()
}

// Start launches the consumer goroutine. Calling it more than once has no
// effect.
func (q *PlaybackQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.state == StateStopped {
		return
	}
	q.started = true
	go q.consume()
}

func (q *PlaybackQueue) consume() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closing {
			q.notEmpty.Wait()
		}
		if q.closing && (!q.drain || len(q.items) == 0) {
			q.stopLocked()
			q.mu.Unlock()
			return
		}

		u := q.items[0]
		q.items[0] = Utterance{}
		q.items = q.items[1:]
		q.state = StatePlaying
		q.notFull.Signal()
		q.mu.Unlock()

		q.logger.Debug("playing", "id", u.MessageID, "author", u.Author, "duration", u.Audio.Duration())
		err := q.player.Play(q.playCtx, u.Audio)

		q.mu.Lock()
		q.state = StateIdle
		switch {
		case err == nil:
			q.stats.Played++
			q.stats.LastPlayed = time.Now()
		case errors.Is(err, context.Canceled) && q.playCtx.Err() != nil:
			q.stats.Interrupted++
			q.logger.Info("playback interrupted", "id", u.MessageID)
		default:
			q.stats.Failed++
			q.logger.Error("playback failed", "id", u.MessageID, "err", err)
		}
		q.mu.Unlock()

		if err == nil && q.onPlayed != nil {
			q.onPlayed(u)
		}
	}
}

// stopLocked discards what is left and moves to the terminal state. Must
// be called with q.mu held.
func (q *PlaybackQueue) stopLocked() {
	if n := len(q.items); n > 0 {
		q.stats.Discarded += int64(n)
		q.logger.Info("discarding pending utterances", "count", n)
	}
	q.items = nil
	q.state = StateStopped
	q.notFull.Broadcast()
}

// Shutdown stops accepting utterances, applies policy to what is queued
// and waits for the consumer to exit. A later call may escalate to
// ShutdownFast; other repeated calls only wait.
func (q *PlaybackQueue) Shutdown(policy ShutdownPolicy) {
	q.mu.Lock()
	if !q.closing {
		q.closing = true
		q.drain = policy == ShutdownDrain
		q.logger.Debug("shutting down", "policy", policy, "pending", len(q.items))
	}
	if policy == ShutdownFast {
		q.drain = false
		q.cancelPlay()
	}
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()

	if !q.started {
		if q.drain && len(q.items) > 0 {
			// Nothing consumed yet, so drain runs the consumer now.
			q.started = true
			go q.consume()
		} else {
			q.started = true
			q.stopLocked()
			close(q.done)
		}
	}
	q.mu.Unlock()

	<-q.done
	q.cancelPlay()
}

// Done is closed once the consumer has stopped.
func (q *PlaybackQueue) Done() <-chan struct{} {
	return q.done
}

// State returns the consumer state.
func (q *PlaybackQueue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Len returns the number of pending utterances.
func (q *PlaybackQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the queue bound.
func (q *PlaybackQueue) Capacity() int {
	return q.capacity
}

// Stats returns a snapshot of the counters.
func (q *PlaybackQueue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stats
	s.Pending = len(q.items)
	return s
}
