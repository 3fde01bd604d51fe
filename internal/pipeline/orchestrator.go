package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dgnsrekt/livechat-tts/internal/chat"
	"github.com/dgnsrekt/livechat-tts/internal/dedupe"
	"github.com/dgnsrekt/livechat-tts/internal/queue"
	"github.com/dgnsrekt/livechat-tts/internal/tts"
)

// Sink accepts synthesized utterances. *queue.PlaybackQueue implements it.
type Sink interface {
	Enqueue(ctx context.Context, u queue.Utterance) error
	Shutdown(policy queue.ShutdownPolicy)
}

// Stats are the orchestrator counters.
type Stats struct {
	PollStats

	// Spoken counts utterances handed to the queue.
	Spoken int64

	// Skipped counts messages dropped before the queue: empty after
	// normalising, or synthesis failed.
	Skipped int64

	SynthesisFailures int64
}

// Orchestrator wires a Poller to an engine and a playback queue.
type Orchestrator struct {
	poller *Poller
	engine tts.Engine
	sink   Sink
	opts   Options
	runID  string
	logger *log.Logger

	spoken, skipped, synthFailures atomic.Int64

	// retryInitial is the first synthesis retry delay.
	retryInitial time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDeduplicator replaces the default seen window.
func WithDeduplicator(d *dedupe.Deduplicator) Option {
	return func(o *Orchestrator) { o.poller.dedup = d }
}

// WithLogger sets the logger. The run id is added to it.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithRunID overrides the generated run id.
func WithRunID(id string) Option {
	return func(o *Orchestrator) { o.runID = id }
}

// New creates an orchestrator reading from source, speaking with engine
// and playing through sink.
func New(source chat.Source, engine tts.Engine, sink Sink, opts Options, extra ...Option) *Orchestrator {
	opts = opts.withDefaults()
	o := &Orchestrator{
		engine:       engine,
		sink:         sink,
		opts:         opts,
		runID:        uuid.NewString(),
		logger:       log.WithPrefix("pipeline"),
		retryInitial: 500 * time.Millisecond,
	}
	o.poller = NewPoller(source, nil, opts, nil)
	for _, opt := range extra {
		opt(o)
	}
	o.logger = o.logger.With("run", o.runID)
	o.poller.logger = o.logger
	return o
}

// RunID identifies this run in logs.
func (o *Orchestrator) RunID() string {
	return o.runID
}

// Run polls chatID until the stream ends, ctx is cancelled or a fatal
// error occurs, then shuts the queue down. Stream end drains the queue;
// cancellation and fatal errors apply the configured shutdown policy.
// Only fatal errors are returned, as *FatalError.
func (o *Orchestrator) Run(ctx context.Context, chatID string) error {
	logger := o.logger.With("chat", chatID)
	logger.Info("polling chat", "interval", o.opts.PollInterval, "engine", o.engine.Info().Name)

	outcome, err := o.poller.Run(ctx, o.speak)

	var fatal *FatalError
	switch {
	case errors.As(err, &fatal):
		logger.Error("chat polling failed", "err", fatal.Err, "cursor", fatal.Cursor)
		o.sink.Shutdown(o.opts.Shutdown)
		return err
	case outcome == OutcomeEnded:
		logger.Info("stream ended, draining queue")
		o.sink.Shutdown(queue.ShutdownDrain)
	default:
		logger.Info("stopping", "policy", o.opts.Shutdown)
		o.sink.Shutdown(o.opts.Shutdown)
	}

	s := o.Stats()
	logger.Info("done", "ticks", s.Ticks, "new", s.New, "spoken", s.Spoken, "skipped", s.Skipped)
	return nil
}

// speak formats, normalises, synthesizes and enqueues one message. Only
// ctx and queue errors are returned; synthesis failures skip the message.
func (o *Orchestrator) speak(ctx context.Context, m chat.Message) error {
	text := tts.Normalize(FormatMessage(o.opts.MessageFormat, m), o.opts.MaxTextLength)
	if text == "" {
		o.skipped.Add(1)
		o.logger.Debug("skipping empty message", "id", m.ID)
		return nil
	}

	audio, err := o.synthesize(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.skipped.Add(1)
		o.synthFailures.Add(1)
		o.logger.Warn("synthesis failed, skipping message", "id", m.ID, "author", m.Author, "err", err)
		return nil
	}

	u := queue.Utterance{
		MessageID:  m.ID,
		Author:     m.Author,
		Text:       text,
		Audio:      audio,
		EnqueuedAt: time.Now(),
	}
	if err := o.sink.Enqueue(ctx, u); err != nil {
		return fmt.Errorf("enqueue %s: %w", m.ID, err)
	}
	o.spoken.Add(1)
	return nil
}

// synthesize retries retryable engine errors with exponential backoff.
func (o *Orchestrator) synthesize(ctx context.Context, text string) (tts.Audio, error) {
	var audio tts.Audio
	op := func() error {
		a, err := o.engine.Synthesize(ctx, text, o.opts.Voice)
		if err != nil {
			if !tts.IsRetryable(err) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			o.logger.Debug("synthesis failed, retrying", "err", err)
			return err
		}
		audio = a
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = o.retryInitial
	eb.MaxElapsedTime = 0
	var b backoff.BackOff = eb
	b = backoff.WithMaxRetries(b, uint64(o.opts.SynthesisRetries)) //nolint:gosec
	b = backoff.WithContext(b, ctx)

	if err := backoff.Retry(op, b); err != nil {
		return tts.Audio{}, err
	}
	return audio, nil
}

// Cursor returns the last good chat cursor.
func (o *Orchestrator) Cursor() chat.Cursor {
	return o.poller.Cursor()
}

// Stats returns a snapshot of the counters.
func (o *Orchestrator) Stats() Stats {
	return Stats{
		PollStats:         o.poller.Stats(),
		Spoken:            o.spoken.Load(),
		Skipped:           o.skipped.Load(),
		SynthesisFailures: o.synthFailures.Load(),
	}
}
