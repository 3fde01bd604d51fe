package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/dgnsrekt/livechat-tts/internal/chat"
	"github.com/dgnsrekt/livechat-tts/internal/queue"
	"github.com/dgnsrekt/livechat-tts/internal/tts"
)

// DefaultMessageFormat is spoken when no format is configured.
const DefaultMessageFormat = "{author}: {text}"

// BackoffConfig shapes the delay between failed fetches.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64

	// MaxRetries turns that many consecutive transient failures into a
	// fatal error. 0 retries forever.
	MaxRetries int
}

// Options configures polling and speaking.
type Options struct {
	PollInterval  time.Duration
	SkipBacklog   bool
	MessageFormat string
	MaxTextLength int
	Voice         tts.VoiceConfig

	Backoff BackoffConfig

	// SynthesisRetries is how many times a retryable synthesis failure is
	// retried before the message is skipped.
	SynthesisRetries int

	// Shutdown is applied to the queue on cancellation and fatal errors.
	// Stream end always drains.
	Shutdown queue.ShutdownPolicy
}

// DefaultOptions returns the defaults used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		PollInterval:  3 * time.Second,
		SkipBacklog:   false,
		MessageFormat: DefaultMessageFormat,
		MaxTextLength: tts.DefaultMaxTextLength,
		Voice:         tts.VoiceConfig{Speed: tts.DefaultSpeed},
		Backoff: BackoffConfig{
			Initial:    time.Second,
			Max:        60 * time.Second,
			Multiplier: 2,
		},
		SynthesisRetries: 2,
		Shutdown:         queue.ShutdownGraceful,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	var errs []error
	if o.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be positive, got %v", o.PollInterval))
	}
	if o.Backoff.Initial <= 0 || o.Backoff.Max < o.Backoff.Initial {
		errs = append(errs, fmt.Errorf("backoff must satisfy 0 < initial (%v) <= max (%v)", o.Backoff.Initial, o.Backoff.Max))
	}
	if o.Backoff.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("backoff multiplier must be at least 1, got %v", o.Backoff.Multiplier))
	}
	if o.Backoff.MaxRetries < 0 || o.SynthesisRetries < 0 {
		errs = append(errs, errors.New("retry counts must not be negative"))
	}
	if o.MessageFormat != "" && !strings.Contains(o.MessageFormat, "{text}") {
		errs = append(errs, fmt.Errorf("message format %q must contain {text}", o.MessageFormat))
	}
	if err := o.Voice.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.MessageFormat == "" {
		o.MessageFormat = d.MessageFormat
	}
	if o.MaxTextLength <= 0 {
		o.MaxTextLength = d.MaxTextLength
	}
	if o.Backoff.Initial <= 0 {
		o.Backoff.Initial = d.Backoff.Initial
	}
	if o.Backoff.Max < o.Backoff.Initial {
		o.Backoff.Max = max(d.Backoff.Max, o.Backoff.Initial)
	}
	if o.Backoff.Multiplier < 1 {
		o.Backoff.Multiplier = d.Backoff.Multiplier
	}
	if o.Shutdown == "" {
		o.Shutdown = d.Shutdown
	}
	return o
}

// newBackOff builds the fetch backoff. It never stops on its own; the
// retry limit is enforced by the poller.
func (b BackoffConfig) newBackOff() *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = b.Initial
	eb.MaxInterval = b.Max
	eb.Multiplier = b.Multiplier
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}

// FormatMessage renders format with the message's {author} and {text}.
// A message without an author is spoken as its text alone.
func FormatMessage(format string, m chat.Message) string {
	if format == "" {
		format = DefaultMessageFormat
	}
	if strings.TrimSpace(m.Author) == "" {
		return m.Text
	}
	r := strings.NewReplacer("{author}", m.Author, "{text}", m.Text)
	return r.Replace(format)
}
