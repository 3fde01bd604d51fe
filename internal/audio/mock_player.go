package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgnsrekt/livechat-tts/internal/tts"
)

// MockPlayer simulates playback without producing sound. It backs
// --dry-run and the queue and pipeline tests.
type MockPlayer struct {
	// PlayDuration, when positive, replaces the audio's real duration.
	PlayDuration time.Duration

	// DelayFactor scales the audio's real duration (default 1.0; 0 plays
	// instantly when PlayDuration is unset).
	DelayFactor float64

	// Hold, when non-nil, keeps every Play blocked until it yields a value
	// or is closed.
	Hold <-chan struct{}

	// Callbacks
	OnStart func(a tts.Audio)
	Fail    func(a tts.Audio) error

	mu          sync.Mutex
	played      []tts.Audio
	interrupted []tts.Audio
	started     atomic.Int64
	closed      atomic.Bool
}

// NewMockPlayer creates a mock player that plays in real time.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{DelayFactor: 1.0}
}

// Play simulates playback of a, blocking like the real player.
func (mp *MockPlayer) Play(ctx context.Context, a tts.Audio) error {
	if mp.closed.Load() {
		return ErrClosed
	}

	mp.started.Add(1)
	if mp.OnStart != nil {
		mp.OnStart(a)
	}
	if mp.Fail != nil {
		if err := mp.Fail(a); err != nil {
			return err
		}
	}

	var wait <-chan time.Time
	if d := mp.duration(a); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		wait = t.C
	}

	if mp.Hold != nil {
		select {
		case <-mp.Hold:
		case <-ctx.Done():
			mp.record(&mp.interrupted, a)
			return ctx.Err()
		}
	}
	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			mp.record(&mp.interrupted, a)
			return ctx.Err()
		}
	}

	mp.record(&mp.played, a)
	return nil
}

func (mp *MockPlayer) duration(a tts.Audio) time.Duration {
	if mp.PlayDuration > 0 {
		return mp.PlayDuration
	}
	return time.Duration(float64(a.Duration()) * mp.DelayFactor)
}

func (mp *MockPlayer) record(dst *[]tts.Audio, a tts.Audio) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	*dst = append(*dst, a)
}

// Played returns the audio that finished playing, in order.
func (mp *MockPlayer) Played() []tts.Audio {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return append([]tts.Audio(nil), mp.played...)
}

// Interrupted returns the audio whose playback was cancelled.
func (mp *MockPlayer) Interrupted() []tts.Audio {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return append([]tts.Audio(nil), mp.interrupted...)
}

// Started returns how many times Play was entered.
func (mp *MockPlayer) Started() int {
	return int(mp.started.Load())
}

// Close makes further Play calls fail.
func (mp *MockPlayer) Close() error {
	mp.closed.Store(true)
	return nil
}
