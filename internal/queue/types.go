package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/livechat-tts/internal/tts"
)

var (
	// ErrQueueClosed is returned when enqueueing after Shutdown
	ErrQueueClosed = errors.New("queue is closed")

	// ErrInvalidPolicy is returned for unknown overflow or shutdown policies
	ErrInvalidPolicy = errors.New("invalid queue policy")
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 10

// Utterance is one synthesized chat message waiting to be played.
type Utterance struct {
	MessageID  string
	Author     string
	Text       string
	Audio      tts.Audio
	EnqueuedAt time.Time
}

// Player plays audio, blocking until it has finished or ctx is done.
type Player interface {
	Play(ctx context.Context, audio tts.Audio) error
}

// OverflowPolicy decides what Enqueue does when the queue is full.
type OverflowPolicy string

const (
	// OverflowBlock makes the producer wait for space
	OverflowBlock OverflowPolicy = "block"

	// OverflowDropOldest evicts the head of the queue
	OverflowDropOldest OverflowPolicy = "drop-oldest"
)

// ParseOverflowPolicy parses a policy name. Empty selects OverflowBlock.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch OverflowPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", OverflowBlock:
		return OverflowBlock, nil
	case OverflowDropOldest, "drop_oldest":
		return OverflowDropOldest, nil
	default:
		return "", fmt.Errorf("%w: overflow %q (want block or drop-oldest)", ErrInvalidPolicy, s)
	}
}

// ShutdownPolicy decides what happens to queued audio on Shutdown.
type ShutdownPolicy string

const (
	// ShutdownGraceful finishes the utterance being played and discards
	// the rest
	ShutdownGraceful ShutdownPolicy = "graceful"

	// ShutdownDrain plays everything already queued, then stops
	ShutdownDrain ShutdownPolicy = "drain"

	// ShutdownFast interrupts the current utterance and discards the rest
	ShutdownFast ShutdownPolicy = "fast"
)

// ParseShutdownPolicy parses a policy name. Empty selects ShutdownGraceful.
func ParseShutdownPolicy(s string) (ShutdownPolicy, error) {
	switch ShutdownPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ShutdownGraceful:
		return ShutdownGraceful, nil
	case ShutdownDrain:
		return ShutdownDrain, nil
	case ShutdownFast, "immediate":
		return ShutdownFast, nil
	default:
		return "", fmt.Errorf("%w: shutdown %q (want graceful, drain or fast)", ErrInvalidPolicy, s)
	}
}

// State is the consumer state.
type State int

const (
	// StateIdle means nothing is playing
	StateIdle State = iota

	// StatePlaying means an utterance is being played
	StatePlaying

	// StateStopped is terminal
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats tracks queue counters.
type Stats struct {
	Enqueued    int64
	Played      int64
	Dropped     int64 // evicted by drop-oldest
	Discarded   int64 // pending at shutdown
	Failed      int64 // playback errors
	Interrupted int64 // cut off by a fast shutdown
	Pending     int
	PeakSize    int
	LastPlayed  time.Time
}
