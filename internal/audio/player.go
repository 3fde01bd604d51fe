package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/dgnsrekt/livechat-tts/internal/tts"
)

// ErrClosed is returned by Play after Close.
var ErrClosed = errors.New("player is closed")

// pollInterval is how often Play checks whether oto has drained the buffer.
const pollInterval = 10 * time.Millisecond

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoCfg  PlayerConfig
	otoErr  error
)

// Player plays PCM through the default audio device.
type Player struct {
	context *oto.Context

	sampleRate int
	channels   int

	volume atomic.Uint64 // volume * 1e6
	closed atomic.Bool

	// Serializes Play so audio never overlaps.
	playMu sync.Mutex

	logger *log.Logger
}

// PlayerConfig contains configuration for the audio player.
type PlayerConfig struct {
	SampleRate int // One of the rates accepted by validateConfig
	Channels   int // 1 = mono, 2 = stereo
	BitDepth   int // 16 bits per sample
	BufferSize int // Device buffer in bytes
}

// DefaultPlayerConfig returns the default player configuration.
func DefaultPlayerConfig() PlayerConfig {
	return PlayerConfig{
		SampleRate: 22050, // Piper's common model rate
		Channels:   1,
		BitDepth:   16,
		BufferSize: 4096,
	}
}

// NewPlayer opens the audio device. Audio passed to Play at another sample
// rate is resampled to config.SampleRate.
func NewPlayer(config PlayerConfig) (*Player, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   config.SampleRate,
			ChannelCount: config.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   time.Duration(config.BufferSize) * time.Second / time.Duration(config.SampleRate*config.Channels*2),
		}
		var ready chan struct{}
		otoCtx, ready, otoErr = oto.NewContext(op)
		if otoErr == nil {
			<-ready
		}
		otoCfg = config
	})
	if otoErr != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", otoErr)
	}
	if otoCfg.SampleRate != config.SampleRate || otoCfg.Channels != config.Channels {
		return nil, fmt.Errorf("audio device already open at %d Hz x%d", otoCfg.SampleRate, otoCfg.Channels)
	}

	p := &Player{
		context:    otoCtx,
		sampleRate: config.SampleRate,
		channels:   config.Channels,
		logger:     log.WithPrefix("audio"),
	}
	_ = p.SetVolume(1.0)
	return p, nil
}

// supportedRates are the rates the speech engines produce.
var supportedRates = map[int]bool{
	16000: true,
	22050: true,
	24000: true,
	44100: true,
	48000: true,
}

// validateConfig validates the player configuration.
func validateConfig(config PlayerConfig) error {
	if !supportedRates[config.SampleRate] {
		return fmt.Errorf("sample rate must be one of 16000, 22050, 24000, 44100 or 48000 Hz, got %d", config.SampleRate)
	}
	if config.Channels != 1 && config.Channels != 2 {
		return fmt.Errorf("channels must be 1 (mono) or 2 (stereo), got %d", config.Channels)
	}
	if config.BitDepth != 16 {
		return fmt.Errorf("bit depth must be 16, got %d", config.BitDepth)
	}
	if config.BufferSize <= 0 {
		return errors.New("buffer size must be positive")
	}
	return nil
}

// Play plays audio and returns once it has finished. Cancelling ctx stops
// playback at the next buffer boundary and returns ctx.Err().
func (p *Player) Play(ctx context.Context, audio tts.Audio) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if audio.Empty() {
		return nil
	}

	p.playMu.Lock()
	defer p.playMu.Unlock()

	data := convert(audio, p.sampleRate, p.channels)
	p.logger.Debug("playing", "duration", audio.Duration(), "rate", audio.SampleRate)

	// The reader holds data for the whole playback.
	player := p.context.NewPlayer(bytes.NewReader(data))
	defer player.Pause()
	player.SetVolume(p.getVolume())
	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
			if !player.IsPlaying() {
				if err := player.Err(); err != nil {
					return fmt.Errorf("playback failed: %w", err)
				}
				return nil
			}
		}
	}
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (p *Player) SetVolume(volume float64) error {
	if volume < 0.0 || volume > 1.0 {
		return fmt.Errorf("volume must be between 0.0 and 1.0, got %f", volume)
	}
	p.volume.Store(uint64(volume * 1e6))
	return nil
}

func (p *Player) getVolume() float64 {
	return float64(p.volume.Load()) / 1e6
}

// SampleRate returns the device rate.
func (p *Player) SampleRate() int {
	return p.sampleRate
}

// Close stops accepting audio and suspends the device.
func (p *Player) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	p.playMu.Lock()
	defer p.playMu.Unlock()
	if err := p.context.Suspend(); err != nil {
		return fmt.Errorf("suspend audio device: %w", err)
	}
	return nil
}
