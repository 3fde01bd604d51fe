package engines

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/dgnsrekt/livechat-tts/internal/cache"
	"github.com/dgnsrekt/livechat-tts/internal/tts"
)

// audioHeaderSize prefixes cached PCM with its sample rate and channel count.
const audioHeaderSize = 6

// CachedEngine consults an audio cache before calling the wrapped engine.
type CachedEngine struct {
	engine tts.Engine
	cache  *cache.Manager
	logger *log.Logger
}

// NewCachedEngine wraps engine with c. The cache is closed with the engine.
func NewCachedEngine(engine tts.Engine, c *cache.Manager) *CachedEngine {
	return &CachedEngine{
		engine: engine,
		cache:  c,
		logger: log.WithPrefix("cache"),
	}
}

// Synthesize returns cached audio for (text, voice, engine) or synthesizes
// and stores it.
func (c *CachedEngine) Synthesize(ctx context.Context, text string, voice tts.VoiceConfig) (tts.Audio, error) {
	key := cache.Key(text, voice.Key(), c.engine.Info().Name)

	if data, ok := c.cache.Get(key); ok {
		if audio, err := decodeAudio(data); err == nil {
			c.logger.Debug("hit", "size", humanize.Bytes(uint64(len(audio.Data))))
			return audio, nil
		}
	}

	audio, err := c.engine.Synthesize(ctx, text, voice)
	if err != nil {
		return tts.Audio{}, err
	}

	if err := c.cache.Put(key, encodeAudio(audio)); err != nil {
		c.logger.Warn("failed to cache audio", "err", err)
	}
	return audio, nil
}

// Info returns the wrapped engine's info.
func (c *CachedEngine) Info() tts.EngineInfo { return c.engine.Info() }

// Validate validates the wrapped engine.
func (c *CachedEngine) Validate(ctx context.Context) error { return c.engine.Validate(ctx) }

// Close closes the wrapped engine and the cache.
func (c *CachedEngine) Close() error {
	engineErr := c.engine.Close()
	if err := c.cache.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	return engineErr
}

func encodeAudio(a tts.Audio) []byte {
	buf := make([]byte, audioHeaderSize+len(a.Data))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(a.SampleRate)) //nolint:gosec
	binary.LittleEndian.PutUint16(buf[4:6], uint16(a.Channels))   //nolint:gosec
	copy(buf[audioHeaderSize:], a.Data)
	return buf
}

func decodeAudio(b []byte) (tts.Audio, error) {
	if len(b) < audioHeaderSize {
		return tts.Audio{}, fmt.Errorf("cached audio truncated: %d bytes", len(b))
	}
	a := tts.Audio{
		SampleRate: int(binary.LittleEndian.Uint32(b[0:4])),
		Channels:   int(binary.LittleEndian.Uint16(b[4:6])),
		Data:       b[audioHeaderSize:],
	}
	if a.SampleRate == 0 || a.Channels == 0 {
		return tts.Audio{}, fmt.Errorf("cached audio has no format")
	}
	return a, nil
}

var _ tts.Engine = (*CachedEngine)(nil)
