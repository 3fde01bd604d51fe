package tts

import (
	"context"
)

// Engine defines the contract for speech engines.
// Implementations include Piper (local) and OpenAI (remote).
type Engine interface {
	// Synthesize converts text to audio.
	// Audio is 16-bit little-endian PCM at the rate the engine reports.
	// Implementations must bound their own run time.
	Synthesize(ctx context.Context, text string, voice VoiceConfig) (Audio, error)

	// Info returns engine capabilities.
	Info() EngineInfo

	// Validate checks that the engine can synthesize: binaries and model
	// files for Piper, credentials for OpenAI.
	Validate(ctx context.Context) error

	// Close releases any resources held by the engine.
	Close() error
}

// EngineInfo describes engine capabilities.
type EngineInfo struct {
	Name        string // Engine name (e.g., "piper", "openai")
	Version     string
	SampleRate  int // Audio sample rate in Hz
	Channels    int // 1=mono, 2=stereo
	BitDepth    int
	MaxTextSize int  // Maximum text size in runes
	IsOnline    bool // Whether the engine requires network access
}
