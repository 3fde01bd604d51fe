package tts

import (
	"fmt"
	"strings"
	"time"
)

// EngineType represents the speech engine selection
type EngineType string

const (
	// EnginePiper is the local Piper engine
	EnginePiper EngineType = "piper"

	// EngineOpenAI is the OpenAI speech endpoint
	EngineOpenAI EngineType = "openai"

	// EngineMock produces silence; used for dry runs and tests
	EngineMock EngineType = "mock"

	// EngineNone represents no engine selected
	EngineNone EngineType = ""
)

// Audio is synthesized speech ready for playback.
type Audio struct {
	// Data is 16-bit little-endian PCM.
	Data       []byte
	SampleRate int
	Channels   int
}

// Duration returns the playback length of the audio.
func (a Audio) Duration() time.Duration {
	if a.SampleRate <= 0 || a.Channels <= 0 {
		return 0
	}
	frames := len(a.Data) / (2 * a.Channels)
	return time.Duration(frames) * time.Second / time.Duration(a.SampleRate)
}

// Empty reports whether there is nothing to play.
func (a Audio) Empty() bool {
	return len(a.Data) == 0
}

// Speed limits shared by the engines.
const (
	MinSpeed     = 0.25
	MaxSpeed     = 4.0
	DefaultSpeed = 1.0
)

// VoiceConfig selects how text is spoken.
type VoiceConfig struct {
	// Name is the engine-specific voice, e.g. "alloy" for OpenAI.
	Name string

	// Model is the Piper model path or the OpenAI model name.
	Model string

	// Speed is a multiplier, 1.0 being normal.
	Speed float64

	// SpeakerID selects a speaker in multi-speaker Piper models.
	SpeakerID int
}

// Validate checks the speed range.
func (v VoiceConfig) Validate() error {
	if v.Speed == 0 {
		return nil
	}
	if v.Speed < MinSpeed || v.Speed > MaxSpeed {
		return fmt.Errorf("%w: got %.2f", ErrInvalidSpeed, v.Speed)
	}
	return nil
}

// EffectiveSpeed returns Speed, or DefaultSpeed when unset.
func (v VoiceConfig) EffectiveSpeed() float64 {
	if v.Speed == 0 {
		return DefaultSpeed
	}
	return v.Speed
}

// PiperLengthScale converts speed to Piper's length-scale parameter.
// Piper uses inverse scaling: faster speed = smaller length-scale.
func (v VoiceConfig) PiperLengthScale() string {
	return fmt.Sprintf("%.2f", 1.0/v.EffectiveSpeed())
}

// Key identifies the voice in cache keys.
func (v VoiceConfig) Key() string {
	return strings.Join([]string{
		v.Name,
		v.Model,
		fmt.Sprintf("%.2f", v.EffectiveSpeed()),
		fmt.Sprintf("%d", v.SpeakerID),
	}, "|")
}
