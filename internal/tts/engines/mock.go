package engines

import (
	"context"
	"sync"
	"time"

	"github.com/dgnsrekt/livechat-tts/internal/tts"
)

// MockEngine produces silence sized to the text. It backs --dry-run and
// tests that need a deterministic engine.
type MockEngine struct {
	// SampleRate of the generated audio (default 22050).
	SampleRate int

	// PerRune is the audio length generated per rune of text (default 20ms).
	PerRune time.Duration

	// Latency is waited before returning, honouring ctx.
	Latency time.Duration

	// Fail, when set, is consulted before synthesizing.
	Fail func(text string) error

	mu    sync.Mutex
	calls []string
}

// NewMockEngine returns a mock engine with default settings.
func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

// Synthesize records the call and returns silence.
func (m *MockEngine) Synthesize(ctx context.Context, text string, _ tts.VoiceConfig) (tts.Audio, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()

	if text == "" {
		return tts.Audio{}, tts.ErrEmptyText
	}

	if m.Latency > 0 {
		t := time.NewTimer(m.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return tts.Audio{}, ctx.Err()
		case <-t.C:
		}
	}

	if m.Fail != nil {
		if err := m.Fail(text); err != nil {
			return tts.Audio{}, err
		}
	}

	rate := m.sampleRate()
	perRune := m.PerRune
	if perRune <= 0 {
		perRune = 20 * time.Millisecond
	}
	length := time.Duration(len([]rune(text))) * perRune
	frames := int(length * time.Duration(rate) / time.Second)

	return tts.Audio{Data: make([]byte, 2*frames), SampleRate: rate, Channels: 1}, nil
}

// Calls returns the texts passed to Synthesize, in order.
func (m *MockEngine) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// Info returns engine capabilities.
func (m *MockEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        "mock",
		SampleRate:  m.sampleRate(),
		Channels:    1,
		BitDepth:    16,
		MaxTextSize: tts.DefaultMaxTextLength,
	}
}

// Validate always succeeds.
func (m *MockEngine) Validate(context.Context) error { return nil }

// Close does nothing.
func (m *MockEngine) Close() error { return nil }

func (m *MockEngine) sampleRate() int {
	if m.SampleRate > 0 {
		return m.SampleRate
	}
	return 22050
}

var _ tts.Engine = (*MockEngine)(nil)
