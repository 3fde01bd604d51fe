package engines

import (
	"fmt"

	"github.com/dgnsrekt/livechat-tts/internal/cache"
	"github.com/dgnsrekt/livechat-tts/internal/tts"
)

// Options configures New.
type Options struct {
	Piper  PiperConfig
	OpenAI OpenAIConfig

	// Cache, when non-nil, wraps the engine in a CachedEngine.
	Cache *cache.Manager
}

// New builds the engine selected by engineType.
func New(engineType tts.EngineType, opts Options) (tts.Engine, error) {
	var (
		engine tts.Engine
		err    error
	)

	switch engineType {
	case tts.EnginePiper:
		engine, err = NewPiperEngine(opts.Piper)
	case tts.EngineOpenAI:
		engine, err = NewOpenAIEngine(opts.OpenAI)
	case tts.EngineMock:
		engine = NewMockEngine()
	case tts.EngineNone:
		return nil, tts.ErrNoEngineConfigured
	default:
		return nil, fmt.Errorf("%w: %s", tts.ErrInvalidEngine, engineType)
	}
	if err != nil {
		return nil, err
	}

	if opts.Cache != nil && engineType != tts.EngineMock {
		engine = NewCachedEngine(engine, opts.Cache)
	}
	return engine, nil
}
