package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ValidationResult contains the result of engine validation
type ValidationResult struct {
	// Engine is the validated engine type
	Engine EngineType

	// Available indicates if the engine is available and configured
	Available bool

	// Error contains any validation error
	Error error

	// Guidance provides setup instructions if validation failed
	Guidance string

	// Details contains additional validation information
	Details map[string]string
}

// SelectEngine resolves the engine to use. The CLI argument takes precedence
// over the configured value; there is no silent fallback.
func SelectEngine(cliArg, configured string) (EngineType, error) {
	name := strings.ToLower(strings.TrimSpace(cliArg))
	if name == "" {
		name = strings.ToLower(strings.TrimSpace(configured))
	}

	if name == "" {
		return EngineNone, fmt.Errorf("%w\n\nPlease specify an engine:\n  livechat-tts --tts piper --video-id ID    # Local Piper voice\n  livechat-tts --tts openai --video-id ID   # OpenAI speech API\n\nOr set a default in livechat-tts.yml:\n  tts:\n    engine: piper  # or \"openai\"", ErrNoEngineConfigured)
	}

	switch name {
	case "piper":
		return EnginePiper, nil
	case "openai", "oai":
		return EngineOpenAI, nil
	case "mock", "none":
		return EngineMock, nil
	default:
		return EngineNone, fmt.Errorf("%w: %s\n\nSupported engines:\n  - piper (local)\n  - openai (remote)\n  - mock (silent, for testing)", ErrInvalidEngine, name)
	}
}

// Check validates engine and attaches setup guidance when it is unusable.
func Check(ctx context.Context, engineType EngineType, engine Engine) *ValidationResult {
	result := &ValidationResult{
		Engine:  engineType,
		Details: make(map[string]string),
	}

	info := engine.Info()
	result.Details["engine"] = info.Name
	if info.SampleRate > 0 {
		result.Details["sample_rate"] = fmt.Sprintf("%d Hz", info.SampleRate)
	}
	if info.IsOnline {
		result.Details["network"] = "required"
	}

	if err := engine.Validate(ctx); err != nil {
		result.Error = err
		result.Guidance = Guidance(engineType, err)
		return result
	}

	result.Available = true
	return result
}

// Guidance returns setup instructions for an engine that failed with
// ErrEngineUnavailable, or "" for other errors.
func Guidance(engineType EngineType, err error) string {
	if !errors.Is(err, ErrEngineUnavailable) {
		return ""
	}
	switch engineType {
	case EnginePiper:
		return buildPiperInstallGuidance()
	case EngineOpenAI:
		return buildOpenAIKeyGuidance()
	default:
		return ""
	}
}

// buildPiperInstallGuidance provides instructions for installing Piper
func buildPiperInstallGuidance() string {
	return `Piper is not usable. To install:

1. Download the Piper binary from: https://github.com/rhasspy/piper/releases
   and put it on your PATH (or set tts.piper.binary).
2. Download a voice model (.onnx and .onnx.json) from:
   https://github.com/rhasspy/piper/blob/master/VOICES.md
3. Set the model path in livechat-tts.yml:

   tts:
     piper:
       model: ~/.local/share/piper/en_US-lessac-medium.onnx`
}

// buildOpenAIKeyGuidance explains how to provide OpenAI credentials
func buildOpenAIKeyGuidance() string {
	return `OpenAI speech requires an API key. Export it before starting:

   export OPENAI_API_KEY=sk-...

Voices: alloy, echo, fable, onyx, nova, shimmer. Models: tts-1, tts-1-hd.`
}
