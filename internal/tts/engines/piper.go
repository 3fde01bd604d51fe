package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"

	"github.com/dgnsrekt/livechat-tts/internal/tts"
)

const (
	piperDefaultSampleRate = 22050
	piperDefaultTimeout    = 10 * time.Second
	piperMaxTextSize       = 5000
	piperMaxAudioSize      = 10 * 1024 * 1024
)

// PiperEngine implements tts.Engine by running the piper binary.
// A fresh process per synthesis with pre-configured stdin avoids the race
// between piper reading stdin and us writing to it.
type PiperEngine struct {
	binary     string
	modelPath  string
	configPath string
	sampleRate int
	timeout    time.Duration
	logger     *log.Logger

	mu sync.RWMutex
}

// PiperConfig holds configuration for the Piper engine.
type PiperConfig struct {
	// Binary is the piper executable (default "piper" from PATH).
	Binary string

	// ModelPath is the .onnx voice model (required).
	ModelPath string

	// ConfigPath defaults to ModelPath + ".json".
	ConfigPath string

	// SampleRate overrides the rate read from the model config.
	SampleRate int

	// Timeout bounds a single synthesis (default 10s).
	Timeout time.Duration
}

// piperModelConfig is the part of <model>.onnx.json we need.
type piperModelConfig struct {
	Audio struct {
		SampleRate int `json:"sample_rate"`
	} `json:"audio"`
}

// NewPiperEngine creates a Piper engine. A missing model is reported as
// tts.ErrEngineUnavailable.
func NewPiperEngine(cfg PiperConfig) (*PiperEngine, error) {
	if cfg.ModelPath == "" {
		return nil, &tts.EngineUnavailableError{Engine: "piper", Err: errors.New("model path is required")}
	}

	modelPath, err := homedir.Expand(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("expand model path: %w", err)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, &tts.EngineUnavailableError{Engine: "piper", Voice: modelPath, Err: fmt.Errorf("model file not found: %w", err)}
	}

	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = modelPath + ".json"
	} else if configPath, err = homedir.Expand(configPath); err != nil {
		return nil, fmt.Errorf("expand model config path: %w", err)
	}

	e := &PiperEngine{
		binary:     cfg.Binary,
		modelPath:  modelPath,
		configPath: configPath,
		sampleRate: cfg.SampleRate,
		timeout:    cfg.Timeout,
		logger:     log.WithPrefix("piper"),
	}
	if e.binary == "" {
		e.binary = "piper"
	}
	if e.timeout <= 0 {
		e.timeout = piperDefaultTimeout
	}
	if e.sampleRate == 0 {
		e.sampleRate = readPiperSampleRate(configPath)
	}

	return e, nil
}

// readPiperSampleRate reads audio.sample_rate from the model config,
// falling back to 22050 Hz.
func readPiperSampleRate(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return piperDefaultSampleRate
	}
	var mc piperModelConfig
	if err := sonic.Unmarshal(data, &mc); err != nil || mc.Audio.SampleRate <= 0 {
		return piperDefaultSampleRate
	}
	return mc.Audio.SampleRate
}

// Synthesize converts text to 16-bit mono PCM using Piper.
func (e *PiperEngine) Synthesize(ctx context.Context, text string, voice tts.VoiceConfig) (tts.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return tts.Audio{}, tts.ErrEmptyText
	}
	if len(text) > piperMaxTextSize {
		return tts.Audio{}, fmt.Errorf("text too long: %d bytes (max %d)", len(text), piperMaxTextSize)
	}
	if err := voice.Validate(); err != nil {
		return tts.Audio{}, err
	}

	e.mu.RLock()
	binary, modelPath, configPath, sampleRate := e.binary, e.modelPath, e.configPath, e.sampleRate
	e.mu.RUnlock()

	args := []string{
		"--model", modelPath,
		"--config", configPath,
		"--output-raw",
		"--length-scale", voice.PiperLengthScale(),
	}
	if voice.SpeakerID > 0 {
		args = append(args, "--speaker", strconv.Itoa(voice.SpeakerID))
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, args...)
	// Interrupt first, kill if piper has not exited shortly after.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 100 * time.Millisecond

	cmd.Stdin = strings.NewReader(text)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return tts.Audio{}, &tts.EngineUnavailableError{Engine: "piper", Voice: modelPath, Err: err}
		}
		if ctx.Err() != nil {
			return tts.Audio{}, fmt.Errorf("synthesis timeout: %w", ctx.Err())
		}
		return tts.Audio{}, fmt.Errorf("piper failed: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	data := stdout.Bytes()
	if len(data) == 0 {
		return tts.Audio{}, fmt.Errorf("piper produced no audio output, stderr: %s", strings.TrimSpace(stderr.String()))
	}
	if len(data) > piperMaxAudioSize {
		return tts.Audio{}, fmt.Errorf("piper output too large: %d bytes (max %d)", len(data), piperMaxAudioSize)
	}
	// Drop a dangling half sample.
	data = data[:len(data)&^1]

	audio := tts.Audio{Data: data, SampleRate: sampleRate, Channels: 1}
	e.logger.Debug("synthesized", "runes", len([]rune(text)), "audio", audio.Duration(), "took", time.Since(start))
	return audio, nil
}

// Info returns engine capabilities.
func (e *PiperEngine) Info() tts.EngineInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return tts.EngineInfo{
		Name:        "piper",
		SampleRate:  e.sampleRate,
		Channels:    1,
		BitDepth:    16,
		MaxTextSize: piperMaxTextSize,
		IsOnline:    false,
	}
}

// Validate checks the binary and model, then runs a test synthesis.
func (e *PiperEngine) Validate(ctx context.Context) error {
	e.mu.RLock()
	binary, modelPath := e.binary, e.modelPath
	e.mu.RUnlock()

	if _, err := exec.LookPath(binary); err != nil {
		return &tts.EngineUnavailableError{Engine: "piper", Err: fmt.Errorf("piper not found in PATH: %w", err)}
	}
	if _, err := os.Stat(modelPath); err != nil {
		return &tts.EngineUnavailableError{Engine: "piper", Voice: modelPath, Err: fmt.Errorf("model file not accessible: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := e.Synthesize(ctx, "Test", tts.VoiceConfig{}); err != nil {
		return &tts.EngineUnavailableError{Engine: "piper", Voice: modelPath, Err: fmt.Errorf("test synthesis failed: %w", err)}
	}
	return nil
}

// Close releases resources held by the engine.
func (e *PiperEngine) Close() error {
	return nil
}

var _ tts.Engine = (*PiperEngine)(nil)
