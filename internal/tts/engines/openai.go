package engines

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sashabaranov/go-openai"

	"github.com/dgnsrekt/livechat-tts/internal/tts"
)

const (
	// OpenAI returns raw PCM as 24 kHz 16-bit mono.
	openAISampleRate     = 24000
	openAIMaxTextSize    = 4096
	openAIDefaultTimeout = 20 * time.Second
	openAIDefaultModel   = string(openai.TTSModel1)
	openAIDefaultVoice   = string(openai.VoiceAlloy)
)

// OpenAIEngine implements tts.Engine with the OpenAI speech endpoint.
type OpenAIEngine struct {
	client  *openai.Client
	apiKey  string
	model   string
	voice   string
	timeout time.Duration
	logger  *log.Logger
}

// OpenAIConfig holds configuration for the OpenAI engine.
type OpenAIConfig struct {
	APIKey string

	// BaseURL overrides the API endpoint, e.g. for a compatible proxy.
	BaseURL string

	// Model defaults to tts-1, Voice to alloy.
	Model string
	Voice string

	// Timeout bounds one request (default 20s).
	Timeout time.Duration

	HTTPClient *http.Client
}

// NewOpenAIEngine creates an OpenAI engine. A missing key is reported as
// tts.ErrEngineUnavailable.
func NewOpenAIEngine(cfg OpenAIConfig) (*OpenAIEngine, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, &tts.EngineUnavailableError{Engine: "openai", Voice: cfg.Voice, Err: errors.New("OPENAI_API_KEY is not set")}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = openAIDefaultTimeout
	}

	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	} else {
		clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	}

	e := &OpenAIEngine{
		client:  openai.NewClientWithConfig(clientCfg),
		apiKey:  key,
		model:   cfg.Model,
		voice:   cfg.Voice,
		timeout: timeout,
		logger:  log.WithPrefix("openai"),
	}
	if e.model == "" {
		e.model = openAIDefaultModel
	}
	if e.voice == "" {
		e.voice = openAIDefaultVoice
	}
	return e, nil
}

// Synthesize requests raw PCM for text. Failures are returned as
// *tts.RemoteSynthesisError.
func (e *OpenAIEngine) Synthesize(ctx context.Context, text string, voice tts.VoiceConfig) (tts.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return tts.Audio{}, tts.ErrEmptyText
	}
	if err := voice.Validate(); err != nil {
		return tts.Audio{}, err
	}

	req := openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(firstNonEmpty(voice.Model, e.model)),
		Input:          text,
		Voice:          openai.SpeechVoice(firstNonEmpty(voice.Name, e.voice)),
		ResponseFormat: openai.SpeechResponseFormatPcm,
		Speed:          voice.EffectiveSpeed(),
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	resp, err := e.client.CreateSpeech(ctx, req)
	if err != nil {
		return tts.Audio{}, classifyOpenAIError(ctx, err)
	}
	defer resp.Close() //nolint:errcheck

	data, err := io.ReadAll(resp)
	if err != nil {
		return tts.Audio{}, &tts.RemoteSynthesisError{Retryable: true, Err: fmt.Errorf("read audio: %w", err)}
	}
	if len(data) == 0 {
		return tts.Audio{}, &tts.RemoteSynthesisError{Retryable: true, Err: errors.New("empty audio response")}
	}
	data = data[:len(data)&^1]

	audio := tts.Audio{Data: data, SampleRate: openAISampleRate, Channels: 1}
	e.logger.Debug("synthesized", "voice", req.Voice, "model", req.Model, "audio", audio.Duration(), "took", time.Since(start))
	return audio, nil
}

// classifyOpenAIError maps client errors onto RemoteSynthesisError:
// 408, 409, 429 and 5xx as well as timeouts are retryable.
func classifyOpenAIError(ctx context.Context, err error) error {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	var netErr net.Error

	switch {
	case errors.As(err, &apiErr):
		return &tts.RemoteSynthesisError{Status: apiErr.HTTPStatusCode, Retryable: retryableStatus(apiErr.HTTPStatusCode), Err: err}
	case errors.As(err, &reqErr):
		return &tts.RemoteSynthesisError{Status: reqErr.HTTPStatusCode, Retryable: retryableStatus(reqErr.HTTPStatusCode), Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &tts.RemoteSynthesisError{Retryable: true, Err: err}
	case ctx.Err() != nil:
		// Caller cancelled; retrying would be pointless.
		return &tts.RemoteSynthesisError{Err: err}
	default:
		// Connection refused, DNS and similar transport failures.
		return &tts.RemoteSynthesisError{Retryable: true, Err: err}
	}
}

func retryableStatus(status int) bool {
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status == http.StatusConflict,
		status >= 500:
		return true
	default:
		return false
	}
}

// Info returns engine capabilities.
func (e *OpenAIEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        "openai",
		Version:     e.model,
		SampleRate:  openAISampleRate,
		Channels:    1,
		BitDepth:    16,
		MaxTextSize: openAIMaxTextSize,
		IsOnline:    true,
	}
}

// Validate checks that a key is configured. It does not spend quota on a
// test request.
func (e *OpenAIEngine) Validate(context.Context) error {
	if e.apiKey == "" {
		return &tts.EngineUnavailableError{Engine: "openai", Voice: e.voice, Err: errors.New("OPENAI_API_KEY is not set")}
	}
	return nil
}

// Close releases resources held by the engine.
func (e *OpenAIEngine) Close() error {
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ tts.Engine = (*OpenAIEngine)(nil)
