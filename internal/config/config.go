package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/livechat-tts/internal/queue"
	"github.com/dgnsrekt/livechat-tts/internal/tts"
)

// Config is the complete, validated configuration. It is read once at
// startup and not changed afterwards.
type Config struct {
	Debug   bool
	LogFile string
	DryRun  bool

	YouTube YouTubeConfig
	Chat    ChatConfig
	Dedupe  DedupeConfig
	Backoff BackoffConfig
	TTS     TTSConfig
	Queue   QueueConfig
	Audio   AudioConfig
}

// YouTubeConfig selects the stream and configures the API client.
type YouTubeConfig struct {
	APIKey            string
	VideoID           string
	ChannelID         string // channel id, @handle or legacy username
	BaseURL           string
	RequestsPerMinute int
}

// ChatConfig configures polling and how messages are spoken.
type ChatConfig struct {
	PollInterval  time.Duration
	FetchTimeout  time.Duration
	SkipBacklog   bool
	MessageFormat string
	MaxTextLength int
}

// DedupeConfig bounds the seen-id window.
type DedupeConfig struct {
	WindowSize int
	MaxAge     time.Duration
}

// BackoffConfig shapes retries after transient fetch failures.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	MaxRetries int
}

// TTSConfig selects and configures the speech engine.
type TTSConfig struct {
	Engine    string
	Voice     string
	Model     string
	Speed     float64
	SpeakerID int
	RetryMax  int

	Piper  PiperConfig
	OpenAI OpenAIConfig
	Cache  CacheConfig
}

// PiperConfig configures the local piper engine.
type PiperConfig struct {
	Binary  string
	Model   string
	Config  string
	Timeout time.Duration
}

// OpenAIConfig configures the remote engine.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Voice   string
	Timeout time.Duration
}

// CacheConfig configures the synthesized audio cache.
type CacheConfig struct {
	Enabled  bool
	MemoryMB int
	Dir      string
	DiskMB   int
	TTL      time.Duration
}

// QueueConfig configures the playback queue.
type QueueConfig struct {
	Size     int
	Overflow string
	Shutdown string
}

// AudioConfig configures the output device.
type AudioConfig struct {
	Volume     float64
	BufferSize int
}

// Secrets are read from the environment only.
type Secrets struct {
	YouTubeAPIKey string `env:"YOUTUBE_API_KEY"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
}

// LoadSecrets reads API keys from the environment.
func LoadSecrets() (Secrets, error) {
	s, err := env.ParseAs[Secrets]()
	if err != nil {
		return Secrets{}, fmt.Errorf("error parsing environment: %w", err)
	}
	return s, nil
}

// Load builds a Config from v and the environment secrets. Environment
// secrets take precedence over keys written in the config file.
func Load(v *viper.Viper) (Config, error) {
	secrets, err := LoadSecrets()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Debug:   v.GetBool("debug"),
		LogFile: v.GetString("log_file"),
		DryRun:  v.GetBool("dry_run"),
		YouTube: YouTubeConfig{
			APIKey:            firstNonEmpty(secrets.YouTubeAPIKey, v.GetString("youtube.api_key")),
			VideoID:           strings.TrimSpace(v.GetString("youtube.video_id")),
			ChannelID:         strings.TrimSpace(v.GetString("youtube.channel_id")),
			BaseURL:           v.GetString("youtube.base_url"),
			RequestsPerMinute: v.GetInt("youtube.requests_per_minute"),
		},
		Chat: ChatConfig{
			PollInterval:  v.GetDuration("chat.poll_interval"),
			FetchTimeout:  v.GetDuration("chat.fetch_timeout"),
			SkipBacklog:   v.GetBool("chat.skip_backlog"),
			MessageFormat: v.GetString("chat.message_format"),
			MaxTextLength: v.GetInt("chat.max_text_length"),
		},
		Dedupe: DedupeConfig{
			WindowSize: v.GetInt("dedupe.window_size"),
			MaxAge:     v.GetDuration("dedupe.max_age"),
		},
		Backoff: BackoffConfig{
			Initial:    v.GetDuration("backoff.initial"),
			Max:        v.GetDuration("backoff.max"),
			Multiplier: v.GetFloat64("backoff.multiplier"),
			MaxRetries: v.GetInt("backoff.max_retries"),
		},
		TTS: TTSConfig{
			Engine:    v.GetString("tts.engine"),
			Voice:     v.GetString("tts.voice"),
			Model:     v.GetString("tts.model"),
			Speed:     v.GetFloat64("tts.speed"),
			SpeakerID: v.GetInt("tts.speaker_id"),
			RetryMax:  v.GetInt("tts.retry_max"),
			Piper: PiperConfig{
				Binary:  v.GetString("tts.piper.binary"),
				Model:   v.GetString("tts.piper.model"),
				Config:  v.GetString("tts.piper.config"),
				Timeout: v.GetDuration("tts.piper.timeout"),
			},
			OpenAI: OpenAIConfig{
				APIKey:  firstNonEmpty(secrets.OpenAIAPIKey, v.GetString("tts.openai.api_key")),
				BaseURL: v.GetString("tts.openai.base_url"),
				Model:   v.GetString("tts.openai.model"),
				Voice:   v.GetString("tts.openai.voice"),
				Timeout: v.GetDuration("tts.openai.timeout"),
			},
			Cache: CacheConfig{
				Enabled:  v.GetBool("tts.cache.enabled"),
				MemoryMB: v.GetInt("tts.cache.memory_mb"),
				Dir:      v.GetString("tts.cache.dir"),
				DiskMB:   v.GetInt("tts.cache.disk_mb"),
				TTL:      v.GetDuration("tts.cache.ttl"),
			},
		},
		Queue: QueueConfig{
			Size:     v.GetInt("queue.size"),
			Overflow: v.GetString("queue.overflow"),
			Shutdown: v.GetString("queue.shutdown"),
		},
		Audio: AudioConfig{
			Volume:     v.GetFloat64("audio.volume"),
			BufferSize: v.GetInt("audio.buffer_size"),
		},
	}

	if err := cfg.expandPaths(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.LogFile, &c.TTS.Piper.Model, &c.TTS.Piper.Config, &c.TTS.Cache.Dir} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks value ranges. Missing API keys and engine availability
// are checked later, when the engine and client are built.
func (c Config) Validate() error {
	var errs []error

	if c.Chat.PollInterval < 500*time.Millisecond {
		errs = append(errs, fmt.Errorf("chat.poll_interval must be at least 500ms, got %v", c.Chat.PollInterval))
	}
	if c.Chat.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("chat.fetch_timeout must be positive, got %v", c.Chat.FetchTimeout))
	}
	if c.Chat.MaxTextLength < 1 {
		errs = append(errs, fmt.Errorf("chat.max_text_length must be positive, got %d", c.Chat.MaxTextLength))
	}
	if c.Chat.MessageFormat != "" && !strings.Contains(c.Chat.MessageFormat, "{text}") {
		errs = append(errs, fmt.Errorf("chat.message_format %q must contain {text}", c.Chat.MessageFormat))
	}
	if c.Dedupe.WindowSize < 1 {
		errs = append(errs, fmt.Errorf("dedupe.window_size must be positive, got %d", c.Dedupe.WindowSize))
	}
	if c.Dedupe.MaxAge < 0 {
		errs = append(errs, errors.New("dedupe.max_age must not be negative"))
	}
	if c.Backoff.Initial <= 0 || c.Backoff.Max < c.Backoff.Initial {
		errs = append(errs, fmt.Errorf("backoff must satisfy 0 < initial (%v) <= max (%v)", c.Backoff.Initial, c.Backoff.Max))
	}
	if c.Backoff.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("backoff.multiplier must be at least 1, got %v", c.Backoff.Multiplier))
	}
	if c.Backoff.MaxRetries < 0 || c.TTS.RetryMax < 0 {
		errs = append(errs, errors.New("retry counts must not be negative"))
	}
	if c.TTS.Speed != 0 && (c.TTS.Speed < tts.MinSpeed || c.TTS.Speed > tts.MaxSpeed) {
		errs = append(errs, fmt.Errorf("tts.speed: %w, got %.2f", tts.ErrInvalidSpeed, c.TTS.Speed))
	}
	if c.TTS.Cache.MemoryMB < 0 || c.TTS.Cache.DiskMB < 0 {
		errs = append(errs, errors.New("tts.cache sizes must not be negative"))
	}
	if c.Queue.Size < 1 || c.Queue.Size > 1000 {
		errs = append(errs, fmt.Errorf("queue.size must be between 1 and 1000, got %d", c.Queue.Size))
	}
	if _, err := queue.ParseOverflowPolicy(c.Queue.Overflow); err != nil {
		errs = append(errs, err)
	}
	if _, err := queue.ParseShutdownPolicy(c.Queue.Shutdown); err != nil {
		errs = append(errs, err)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		errs = append(errs, fmt.Errorf("audio.volume must be between 0.0 and 1.0, got %.2f", c.Audio.Volume))
	}
	if c.Audio.BufferSize <= 0 {
		errs = append(errs, fmt.Errorf("audio.buffer_size must be positive, got %d", c.Audio.BufferSize))
	}

	return errors.Join(errs...)
}

// Voice returns the voice settings shared by every engine.
func (c Config) Voice() tts.VoiceConfig {
	return tts.VoiceConfig{
		Name:      c.TTS.Voice,
		Model:     c.TTS.Model,
		Speed:     c.TTS.Speed,
		SpeakerID: c.TTS.SpeakerID,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
