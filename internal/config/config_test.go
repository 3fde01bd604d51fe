package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("YOUTUBE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "livechat-tts.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearSecrets(t)

	cfg, err := Load(NewViper())
	if err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}
	if cfg.Chat.PollInterval != 3*time.Second || cfg.Chat.SkipBacklog {
		t.Errorf("unexpected chat defaults %+v", cfg.Chat)
	}
	if cfg.Queue.Overflow != "block" || cfg.Queue.Shutdown != "graceful" || cfg.Queue.Size != 10 {
		t.Errorf("unexpected queue defaults %+v", cfg.Queue)
	}
	if cfg.Dedupe.WindowSize != 5000 || cfg.TTS.RetryMax != 2 {
		t.Errorf("unexpected defaults %+v %+v", cfg.Dedupe, cfg.TTS)
	}
}

func TestLoad_DefaultYAMLIsValid(t *testing.T) {
	clearSecrets(t)

	v := NewViper()
	if _, err := ReadInConfig(v, writeConfig(t, DefaultYAML), nil); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("default config file should load: %v", err)
	}
	if cfg.TTS.OpenAI.Voice != "alloy" || cfg.TTS.Cache.TTL != 168*time.Hour {
		t.Errorf("unexpected values %+v", cfg.TTS)
	}
}

func TestLoad_FileEnvAndSecrets(t *testing.T) {
	clearSecrets(t)
	path := writeConfig(t, `
youtube:
  api_key: "from-file"
  video_id: "abc123"
chat:
  poll_interval: 5s
tts:
  engine: openai
  openai:
    api_key: "file-openai"
  piper:
    model: "~/voices/en.onnx"
queue:
  size: 4
  overflow: drop-oldest
`)
	t.Setenv("LIVECHAT_TTS_QUEUE_SIZE", "7")
	t.Setenv("YOUTUBE_API_KEY", "from-env")

	v := NewViper()
	used, err := ReadInConfig(v, path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if used != path {
		t.Errorf("used %q", used)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.YouTube.APIKey != "from-env" {
		t.Errorf("environment secret should win, got %q", cfg.YouTube.APIKey)
	}
	if cfg.TTS.OpenAI.APIKey != "file-openai" {
		t.Errorf("file key should be used without env, got %q", cfg.TTS.OpenAI.APIKey)
	}
	if cfg.Queue.Size != 7 {
		t.Errorf("env override should win, queue size = %d", cfg.Queue.Size)
	}
	if cfg.Queue.Overflow != "drop-oldest" || cfg.Chat.PollInterval != 5*time.Second {
		t.Errorf("file values not applied: %+v %+v", cfg.Queue, cfg.Chat)
	}
	if strings.HasPrefix(cfg.TTS.Piper.Model, "~") {
		t.Errorf("model path not expanded: %q", cfg.TTS.Piper.Model)
	}
	if cfg.YouTube.VideoID != "abc123" {
		t.Errorf("video id = %q", cfg.YouTube.VideoID)
	}
}

func TestReadInConfig_SearchDirs(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "livechat-tts.yml"), []byte("debug: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	v := NewViper()
	used, err := ReadInConfig(v, "", []string{filepath.Join(dir, "missing"), dir})
	if err != nil {
		t.Fatal(err)
	}
	if used == "" || !v.GetBool("debug") {
		t.Errorf("config in search dir not loaded (used %q)", used)
	}

	used, err = ReadInConfig(NewViper(), "", []string{t.TempDir()})
	if err != nil || used != "" {
		t.Errorf("missing file should be ignored, got %q, %v", used, err)
	}
}

func TestReadInConfig_Malformed(t *testing.T) {
	path := writeConfig(t, "queue: [unterminated\n")
	if _, err := ReadInConfig(NewViper(), path, nil); err == nil {
		t.Error("expected parse error")
	}
}

func TestSearchDirs_EnvOrder(t *testing.T) {
	t.Setenv("LIVECHAT_TTS_CONFIG_HOME", "/custom")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")

	dirs, err := SearchDirs()
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) < 2 || dirs[0] != "/custom" || dirs[1] != filepath.Join("/xdg", AppName) {
		t.Errorf("unexpected order %v", dirs)
	}
}

func TestValidate(t *testing.T) {
	clearSecrets(t)
	base, err := Load(NewViper())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"poll too fast", func(c *Config) { c.Chat.PollInterval = 100 * time.Millisecond }, "chat.poll_interval"},
		{"format without text", func(c *Config) { c.Chat.MessageFormat = "{author}" }, "chat.message_format"},
		{"zero window", func(c *Config) { c.Dedupe.WindowSize = 0 }, "dedupe.window_size"},
		{"backoff inverted", func(c *Config) { c.Backoff.Max = time.Millisecond }, "backoff"},
		{"speed", func(c *Config) { c.TTS.Speed = 5 }, "tts.speed"},
		{"queue size", func(c *Config) { c.Queue.Size = 0 }, "queue.size"},
		{"overflow", func(c *Config) { c.Queue.Overflow = "newest" }, "overflow"},
		{"shutdown", func(c *Config) { c.Queue.Shutdown = "whenever" }, "shutdown"},
		{"volume", func(c *Config) { c.Audio.Volume = 2 }, "audio.volume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q should mention %s", err, tt.field)
			}
		})
	}
}

func TestEnsureFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "livechat-tts.yml")
	if err := EnsureFile(path); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != DefaultYAML {
		t.Error("default config not written")
	}

	// Existing files are left alone.
	if err := os.WriteFile(path, []byte("debug: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := EnsureFile(path); err != nil {
		t.Fatal(err)
	}
	if b, _ := os.ReadFile(path); string(b) != "debug: true\n" {
		t.Error("existing config overwritten")
	}

	if err := EnsureFile(filepath.Join(t.TempDir(), "config.toml")); err == nil {
		t.Error("expected unsupported extension error")
	}
}

func TestVoice(t *testing.T) {
	c := Config{TTS: TTSConfig{Voice: "nova", Model: "tts-1-hd", Speed: 1.5, SpeakerID: 2}}
	v := c.Voice()
	if v.Name != "nova" || v.Model != "tts-1-hd" || v.Speed != 1.5 || v.SpeakerID != 2 {
		t.Errorf("unexpected voice %+v", v)
	}
}
