package config

import (
	"time"

	"github.com/spf13/viper"
)

// SetDefaults registers default values for every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("log_file", "")
	v.SetDefault("dry_run", false)

	v.SetDefault("youtube.api_key", "")
	v.SetDefault("youtube.video_id", "")
	v.SetDefault("youtube.channel_id", "")
	v.SetDefault("youtube.base_url", "")
	v.SetDefault("youtube.requests_per_minute", 60)

	v.SetDefault("chat.poll_interval", 3*time.Second)
	v.SetDefault("chat.fetch_timeout", 10*time.Second)
	v.SetDefault("chat.skip_backlog", false)
	v.SetDefault("chat.message_format", "{author}: {text}")
	v.SetDefault("chat.max_text_length", 200)

	v.SetDefault("dedupe.window_size", 5000)
	v.SetDefault("dedupe.max_age", time.Duration(0))

	v.SetDefault("backoff.initial", time.Second)
	v.SetDefault("backoff.max", time.Minute)
	v.SetDefault("backoff.multiplier", 2.0)
	v.SetDefault("backoff.max_retries", 0)

	v.SetDefault("tts.engine", "")
	v.SetDefault("tts.voice", "")
	v.SetDefault("tts.model", "")
	v.SetDefault("tts.speed", 1.0)
	v.SetDefault("tts.speaker_id", 0)
	v.SetDefault("tts.retry_max", 2)

	v.SetDefault("tts.piper.binary", "piper")
	v.SetDefault("tts.piper.model", "")
	v.SetDefault("tts.piper.config", "")
	v.SetDefault("tts.piper.timeout", 10*time.Second)

	v.SetDefault("tts.openai.api_key", "")
	v.SetDefault("tts.openai.base_url", "")
	v.SetDefault("tts.openai.model", "tts-1")
	v.SetDefault("tts.openai.voice", "alloy")
	v.SetDefault("tts.openai.timeout", 20*time.Second)

	v.SetDefault("tts.cache.enabled", true)
	v.SetDefault("tts.cache.memory_mb", 32)
	v.SetDefault("tts.cache.dir", "")
	v.SetDefault("tts.cache.disk_mb", 512)
	v.SetDefault("tts.cache.ttl", 7*24*time.Hour)

	v.SetDefault("queue.size", 10)
	v.SetDefault("queue.overflow", "block")
	v.SetDefault("queue.shutdown", "graceful")

	v.SetDefault("audio.volume", 1.0)
	v.SetDefault("audio.buffer_size", 4096)
}

// DefaultYAML is written by the config command when no file exists.
const DefaultYAML = `# Log at debug level
debug: false
# Also write logs to this file
# log_file: "~/.local/state/livechat-tts/livechat-tts.log"

youtube:
  # Prefer the YOUTUBE_API_KEY environment variable
  # api_key: ""
  # Follow a video, or the current live stream of a channel (id, @handle or legacy username)
  # video_id: ""
  # channel_id: ""
  requests_per_minute: 60

chat:
  poll_interval: 3s
  fetch_timeout: 10s
  # Do not read out messages that were already in chat when we joined
  skip_backlog: false
  # {author} and {text} are replaced
  message_format: "{author}: {text}"
  max_text_length: 200

dedupe:
  window_size: 5000
  # 0 disables age-based expiry
  max_age: 0s

backoff:
  initial: 1s
  max: 1m
  multiplier: 2
  # 0 retries forever
  max_retries: 0

tts:
  # piper, openai or mock
  engine: ""
  voice: ""
  speed: 1.0
  retry_max: 2

  piper:
    binary: "piper"
    # model: "~/.local/share/piper/en_US-lessac-medium.onnx"
    timeout: 10s

  openai:
    # Prefer the OPENAI_API_KEY environment variable
    # api_key: ""
    model: "tts-1"
    voice: "alloy"
    timeout: 20s

  cache:
    enabled: true
    memory_mb: 32
    # Set to keep synthesized audio across runs
    # dir: "~/.cache/livechat-tts"
    disk_mb: 512
    ttl: 168h

queue:
  size: 10
  # block or drop-oldest
  overflow: "block"
  # graceful, drain or fast
  shutdown: "graceful"

audio:
  volume: 1.0
  buffer_size: 4096
`
