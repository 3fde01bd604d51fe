// Package config loads livechat-tts.yml, LIVECHAT_TTS_* overrides, bound
// command line flags and API key environment variables into one Config.
package config
