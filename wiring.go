package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/livechat-tts/internal/audio"
	"github.com/dgnsrekt/livechat-tts/internal/cache"
	"github.com/dgnsrekt/livechat-tts/internal/chat"
	"github.com/dgnsrekt/livechat-tts/internal/chat/youtube"
	"github.com/dgnsrekt/livechat-tts/internal/config"
	"github.com/dgnsrekt/livechat-tts/internal/dedupe"
	"github.com/dgnsrekt/livechat-tts/internal/pipeline"
	"github.com/dgnsrekt/livechat-tts/internal/queue"
	"github.com/dgnsrekt/livechat-tts/internal/tts"
	"github.com/dgnsrekt/livechat-tts/internal/tts/engines"
)

// speaker is an audio output the queue can drain into.
type speaker interface {
	queue.Player
	Close() error
}

// newEngine selects, builds and checks the speech engine. --dry-run always
// uses the mock engine.
func newEngine(ctx context.Context, c config.Config, engineFlag string) (tts.Engine, error) {
	engineType := tts.EngineMock
	if !c.DryRun {
		t, err := tts.SelectEngine(engineFlag, c.TTS.Engine)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}
		engineType = t
	}

	var mgr *cache.Manager
	if c.TTS.Cache.Enabled && engineType != tts.EngineMock {
		cc := cache.DefaultConfig()
		cc.MemoryCapacity = int64(c.TTS.Cache.MemoryMB) << 20
		cc.DiskPath = c.TTS.Cache.Dir
		cc.DiskCapacity = int64(c.TTS.Cache.DiskMB) << 20
		cc.TTL = c.TTS.Cache.TTL
		m, err := cache.NewManager(cc)
		if err != nil {
			log.Warn("Audio cache disabled", "err", err)
		} else {
			mgr = m
		}
	}

	engine, err := engines.New(engineType, engines.Options{
		Piper: engines.PiperConfig{
			Binary:     c.TTS.Piper.Binary,
			ModelPath:  c.TTS.Piper.Model,
			ConfigPath: c.TTS.Piper.Config,
			Timeout:    c.TTS.Piper.Timeout,
		},
		OpenAI: engines.OpenAIConfig{
			APIKey:  c.TTS.OpenAI.APIKey,
			BaseURL: c.TTS.OpenAI.BaseURL,
			Model:   c.TTS.OpenAI.Model,
			Voice:   c.TTS.OpenAI.Voice,
			Timeout: c.TTS.OpenAI.Timeout,
		},
		Cache: mgr,
	})
	if err != nil {
		if mgr != nil {
			_ = mgr.Close()
		}
		return nil, engineError(engineType, err)
	}

	res := tts.Check(ctx, engineType, engine)
	if !res.Available {
		_ = engine.Close()
		return nil, engineError(engineType, res.Error)
	}

	kv := make([]any, 0, 2*len(res.Details))
	for k, v := range res.Details {
		kv = append(kv, k, v)
	}
	log.Info("Speech engine ready", kv...)
	return engine, nil
}

func engineError(engineType tts.EngineType, err error) error {
	if g := tts.Guidance(engineType, err); g != "" {
		fmt.Fprintln(os.Stderr, guidanceStyle.Render(g))
	}
	return fmt.Errorf("speech engine %q is not usable: %w", engineType, err)
}

// newSpeaker opens the audio device at the engine's sample rate, or a
// silent player for --dry-run.
func newSpeaker(c config.Config, sampleRate int) (speaker, error) {
	if c.DryRun {
		return audio.NewMockPlayer(), nil
	}

	pc := audio.DefaultPlayerConfig()
	if sampleRate > 0 {
		pc.SampleRate = sampleRate
	}
	pc.BufferSize = c.Audio.BufferSize

	p, err := audio.NewPlayer(pc)
	if err != nil {
		return nil, fmt.Errorf("audio output unavailable: %w", err)
	}
	if err := p.SetVolume(c.Audio.Volume); err != nil {
		_ = p.Close()
		return nil, err //nolint:wrapcheck
	}
	return p, nil
}

func newQueue(c config.Config, p queue.Player) (*queue.PlaybackQueue, error) {
	overflow, err := queue.ParseOverflowPolicy(c.Queue.Overflow)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return queue.New(c.Queue.Size, overflow, p, queue.WithOnPlayed(func(u queue.Utterance) {
		log.Info("Spoke", "author", u.Author, "text", u.Text, "duration", u.Audio.Duration())
	})), nil
}

func pipelineOptions(c config.Config) (pipeline.Options, error) {
	shutdown, err := queue.ParseShutdownPolicy(c.Queue.Shutdown)
	if err != nil {
		return pipeline.Options{}, err //nolint:wrapcheck
	}
	return pipeline.Options{
		PollInterval:  c.Chat.PollInterval,
		SkipBacklog:   c.Chat.SkipBacklog,
		MessageFormat: c.Chat.MessageFormat,
		MaxTextLength: c.Chat.MaxTextLength,
		Voice:         c.Voice(),
		Backoff: pipeline.BackoffConfig{
			Initial:    c.Backoff.Initial,
			Max:        c.Backoff.Max,
			Multiplier: c.Backoff.Multiplier,
			MaxRetries: c.Backoff.MaxRetries,
		},
		SynthesisRetries: c.TTS.RetryMax,
		Shutdown:         shutdown,
	}, nil
}

func newDeduplicator(c config.Config) *dedupe.Deduplicator {
	return dedupe.New(dedupe.NewSeenSet(c.Dedupe.WindowSize, c.Dedupe.MaxAge))
}

func newYouTube(c config.Config) (*youtube.Client, error) {
	opts := []youtube.Option{
		youtube.WithTimeout(c.Chat.FetchTimeout),
		youtube.WithRequestsPerMinute(c.YouTube.RequestsPerMinute),
	}
	if c.YouTube.BaseURL != "" {
		opts = append(opts, youtube.WithBaseURL(c.YouTube.BaseURL))
	}
	return youtube.NewClient(c.YouTube.APIKey, opts...) //nolint:wrapcheck
}

func streamRef(c config.Config) (chat.StreamRef, error) {
	var ref chat.StreamRef
	switch {
	case c.YouTube.VideoID != "" && c.YouTube.ChannelID != "":
		return ref, fmt.Errorf("%w: use either --video-id or --channel-id", chat.ErrNoStreamRef)
	case c.YouTube.VideoID != "":
		ref = chat.StreamRef{VideoID: c.YouTube.VideoID}
	case c.YouTube.ChannelID != "":
		ref = chat.ParseChannelRef(c.YouTube.ChannelID)
	}
	return ref, ref.Validate() //nolint:wrapcheck
}

// followChat resolves the configured stream to a live chat source.
func followChat(ctx context.Context, c config.Config) (*youtube.LiveChat, chat.StreamRef, error) {
	ref, err := streamRef(c)
	if err != nil {
		return nil, ref, err
	}
	client, err := newYouTube(c)
	if err != nil {
		return nil, ref, err
	}
	chatID, err := client.Resolve(ctx, ref)
	if err != nil {
		return nil, ref, fmt.Errorf("resolve %s: %w", ref, err)
	}
	return client.LiveChat(chatID), ref, nil
}
