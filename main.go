// Package main provides the entry point for the livechat-tts CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/livechat-tts/internal/config"
	"github.com/dgnsrekt/livechat-tts/internal/pipeline"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	v          = config.NewViper()
	cfg        config.Config
	configFile string
	ttsEngine  string
	closeLog   = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:   "livechat-tts --video-id ID | --channel-id ID|@HANDLE",
		Short: "Read YouTube live chat out loud",
		Long: paragraph(
			fmt.Sprintf("\nPoll a YouTube live chat and %s every new message, one at a time, in the order it arrived.", keyword("speak")),
		),
		Example:           paragraph("livechat-tts --tts piper --video-id dQw4w9WgXcQ\nlivechat-tts --tts openai --voice nova --channel-id @somestreamer\nlivechat-tts --dry-run --video-id dQw4w9WgXcQ"),
		SilenceErrors:     true,
		SilenceUsage:      true,
		TraverseChildren:  true,
		Args:              cobra.NoArgs,
		PersistentPreRunE: loadConfig,
		RunE:              runPipeline,
	}
)

// loadConfig reads the config file, environment and flags into cfg and
// sets up logging.
func loadConfig(*cobra.Command, []string) error {
	dirs, err := config.SearchDirs()
	if err != nil {
		return err //nolint:wrapcheck
	}
	used, err := config.ReadInConfig(v, configFile, dirs)
	if err != nil {
		return err //nolint:wrapcheck
	}

	c, err := config.Load(v)
	if err != nil {
		return err //nolint:wrapcheck
	}
	cfg = c

	closer, err := setupLog(cfg)
	if err != nil {
		return err
	}
	closeLog = closer

	if used != "" {
		log.Debug("Using configuration file", "path", used)
	}
	return nil
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	engine, err := newEngine(ctx, cfg, ttsEngine)
	if err != nil {
		return err
	}
	defer engine.Close() //nolint:errcheck

	source, ref, err := followChat(ctx, cfg)
	if err != nil {
		return err
	}

	out, err := newSpeaker(cfg, engine.Info().SampleRate)
	if err != nil {
		return err
	}
	defer out.Close() //nolint:errcheck

	q, err := newQueue(cfg, out)
	if err != nil {
		return err
	}
	opts, err := pipelineOptions(cfg)
	if err != nil {
		return err
	}

	o := pipeline.New(source, engine, q, opts, pipeline.WithDeduplicator(newDeduplicator(cfg)))
	log.Info("Following live chat", "stream", ref, "chat", source.ChatID(), "run", o.RunID(), "dry_run", cfg.DryRun)

	q.Start()
	err = o.Run(ctx, source.ChatID())

	s := q.Stats()
	log.Info("Playback finished", "played", s.Played, "dropped", s.Dropped, "discarded", s.Discarded, "failed", s.Failed)
	return err //nolint:wrapcheck
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		// A second signal kills the process.
		<-ctx.Done()
		stop()
	}()

	err := rootCmd.ExecuteContext(ctx)
	_ = closeLog()
	if err == nil {
		return
	}
	if ctx.Err() != nil && !isFatal(err) {
		// Interrupted during startup.
		return
	}

	log.Error("livechat-tts failed", "err", err)
	os.Exit(1)
}

func isFatal(err error) bool {
	var fe *pipeline.FatalError
	return errors.As(err, &fe)
}

func init() {
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file (default: livechat-tts.yml in the user config dir)")
	pf.Bool("debug", false, "log at debug level")
	pf.String("log-file", "", "also write logs to this file")

	// Stream selection, shared with monitor
	pf.String("video-id", "", "YouTube video id of the live stream")
	pf.String("channel-id", "", "YouTube channel id (UC...), @handle or legacy username; follows its current live stream")
	pf.Duration("poll-interval", 0, "minimum delay between chat fetches (default 3s)")
	pf.Bool("skip-backlog", false, "do not speak messages already in chat at startup")

	// Speech, shared with speak
	pf.StringVar(&ttsEngine, "tts", "", "speech engine: piper, openai or mock (overrides tts.engine)")
	pf.String("voice", "", "voice name (openai: alloy, nova, ...)")
	pf.String("model", "", "model name (openai: tts-1, tts-1-hd)")
	pf.Float64("speed", 0, "speaking rate between 0.25 and 4.0 (default 1.0)")
	pf.Int("queue-size", 0, "pending utterances before overflow applies (default 10)")
	pf.String("overflow", "", "when the queue is full: block or drop-oldest")
	pf.String("shutdown", "", "on exit: graceful, drain or fast")
	pf.Bool("dry-run", false, "use the silent mock engine and player")

	bind := map[string]string{
		"debug":              "debug",
		"log_file":           "log-file",
		"youtube.video_id":   "video-id",
		"youtube.channel_id": "channel-id",
		"chat.poll_interval": "poll-interval",
		"chat.skip_backlog":  "skip-backlog",
		"tts.voice":          "voice",
		"tts.model":          "model",
		"tts.speed":          "speed",
		"queue.size":         "queue-size",
		"queue.overflow":     "overflow",
		"queue.shutdown":     "shutdown",
		"dry_run":            "dry-run",
	}
	for key, flag := range bind {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.AddCommand(configCmd, manCmd, monitorCmd, speakCmd)
}
