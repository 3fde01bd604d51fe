package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/livechat-tts/internal/chat"
	"github.com/dgnsrekt/livechat-tts/internal/pipeline"
)

var speakCmd = &cobra.Command{
	Use:     "speak [TEXT]",
	Short:   "Speak text from the command line or stdin",
	Long:    paragraph(fmt.Sprintf("\n%s TEXT, or every line read from stdin when no text is given. Lines go through the same engine and playback queue as chat messages.", keyword("Speak"))),
	Example: paragraph("livechat-tts speak --tts piper \"hello chat\"\necho hello | livechat-tts speak --tts openai"),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var in io.Reader = os.Stdin
		if len(args) > 0 {
			in = strings.NewReader(strings.Join(args, " "))
		}

		engine, err := newEngine(ctx, cfg, ttsEngine)
		if err != nil {
			return err
		}
		defer engine.Close() //nolint:errcheck

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
		// Every line is spoken as soon as it is read.
		opts.PollInterval = time.Nanosecond
		opts.SkipBacklog = false
		opts.MessageFormat = "{text}"

		src := chat.NewLineSource(in, "")
		defer src.Close() //nolint:errcheck

		o := pipeline.New(src, engine, q, opts)
		q.Start()
		if err := o.Run(ctx, "stdin"); err != nil {
			return err //nolint:wrapcheck
		}
		log.Debug("Done speaking", "lines", o.Stats().Spoken)
		return nil
	},
}
