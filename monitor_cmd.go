package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgnsrekt/livechat-tts/internal/chat"
	"github.com/dgnsrekt/livechat-tts/internal/pipeline"
)

var monitorCmd = &cobra.Command{
	Use:     "monitor",
	Short:   "Print live chat without speaking it",
	Long:    paragraph(fmt.Sprintf("\n%s a live chat to stdout as [time] author: text, using the same polling, backoff and de-duplication as the speaking pipeline.", keyword("Print"))),
	Example: paragraph("livechat-tts monitor --video-id dQw4w9WgXcQ\nlivechat-tts monitor --channel-id @somestreamer > chat.log"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		source, ref, err := followChat(ctx, cfg)
		if err != nil {
			return err
		}
		opts, err := pipelineOptions(cfg)
		if err != nil {
			return err
		}

		log.Info("Monitoring live chat", "stream", ref, "chat", source.ChatID())
		p := pipeline.NewPoller(source, newDeduplicator(cfg), opts, log.WithPrefix("monitor"))
		outcome, err := p.Run(ctx, printMessage(os.Stdout))
		if err != nil {
			return err //nolint:wrapcheck
		}
		s := p.Stats()
		log.Info("Monitor stopped", "reason", outcome, "messages", s.New)
		return nil
	},
}

var authorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))

// printMessage returns a handler writing one line per message. Authors
// are styled when w is a terminal.
func printMessage(w io.Writer) pipeline.Handler {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return func(_ context.Context, m chat.Message) error {
		author := m.Author
		if styled {
			author = authorStyle.Render(author)
		}
		ts := m.PublishedAt.Local().Format("15:04:05")
		_, err := fmt.Fprintf(w, "[%s] %s: %s\n", ts, author, m.Text)
		return err //nolint:wrapcheck
	}
}
