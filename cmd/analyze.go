package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/0xlemi/tunemaster/internal/audio"
	"github.com/0xlemi/tunemaster/internal/session"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file.wav>",
		Short: "Print the notes detected in a WAV recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, instruments, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			wav := audio.NewWavCapturer(args[0], a.bufferSize, a.logger)
			sess, err := a.buildSession(wav, settings, instruments)
			if err != nil {
				return err
			}
			return analyze(sess, wav, cmd.Flags().Changed("instrument"), cmd.OutOrStdout())
		},
	}
}

// analyze ticks the session over every block of the file. A block without
// signal leaves the previous result in place, so only blocks that produced
// a new estimate are printed.
func analyze(sess *session.Session, wav *audio.WavCapturer, withStrings bool, out io.Writer) error {
	if err := sess.Start(); err != nil {
		return err
	}
	defer sess.Stop()

	var last float64
	detections := 0
	for {
		offset := wav.Position()
		res, err := sess.Poll()
		if errors.Is(err, audio.ErrEndOfStream) {
			break
		}
		if err != nil {
			return fmt.Errorf("analyze at %.3fs: %w", offset, err)
		}
		if res.Idle() || res.Note.Frequency == last {
			continue
		}
		last = res.Note.Frequency
		detections++

		line := fmt.Sprintf("%8.3fs  %s", offset, formatNote(res))
		if withStrings {
			line += "  " + formatStrings(res)
		}
		fmt.Fprintln(out, line)
	}

	if detections == 0 {
		fmt.Fprintln(out, "no pitch detected")
	}
	return nil
}

// formatStrings lists the strings within the matching window, e.g.
// "A2 +7.9" or "-" when none is
func formatStrings(res session.Result) string {
	var parts []string
	for _, s := range res.Strings {
		if s.Active {
			parts = append(parts, fmt.Sprintf("%s %+.1f", s.Target, s.Cents))
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}
