package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/0xlemi/tunemaster/internal/config"
	"github.com/0xlemi/tunemaster/internal/session"
	"github.com/0xlemi/tunemaster/internal/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	// Audio settings
	defaultBufferSize = 2048
	defaultSampleRate = 44100

	defaultInterval = 50 * time.Millisecond
)

// app holds the command line flags and whatever they open
type app struct {
	configDir string
	logFile   string
	debug     bool

	reference     float64
	instrument    string
	mode          string
	backend       string
	device        string
	estimator     string
	bufferSize    int
	sampleRate    int
	amplification float64
	headless      bool
	interval      time.Duration

	logger  *slog.Logger
	logSink io.Closer
}

// initLogger installs the default slog logger. The terminal belongs to the
// UI, so records go to path when given and are discarded otherwise.
func initLogger(debug bool, path string) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var w io.Writer = io.Discard
	var sink io.Closer
	if path != "" {
		f, err := tea.LogToFile(path, "tunemaster")
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w, sink = f, f
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger := slog.New(h)
	slog.SetDefault(logger) // stdlib log.* now routes through slog
	return logger, sink, nil
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:           "tunemaster",
		Short:         "Real-time instrument tuner",
		Long:          "TuneMaster listens to an audio input and shows the nearest note, its cents offset and how each string of the selected instrument lines up.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, sink, err := initLogger(a.debug, a.logFile)
			if err != nil {
				return err
			}
			a.logger, a.logSink = logger, sink
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTuner(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configDir, "config-dir", "", "directory for settings.toml and presets.toml (default: user config dir)")
	pf.StringVar(&a.logFile, "log-file", "", "write logs to this file")
	pf.BoolVar(&a.debug, "debug", false, "log at debug level")
	pf.Float64Var(&a.reference, "ref", 0, "reference pitch for A4 in Hz (default: stored setting)")
	pf.StringVar(&a.instrument, "instrument", "", "instrument preset id (default: stored setting)")
	pf.StringVar(&a.estimator, "estimator", "autocorrelation", "pitch estimator: autocorrelation or fft")
	pf.IntVar(&a.bufferSize, "buffer-size", defaultBufferSize, "samples per analysis block")

	f := root.Flags()
	f.StringVar(&a.mode, "mode", "", "display mode: chromatic, polyphonic or strobe (default: stored setting)")
	f.StringVar(&a.backend, "backend", backendPortAudio, "audio input: portaudio, malgo or simulate")
	f.StringVar(&a.device, "device", "", "capture device name substring (malgo only)")
	f.IntVar(&a.sampleRate, "sample-rate", defaultSampleRate, "capture sample rate in Hz")
	f.Float64Var(&a.amplification, "amplification", 1.0, "input gain applied before analysis")
	f.BoolVar(&a.headless, "headless", false, "print note changes instead of starting the UI")
	f.DurationVar(&a.interval, "interval", defaultInterval, "tick interval in headless mode")

	root.AddCommand(newAnalyzeCmd(a), newInstrumentsCmd(a))
	return root, a
}

func (a *app) close() {
	if a.logSink != nil {
		a.logSink.Close()
	}
}

// stores opens the settings and preset stores in the configured directory
func (a *app) stores() (*config.SettingsStore, *config.PresetStore, error) {
	dir := a.configDir
	if dir == "" {
		var err error
		if dir, err = config.DefaultDir(); err != nil {
			return nil, nil, fmt.Errorf("locate config dir: %w", err)
		}
	}
	return config.NewSettingsStore(dir, a.logger), config.NewPresetStore(dir, a.logger), nil
}

// loadConfig reads the stored settings and presets and applies the flag
// overrides for this run
func (a *app) loadConfig(cmd *cobra.Command) (config.Settings, *config.SettingsStore, []config.Instrument, error) {
	settingsStore, presetStore, err := a.stores()
	if err != nil {
		return config.Settings{}, nil, nil, err
	}
	settings, err := settingsStore.Load()
	if err != nil {
		return config.Settings{}, nil, nil, err
	}
	instruments, err := presetStore.Load()
	if err != nil {
		return config.Settings{}, nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("ref") {
		if err := config.ValidateReference(a.reference); err != nil {
			return config.Settings{}, nil, nil, err
		}
		settings.ReferencePitch = a.reference
	}
	if flags.Changed("instrument") {
		if _, err := config.FindInstrument(instruments, a.instrument); err != nil {
			return config.Settings{}, nil, nil, err
		}
		settings.Instrument = a.instrument
	}
	if flags.Changed("mode") {
		if _, err := ui.ParseMode(a.mode); err != nil {
			return config.Settings{}, nil, nil, err
		}
		settings.Mode = a.mode
	}

	if _, err := config.FindInstrument(instruments, settings.Instrument); err != nil {
		a.logger.Warn("stored instrument not found, using default", "id", settings.Instrument)
		settings.Instrument = config.DefaultInstrumentID
	}
	return settings, settingsStore, instruments, nil
}

func (a *app) runTuner(cmd *cobra.Command) error {
	settings, store, instruments, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	capturer, err := newCapturer(a.backend, captureOptions{
		bufferSize:    a.bufferSize,
		sampleRate:    a.sampleRate,
		device:        a.device,
		amplification: a.amplification,
	}, a.logger)
	if err != nil {
		return err
	}
	sess, err := a.buildSession(capturer, settings, instruments)
	if err != nil {
		return err
	}
	defer sess.Stop()

	if a.headless {
		return runHeadless(cmd.Context(), sess, a.interval, cmd.OutOrStdout())
	}

	fmt.Println("TuneMaster - Starting tuner...")
	model := ui.NewModel(sess, ui.Options{
		Settings:    settings,
		Store:       store,
		Instruments: instruments,
		AutoStart:   true,
		Logger:      a.logger,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

// runHeadless listens until ctx ends or SIGINT/SIGTERM arrives, printing a
// line each time the detected note changes
func runHeadless(ctx context.Context, sess *session.Session, interval time.Duration, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sess.Start(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Listening for musical notes...")

	g, gctx := errgroup.WithContext(ctx)
	// Cancelled as soon as the poll loop ends, whatever the reason
	ctx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		<-ctx.Done()
		return sess.Stop()
	})
	g.Go(func() error {
		defer cancel()
		last := ""
		err := sess.Run(ctx, interval, func(res session.Result) {
			if res.Idle() || res.Note.String() == last {
				return
			}
			last = res.Note.String()
			fmt.Fprintln(out, formatNote(res))
		})
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
	return g.Wait()
}

// formatNote renders a result as "A4  +3 cents  441.23 Hz"
func formatNote(res session.Result) string {
	return fmt.Sprintf("%-4s %+6.1f cents %9.2f Hz", res.Note, res.Note.Cents, res.Note.Frequency)
}

func main() {
	root, a := newRootCmd()
	err := root.Execute()
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
