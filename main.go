package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"ffkit-console/config"
	"ffkit-console/diagnostics"
	"ffkit-console/history"
	"ffkit-console/logging"
	"ffkit-console/session"
	"ffkit-console/tui"
)

const mailboxSize = 256

var errChecksFailed = errors.New("startup checks failed")

func main() {
	// Define flags
	tabFlag := flag.String("tab", "", "Tab to open: concurrent, audio, vidstab, sessions")
	codecFlag := flag.String("codec", "", "Audio codec preselected in the audio tab")
	listCodecs := flag.Bool("list-codecs", false, "List the audio codecs and exit")
	doctor := flag.Bool("doctor", false, "Run the startup checks, print the report and exit")
	initConfig := flag.Bool("init-config", false, "Write the effective settings to the config file and exit")

	// Custom usage
	flag.Usage = func() {
		fmt.Println("Usage: ffkit-console [options]")
		fmt.Println()
		fmt.Println("Runs FFmpeg demo scenarios (concurrent encodes, audio codecs, vid.stab) in a terminal UI.")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		fmt.Println()
		fmt.Printf("Config file: %s (override with $FFKIT_CONFIG)\n", config.Path())
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  ffkit-console                          # Open the concurrent execution tab")
		fmt.Println("  ffkit-console -tab=audio -codec=opus   # Start on the audio tab with opus selected")
		fmt.Println("  ffkit-console -doctor                  # Check ffmpeg, ffprobe and directories")
	}

	flag.Parse()

	// Handle --list-codecs
	if *listCodecs {
		fmt.Println("Available audio codecs:")
		fmt.Println()
		for _, c := range config.AvailableAudioCodecs() {
			fmt.Printf("  %-10s %-16s .%s\n", c.Key, c.Name, c.Extension)
		}
		os.Exit(0)
	}

	settings, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *tabFlag != "" {
		settings.UI.Tab = *tabFlag
	}
	if *codecFlag != "" {
		codec, err := config.LookupAudioCodec(*codecFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		settings.UI.AudioCodec = codec.Key
	}
	if _, err := tui.ParseTab(settings.UI.Tab); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch {
	case *initConfig:
		err = writeConfig(settings)
	case *doctor:
		err = runDoctor(settings)
	default:
		err = run(settings)
	}
	if errors.Is(err, errChecksFailed) {
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func writeConfig(settings config.Settings) error {
	path := config.Path()
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := config.Save(settings); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func newKit(settings config.Settings, logger *zap.Logger, recorder session.Recorder) *session.Kit {
	return session.New(session.Options{
		FFmpegPath:       settings.FFmpeg.Path,
		FFprobePath:      settings.FFmpeg.ProbePath,
		Logger:           logger,
		AsyncConcurrency: settings.FFmpeg.AsyncConcurrency,
		HistorySize:      settings.FFmpeg.SessionHistory,
		Recorder:         recorder,
	})
}

func runDoctor(settings config.Settings) error {
	kit := newKit(settings, nil, nil)
	defer kit.Close()

	report := diagnostics.NewChecker(kit).Run(settings)
	diagnostics.WriteReport(os.Stdout, report)
	if report.HasFailures {
		return errChecksFailed
	}
	return nil
}

// startupChecks runs the diagnostics on a kit of their own, without a
// recorder, so the build queries stay out of the session history.
func startupChecks(settings config.Settings, logger *zap.Logger) diagnostics.Report {
	kit := newKit(settings, logger.Named("diagnostics"), nil)
	defer kit.Close()
	return diagnostics.NewChecker(kit).Run(settings)
}

func run(settings config.Settings) error {
	logger, err := logging.New(settings.Log.File, settings.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("ffkit-console starting",
		zap.String("config", config.Path()),
		zap.String("files_dir", settings.Dirs.Files),
		zap.String("cache_dir", settings.Dirs.Cache),
	)

	deps := tui.Deps{
		Logger:   logger.Named("tui"),
		FilesDir: settings.Dirs.Files,
		CacheDir: settings.Dirs.Cache,
	}

	var recorder session.Recorder
	if settings.History.Path != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		store, err := history.Open(ctx, settings.History.Path)
		cancel()
		if err != nil {
			logger.Warn("session history disabled", zap.Error(err))
		} else {
			defer store.Close()
			logger.Info("session history opened", zap.String("path", settings.History.Path), zap.String("run_id", store.RunID()))
			recorder = store
			deps.History = store
		}
	}

	kit := newKit(settings, logger.Named("session"), recorder)
	// Closing the mailbox first releases callbacks still waiting on the UI.
	mailbox := tui.NewMailbox(mailboxSize)
	defer kit.Close()
	defer mailbox.Close()

	deps.Engine = kit
	deps.Mailbox = mailbox

	report := startupChecks(settings, logger)
	var startupNotice string
	if report.HasFailures {
		startupNotice = fmt.Sprintf("Startup checks: %s. Run with -doctor for details.", report.Summary())
	}
	for _, item := range report.Items {
		logger.Info("startup check",
			zap.String("check", item.ID),
			zap.String("status", string(item.Status)),
			zap.String("message", item.Message),
		)
	}

	app, err := tui.NewApp(deps, tui.Options{
		Tab:           settings.UI.Tab,
		AudioCodec:    settings.UI.AudioCodec,
		StartupNotice: startupNotice,
	})
	if err != nil {
		return err
	}

	// Create and run the TUI
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	logger.Info("ffkit-console stopped")
	return nil
}
