package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/fatih/color"
	"github.com/jessevdk/go-flags"

	"news_reader/internal/app"
	"news_reader/internal/config"
)

// Opts with all CLI options
type Opts struct {
	Config   string `short:"c" long:"config" env:"NEWSREADER_CONFIG" description:"path to config file"`
	LogLevel string `long:"log-level" env:"LOG_LEVEL" description:"override log level (debug, info, warn, error)"`
	NoColor  bool   `long:"no-color" env:"NO_COLOR" description:"disable color output"`
	Version  bool   `short:"V" long:"version" description:"show version info"`

	Fetch         FetchCmd         `command:"fetch" description:"fetch articles and replace the local list"`
	List          ListCmd          `command:"list" description:"list articles"`
	Show          ShowCmd          `command:"show" description:"show one article"`
	Favorite      FavoriteCmd      `command:"favorite" description:"toggle the favorite flag"`
	Delete        DeleteCmd        `command:"delete" description:"hide an article"`
	Restore       RestoreCmd       `command:"restore" description:"bring a hidden article back"`
	Topics        TopicsCmd        `command:"topics" description:"manage followed topics"`
	Notifications NotificationsCmd `command:"notifications" description:"turn new-article notifications on or off"`
	Sync          SyncCmd          `command:"sync" description:"run one background sync now"`
	Clear         ClearCmd         `command:"clear" description:"remove all stored data"`
	Serve         ServeCmd         `command:"serve" description:"run the HTTP API and the background scheduler"`
}

var (
	revision = "unknown"
	opts     Opts
)

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.SubcommandsOptional = true
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if opts.Version {
			fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
			return nil
		}
		if cmd == nil {
			parser.WriteHelp(os.Stdout)
			return nil
		}
		color.NoColor = color.NoColor || opts.NoColor
		return cmd.Execute(args)
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

// withApp loads the config, builds the application and runs fn with a
// context cancelled on SIGINT or SIGTERM.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	logger := setupLogger("info")

	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	logger = setupLogger(level)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("failed to close application", "error", err)
		}
	}()

	return fn(ctx, a)
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stderr, handlerOpts)
	return slog.New(handler)
}
