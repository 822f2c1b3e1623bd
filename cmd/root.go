package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Rorical/wireui/internal/app"
	"github.com/Rorical/wireui/internal/config"
	"github.com/Rorical/wireui/internal/logging"
)

// settings holds flag, environment and default values for every command.
var settings = config.NewViper()

var rootCmd = &cobra.Command{
	Use:   "wireui",
	Short: "Terminal client for server-driven interfaces",
	Long: `wireui connects to a server over a websocket event channel and renders the
flashes, dialogs and markup panels the server drives.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(settings)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		runApplication(cfg)
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Printf("Command execution error: %v", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("log-file", "", "log file for the terminal UI (default: $WIREUI_HOME/.wireui/wireui.log)")
	flags.String("server", "", "websocket url overriding the active profile")
	flags.String("profile", "", "profile to use instead of the active one")

	_ = settings.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = settings.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	_ = settings.BindPFlag(config.KeyLogFile, flags.Lookup("log-file"))
	_ = settings.BindPFlag(config.KeyServer, flags.Lookup("server"))
	_ = settings.BindPFlag(config.KeyProfile, flags.Lookup("profile"))

	// Add subcommands
	rootCmd.AddCommand(profileCmd)
}

// setupLogging installs the default logger. The terminal UI owns the
// screen, so unless toStderr is set logs go to a file.
func setupLogging(toStderr bool) (*slog.Logger, func(), error) {
	level, err := logging.ParseLevel(settings.GetString(config.KeyLogLevel))
	if err != nil {
		return nil, nil, err
	}

	var (
		w       io.Writer = os.Stderr
		cleanup           = func() {}
	)
	if !toStderr {
		path := settings.GetString(config.KeyLogFile)
		if path == "" {
			if path, err = config.LogPath(); err != nil {
				return nil, nil, err
			}
		}
		f, err := logging.OpenFile(path)
		if err != nil {
			return nil, nil, err
		}
		w = f
		cleanup = func() { _ = f.Close() }
	}

	return logging.Setup(level, settings.GetString(config.KeyLogFormat), w), cleanup, nil
}

func runApplication(cfg *config.Config) {
	logger, closeLog, err := setupLogging(false)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	logger.Info("starting", "profile", cfg.ActiveProfile, "url", cfg.GetURL())
	application, err := app.NewApplication(cfg, logger)
	if err != nil {
		closeLog()
		log.Fatalf("Failed to create application: %v", err)
	}
	defer application.Stop()

	if err := application.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
	}
}
