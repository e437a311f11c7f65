// Package cli provides the vidrag command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/vidrag/internal/logger"
	"github.com/custodia-labs/vidrag/internal/telemetry"
)

// version is set at build time via SetVersion.
var version = "dev"

// longRunning marks commands that log at INFO by default.
const longRunning = "long-running"

var (
	verbose   bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "vidrag",
	Short: "Answer questions from support videos",
	Long: `vidrag turns support videos into a searchable knowledge base.

Videos are transcribed and rewritten as markdown support pages, which are
chunked, embedded and stored in a vector repository. Questions are answered
by a language model using only the retrieved content.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.vidrag)")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command until it returns or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer deps.Close()
	return rootCmd.ExecuteContext(ctx)
}

// setup loads .env, picks the log level, installs tracing and points the
// container at the configuration directory.
func setup(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("loading .env: %v", err)
	}

	level := logger.LevelWarn
	if _, ok := cmd.Annotations[longRunning]; ok {
		level = logger.LevelInfo
	}
	if verbose {
		level = logger.LevelDebug
	}
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		parsed, ok := logger.ParseLevel(env)
		if !ok {
			logger.Warn("ignoring unknown LOG_LEVEL %q", env)
		} else {
			level = parsed
		}
	}
	logger.SetLevel(level)

	if !deps.tracing {
		shutdown, err := telemetry.Setup(context.Background(), telemetry.Config{
			ServiceName: "vidrag",
			Version:     version,
			Endpoint:    os.Getenv(telemetry.EndpointEnv),
		})
		if err != nil {
			return fmt.Errorf("setting up tracing: %w", err)
		}
		deps.tracing = true
		deps.onClose(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return shutdown(ctx)
		})
	}

	deps.configDir = configDir
	return nil
}
