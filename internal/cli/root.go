package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/maestro-cli/maestro/internal/config"
	"github.com/maestro-cli/maestro/internal/output"
)

var (
	cfgFile  string
	cfg      *config.Config
	noColor  bool
	logLevel string

	// Build information - set via ldflags
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "maestro",
		Short: "Session permissions and prompt composition for orchestrated agents",
		Long: `maestro decides which commands an agent session may run and builds the
prompts that tell the agent about them.

Every spawned session receives a manifest. maestro normalizes it, resolves
the session's permitted commands, and renders the command reference and
task documents the agent reads.

Quick Start:
  maestro commands                        # What may this session run?
  maestro check task:create               # Is one command allowed?
  maestro prompt --manifest m.json        # Compose the session prompts
  maestro debug-prompt --manifest m.json  # Show exactly what is sent`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				// Use defaults if config loading fails
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: loading config:", err)
				loaded = config.Default()
			}
			if logLevel != "" {
				loaded.Logging.Level = logLevel
			}
			cfg = loaded
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), cfg))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/maestro/config.toml)")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override: debug, info, warn, error")

	cmd.AddCommand(
		newCommandsCmd(),
		newCheckCmd(),
		newCapabilitiesCmd(),
		newManifestCmd(),
		newPromptCmd(),
		newDebugPromptCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

// newLogger builds the process logger. Every record carries a run_id so
// the lines of one invocation can be grouped.
func newLogger(w io.Writer, c *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel()}
	var h slog.Handler
	if strings.EqualFold(c.Logging.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("run_id", uuid.NewString())
}

// currentConfig returns the loaded config, or defaults when a command runs
// without the root pre-run (tests invoking subcommands directly).
func currentConfig() *config.Config {
	if cfg == nil {
		return config.Default()
	}
	return cfg
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		var silent *exitError
		if !errors.As(err, &silent) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		return err
	}
	return nil
}

// exitError signals a failure whose message was already written in the
// requested output format.
type exitError struct {
	err error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// formatFlag adds --format to cmd and returns a parser for it.
func formatFlag(cmd *cobra.Command, def string, usage string) func() (output.Format, error) {
	var value string
	cmd.Flags().StringVar(&value, "format", def, usage)
	return func() (output.Format, error) {
		return output.ParseFormat(value)
	}
}

func colorFor(w io.Writer) bool {
	if noColor {
		return false
	}
	f, ok := w.(*os.File)
	return ok && output.ColorEnabled(f)
}

// rendererFor returns a lipgloss renderer for w honoring --no-color and TTY
// detection.
func rendererFor(w io.Writer) *lipgloss.Renderer {
	return output.NewRenderer(w, colorFor(w))
}

func widthFor(w io.Writer) int {
	if f, ok := w.(*os.File); ok && output.IsTerminal(f) {
		return output.Width(f)
	}
	return output.DefaultWidth
}
