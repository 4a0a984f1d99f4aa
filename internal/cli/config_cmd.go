package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maestro-cli/maestro/internal/config"
	"github.com/maestro-cli/maestro/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefault()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created config file: %s\n", path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print configuration file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			path := cfgFile
			if path == "" {
				path = config.DefaultPath()
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
		},
	})

	cmd.AddCommand(newConfigShowCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Show the effective configuration: built-in defaults overlaid by the
config file and then by MAESTRO_* environment variables.

Examples:
  maestro config show
  maestro config show --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := currentConfig()
			w := cmd.OutOrStdout()
			switch strings.ToLower(format) {
			case "", "toml":
				return config.Print(c, w)
			}
			f, err := output.ParseFormat(format)
			if err != nil || !f.IsStructured() {
				return fmt.Errorf("invalid format %q: must be toml, json or yaml", format)
			}
			return output.Write(w, f, c)
		},
	}
	cmd.Flags().StringVar(&format, "format", "toml", "Output format: toml, json, yaml")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for errors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			styles := output.NewStyles(rendererFor(w))
			errs := config.Validate(currentConfig())
			if len(errs) == 0 {
				fmt.Fprintln(w, styles.Success("configuration is valid"))
				return nil
			}
			for _, err := range errs {
				fmt.Fprintln(w, styles.Error(err.Error()))
			}
			return fmt.Errorf("configuration has %s", output.CountStr(len(errs), "error", "errors"))
		},
	}
}
