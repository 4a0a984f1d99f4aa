package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maestro-cli/maestro/internal/catalog"
	"github.com/maestro-cli/maestro/internal/output"
	"github.com/maestro-cli/maestro/internal/permissions"
)

// CheckResponse is the structured output of `maestro check`.
type CheckResponse struct {
	ID      string       `json:"id" yaml:"id"`
	Allowed bool         `json:"allowed" yaml:"allowed"`
	Known   bool         `json:"known" yaml:"known"`
	Mode    catalog.Mode `json:"mode" yaml:"mode"`
	Syntax  string       `json:"syntax,omitempty" yaml:"syntax,omitempty"`
	Error   string       `json:"error,omitempty" yaml:"error,omitempty"`
}

func newCheckCmd() *cobra.Command {
	var manifestFlag string

	cmd := &cobra.Command{
		Use:   "check <command-id>",
		Short: "Check whether this session may run a command",
		Long: `Check whether this session may run a command.

Exits non-zero when the command is not allowed and prints its correct
syntax, so agents can recover from a wrong guess.

Examples:
  maestro check task:create
  maestro check session:spawn --manifest session.json --format json`,
		Args: cobra.ExactArgs(1),
	}
	format := formatFlag(cmd, "text", "Output format: text, json, yaml")
	addManifestFlag(cmd, &manifestFlag)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		f, err := format()
		if err != nil {
			return err
		}
		id := args[0]
		cs := loadSession(manifestFlag, false).Capabilities
		checkErr := cs.Check(id)

		_, known := catalog.ByID(id)
		resp := CheckResponse{ID: id, Allowed: checkErr == nil, Known: known, Mode: cs.Mode}
		if known {
			resp.Syntax = catalog.Syntax(id)
		}
		if checkErr != nil {
			resp.Error = checkErr.Error()
		}

		w := cmd.OutOrStdout()
		if f.IsStructured() {
			if err := output.Write(w, f, resp); err != nil {
				return err
			}
			if checkErr != nil {
				return &exitError{err: checkErr}
			}
			return nil
		}

		styles := output.NewStyles(rendererFor(w))
		if checkErr == nil {
			fmt.Fprintln(w, styles.Success(fmt.Sprintf("%s is allowed: %s", id, resp.Syntax)))
			return nil
		}
		var notAllowed *permissions.NotAllowedError
		if errors.As(checkErr, &notAllowed) && !notAllowed.Known {
			return fmt.Errorf("%w; run `maestro commands` to list available commands", checkErr)
		}
		return checkErr
	}
	return cmd
}
