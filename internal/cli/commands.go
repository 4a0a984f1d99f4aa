package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/maestro-cli/maestro/internal/catalog"
	"github.com/maestro-cli/maestro/internal/output"
	"github.com/maestro-cli/maestro/internal/permissions"
	"github.com/maestro-cli/maestro/internal/surface"
)

// CommandInfo describes one allowed command in structured output.
type CommandInfo struct {
	ID          string `json:"id" yaml:"id"`
	Group       string `json:"group" yaml:"group"`
	Syntax      string `json:"syntax" yaml:"syntax"`
	Description string `json:"description" yaml:"description"`
	Core        bool   `json:"core,omitempty" yaml:"core,omitempty"`
	Hidden      bool   `json:"hiddenFromPrompt,omitempty" yaml:"hiddenFromPrompt,omitempty"`
}

// CommandsResponse is the structured output of `maestro commands`.
type CommandsResponse struct {
	Mode       catalog.Mode           `json:"mode" yaml:"mode"`
	Resolution permissions.Resolution `json:"resolution" yaml:"resolution"`
	Commands   []CommandInfo          `json:"commands" yaml:"commands"`
}

func newCommandsResponse(cs *permissions.CapabilitySet) CommandsResponse {
	resp := CommandsResponse{Mode: cs.Mode, Resolution: cs.Resolution, Commands: []CommandInfo{}}
	for _, id := range cs.AllowedCommands {
		e, ok := catalog.ByID(id)
		if !ok {
			continue
		}
		resp.Commands = append(resp.Commands, CommandInfo{
			ID:          e.ID,
			Group:       e.Group,
			Syntax:      catalog.Syntax(e.ID),
			Description: e.Description,
			Core:        e.Core,
			Hidden:      e.HiddenFromPrompt,
		})
	}
	return resp
}

func newCommandsCmd() *cobra.Command {
	var (
		full         bool
		table        bool
		manifestFlag string
	)

	cmd := &cobra.Command{
		Use:   "commands",
		Short: "List the commands this session may run",
		Long: `List the commands this session may run.

Without flags the output is the compact reference an agent sees in its
system prompt. --full prints the literal syntax of every command, and
--table renders a styled table for humans.

Examples:
  maestro commands
  maestro commands --full
  maestro commands --table --manifest session.json
  maestro commands --format json`,
		Args: cobra.NoArgs,
	}
	format := formatFlag(cmd, "text", "Output format: text, json, yaml")
	cmd.Flags().BoolVar(&full, "full", false, "Print the full syntax of every command")
	cmd.Flags().BoolVar(&table, "table", false, "Render a styled table")
	addManifestFlag(cmd, &manifestFlag)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		f, err := format()
		if err != nil {
			return err
		}
		st := loadSession(manifestFlag, false)
		cs := st.Capabilities
		w := cmd.OutOrStdout()

		if f.IsStructured() {
			return output.Write(w, f, newCommandsResponse(cs))
		}
		if table {
			fmt.Fprint(w, commandsTable(cs, w).Render())
			return nil
		}
		if full {
			fmt.Fprint(w, surface.RenderFull(cs))
		} else {
			fmt.Fprint(w, surface.RenderCompact(cs))
		}
		return nil
	}
	return cmd
}

func commandsTable(cs *permissions.CapabilitySet, w io.Writer) *output.StyledTable {
	tbl := output.NewStyledTable("COMMAND", "SYNTAX", "DESCRIPTION").
		WithRenderer(rendererFor(w)).
		WithTitle(fmt.Sprintf("Mode %s (%s)", cs.Mode, cs.Resolution)).
		WithFooter(output.CountStr(len(cs.AllowedCommands), "command allowed", "commands allowed"))

	width := widthFor(w)
	if descWidth := width - 80; descWidth >= 20 {
		tbl.WithMaxWidth(2, descWidth)
	} else {
		tbl.WithMaxWidth(2, 20)
	}
	for _, id := range cs.AllowedCommands {
		e, ok := catalog.ByID(id)
		if !ok {
			continue
		}
		desc := e.Description
		if e.HiddenFromPrompt {
			desc += " (not shown to agents)"
		}
		tbl.AddRow(e.ID, catalog.Syntax(e.ID), desc)
	}
	return tbl
}
