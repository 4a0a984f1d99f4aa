package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maestro-cli/maestro/internal/output"
	"github.com/maestro-cli/maestro/internal/permissions"
	"github.com/maestro-cli/maestro/internal/surface"
)

// StageDelta is one resolver stage with what it added and removed.
type StageDelta struct {
	Stage   string   `json:"stage" yaml:"stage"`
	Count   int      `json:"count" yaml:"count"`
	Added   []string `json:"added,omitempty" yaml:"added,omitempty"`
	Removed []string `json:"removed,omitempty" yaml:"removed,omitempty"`
}

// CapabilitiesResponse is the structured output of `maestro capabilities`.
type CapabilitiesResponse struct {
	permissions.CapabilitySet `yaml:",inline"`
	Trace                     []StageDelta `json:"trace,omitempty" yaml:"trace,omitempty"`
}

func stageDeltas(stages []permissions.StageResult) []StageDelta {
	var (
		out  []StageDelta
		prev map[string]bool
	)
	for _, st := range stages {
		cur := make(map[string]bool, len(st.Allowed))
		d := StageDelta{Stage: st.Stage, Count: len(st.Allowed)}
		for _, id := range st.Allowed {
			cur[id] = true
			if !prev[id] {
				d.Added = append(d.Added, id)
			}
		}
		if prev != nil {
			// Removals are reported in the previous stage's order.
			for _, id := range stages[len(out)-1].Allowed {
				if !cur[id] {
					d.Removed = append(d.Removed, id)
				}
			}
		}
		out = append(out, d)
		prev = cur
	}
	return out
}

func newCapabilitiesCmd() *cobra.Command {
	var (
		manifestFlag string
		master       bool
		trace        bool
	)

	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "Show the resolved permissions of this session",
		Long: `Show the resolved permissions of this session: mode, permission source,
capability flags and the allowed and hidden command ids.

--trace shows what each resolver stage added or removed, which explains
why a command is or is not available.

Examples:
  maestro capabilities --manifest session.json
  maestro capabilities --manifest session.json --trace
  maestro capabilities --master --format yaml`,
		Args: cobra.NoArgs,
	}
	format := formatFlag(cmd, "text", "Output format: text, json, yaml")
	addManifestFlag(cmd, &manifestFlag)
	cmd.Flags().BoolVar(&master, "master", false, "Resolve as a master session")
	cmd.Flags().BoolVar(&trace, "trace", false, "Show each resolver stage")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		f, err := format()
		if err != nil {
			return err
		}
		st := loadSession(manifestFlag, master)
		resp := CapabilitiesResponse{CapabilitySet: *st.Capabilities}
		if trace && st.Manifest != nil {
			_, stages := permissions.Trace(st.Manifest, resolveOptions(st.Manifest, master))
			resp.Trace = stageDeltas(stages)
		}

		w := cmd.OutOrStdout()
		if f.IsStructured() {
			return output.Write(w, f, resp)
		}

		styles := output.NewStyles(rendererFor(w))
		if st.LoadErr != nil {
			fmt.Fprintln(w, styles.Warning(fmt.Sprintf("manifest unreadable: %v", st.LoadErr)))
		}
		fmt.Fprint(w, surface.RenderCapabilitySummary(st.Capabilities))
		fmt.Fprintln(w)
		fmt.Fprintln(w, styles.KeyValue("Allowed", strings.Join(st.Capabilities.AllowedCommands, " "), 8))
		fmt.Fprintln(w, styles.KeyValue("Hidden", strings.Join(st.Capabilities.HiddenCommands, " "), 8))

		if trace {
			if st.Manifest == nil {
				fmt.Fprintln(w, styles.Warning("no manifest resolved; nothing to trace"))
				return nil
			}
			fmt.Fprintln(w)
			tbl := output.NewStyledTable("STAGE", "COUNT", "ADDED", "REMOVED").
				WithRenderer(rendererFor(w)).
				WithMaxWidth(2, 60).
				WithMaxWidth(3, 60)
			for _, d := range resp.Trace {
				tbl.AddRow(d.Stage, fmt.Sprint(d.Count), dash(strings.Join(d.Added, " ")), dash(strings.Join(d.Removed, " ")))
			}
			fmt.Fprint(w, tbl.Render())
		}
		return nil
	}
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
