package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maestro-cli/maestro/internal/output"
	"github.com/maestro-cli/maestro/internal/prompt"
)

// composeFromFlags loads the manifest and composes its envelope with the
// configured composer options.
func composeFromFlags(manifestFlag, sessionID string, master bool) (*prompt.Envelope, error) {
	m, _, err := requireManifest(manifestFlag)
	if err != nil {
		return nil, err
	}
	opts := currentConfig().PromptOptions()
	if master {
		opts.MasterSession = true
	}
	env, err := prompt.New(opts).Compose(m, prompt.ComposeOptions{SessionID: sessionID})
	if err != nil {
		var idErr *prompt.IdentityError
		if errors.As(err, &idErr) {
			return nil, fmt.Errorf("%w (set [prompt] identity_policy = \"lenient\" to compose anyway)", err)
		}
		return nil, err
	}
	return env, nil
}

func newPromptCmd() *cobra.Command {
	var (
		manifestFlag string
		sessionID    string
		part         string
		master       bool
	)

	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Compose the system and task documents for a session",
		Long: `Compose the system and task documents for a session.

The system document carries the agent's identity, workflow, capability
summary and command reference. The task document carries the assigned
tasks and the session context.

Examples:
  maestro prompt --manifest session.json
  maestro prompt --manifest session.json --part system
  maestro prompt --manifest session.json --session-id s-42 --format json`,
		Args: cobra.NoArgs,
	}
	format := formatFlag(cmd, "text", "Output format: text, json, yaml")
	addManifestFlag(cmd, &manifestFlag)
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session id (default $"+prompt.SessionIDEnv+")")
	cmd.Flags().StringVar(&part, "part", "all", "Document to print: system, task, all")
	cmd.Flags().BoolVar(&master, "master", false, "Compose as a master session")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		f, err := format()
		if err != nil {
			return err
		}
		part = strings.ToLower(part)
		if part != "all" && part != "system" && part != "task" {
			return fmt.Errorf("invalid --part %q: must be system, task or all", part)
		}
		env, err := composeFromFlags(manifestFlag, sessionID, master)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if f.IsStructured() {
			switch part {
			case "system":
				env.Task = ""
			case "task":
				env.System = ""
			}
			return output.Write(w, f, env)
		}
		switch part {
		case "system":
			fmt.Fprint(w, env.System)
		case "task":
			fmt.Fprint(w, env.Task)
		default:
			fmt.Fprint(w, env.System)
			fmt.Fprintln(w)
			fmt.Fprint(w, env.Task)
		}
		return nil
	}
	return cmd
}

func newDebugPromptCmd() *cobra.Command {
	var (
		manifestFlag string
		sessionID    string
		master       bool
	)

	cmd := &cobra.Command{
		Use:   "debug-prompt",
		Short: "Show exactly what a session's agent receives",
		Long: `Show exactly what a session's agent receives: both composed documents
under section headers, followed by the envelope metadata.

Examples:
  maestro debug-prompt --manifest session.json`,
		Args: cobra.NoArgs,
	}
	addManifestFlag(cmd, &manifestFlag)
	cmd.Flags().StringVar(&sessionID, "session-id", "", "Session id (default $"+prompt.SessionIDEnv+")")
	cmd.Flags().BoolVar(&master, "master", false, "Compose as a master session")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		env, err := composeFromFlags(manifestFlag, sessionID, master)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		writeDebugPrompt(w, output.NewStyles(rendererFor(w)), env)
		return nil
	}
	return cmd
}

func writeDebugPrompt(w io.Writer, styles output.Styles, env *prompt.Envelope) {
	fmt.Fprintln(w, styles.Section("SYSTEM"))
	fmt.Fprint(w, env.System)
	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.Section("TASK"))
	fmt.Fprint(w, env.Task)
	fmt.Fprintln(w)
	fmt.Fprintln(w, styles.Section("METADATA"))

	md := env.Metadata
	fmt.Fprintln(w, styles.KeyValue("mode", string(md.Mode), 12))
	fmt.Fprintln(w, styles.KeyValue("resolution", string(md.Resolution), 12))
	fmt.Fprintln(w, styles.KeyValue("commands", fmt.Sprint(md.CommandCount), 12))
	sessionID := md.SessionID
	if sessionID == "" {
		sessionID = "(none)"
	}
	fmt.Fprintln(w, styles.KeyValue("session", sessionID, 12))

	names := make([]string, 0, len(md.CapabilityFlags))
	for name := range md.CapabilityFlags {
		names = append(names, name)
	}
	sort.Strings(names)
	var on []string
	for _, name := range names {
		if md.CapabilityFlags[name] {
			on = append(on, name)
		}
	}
	fmt.Fprintln(w, styles.KeyValue("flags", dash(strings.Join(on, " ")), 12))
	for _, warning := range md.Warnings {
		fmt.Fprintln(w, styles.Warning(warning))
	}
}
