package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/maestro-cli/maestro/internal/manifest"
	"github.com/maestro-cli/maestro/internal/output"
	"github.com/maestro-cli/maestro/internal/permissions"
	"github.com/maestro-cli/maestro/internal/util"
	"github.com/maestro-cli/maestro/internal/watcher"
)

func newManifestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manifest",
		Short: "Inspect and normalize session manifests",
		Long: `Inspect and normalize session manifests.

Subcommands:
  normalize   Print the canonical form of a manifest
  watch       Re-resolve permissions whenever a manifest changes`,
	}
	cmd.AddCommand(newManifestNormalizeCmd(), newManifestWatchCmd())
	return cmd
}

func newManifestNormalizeCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "normalize <path>",
		Short: "Print the canonical form of a manifest",
		Long: `Print the canonical form of a manifest: legacy session modes are
mapped to their current names, legacy identity fields are migrated and
deprecated fields are dropped. Warnings go to stderr.

Examples:
  maestro manifest normalize session.json
  maestro manifest normalize session.yaml --format yaml
  maestro manifest normalize session.json --write`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&write, "write", false, "Rewrite the file in place")
	format := formatFlag(cmd, "", "Output format: json, yaml (default from the file extension)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		path := args[0]
		f, err := format()
		if err != nil {
			return err
		}
		encoding := manifest.FormatForPath(path)
		switch f {
		case output.FormatJSON:
			encoding = manifest.FormatJSON
		case output.FormatYAML:
			encoding = manifest.FormatYAML
		}

		m, err := manifest.Load(path)
		if err != nil {
			return err
		}
		res := manifest.Normalize(m)
		reportNormalize(cmd.ErrOrStderr(), res)

		data, err := manifest.Marshal(res.Manifest, encoding)
		if err != nil {
			return fmt.Errorf("encoding manifest: %w", err)
		}
		if len(data) == 0 || data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}

		if write {
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if err := util.AtomicWriteFile(path, data, info.Mode().Perm()); err != nil {
				return fmt.Errorf("writing manifest: %w", err)
			}
			slog.Info("manifest normalized", "path", path, "warnings", len(res.Warnings))
			return nil
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	return cmd
}

func reportNormalize(w io.Writer, res manifest.NormalizeResult) {
	styles := output.NewStyles(rendererFor(w))
	for _, warning := range res.Warnings {
		fmt.Fprintln(w, styles.Warning(warning))
	}
	for _, conflict := range res.IdentityErrors {
		fmt.Fprintln(w, styles.Error("identity conflict: "+conflict))
	}
}

func newManifestWatchCmd() *cobra.Command {
	var master bool

	cmd := &cobra.Command{
		Use:   "watch <path>",
		Short: "Re-resolve permissions whenever a manifest changes",
		Long: `Watch a manifest and print the resolved mode and command changes after
every edit. Bursts of writes are debounced ([watch] debounce_ms in the
config file). Stop with Ctrl-C.

Examples:
  maestro manifest watch session.json`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&master, "master", false, "Resolve as a master session")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := cmd.OutOrStdout()
		p := &watchPrinter{w: w, styles: output.NewStyles(rendererFor(w))}
		mw := watcher.NewManifestWatcher(args[0],
			watcher.WithDebounce(time.Duration(c.Watch.DebounceMs)*time.Millisecond),
			watcher.WithFallbackPolicy(c.FallbackPolicy()),
			watcher.WithResolveOptions(resolveOptions(nil, master)),
			watcher.WithHandler(p.handle),
		)
		return runWatch(ctx, mw)
	}
	return cmd
}

func runWatch(ctx context.Context, mw *watcher.ManifestWatcher) error {
	if err := mw.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	mw.Stop()
	return nil
}

// watchPrinter prints one line per reload plus the commands gained or lost
// since the previous one.
type watchPrinter struct {
	w      io.Writer
	styles output.Styles
	prev   *permissions.CapabilitySet
}

func (p *watchPrinter) handle(ev watcher.Event) {
	ts := ev.At.Format("15:04:05")
	cs := ev.Capabilities
	if ev.Err != nil {
		fmt.Fprintln(p.w, p.styles.Warning(fmt.Sprintf("%s %v (fallback %s)", ts, ev.Err, cs.Resolution)))
	} else {
		fmt.Fprintln(p.w, p.styles.Success(fmt.Sprintf("%s mode=%s %s",
			ts, cs.Mode, output.CountStr(len(cs.AllowedCommands), "command", "commands"))))
	}
	for _, warning := range ev.Warnings {
		fmt.Fprintln(p.w, "  warning: "+warning)
	}
	if p.prev != nil {
		added, removed := diffIDs(p.prev.AllowedCommands, cs.AllowedCommands)
		if len(added) > 0 {
			fmt.Fprintln(p.w, "  + "+strings.Join(added, " "))
		}
		if len(removed) > 0 {
			fmt.Fprintln(p.w, "  - "+strings.Join(removed, " "))
		}
	}
	p.prev = cs
}

func diffIDs(before, after []string) (added, removed []string) {
	in := func(ids []string) map[string]bool {
		set := make(map[string]bool, len(ids))
		for _, id := range ids {
			set[id] = true
		}
		return set
	}
	b, a := in(before), in(after)
	for _, id := range after {
		if !b[id] {
			added = append(added, id)
		}
	}
	for _, id := range before {
		if !a[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}
