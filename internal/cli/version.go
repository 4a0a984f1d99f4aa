package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/maestro-cli/maestro/internal/output"
)

// VersionResponse is the structured output of `maestro version`.
type VersionResponse struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuiltAt   string `json:"built_at" yaml:"built_at"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

func buildVersionResponse() VersionResponse {
	return VersionResponse{
		Version:   Version,
		Commit:    Commit,
		BuiltAt:   Date,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
	}
	format := formatFlag(cmd, "text", "Output format: text, json, yaml")
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		f, err := format()
		if err != nil {
			return err
		}
		resp := buildVersionResponse()
		w := cmd.OutOrStdout()
		if f.IsStructured() {
			return output.Write(w, f, resp)
		}
		if short {
			fmt.Fprintln(w, resp.Version)
			return nil
		}
		fmt.Fprintf(w, "maestro version %s\n", resp.Version)
		fmt.Fprintf(w, "  commit:    %s\n", resp.Commit)
		fmt.Fprintf(w, "  built:     %s\n", resp.BuiltAt)
		fmt.Fprintf(w, "  go:        %s\n", resp.GoVersion)
		fmt.Fprintf(w, "  platform:  %s\n", resp.Platform)
		return nil
	}
	return cmd
}
