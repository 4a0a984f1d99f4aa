package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/maestro-cli/maestro/internal/catalog"
	"github.com/maestro-cli/maestro/internal/manifest"
	"github.com/maestro-cli/maestro/internal/permissions"
)

// sessionState is the resolved view of the session this invocation serves.
type sessionState struct {
	Path         string
	Manifest     *manifest.Manifest // normalized; nil without a readable manifest
	Normalized   manifest.NormalizeResult
	Capabilities *permissions.CapabilitySet
	LoadErr      error
}

func addManifestFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "manifest", "m", "", "session manifest (default $MAESTRO_MANIFEST_PATH)")
}

func manifestPath(flag string) string {
	if flag != "" {
		return flag
	}
	return currentConfig().ManifestPath
}

// loadSession resolves permissions for the manifest named by flag or the
// environment. No manifest means an unrestricted session; an unreadable
// manifest falls back to the configured policy. The result is published
// as the current CapabilitySet.
func loadSession(flag string, forceMaster bool) *sessionState {
	c := currentConfig()
	st := &sessionState{Path: manifestPath(flag)}

	switch {
	case st.Path == "":
		st.Capabilities = permissions.ResolveNoManifest(catalog.ModeWorker)
	default:
		m, err := manifest.Load(st.Path)
		if err != nil {
			st.LoadErr = err
			st.Capabilities = permissions.ResolveManifestFailure(catalog.ModeWorker, c.FallbackPolicy())
			slog.Warn("manifest unreadable; using fallback permissions",
				"path", st.Path,
				"policy", c.FallbackPolicy(),
				"error", err,
			)
			break
		}
		st.Normalized = manifest.Normalize(m)
		st.Manifest = st.Normalized.Manifest
		manifest.DefaultWarningLog.Log(slog.Default(), st.Normalized.Warnings)
		st.Capabilities = permissions.Resolve(st.Manifest, resolveOptions(st.Manifest, forceMaster))
	}

	permissions.SetCurrent(st.Capabilities)
	return st
}

func resolveOptions(m *manifest.Manifest, forceMaster bool) permissions.Options {
	master := forceMaster || currentConfig().Permissions.MasterSession
	if m != nil && m.IsMaster {
		master = true
	}
	return permissions.Options{IsMasterSession: master}
}

// requireManifest loads a manifest that a command cannot work without.
func requireManifest(flag string) (*manifest.Manifest, string, error) {
	path := manifestPath(flag)
	if path == "" {
		return nil, "", fmt.Errorf("no manifest: pass --manifest or set MAESTRO_MANIFEST_PATH")
	}
	m, err := manifest.Load(path)
	if err != nil {
		return nil, path, err
	}
	return m, path, nil
}
