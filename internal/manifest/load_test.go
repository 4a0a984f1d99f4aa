package manifest

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maestro-cli/maestro/internal/catalog"
)

const sampleJSON = `{
  "manifestVersion": "1.0",
  "mode": "execute",
  "tasks": [{"id": "task-1", "title": "Fix login", "projectId": "proj-1"}],
  "session": {"model": "sonnet", "allowedCommands": ["task:get"]},
  "teamMemberCommandPermissions": {"groups": {"task": false}, "commands": {"task:get": true}},
  "teamMemberIdentity": ""
}`

const sampleYAML = `manifestVersion: "1.0"
mode: coordinator
tasks:
  - id: task-1
    title: Plan the release
    projectId: proj-1
session:
  model: opus
teamMemberCapabilities:
  canSpawnSessions: false
isMaster: true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad_JSON(t *testing.T) {
	m, err := Load(writeFile(t, "manifest.json", sampleJSON))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Mode != "execute" {
		t.Errorf("Mode = %q, want raw legacy value", m.Mode)
	}
	if len(m.Session.AllowedCommands) != 1 || m.Session.AllowedCommands[0] != "task:get" {
		t.Errorf("AllowedCommands = %v", m.Session.AllowedCommands)
	}
	if m.TeamMemberIdent == nil {
		t.Error("explicit empty teamMemberIdentity should be preserved as set")
	}
	if m.TeamMemberCommandPermissions == nil || m.TeamMemberCommandPermissions.Groups["task"] {
		t.Errorf("permissions = %+v", m.TeamMemberCommandPermissions)
	}
}

func TestLoad_YAML(t *testing.T) {
	m, err := Load(writeFile(t, "manifest.yaml", sampleYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Mode != catalog.ModeCoordinator || !m.IsMaster {
		t.Errorf("Mode = %q, IsMaster = %v", m.Mode, m.IsMaster)
	}
	if v, ok := m.TeamMemberCapabilities["canSpawnSessions"]; !ok || v {
		t.Errorf("TeamMemberCapabilities = %v", m.TeamMemberCapabilities)
	}
	if m.Session.AllowedCommands != nil {
		t.Errorf("AllowedCommands = %v, want nil when absent", m.Session.AllowedCommands)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad json", "m.json", "{not json"},
		{"bad yaml", "m.yml", "tasks: [unterminated"},
		{"no tasks", "m.json", `{"mode": "worker", "tasks": []}`},
		{"empty task id", "m.json", `{"tasks": [{"id": " "}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			if !errors.Is(err, ErrManifestUnreadable) {
				t.Errorf("Load() error = %v, want ErrManifestUnreadable", err)
			}
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrManifestUnreadable) {
		t.Errorf("Load(missing) error = %v, want ErrManifestUnreadable", err)
	}
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]Format{
		"a.json":     FormatJSON,
		"a.YAML":     FormatYAML,
		"a.yml":      FormatYAML,
		"manifest":   FormatJSON,
		"dir/x.toml": FormatJSON,
	}
	for path, want := range tests {
		if got := FormatForPath(path); got != want {
			t.Errorf("FormatForPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	m, err := Parse([]byte(sampleYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	for _, format := range []Format{FormatJSON, FormatYAML} {
		data, err := Marshal(m, format)
		if err != nil {
			t.Fatalf("Marshal(%s) error = %v", format, err)
		}
		back, err := Parse(data, format)
		if err != nil {
			t.Fatalf("Parse(%s) error = %v\n%s", format, err, data)
		}
		if back.Mode != m.Mode || back.Tasks[0].Title != m.Tasks[0].Title {
			t.Errorf("%s round trip lost data: %+v", format, back)
		}
		if back.Session.AllowedCommands != nil {
			t.Errorf("%s round trip invented an allowlist: %#v", format, back.Session.AllowedCommands)
		}
	}
}

func TestMarshal_YAMLKeepsEmptyAllowlist(t *testing.T) {
	in := "mode: worker\ntasks:\n  - id: task-1\n    title: Fix login\nsession:\n  model: sonnet\n  allowedCommands: []\n"
	m, err := Parse([]byte(in), FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Session.AllowedCommands == nil {
		t.Fatal("Parse() dropped the empty allowlist")
	}

	data, err := Marshal(Normalize(m).Manifest, FormatYAML)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), "allowedCommands: []") {
		t.Errorf("Marshal() output missing empty allowlist:\n%s", data)
	}
	back, err := Parse(data, FormatYAML)
	if err != nil {
		t.Fatalf("Parse() error = %v\n%s", err, data)
	}
	if back.Session.AllowedCommands == nil || len(back.Session.AllowedCommands) != 0 {
		t.Errorf("AllowedCommands after round trip = %#v, want empty non-nil", back.Session.AllowedCommands)
	}
	if back.Session.Model != "sonnet" {
		t.Errorf("Model after round trip = %q, want sonnet", back.Session.Model)
	}
}

func TestWarningLog_LogsOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	wl := NewWarningLog()

	fresh := wl.Log(logger, []string{"a", "b", "a"})
	if len(fresh) != 2 {
		t.Errorf("first Log() = %v, want 2 fresh", fresh)
	}
	fresh = wl.Log(logger, []string{"a", "c"})
	if len(fresh) != 1 || fresh[0] != "c" {
		t.Errorf("second Log() = %v, want [c]", fresh)
	}
	if got := strings.Count(buf.String(), "warning=a"); got != 1 {
		t.Errorf("warning a logged %d times, want 1\n%s", got, buf.String())
	}
	if !wl.Seen("b") || wl.Seen("zzz") {
		t.Error("Seen() mismatch")
	}

	wl.Clear()
	if wl.Seen("a") {
		t.Error("Clear() should forget warnings")
	}
}
