package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/maestro-cli/maestro/internal/permissions"
	"github.com/maestro-cli/maestro/internal/prompt"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvConfig, EnvFallbackPolicy, EnvIsMaster, EnvIdentityPolicy, EnvLogLevel, EnvLogFormat, EnvManifestPath} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.FallbackPolicy() != permissions.PolicySafeDegraded {
		t.Errorf("FallbackPolicy() = %q, want safe-degraded", cfg.FallbackPolicy())
	}
	if cfg.Prompt.CommandReference != "compact" {
		t.Errorf("CommandReference = %q, want compact", cfg.Prompt.CommandReference)
	}
	if !cfg.Prompt.HardenFreeform {
		t.Error("HardenFreeform should default to true")
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("Validate(Default()) = %v, want no errors", errs)
	}
}

func TestDefaultPath(t *testing.T) {
	clearEnv(t)

	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got, want := DefaultPath(), filepath.Join("/xdg", "maestro", "config.toml"); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}

	t.Setenv(EnvConfig, "/explicit/maestro.toml")
	if got := DefaultPath(); got != "/explicit/maestro.toml" {
		t.Errorf("DefaultPath() = %q, want env override", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get user home dir")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~", home},
		{"~/foo", filepath.Join(home, "foo")},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ExpandHome(tt.input); got != tt.expected {
				t.Errorf("ExpandHome(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("Load(missing) = %+v, want defaults", cfg)
	}
}

func TestLoad_TOMLOverDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[permissions]
fallback_policy = "permissive"

[prompt]
command_reference = "full"
harden_freeform = false

[watch]
debounce_ms = 50
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.FallbackPolicy() != permissions.PolicyPermissive {
		t.Errorf("FallbackPolicy() = %q, want permissive", cfg.FallbackPolicy())
	}
	if cfg.Prompt.CommandReference != "full" || cfg.Prompt.HardenFreeform {
		t.Errorf("Prompt = %+v", cfg.Prompt)
	}
	if cfg.Prompt.IdentityPolicy != "lenient" {
		t.Errorf("IdentityPolicy = %q, want default lenient to survive", cfg.Prompt.IdentityPolicy)
	}
	if cfg.Watch.DebounceMs != 50 {
		t.Errorf("DebounceMs = %d, want 50", cfg.Watch.DebounceMs)
	}
}

func TestLoad_EnvOverridesTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[prompt]\nidentity_policy = \"lenient\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvIdentityPolicy, "strict")
	t.Setenv(EnvIsMaster, "true")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvManifestPath, "/tmp/m.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Prompt.IdentityPolicy != "strict" {
		t.Errorf("IdentityPolicy = %q, want strict", cfg.Prompt.IdentityPolicy)
	}
	if !cfg.Permissions.MasterSession {
		t.Error("MasterSession should be set from env")
	}
	if cfg.LogLevel() != slog.LevelDebug {
		t.Errorf("LogLevel() = %v, want debug", cfg.LogLevel())
	}
	if cfg.ManifestPath != "/tmp/m.json" {
		t.Errorf("ManifestPath = %q", cfg.ManifestPath)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[prompt\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("Load() error = %v, want parse error", err)
	}
}

func TestValidate_ReportsEveryIssue(t *testing.T) {
	cfg := Default()
	cfg.Permissions.FallbackPolicy = "yolo"
	cfg.Prompt.CommandReference = "tiny"
	cfg.Logging.Format = "xml"
	cfg.Watch.DebounceMs = -1

	errs := Validate(cfg)
	if len(errs) != 4 {
		t.Fatalf("Validate() = %v, want 4 errors", errs)
	}
	if !strings.HasPrefix(errs[0].Error(), "permissions.fallback_policy") {
		t.Errorf("first error = %q", errs[0])
	}
	if got := Validate(nil); len(got) != 1 {
		t.Errorf("Validate(nil) = %v", got)
	}
}

func TestPromptOptions(t *testing.T) {
	cfg := Default()
	cfg.Prompt.CommandReference = "FULL"
	cfg.Prompt.IdentityPolicy = "strict"
	cfg.Permissions.MasterSession = true

	want := prompt.Options{
		CommandReference: prompt.ReferenceFull,
		IdentityPolicy:   prompt.IdentityStrict,
		HardenFreeform:   true,
		MasterSession:    true,
	}
	if got := cfg.PromptOptions(); got != want {
		t.Errorf("PromptOptions() = %+v, want %+v", got, want)
	}
}

func TestPrint_RoundTrips(t *testing.T) {
	cfg := Default()
	cfg.Prompt.IdentityPolicy = "strict"
	cfg.Watch.DebounceMs = 75

	var buf bytes.Buffer
	if err := Print(cfg, &buf); err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	var back Config
	if _, err := toml.Decode(buf.String(), &back); err != nil {
		t.Fatalf("printed config does not parse: %v\n%s", err, buf.String())
	}
	if back != *cfg {
		t.Errorf("round trip = %+v, want %+v", back, *cfg)
	}
}

func TestCreateDefault(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	t.Setenv(EnvConfig, path)

	got, err := CreateDefault()
	if err != nil {
		t.Fatalf("CreateDefault() error = %v", err)
	}
	if got != path {
		t.Errorf("CreateDefault() = %q, want %q", got, path)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("created config = %+v, want defaults", cfg)
	}
	if _, err := CreateDefault(); err == nil {
		t.Error("second CreateDefault() should refuse to overwrite")
	}
}
