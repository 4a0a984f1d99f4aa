// Package config loads maestro's TOML configuration.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/maestro-cli/maestro/internal/permissions"
	"github.com/maestro-cli/maestro/internal/prompt"
	"github.com/maestro-cli/maestro/internal/util"
)

// Environment variables read by Load.
const (
	EnvConfig         = "MAESTRO_CONFIG"
	EnvFallbackPolicy = "MAESTRO_FALLBACK_POLICY"
	EnvIsMaster       = "MAESTRO_IS_MASTER"
	EnvIdentityPolicy = "MAESTRO_IDENTITY_POLICY"
	EnvLogLevel       = "MAESTRO_LOG_LEVEL"
	EnvLogFormat      = "MAESTRO_LOG_FORMAT"
	EnvManifestPath   = "MAESTRO_MANIFEST_PATH"
)

// Config is the full maestro configuration.
type Config struct {
	Permissions PermissionsConfig `toml:"permissions" json:"permissions" yaml:"permissions"`
	Prompt      PromptConfig      `toml:"prompt" json:"prompt" yaml:"prompt"`
	Logging     LoggingConfig     `toml:"logging" json:"logging" yaml:"logging"`
	Watch       WatchConfig       `toml:"watch" json:"watch" yaml:"watch"`

	// ManifestPath is only set from the environment.
	ManifestPath string `toml:"-" json:"manifest_path,omitempty" yaml:"manifest_path,omitempty"`
}

// PermissionsConfig controls permission resolution.
type PermissionsConfig struct {
	// FallbackPolicy applies when a manifest exists but cannot be read:
	// "safe-degraded" or "permissive".
	FallbackPolicy string `toml:"fallback_policy" json:"fallback_policy" yaml:"fallback_policy"`
	// MasterSession grants master commands to every session this process
	// serves, in addition to manifests that set isMaster.
	MasterSession bool `toml:"master_session" json:"master_session" yaml:"master_session"`
}

// PromptConfig controls prompt composition.
type PromptConfig struct {
	CommandReference string `toml:"command_reference" json:"command_reference" yaml:"command_reference"` // compact | full
	IdentityPolicy   string `toml:"identity_policy" json:"identity_policy" yaml:"identity_policy"`       // lenient | strict
	HardenFreeform   bool   `toml:"harden_freeform" json:"harden_freeform" yaml:"harden_freeform"`
}

// LoggingConfig controls the slog handler installed by the CLI.
type LoggingConfig struct {
	Level  string `toml:"level" json:"level" yaml:"level"`    // debug | info | warn | error
	Format string `toml:"format" json:"format" yaml:"format"` // text | json
}

// WatchConfig controls `maestro manifest watch`.
type WatchConfig struct {
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Permissions: PermissionsConfig{
			FallbackPolicy: string(permissions.PolicySafeDegraded),
		},
		Prompt: PromptConfig{
			CommandReference: string(prompt.ReferenceCompact),
			IdentityPolicy:   string(prompt.IdentityLenient),
			HardenFreeform:   true,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Watch: WatchConfig{
			DebounceMs: 200,
		},
	}
}

// DefaultPath returns the default config file path
func DefaultPath() string {
	if env := os.Getenv(EnvConfig); env != "" {
		return ExpandHome(env)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "maestro", "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		// Fallback to /tmp when home directory is unavailable (e.g., containers)
		home = os.TempDir()
	}
	return filepath.Join(home, ".config", "maestro", "config.toml")
}

// Load reads the config at path (DefaultPath when empty). A missing file is
// not an error. Precedence is Env > TOML > Default.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvFallbackPolicy); v != "" {
		cfg.Permissions.FallbackPolicy = v
	}
	if v := os.Getenv(EnvIsMaster); v != "" {
		cfg.Permissions.MasterSession = envBool(v)
	}
	if v := os.Getenv(EnvIdentityPolicy); v != "" {
		cfg.Prompt.IdentityPolicy = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(EnvManifestPath); v != "" {
		cfg.ManifestPath = ExpandHome(v)
	}
}

func envBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			return home
		}
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}

	return path
}

// Validate checks the configuration for errors and returns all issues found
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{fmt.Errorf("config is nil")}
	}

	var errs []error
	oneOf := func(field, value string, allowed ...string) {
		for _, a := range allowed {
			if strings.EqualFold(strings.TrimSpace(value), a) {
				return
			}
		}
		errs = append(errs, fmt.Errorf("%s: must be one of %s, got %q", field, strings.Join(allowed, ", "), value))
	}

	oneOf("permissions.fallback_policy", cfg.Permissions.FallbackPolicy,
		string(permissions.PolicySafeDegraded), string(permissions.PolicyPermissive))
	oneOf("prompt.command_reference", cfg.Prompt.CommandReference,
		string(prompt.ReferenceCompact), string(prompt.ReferenceFull))
	oneOf("prompt.identity_policy", cfg.Prompt.IdentityPolicy,
		string(prompt.IdentityLenient), string(prompt.IdentityStrict))
	oneOf("logging.level", cfg.Logging.Level, "debug", "info", "warn", "error")
	oneOf("logging.format", cfg.Logging.Format, "text", "json")

	if cfg.Watch.DebounceMs < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce_ms: must be >= 0, got %d", cfg.Watch.DebounceMs))
	}

	return errs
}

// FallbackPolicy returns the parsed manifest-failure policy.
func (c *Config) FallbackPolicy() permissions.FallbackPolicy {
	return permissions.ParseFallbackPolicy(strings.ToLower(strings.TrimSpace(c.Permissions.FallbackPolicy)))
}

// PromptOptions converts the prompt section into composer options.
func (c *Config) PromptOptions() prompt.Options {
	return prompt.Options{
		CommandReference: prompt.ReferenceStyle(strings.ToLower(c.Prompt.CommandReference)),
		IdentityPolicy:   prompt.IdentityPolicy(strings.ToLower(c.Prompt.IdentityPolicy)),
		HardenFreeform:   c.Prompt.HardenFreeform,
		MasterSession:    c.Permissions.MasterSession,
	}
}

// LogLevel maps logging.level to a slog level; unknown values mean warn.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// Print writes cfg as a commented TOML file.
func Print(cfg *Config, w io.Writer) error {
	fmt.Fprintln(w, "# maestro configuration")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[permissions]")
	fmt.Fprintln(w, "# Behavior when a manifest exists but cannot be read (safe-degraded, permissive)")
	fmt.Fprintf(w, "fallback_policy = %q\n", cfg.Permissions.FallbackPolicy)
	fmt.Fprintln(w, "# Grant master commands to every session")
	fmt.Fprintf(w, "master_session = %t\n", cfg.Permissions.MasterSession)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[prompt]")
	fmt.Fprintln(w, "# Command reference style in the system prompt (compact, full)")
	fmt.Fprintf(w, "command_reference = %q\n", cfg.Prompt.CommandReference)
	fmt.Fprintln(w, "# Refuse to compose when identity fields conflict (lenient, strict)")
	fmt.Fprintf(w, "identity_policy = %q\n", cfg.Prompt.IdentityPolicy)
	fmt.Fprintln(w, "# Neutralize prompt structure tags inside task text")
	fmt.Fprintf(w, "harden_freeform = %t\n", cfg.Prompt.HardenFreeform)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[logging]")
	fmt.Fprintln(w, "# debug, info, warn, error")
	fmt.Fprintf(w, "level = %q\n", cfg.Logging.Level)
	fmt.Fprintln(w, "# text, json")
	fmt.Fprintf(w, "format = %q\n", cfg.Logging.Format)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[watch]")
	fmt.Fprintf(w, "debounce_ms = %d\n", cfg.Watch.DebounceMs)

	return nil
}

// CreateDefault writes the default config to DefaultPath. It refuses to
// overwrite an existing file.
func CreateDefault() (string, error) {
	path := DefaultPath()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config file already exists: %s", path)
	}

	var buffer strings.Builder
	if err := Print(Default(), &buffer); err != nil {
		return "", err
	}

	if err := util.AtomicWriteFile(path, []byte(buffer.String()), 0644); err != nil {
		return "", err
	}

	return path, nil
}
