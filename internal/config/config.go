// Package config defines the trailhook configuration and its defaults.
// Configuration is loaded through viper from a YAML file, environment
// variables (TRAILHOOK_ prefix), and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete trailhook configuration
type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Registry RegistryConfig `mapstructure:"registry"`
	Verify   VerifyConfig   `mapstructure:"verify"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// PathsConfig controls where persisted state lives
type PathsConfig struct {
	// StateDir holds the active-agent registry, the shared session state
	// and the debug log. Relative paths resolve against the project cwd.
	StateDir string `mapstructure:"state_dir"`
	// TelemetryDir holds the month-bucketed telemetry log files.
	// Empty means {state_dir}/telemetry.
	TelemetryDir string `mapstructure:"telemetry_dir"`
}

// RegistryConfig controls the active-agent registry behavior
type RegistryConfig struct {
	// StaleAfterHours is the age beyond which a registered agent with no
	// stop event is evicted by the staleness sweep (default: 24)
	StaleAfterHours int `mapstructure:"stale_after_hours"`
}

// VerifyConfig controls the post-hoc verification collaborators
type VerifyConfig struct {
	// GitTimeoutSeconds bounds each git inspection call (default: 30)
	GitTimeoutSeconds int `mapstructure:"git_timeout_seconds"`
	// CheckTimeoutSeconds bounds both the type-check and the test run
	// (default: 120)
	CheckTimeoutSeconds int `mapstructure:"check_timeout_seconds"`
	// TypeCheckCommand is the command invoked for project-wide type
	// checking, e.g. ["npx", "tsc", "--noEmit"]
	TypeCheckCommand []string `mapstructure:"type_check_command"`
	// TestCommand is the command invoked to run discovered test files;
	// the file paths are appended as arguments
	TestCommand []string `mapstructure:"test_command"`
	// TestGlobs are the glob patterns a candidate test file must match
	// to be considered by test discovery
	TestGlobs []string `mapstructure:"test_globs"`
}

// LoggingConfig controls debug log output
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR (default: INFO)
	Level string `mapstructure:"level"`
}

// StaleAfter returns the staleness threshold as a time.Duration.
func (r *RegistryConfig) StaleAfter() time.Duration {
	return time.Duration(r.StaleAfterHours) * time.Hour
}

// GitTimeout returns the git call timeout as a time.Duration.
func (v *VerifyConfig) GitTimeout() time.Duration {
	return time.Duration(v.GitTimeoutSeconds) * time.Second
}

// CheckTimeout returns the type-check/test-run timeout as a time.Duration.
func (v *VerifyConfig) CheckTimeout() time.Duration {
	return time.Duration(v.CheckTimeoutSeconds) * time.Second
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			StateDir:     ".trailhook",
			TelemetryDir: "", // Empty means use default: {state_dir}/telemetry
		},
		Registry: RegistryConfig{
			StaleAfterHours: 24,
		},
		Verify: VerifyConfig{
			GitTimeoutSeconds:   30,
			CheckTimeoutSeconds: 120,
			TypeCheckCommand:    []string{"npx", "tsc", "--noEmit"},
			TestCommand:         []string{"npx", "jest", "--silent"},
			TestGlobs: []string{
				"**/*_test.go",
				"**/*.test.{ts,tsx,js,jsx}",
				"**/*.spec.{ts,tsx,js,jsx}",
				"**/test_*.py",
				"**/*_test.py",
			},
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// ResolveStateDir returns the absolute state directory for a project cwd.
func (p *PathsConfig) ResolveStateDir(cwd string) string {
	return resolvePath(p.StateDir, cwd, filepath.Join(cwd, ".trailhook"))
}

// ResolveTelemetryDir returns the absolute telemetry directory for a
// project cwd.
func (p *PathsConfig) ResolveTelemetryDir(cwd string) string {
	if p.TelemetryDir == "" {
		return filepath.Join(p.ResolveStateDir(cwd), "telemetry")
	}
	return resolvePath(p.TelemetryDir, cwd, filepath.Join(p.ResolveStateDir(cwd), "telemetry"))
}

// resolvePath expands ~ and resolves relative paths against baseDir.
func resolvePath(path, baseDir, fallback string) string {
	if path == "" {
		return fallback
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	return path
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("paths.state_dir", defaults.Paths.StateDir)
	viper.SetDefault("paths.telemetry_dir", defaults.Paths.TelemetryDir)

	viper.SetDefault("registry.stale_after_hours", defaults.Registry.StaleAfterHours)

	viper.SetDefault("verify.git_timeout_seconds", defaults.Verify.GitTimeoutSeconds)
	viper.SetDefault("verify.check_timeout_seconds", defaults.Verify.CheckTimeoutSeconds)
	viper.SetDefault("verify.type_check_command", defaults.Verify.TypeCheckCommand)
	viper.SetDefault("verify.test_command", defaults.Verify.TestCommand)
	viper.SetDefault("verify.test_globs", defaults.Verify.TestGlobs)

	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load unmarshals the current viper state into a Config
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// unmarshaling fails
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "trailhook")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".trailhook"
	}
	return filepath.Join(home, ".config", "trailhook")
}
