// Package config holds lockcheck configuration, loadable from YAML with
// sensible defaults for a bare run.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all lockcheck configuration.
type Config struct {
	// Server configures the ephemeral content server.
	Server ServerConfig `yaml:"server"`

	// Browser configures the headless session.
	Browser BrowserConfig `yaml:"browser"`

	// Output is the path of the persisted run report.
	Output string `yaml:"output"`

	// Scenarios overrides the default scenario list when non-empty.
	Scenarios []ScenarioConfig `yaml:"scenarios"`
}

// ServerConfig configures the static content server.
type ServerConfig struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	Root             string `yaml:"root"`
	ReadinessTimeout string `yaml:"readiness_timeout"`
	ShutdownTimeout  string `yaml:"shutdown_timeout"`
}

// BrowserConfig configures the headless browser session.
type BrowserConfig struct {
	Bin                 string `yaml:"bin"`
	DebuggerURL         string `yaml:"debugger_url"`
	Headless            *bool  `yaml:"headless"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms"`
	MaxConsoleEvents    int    `yaml:"max_console_events"`
	MaxConsoleTextBytes int    `yaml:"max_console_text_bytes"`
}

// ScenarioConfig declares one access-code scenario.
type ScenarioConfig struct {
	Name             string `yaml:"name"`
	AccessCode       string `yaml:"access_code"`
	EarlySampleDelay string `yaml:"early_sample_delay"`
	LockoutWindow    string `yaml:"lockout_window"`
	FormWaitTimeout  string `yaml:"form_wait_timeout"`
	SampleTimeout    string `yaml:"sample_timeout"`
}

// Default returns the configuration a flagless run uses.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:             "127.0.0.1",
			Port:             4173,
			Root:             "public",
			ReadinessTimeout: "5s",
			ShutdownTimeout:  "3s",
		},
		Browser: BrowserConfig{
			NavigationTimeoutMs: 30000,
			MaxConsoleEvents:    10000,
			MaxConsoleTextBytes: 4096,
		},
		Output: "tmp/lockout_results.json",
	}
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults untouched.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields the harness cannot default its way around.
func (c Config) Validate() error {
	if c.Server.Root == "" {
		return fmt.Errorf("server.root is required")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}
	for i, sc := range c.Scenarios {
		if sc.Name == "" {
			return fmt.Errorf("scenarios[%d]: name is required", i)
		}
	}
	return nil
}

// Headless reports the effective headless setting (default true).
func (b BrowserConfig) IsHeadless() bool {
	if b.Headless == nil {
		return true
	}
	return *b.Headless
}

// ParseDuration parses a duration string, falling back when empty or
// malformed.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
