package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 4173, cfg.Server.Port)
	require.Equal(t, "public", cfg.Server.Root)
	require.Equal(t, "tmp/lockout_results.json", cfg.Output)
	require.True(t, cfg.Browser.IsHeadless())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lockcheck.yaml")
	yaml := `
server:
  port: 8099
  root: site
output: out/report.json
browser:
  headless: false
scenarios:
  - name: wrong-code
    access_code: wrong-code
    lockout_window: 5200ms
  - name: empty-code
    access_code: ""
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8099, cfg.Server.Port)
	require.Equal(t, "site", cfg.Server.Root)
	require.Equal(t, "out/report.json", cfg.Output)
	require.False(t, cfg.Browser.IsHeadless())
	require.Len(t, cfg.Scenarios, 2)
	require.Equal(t, "wrong-code", cfg.Scenarios[0].AccessCode)
	// Untouched sections keep their defaults.
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n\t- nope"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing root", func(c *Config) { c.Server.Root = "" }},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"missing output", func(c *Config) { c.Output = "" }},
		{"unnamed scenario", func(c *Config) {
			c.Scenarios = []ScenarioConfig{{AccessCode: "x"}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestParseDuration(t *testing.T) {
	require.Equal(t, 220*time.Millisecond, ParseDuration("220ms", time.Second))
	require.Equal(t, time.Second, ParseDuration("", time.Second))
	require.Equal(t, time.Second, ParseDuration("garbage", time.Second))
}
