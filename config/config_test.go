package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "artifact.yaml", `
app:
  tickRate: 30
  theme: night
timeouts:
  select: 20s
  result: 1m
modes:
  - name: fortune
    displayName: Fortune Teller
    requires: [ai]
    enabled: true
schedule:
  - spec: "0 4 * * *"
    event: schedule.nightly.reset
diag:
  enabled: true
  addr: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.App.TickRate)
	assert.Equal(t, "night", cfg.App.Theme)
	assert.Equal(t, Duration(20*time.Second), cfg.Timeouts.Select)
	assert.Equal(t, Duration(time.Minute), cfg.Timeouts.Result)
	// Unset timeouts fall back to defaults.
	assert.Equal(t, Duration(60*time.Second), cfg.Timeouts.Processing)
	require.Len(t, cfg.Modes, 1)
	assert.Equal(t, "fortune", cfg.Modes[0].Name)
	assert.Equal(t, []string{"ai"}, cfg.Modes[0].Requires)
	require.Len(t, cfg.Schedule, 1)
	assert.Equal(t, "schedule.nightly.reset", cfg.Schedule[0].Event)
	assert.True(t, cfg.Diag.Enabled)
	assert.Equal(t, ":9090", cfg.Diag.Addr)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "artifact.toml", `
[app]
tickRate = 24
theme = "gallery"

[timeouts]
select = "15s"

[[modes]]
name = "photo"
displayName = "Photo Booth"
requires = ["camera", "printer"]
enabled = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 24, cfg.App.TickRate)
	assert.Equal(t, Duration(15*time.Second), cfg.Timeouts.Select)
	require.Len(t, cfg.Modes, 1)
	assert.Equal(t, []string{"camera", "printer"}, cfg.Modes[0].Requires)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "artifact.ini", "tickRate=60")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	path := writeFile(t, "artifact.yaml", `
app:
  tickRate: 30
`)
	t.Setenv("ARTIFACT_TICK_RATE", "120")
	t.Setenv("ARTIFACT_THEME", "midnight")
	t.Setenv("ARTIFACT_TIMEOUT_SELECT", "5s")
	t.Setenv("ARTIFACT_DIAG_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.App.TickRate)
	assert.Equal(t, "midnight", cfg.App.Theme)
	assert.Equal(t, Duration(5*time.Second), cfg.Timeouts.Select)
	assert.True(t, cfg.Diag.Enabled)
}

func TestEnvOverrideInvalidDuration(t *testing.T) {
	path := writeFile(t, "artifact.yaml", "app:\n  tickRate: 30\n")
	t.Setenv("ARTIFACT_TIMEOUT_SELECT", "soon")

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrEnvInvalidValue)
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.App.TickRate)
	assert.Equal(t, "default", cfg.App.Theme)
	assert.Equal(t, Duration(30*time.Second), cfg.Timeouts.Select)
	assert.Equal(t, ":8085", cfg.Diag.Addr)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"negative tick rate", func(c *Config) { c.App.TickRate = -1 }, ErrTickRateInvalid},
		{"negative timeout", func(c *Config) { c.Timeouts.Result = Duration(-time.Second) }, ErrTimeoutNegative},
		{"unnamed mode", func(c *Config) { c.Modes = []ModeEntry{{}} }, ErrModeNameEmpty},
		{"duplicate mode", func(c *Config) {
			c.Modes = []ModeEntry{{Name: "a"}, {Name: "a"}}
		}, ErrModeDuplicate},
		{"schedule without spec", func(c *Config) {
			c.Schedule = []ScheduleEntry{{Event: "x"}}
		}, ErrScheduleSpecEmpty},
		{"schedule without event", func(c *Config) {
			c.Schedule = []ScheduleEntry{{Spec: "* * * * *"}}
		}, ErrScheduleEventEmpty},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), tc.wantErr)
		})
	}
}

func TestDurationRoundTrip(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, Duration(90*time.Second), d)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("whenever")))
}
