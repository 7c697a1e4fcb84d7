// Package config loads and watches the installation's configuration file.
// YAML and TOML are dispatched by file extension; environment variables with
// the ARTIFACT_ prefix override individual fields via their env tags.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/artifact/eventbus"
)

// Duration is a time.Duration that unmarshals from human-readable strings
// ("30s", "1m30s") in YAML, TOML and JSON.
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalText implements encoding.TextUnmarshaler, which TOML and JSON
// decoding use.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("invalid duration node: %w", err)
	}
	return d.UnmarshalText([]byte(raw))
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// App holds the top-level runtime settings.
type App struct {
	// TickRate is the compositor frame rate in Hz.
	TickRate int `json:"tickRate" yaml:"tickRate" toml:"tickRate" env:"TICK_RATE"`

	// Theme names the visual theme modes may consult.
	Theme string `json:"theme" yaml:"theme" toml:"theme" env:"THEME"`
}

// Timeouts holds the per-state dwell limits swept by the controller.
type Timeouts struct {
	Select     Duration `json:"select" yaml:"select" toml:"select" env:"TIMEOUT_SELECT"`
	Processing Duration `json:"processing" yaml:"processing" toml:"processing" env:"TIMEOUT_PROCESSING"`
	Result     Duration `json:"result" yaml:"result" toml:"result" env:"TIMEOUT_RESULT"`
	Recovery   Duration `json:"recovery" yaml:"recovery" toml:"recovery" env:"TIMEOUT_RECOVERY"`
}

// ModeEntry describes one registered experience in configuration.
type ModeEntry struct {
	Name        string   `json:"name" yaml:"name" toml:"name"`
	DisplayName string   `json:"displayName" yaml:"displayName" toml:"displayName"`
	Requires    []string `json:"requires,omitempty" yaml:"requires,omitempty" toml:"requires,omitempty"`
	Enabled     bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
}

// Displays holds the geometry of the three output surfaces. The core never
// reads these; they are passed through to the role renderers.
type Displays struct {
	Primary struct {
		Width  int `json:"width" yaml:"width" toml:"width" env:"PRIMARY_WIDTH"`
		Height int `json:"height" yaml:"height" toml:"height" env:"PRIMARY_HEIGHT"`
	} `json:"primary" yaml:"primary" toml:"primary"`

	Ambient struct {
		Length int `json:"length" yaml:"length" toml:"length" env:"AMBIENT_LENGTH"`
	} `json:"ambient" yaml:"ambient" toml:"ambient"`

	Status struct {
		Columns int `json:"columns" yaml:"columns" toml:"columns" env:"STATUS_COLUMNS"`
	} `json:"status" yaml:"status" toml:"status"`
}

// ScheduleEntry maps a cron spec to the bus event it fires.
type ScheduleEntry struct {
	Spec  string `json:"spec" yaml:"spec" toml:"spec"`
	Event string `json:"event" yaml:"event" toml:"event"`
}

// Diag configures the debug HTTP server.
type Diag struct {
	Enabled bool   `json:"enabled" yaml:"enabled" toml:"enabled" env:"DIAG_ENABLED"`
	Addr    string `json:"addr" yaml:"addr" toml:"addr" env:"DIAG_ADDR"`
}

// Config is the full installation configuration.
type Config struct {
	App      App             `json:"app" yaml:"app" toml:"app"`
	Timeouts Timeouts        `json:"timeouts" yaml:"timeouts" toml:"timeouts"`
	Bus      eventbus.Config `json:"bus" yaml:"bus" toml:"bus"`
	Modes    []ModeEntry     `json:"modes" yaml:"modes" toml:"modes"`
	Displays Displays        `json:"displays" yaml:"displays" toml:"displays"`
	Schedule []ScheduleEntry `json:"schedule" yaml:"schedule" toml:"schedule"`
	Diag     Diag            `json:"diag" yaml:"diag" toml:"diag"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.App.TickRate == 0 {
		c.App.TickRate = 60
	}
	if c.App.Theme == "" {
		c.App.Theme = "default"
	}
	if c.Timeouts.Select == 0 {
		c.Timeouts.Select = Duration(30 * time.Second)
	}
	if c.Timeouts.Processing == 0 {
		c.Timeouts.Processing = Duration(60 * time.Second)
	}
	if c.Timeouts.Result == 0 {
		c.Timeouts.Result = Duration(45 * time.Second)
	}
	if c.Timeouts.Recovery == 0 {
		c.Timeouts.Recovery = Duration(10 * time.Second)
	}
	if c.Diag.Addr == "" {
		c.Diag.Addr = ":8085"
	}
}

// Validate checks the configuration for values that cannot work at runtime.
func (c *Config) Validate() error {
	if c.App.TickRate <= 0 {
		return fmt.Errorf("%w: %d", ErrTickRateInvalid, c.App.TickRate)
	}
	for _, d := range []struct {
		name  string
		value Duration
	}{
		{"select", c.Timeouts.Select},
		{"processing", c.Timeouts.Processing},
		{"result", c.Timeouts.Result},
		{"recovery", c.Timeouts.Recovery},
	} {
		if d.value < 0 {
			return fmt.Errorf("%w: %s", ErrTimeoutNegative, d.name)
		}
	}

	seen := make(map[string]struct{}, len(c.Modes))
	for _, m := range c.Modes {
		if m.Name == "" {
			return ErrModeNameEmpty
		}
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("%w: %q", ErrModeDuplicate, m.Name)
		}
		seen[m.Name] = struct{}{}
	}

	for i, entry := range c.Schedule {
		if entry.Spec == "" {
			return fmt.Errorf("%w: entry %d", ErrScheduleSpecEmpty, i)
		}
		if entry.Event == "" {
			return fmt.Errorf("%w: entry %d", ErrScheduleEventEmpty, i)
		}
	}
	return nil
}
