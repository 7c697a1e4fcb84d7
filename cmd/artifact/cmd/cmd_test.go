package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/artifact/config"
	"github.com/GoCodeAlone/artifact/mode"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	root := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range root.Commands() {
		names[sub.Name()] = true
	}

	assert.True(t, names["run"])
	assert.True(t, names["modes"])
	assert.True(t, names["version"])
}

func TestVersionCommandOutput(t *testing.T) {
	cmd := NewVersionCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "artifact v")
}

func TestRegisterModesDefaultsToAllBuiltins(t *testing.T) {
	registry := mode.NewRegistry()
	require.NoError(t, registerModes(registry, config.Default()))

	descriptors := registry.Descriptors()
	require.Len(t, descriptors, 2)

	names := []string{descriptors[0].Name, descriptors[1].Name}
	assert.Contains(t, names, "attract")
	assert.Contains(t, names, "fortune")
}

func TestRegisterModesHonorsConfigEntries(t *testing.T) {
	cfg := config.Default()
	cfg.Modes = []config.ModeEntry{
		{Name: "fortune", DisplayName: "Oracle", Requires: []string{"printer"}, Enabled: true},
		{Name: "attract", Enabled: false},
	}

	registry := mode.NewRegistry()
	require.NoError(t, registerModes(registry, cfg))

	descriptors := registry.Descriptors()
	require.Len(t, descriptors, 1)
	assert.Equal(t, "fortune", descriptors[0].Name)
	assert.Equal(t, "Oracle", descriptors[0].DisplayName)
	assert.Equal(t, []mode.Capability{mode.CapabilityPrinter}, descriptors[0].Requires)
}

func TestRegisterModesRejectsUnknownName(t *testing.T) {
	cfg := config.Default()
	cfg.Modes = []config.ModeEntry{{Name: "karaoke", Enabled: true}}

	registry := mode.NewRegistry()
	err := registerModes(registry, cfg)
	require.ErrorIs(t, err, ErrUnknownMode)
}

func TestParseCapabilities(t *testing.T) {
	assert.Nil(t, parseCapabilities(""))
	assert.Nil(t, parseCapabilities("   "))

	caps := parseCapabilities("printer, ai")
	require.NotNil(t, caps)
	assert.True(t, caps.Has(mode.CapabilityPrinter))
	assert.True(t, caps.Has(mode.CapabilityAI))
	assert.False(t, caps.Has(mode.CapabilityCamera))
}

func TestModesCommandWithConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "artifact.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
modes:
  - name: attract
    enabled: true
`), 0o644))

	cmd := NewModesCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Registered modes: 1")
	assert.Contains(t, out.String(), "attract")
}
