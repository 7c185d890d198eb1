package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 5910, cfg.Port)
	assert.Equal(t, []string{"stdout"}, cfg.Outputs)
	assert.False(t, cfg.DirectMode)
}

func TestLoadYAMLOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rpcd.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9999\n"), 0o644))

	base := DefaultConfig()
	merged, err := LoadYAML(base, path)
	require.NoError(t, err)

	assert.Equal(t, 9999, merged.Port)
	assert.Equal(t, base.Outputs, merged.Outputs)
}

func TestLoadYAMLMissingFileErrors(t *testing.T) {
	_, err := LoadYAML(DefaultConfig(), "/nonexistent/rpcd.yaml")
	assert.Error(t, err)
}
