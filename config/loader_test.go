package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderEnvOverrides(t *testing.T) {
	// Run from an empty directory so no project config is picked up.
	t.Chdir(t.TempDir())

	t.Setenv(EnvNameResolverURL, "http://nameres.test:8000")
	t.Setenv(EnvNodeNormalizerURL, "http://nodenorm.test:8000")
	t.Setenv(EnvNATSURL, "nats://nats.test:4222")

	cfg, err := NewLoader(nil).Load()
	require.NoError(t, err)

	assert.Equal(t, "http://nameres.test:8000", cfg.Services.NameResolverURL)
	assert.Equal(t, "http://nodenorm.test:8000", cfg.Services.NodeNormalizerURL)
	assert.Equal(t, "nats://nats.test:4222", cfg.NATS.URL)

	// Untouched sections keep their defaults.
	assert.Equal(t, "embedded", cfg.Taxonomy.Source)
	assert.Equal(t, "AGENT", cfg.NATS.Stream)
}

func TestLoaderProjectConfigInParentDir(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "data", "input")
	require.NoError(t, os.MkdirAll(nested, 0755))

	projectYAML := `
services:
  lookup_limit: 25
enrich:
  name_column: entity
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ProjectConfigFile), []byte(projectYAML), 0644))

	t.Chdir(nested)

	cfg, err := NewLoader(nil).Load()
	require.NoError(t, err)

	// Project config found by walking up from the nested directory.
	assert.Equal(t, 25, cfg.Services.LookupLimit)
	assert.Equal(t, "entity", cfg.Enrich.NameColumn)
	// Defaults survive for everything the project config omits.
	assert.Equal(t, DefaultConfig().Services.NameResolverURL, cfg.Services.NameResolverURL)
}

func TestLoaderRejectsInvalidProjectConfig(t *testing.T) {
	dir := t.TempDir()
	badYAML := `
services:
  timeout: -5s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigFile), []byte(badYAML), 0644))

	t.Chdir(dir)

	_, err := NewLoader(nil).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestFindProjectConfigStopsAtRoot(t *testing.T) {
	// An empty temp tree has no robomcp.yaml anywhere up to the filesystem
	// root in CI containers; the walk must terminate.
	t.Chdir(t.TempDir())

	l := NewLoader(nil)
	assert.NotPanics(t, func() { _ = l.findProjectConfig() })
}
