package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MODELGEN_MODULE", "")
	t.Setenv("MODELGEN_WORKERS", "")
	t.Setenv("MODELGEN_LOG_LEVEL", "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "_", cfg.Naming.Sigil)
	assert.Equal(t, ".model", cfg.Naming.Marker)
	assert.Equal(t, "modelgen/pkg/modelrt", cfg.Imports.RuntimePrefix)
	assert.Equal(t, 8, cfg.Generation.Workers)
	assert.Equal(t, 300*time.Millisecond, cfg.GetDebounce())
	assert.Contains(t, cfg.Templates.Exclude, "**/*_test.go")
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
module: example.com/shop
naming:
  marker: .gen
imports:
  legacy_packages: [example.com/legacy]
generation:
  workers: 2
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "example.com/shop", cfg.Module)
	assert.Equal(t, ".gen", cfg.Naming.Marker)
	assert.Equal(t, "_", cfg.Naming.Sigil, "unset keys keep their defaults")
	assert.Equal(t, 2, cfg.Generation.Workers)

	policy := cfg.Policy()
	assert.Equal(t, ".gen", policy.Marker)
	assert.Equal(t, []string{"example.com/legacy"}, policy.LegacyPackages)
	assert.Equal(t, "models/user.gen", policy.GeneratedDir("models/user"))
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("naming: [oops"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", FileName)
	cfg := DefaultConfig()
	cfg.Module = "example.com/shop"
	cfg.Watch.Debounce = "1s"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MODELGEN_MODULE", "example.com/env")
	t.Setenv("MODELGEN_WORKERS", "3")
	t.Setenv("MODELGEN_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()
	assert.Equal(t, "example.com/env", cfg.Module)
	assert.Equal(t, 3, cfg.Generation.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)

	t.Setenv("MODELGEN_WORKERS", "many")
	cfg = DefaultConfig()
	cfg.applyEnvOverrides()
	assert.Equal(t, 8, cfg.Generation.Workers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"empty sigil", func(c *Config) { c.Naming.Sigil = "" }},
		{"marker without dot", func(c *Config) { c.Naming.Marker = "gen" }},
		{"negative workers", func(c *Config) { c.Generation.Workers = -1 }},
		{"no includes", func(c *Config) { c.Templates.Include = nil }},
		{"empty exclude", func(c *Config) { c.Templates.Exclude = []string{""} }},
		{"bad directive", func(c *Config) { c.Templates.Directive = "modelgen:model" }},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad debounce", func(c *Config) { c.Watch.Debounce = "soon" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestRulesAndOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Naming.Sigil = "T"
	cfg.Generation.Workers = 4

	rules := cfg.Rules()
	assert.Equal(t, "T", rules.Sigil)
	assert.Equal(t, "List", rules.SequencePrefix)

	opts := cfg.GeneratorOptions("example.com/shop")
	assert.Equal(t, "example.com/shop", opts.Module)
	assert.Equal(t, 4, opts.Workers)
	assert.Equal(t, rules, opts.Rules)

	ro := cfg.ReaderOptions("/shop", "example.com/shop")
	assert.Equal(t, "modelgen", ro.BuildTag)
	assert.Equal(t, "/shop", ro.ModuleRoot)
}

func TestTemplateExcludesFollowMarker(t *testing.T) {
	cfg := DefaultConfig()
	excludes := cfg.TemplateExcludes()
	assert.Contains(t, excludes, "**/*.model/**")
	assert.Len(t, excludes, len(cfg.Templates.Exclude)+1)

	cfg.Naming.Marker = ".gen"
	excludes = cfg.TemplateExcludes()
	assert.Contains(t, excludes, "**/*.gen/**")
	assert.NotContains(t, excludes, "**/*.model/**")
	assert.NotContains(t, cfg.Templates.Exclude, "**/*.gen/**")
}

func TestLoggerConfig(t *testing.T) {
	lc := LoggingConfig{Level: "warn", Format: "json", Categories: map[string]bool{"emit": false}}
	assert.Equal(t, "warn", lc.LoggerConfig(false).Level)
	assert.Equal(t, "debug", lc.LoggerConfig(true).Level)
	assert.False(t, lc.IsCategoryEnabled("emit"))
	assert.True(t, lc.IsCategoryEnabled("watch"))
}

func TestFindModule(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/shop\n\ngo 1.24\n"), 0o644))
	nested := filepath.Join(root, "models", "user")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	gotRoot, module, err := FindModule(nested)
	require.NoError(t, err)
	assert.Equal(t, root, gotRoot)
	assert.Equal(t, "example.com/shop", module)
}

func TestResolveModule(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/shop\n"), 0o644))

	cfg := DefaultConfig()
	_, module, err := cfg.ResolveModule(root)
	require.NoError(t, err)
	assert.Equal(t, "example.com/shop", module)

	cfg.Module = "example.com/override"
	gotRoot, module, err := cfg.ResolveModule(root)
	require.NoError(t, err)
	assert.Equal(t, root, gotRoot)
	assert.Equal(t, "example.com/override", module)
}

func TestFindModuleWithoutGoMod(t *testing.T) {
	// the temp dir may sit below some go.mod on the test machine
	_, _, err := FindModule(t.TempDir())
	if err != nil {
		assert.True(t, errors.Is(err, ErrNoModule))
	}
}
