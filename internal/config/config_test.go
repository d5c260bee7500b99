package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zheng/codekg/internal/extract"
)

// unsetEnv clears the variables for the test and again afterwards, since
// godotenv only fills variables that are absent.
func unsetEnv(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		original, had := os.LookupEnv(name)
		require.NoError(t, os.Unsetenv(name))
		t.Cleanup(func() {
			if had {
				os.Setenv(name, original)
			} else {
				os.Unsetenv(name)
			}
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	unsetEnv(t, EnvDB, EnvLogLevel, EnvWorkers)
	dir := t.TempDir()

	cfg, err := load("", filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_YAML(t *testing.T) {
	unsetEnv(t, EnvDB, EnvLogLevel, EnvWorkers)
	dir := t.TempDir()
	path := writeFile(t, dir, "codekg.yaml", `
paths: [src, lib]
extensions: [.py, .go]
exclude: ["*.min.js"]
respect_gitignore: true
workers: 8
format: dot
heuristic:
  write_verbs: [push]
watch:
  debounce: 2s
`)

	cfg, err := load(path, filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, []string{"src", "lib"}, cfg.Paths)
	assert.Equal(t, []string{".py", ".go"}, cfg.Extensions)
	assert.True(t, cfg.RespectGitignore)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "dot", cfg.Format)
	assert.Equal(t, []string{"push"}, cfg.Heuristic.WriteVerbs)
	// unset nested fields keep their defaults
	assert.Equal(t, extract.DefaultHeuristicConfig().ReadVerbs, cfg.Heuristic.ReadVerbs)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	unsetEnv(t, EnvDB, EnvLogLevel, EnvWorkers)
	dir := t.TempDir()
	path := writeFile(t, dir, "codekg.yaml", "db: from-file.db\nlog_level: warn\n")
	envFile := writeFile(t, dir, ".env", "CODEKG_LOG_LEVEL=debug\n")
	t.Setenv(EnvDB, "from-env.db")

	cfg, err := load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.DB)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	unsetEnv(t, EnvDB, EnvLogLevel, EnvWorkers)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")

	_, err := load(filepath.Join(dir, "nope.yaml"), envFile)
	assert.Error(t, err)

	unknown := writeFile(t, dir, "unknown.yaml", "colour: blue\n")
	_, err = load(unknown, envFile)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	badFormat := writeFile(t, dir, "format.yaml", "format: svg\n")
	_, err = load(badFormat, envFile)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	negative := writeFile(t, dir, "workers.yaml", "workers: -1\n")
	_, err = load(negative, envFile)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	t.Setenv(EnvWorkers, "many")
	_, err = load("", envFile)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSlogLevelAndExtractors(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "WARN"
	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, "WARN", level.String())

	names := func(c *Config) []string {
		var out []string
		for _, x := range c.Extractors() {
			out = append(out, x.Name())
		}
		return out
	}
	assert.Equal(t, []string{"heuristic", "go"}, names(cfg))
	cfg.GoExtractor = false
	assert.Equal(t, []string{"heuristic"}, names(cfg))

	assert.NotEmpty(t, cfg.ScannerOptions(nil))
}
