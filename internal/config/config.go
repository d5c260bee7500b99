// Package config loads codekg settings from defaults, a .env file, a YAML file
// and the environment, in increasing order of precedence. Command-line flags
// are applied last by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/zheng/codekg/internal/export"
	"github.com/zheng/codekg/internal/extract"
	"github.com/zheng/codekg/internal/scanner"
)

// DefaultFile is read when no config path is given and it exists
const DefaultFile = ".codekg.yaml"

// Environment variable names
const (
	EnvDB       = "CODEKG_DB"
	EnvLogLevel = "CODEKG_LOG_LEVEL"
	EnvWorkers  = "CODEKG_WORKERS"
)

// Config holds every setting the commands read
type Config struct {
	Paths            []string                `yaml:"paths"`
	Extensions       []string                `yaml:"extensions"`
	Ignores          []string                `yaml:"ignores"`
	Exclude          []string                `yaml:"exclude"`
	RespectGitignore bool                    `yaml:"respect_gitignore"`
	GoExtractor      bool                    `yaml:"go_extractor"`
	Workers          int                     `yaml:"workers"`
	Format           string                  `yaml:"format"`
	Output           string                  `yaml:"output"`
	DB               string                  `yaml:"db"`
	LogLevel         string                  `yaml:"log_level"`
	Heuristic        extract.HeuristicConfig `yaml:"heuristic"`
	Watch            WatchConfig             `yaml:"watch"`
}

// WatchConfig tunes the watch command
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Paths:       []string{"."},
		GoExtractor: true,
		Workers:     scanner.DefaultWorkers,
		Format:      string(export.FormatJSON),
		DB:          ".codekg/graph.db",
		LogLevel:    "info",
		Heuristic:   extract.DefaultHeuristicConfig(),
		Watch:       WatchConfig{Debounce: 500 * time.Millisecond},
	}
}

// Load builds the configuration from .env in the working directory, the YAML
// file at path (or DefaultFile when path is empty and it exists) and the environment.
func Load(path string) (*Config, error) {
	return load(path, ".env")
}

func load(path, envFile string) (*Config, error) {
	_ = godotenv.Load(envFile)

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := cfg.decode(data); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.DB = firstNonEmpty(strings.TrimSpace(os.Getenv(EnvDB)), c.DB)
	c.LogLevel = firstNonEmpty(strings.TrimSpace(os.Getenv(EnvLogLevel)), c.LogLevel)

	if raw := strings.TrimSpace(os.Getenv(EnvWorkers)); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvWorkers, raw)
		}
		c.Workers = n
	}
	return nil
}

// Validate rejects settings no command can run with
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative", ErrInvalidConfig)
	}
	if _, err := export.ParseFormat(c.Format); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.SlogLevel(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("%w: watch.debounce must not be negative", ErrInvalidConfig)
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error")
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

// Extractors returns the configured extractors in registration order
func (c *Config) Extractors() []extract.Extractor {
	extractors := []extract.Extractor{extract.NewHeuristic(c.Heuristic)}
	if c.GoExtractor {
		extractors = append(extractors, extract.NewGoExtractor())
	}
	return extractors
}

// ScannerOptions translates the configuration into scanner options
func (c *Config) ScannerOptions(logger *slog.Logger) []scanner.Option {
	opts := []scanner.Option{
		scanner.WithExtractors(c.Extractors()...),
		scanner.WithGitignore(c.RespectGitignore),
		scanner.WithLogger(logger),
	}
	if len(c.Extensions) > 0 {
		opts = append(opts, scanner.WithExtensions(c.Extensions...))
	}
	if len(c.Ignores) > 0 {
		opts = append(opts, scanner.WithIgnores(c.Ignores...))
	}
	if len(c.Exclude) > 0 {
		opts = append(opts, scanner.WithExcludePatterns(c.Exclude...))
	}
	if c.Workers > 0 {
		opts = append(opts, scanner.WithWorkers(c.Workers))
	}
	return opts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
