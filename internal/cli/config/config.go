package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/abdul-hamid-achik/resize.cheap/internal/codec"
	"github.com/abdul-hamid-achik/resize.cheap/internal/presets"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Format    string                    `yaml:"format,omitempty" json:"format"`
	Quality   float64                   `yaml:"quality,omitempty" json:"quality"`
	Parallel  int                       `yaml:"parallel,omitempty" json:"parallel"`
	OutputDir string                    `yaml:"output_dir,omitempty" json:"output_dir,omitempty"`
	Watermark bool                      `yaml:"watermark,omitempty" json:"watermark"`
	Presets   map[string]presets.Preset `yaml:"presets,omitempty" json:"presets,omitempty"`
}

const (
	DefaultFormat   = codec.JPEG
	DefaultQuality  = 0.85
	DefaultParallel = 4

	// Environment variable names for configuration overrides
	EnvFormat   = "RESIZE_FORMAT"
	EnvParallel = "RESIZE_PARALLEL"
)

var ErrExists = errors.New("config file already exists")

func Default() *Config {
	return &Config{
		Format:   DefaultFormat,
		Quality:  DefaultQuality,
		Parallel: DefaultParallel,
		Presets:  make(map[string]presets.Preset),
	}
}

func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "resize"), nil
}

func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func Load() (*Config, error) {
	cfg := Default()

	path, err := Path()
	if err != nil {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg.withEnv(), nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	if cfg.Quality <= 0 || cfg.Quality > 1 {
		cfg.Quality = DefaultQuality
	}
	if cfg.Parallel <= 0 {
		cfg.Parallel = DefaultParallel
	}
	for name, p := range cfg.Presets {
		if p.Name == "" {
			p.Name = name
			cfg.Presets[name] = p
		}
	}

	return cfg.withEnv(), nil
}

// Environment variables take precedence over the config file.
func (c *Config) withEnv() *Config {
	if v := os.Getenv(EnvFormat); v != "" {
		c.Format = codec.Normalize(v)
	}
	if v := os.Getenv(EnvParallel); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Parallel = n
		}
	}
	return c
}

func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := Path()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Init writes the default config unless one already exists and force is
// false. It returns the path written.
func Init(force bool) (string, error) {
	path, err := Path()
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return path, ErrExists
	}

	cfg := Default()
	cfg.Presets["banner"] = presets.Preset{Name: "banner", Width: 1600, Height: 400, Quality: 0.9}
	return path, cfg.Save()
}

// GetPreset prefers user presets over the built-in ones.
func (c *Config) GetPreset(name string) (presets.Preset, bool) {
	if preset, ok := c.Presets[name]; ok {
		return preset, true
	}
	return presets.Get(name)
}
