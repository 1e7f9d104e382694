// Package config loads the daemon configuration from a YAML file with sane
// defaults, so a bare `scan2ebookd serve` works out of the box.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "45s" or "24h" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"45s\"")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Correction configures the external language-correction service. The API
// key is never stored in the file; APIKeyEnv names the environment variable
// holding it.
type Correction struct {
	BaseURL     string   `yaml:"base_url"`
	Model       string   `yaml:"model"`
	Temperature float64  `yaml:"temperature"`
	Timeout     Duration `yaml:"timeout"`
	APIKeyEnv   string   `yaml:"api_key_env"`
	// Disabled skips the remote call entirely; pages keep their raw text.
	Disabled bool `yaml:"disabled"`
}

// Config is the daemon configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	WorkDir    string `yaml:"work_dir"`
	// Workers bounds the correction stage concurrency.
	Workers int `yaml:"workers"`
	// MaxImageDimension caps the larger side of a normalized page.
	MaxImageDimension int `yaml:"max_image_dimension"`
	// Binarize enables Otsu thresholding during normalization.
	Binarize bool `yaml:"binarize"`
	// Retention is how long terminal jobs stay pollable before the sweep
	// removes them.
	Retention  Duration   `yaml:"retention"`
	Correction Correction `yaml:"correction"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		ListenAddr:        ":7860",
		WorkDir:           os.TempDir(),
		Workers:           4,
		MaxImageDimension: 2400,
		Retention:         Duration(24 * time.Hour),
		Correction: Correction{
			Timeout:   Duration(45 * time.Second),
			APIKeyEnv: "GROQ_API_KEY",
		},
	}
}

// Load reads path and overlays it on the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.MaxImageDimension < 100 {
		return fmt.Errorf("max_image_dimension must be at least 100, got %d", c.MaxImageDimension)
	}
	if c.Retention < 0 {
		return fmt.Errorf("retention must not be negative")
	}
	return nil
}

// APIKey resolves the correction service key from the environment.
func (c Correction) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}
