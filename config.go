package mvix

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by ParseEnv.
const EnvPrefix = "MVIX_"

// Config holds the tunables of a feature. LoadConfig and ParseEnv only
// overwrite the fields they find, so both layer over DefaultConfig.
type Config struct {
	ID             string   `yaml:"id" env:"ID"`
	BufferCapacity int      `yaml:"bufferCapacity" env:"BUFFER_CAPACITY"`
	Overflow       Overflow `yaml:"overflow" env:"OVERFLOW"`
	LogEvents      bool     `yaml:"logEvents" env:"LOG_EVENTS"`
}

func DefaultConfig() Config {
	return Config{
		ID:             "feature",
		BufferCapacity: DefaultBufferCapacity,
		Overflow:       DropOldest,
	}
}

// LoadConfig reads a YAML file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("yaml unmarshal %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseEnv overlays MVIX_* environment variables onto cfg.
func ParseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("id is empty"))
	}
	if c.BufferCapacity <= 0 {
		errs = append(errs, fmt.Errorf("bufferCapacity must be positive, got %d", c.BufferCapacity))
	}
	if c.Overflow != DropOldest && c.Overflow != DropLatest {
		errs = append(errs, fmt.Errorf("unknown overflow policy %d", int(c.Overflow)))
	}
	return errors.Join(errs...)
}
