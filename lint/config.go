package lint

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	tt "github.com/gnolang/misra/internal/types"
)

// DefaultConfigPath is where the tool looks for its configuration.
const DefaultConfigPath = ".misra.yaml"

// DefaultMaxPasses bounds correction runs unless configured otherwise.
const DefaultMaxPasses = 100

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the tool configuration read from .misra.yaml.
type Config struct {
	Name string `yaml:"name"`
	// Std is the C standard edition: c90, c99 or c11. Empty keeps every rule.
	Std string `yaml:"std,omitempty" validate:"omitempty,oneof=c90 c99 c11"`
	// MaxPasses bounds ApplyCorrections. Zero means no bound.
	MaxPasses int `yaml:"maxPasses" validate:"gte=0"`
	// FixConfig is the fix configuration document, relative to the
	// configuration file.
	FixConfig string                   `yaml:"fixConfig,omitempty"`
	Rules     map[string]tt.ConfigRule `yaml:"rules"`
}

func DefaultConfig() Config {
	return Config{
		Name:      "misra",
		Std:       "c99",
		MaxPasses: DefaultMaxPasses,
		Rules:     map[string]tt.ConfigRule{},
	}
}

// Validate checks the fields that have a closed set of values.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig reads the configuration at path. Keys absent from the file
// keep their default value.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return config, err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return config, fmt.Errorf("%s: %w", path, err)
	}
	if config.Rules == nil {
		config.Rules = map[string]tt.ConfigRule{}
	}
	if config.FixConfig != "" && !filepath.IsAbs(config.FixConfig) {
		config.FixConfig = filepath.Join(filepath.Dir(path), config.FixConfig)
	}
	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// WriteConfig stores config at path in YAML.
func WriteConfig(path string, config Config) error {
	d, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, d, 0o644)
}
