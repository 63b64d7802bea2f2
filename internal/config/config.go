package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/fintrack-dev/fintrack/internal/categories"
	"github.com/fintrack-dev/fintrack/internal/validate"
)

// Config represents the top-level fintrack.yaml configuration. Validation
// bounds and the credential list are injected from here instead of living
// as ambient globals.
type Config struct {
	Validation ValidationConfig `yaml:"validation"`
	Categories []string         `yaml:"categories,omitempty"`
	Backup     BackupConfig     `yaml:"backup"`
	Auth       AuthConfig       `yaml:"auth,omitempty"`
}

// ValidationConfig holds the record field limits.
type ValidationConfig struct {
	MaxAmount         string `yaml:"max_amount"`
	MinDescriptionLen int    `yaml:"min_description_len"`
	MaxDescriptionLen int    `yaml:"max_description_len"`
}

// BackupConfig controls snapshot retention.
type BackupConfig struct {
	MaxLocalSnapshots int `yaml:"max_local_snapshots"`
	RetentionDays     int `yaml:"retention_days"`
}

// AuthConfig is the static credential list consumed by the (external)
// login surface. The core only carries it so callers get it injected.
type AuthConfig struct {
	Users []Credential `yaml:"users,omitempty"`
}

// Credential is one static login entry.
type Credential struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Load reads a fintrack.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the shipped defaults.
func Default() *Config {
	return &Config{
		Validation: ValidationConfig{
			MaxAmount:         "1000000",
			MinDescriptionLen: 2,
			MaxDescriptionLen: 200,
		},
		Categories: categories.DefaultNames(),
		Backup: BackupConfig{
			MaxLocalSnapshots: 5,
			RetentionDays:     30,
		},
	}
}

// Bounds converts the validation section into validator bounds.
func (c *Config) Bounds() (validate.Bounds, error) {
	maxAmount, err := decimal.NewFromString(c.Validation.MaxAmount)
	if err != nil {
		return validate.Bounds{}, fmt.Errorf("parsing max_amount %q: %w", c.Validation.MaxAmount, err)
	}
	return validate.Bounds{
		MaxAmount:      maxAmount,
		MinDescription: c.Validation.MinDescriptionLen,
		MaxDescription: c.Validation.MaxDescriptionLen,
	}, nil
}

// CategorySet builds the allowed category set, falling back to the
// defaults when the config lists none.
func (c *Config) CategorySet() *categories.Set {
	if len(c.Categories) == 0 {
		return categories.Default()
	}
	return categories.NewSet(c.Categories)
}
