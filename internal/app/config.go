package app

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ProjectFile is the pipeline file picked up from the project root when no
// configuration path is given.
const ProjectFile = "assetgrid.hcl"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ConfigPaths are HCL files or directories. Empty means the project file,
	// or the built-in pipeline file when the project has none.
	ConfigPaths []string
	// Root is the project directory every relative path resolves against.
	Root string

	LogFormat string
	LogLevel  string
	Workers   int
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid project root: %w", err)
	}
	cfg.Root = root

	for i, p := range cfg.ConfigPaths {
		if p == "" {
			return nil, errors.New("configuration path must not be empty")
		}
		if !filepath.IsAbs(p) {
			cfg.ConfigPaths[i] = filepath.Join(root, p)
		}
	}
	return &cfg, nil
}
