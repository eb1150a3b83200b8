package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/theabolton/kroftig-backend/internal/git"
)

// FileName is the configuration file looked up in the working directory and then $HOME.
const FileName = ".kroftig.json"

// Config is the root configuration structure.
type Config struct {
	Repository RepositoryConfig `json:"repository"`
	Latest     LatestConfig     `json:"latest"`
	Filters    FilterConfig     `json:"filters"`
	Output     OutputConfig     `json:"output"`
}

// RepositoryConfig selects how the repository is read.
type RepositoryConfig struct {
	Backend         string `json:"backend"`         // "go-git" or "git-cli"
	DefaultRevision string `json:"defaultRevision"` // Default: "HEAD"
}

// LatestConfig holds latest-change resolution options.
type LatestConfig struct {
	Listing  bool `json:"listing"`  // Only direct children of the filter path
	Relative bool `json:"relative"` // Report paths relative to the filter path
}

// FilterConfig holds result path filtering options.
type FilterConfig struct {
	Include []string `json:"include"`
	Exclude []string `json:"exclude"`
}

// OutputConfig holds report defaults.
type OutputConfig struct {
	Format string `json:"format"`
	Top    int    `json:"top"`
}

var knownFormats = map[string]bool{
	"console":  true,
	"json":     true,
	"csv":      true,
	"markdown": true,
	"ci":       true,
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Repository: RepositoryConfig{
			Backend:         string(git.BackendGoGit),
			DefaultRevision: "HEAD",
		},
		Output: OutputConfig{
			Format: "console",
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, err := git.ParseBackend(c.Repository.Backend); err != nil {
		return fmt.Errorf("repository.backend: %w", err)
	}
	if c.Output.Format != "" && !knownFormats[c.Output.Format] {
		return fmt.Errorf("output.format: unknown format %q", c.Output.Format)
	}
	if c.Output.Top < 0 {
		return fmt.Errorf("output.top: must not be negative, got %d", c.Output.Top)
	}
	for _, p := range append(append([]string(nil), c.Filters.Include...), c.Filters.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("filters: invalid glob %q", p)
		}
	}
	return nil
}

// LoadConfig loads configuration from a file, merging with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		// Try default locations
		candidates := []string{FileName}
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			candidates = append(candidates, filepath.Join(home, FileName))
		} else if envHome := os.Getenv("HOME"); envHome != "" {
			candidates = append(candidates, filepath.Join(envHome, FileName))
		}
		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to a file.
func SaveConfig(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
