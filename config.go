package dbgraph

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the .dbgraph.yaml configuration file.
type Config struct {
	// Schemas lists schema files or directories, relative to the config file.
	Schemas []string `yaml:"schemas,omitempty"`

	// Format is the default output format ("text", "json" or "csv").
	Format string `yaml:"format,omitempty"`

	// Color is "auto", "always" or "never".
	Color string `yaml:"color,omitempty"`

	// Functions maps extra function tags to the node kind they construct,
	// e.g. {coalesce_key: union}.
	Functions map[string]string `yaml:"functions,omitempty"`

	// SQLite configures schema introspection of a SQLite database.
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`

	// dir is the directory the config was loaded from.
	dir string
}

// SQLiteConfig holds SQLite introspection settings.
type SQLiteConfig struct {
	Path    string `yaml:"path"`
	Qualify bool   `yaml:"qualify,omitempty"`
}

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".dbgraph.yaml", ".dbgraph.yml", "dbgraph.yaml", "dbgraph.yml"}

// LoadConfig finds and loads the nearest .dbgraph.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg.dir = filepath.Dir(path)

	return &cfg, nil
}

// Dir returns the directory the config was loaded from, or "" if it was built in memory.
func (c *Config) Dir() string {
	return c.dir
}

// SchemaPaths returns the configured schema paths resolved against the config directory.
func (c *Config) SchemaPaths() []string {
	out := make([]string, len(c.Schemas))
	for i, p := range c.Schemas {
		out[i] = c.resolve(p)
	}

	return out
}

// SQLitePath returns the configured SQLite path resolved against the config directory.
func (c *Config) SQLitePath() string {
	if c.SQLite == nil || c.SQLite.Path == "" {
		return ""
	}

	return c.resolve(c.SQLite.Path)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.dir == "" {
		return p
	}

	return filepath.Join(c.dir, p)
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Color {
	case "", ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%w: color %q", ErrValidation, c.Color)
	}

	for tag, kind := range c.Functions {
		if _, ok := ParseKind(kind); !ok {
			return fmt.Errorf("%w: function %q: unknown kind %q", ErrValidation, tag, kind)
		}
	}

	return nil
}

// Options returns the Database options implied by the config.
func (c *Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	opts := make([]Option, 0, len(c.Functions))

	for tag, name := range c.Functions {
		kind, _ := ParseKind(name)
		opts = append(opts, WithFunc(tag, kind))
	}

	return opts, nil
}
