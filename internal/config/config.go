package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DOCSWITCH_*). Nested keys use a double
// underscore: DOCSWITCH_SERVER__PORT -> server.port.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider("DOCSWITCH_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "DOCSWITCH_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.resolvePaths(filepath.Dir(path))
	return cfg, nil
}

// resolvePaths makes relative file settings relative to the config file.
func (c *Config) resolvePaths(base string) {
	if base == "" || base == "." {
		return
	}
	for _, p := range []*string{&c.Shell, &c.Table, &c.OutputDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validTableExts is the set of table file formats the loader understands.
var validTableExts = map[string]bool{
	".yml":  true,
	".yaml": true,
	".json": true,
	".js":   true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Shell == "" {
		return fmt.Errorf("shell is required")
	}

	if c.Table == "" {
		return fmt.Errorf("table is required")
	}
	if ext := strings.ToLower(filepath.Ext(c.Table)); !validTableExts[ext] {
		return fmt.Errorf("invalid table %q: must be a .yml, .yaml, .json or .js file", c.Table)
	}

	if c.LandingPage == "" {
		return fmt.Errorf("landing_page is required")
	}

	if c.ContainerID == "" {
		return fmt.Errorf("container_id is required")
	}

	if c.ReplaceableClass == "" || strings.ContainsAny(c.ReplaceableClass, " \t\n") {
		return fmt.Errorf("replaceable_class must be a single class name")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}

	return nil
}

// ShellDir returns the directory static files are served and copied from.
func (c *Config) ShellDir() string {
	return filepath.Dir(c.Shell)
}
