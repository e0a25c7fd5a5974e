// Package config manages YAML-based configuration for layers, lookups and the server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/CageChen/layerhub/internal/entry"
	"github.com/CageChen/layerhub/internal/filter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides, e.g. LAYERHUB_SERVER_PORT=9000.
const EnvPrefix = "LAYERHUB"

// Layer is one search path with an alias for display.
type Layer struct {
	Path  string `yaml:"path" json:"path" mapstructure:"path" validate:"required"`
	Alias string `yaml:"alias" json:"alias" mapstructure:"alias"`
}

// FilterRule is a regular-expression rule applied to listings. A leading
// "!" in Pattern excludes matches instead of requiring them.
type FilterRule struct {
	Pattern string `yaml:"pattern" json:"pattern" mapstructure:"pattern" validate:"required"`
	Type    string `yaml:"type,omitempty" json:"type,omitempty" mapstructure:"type" validate:"omitempty,oneof=any file dir"`
}

type ServerConfig struct {
	Port  int  `yaml:"port" json:"port" mapstructure:"port" validate:"min=1,max=65535"`
	Watch bool `yaml:"watch" json:"watch" mapstructure:"watch"`
}

type LoggingConfig struct {
	Level string `yaml:"level" json:"level" mapstructure:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
}

// Config holds all configuration options for layerhub
type Config struct {
	// Ordered search paths; earlier layers win forward lookups.
	Layers []Layer `yaml:"layers,omitempty" json:"layers" mapstructure:"layers" validate:"dive"`

	DefaultExtension string `yaml:"default_extension" json:"default_extension" mapstructure:"default_extension" validate:"required,excludesall=/\\"`

	// Optional confinement directory for every layer.
	Root string `yaml:"root,omitempty" json:"root,omitempty" mapstructure:"root"`

	// Glob patterns matched against base names, hidden from listings.
	Exclude []string     `yaml:"exclude" json:"exclude" mapstructure:"exclude"`
	Filters []FilterRule `yaml:"filters,omitempty" json:"filters,omitempty" mapstructure:"filters" validate:"dive"`

	Server  ServerConfig  `yaml:"server" json:"server" mapstructure:"server"`
	Logging LoggingConfig `yaml:"logging" json:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`

	// Internal: path to config file for saving
	configPath string
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		DefaultExtension: "md",
		Exclude:          []string{"node_modules", ".git", ".svn"},
		Server: ServerConfig{
			Port:  8080,
			Watch: true,
		},
		Logging: LoggingConfig{Level: "INFO"},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("default_extension", d.DefaultExtension)
	v.SetDefault("root", d.Root)
	v.SetDefault("exclude", d.Exclude)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.watch", d.Server.Watch)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
}

// GetConfigDir returns the config directory path
func GetConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/layerhub"
	}
	return filepath.Join(home, ".config", "layerhub")
}

// GetConfigPath returns the full path to the config file
func GetConfigPath() string {
	return filepath.Join(GetConfigDir(), "config.yaml")
}

// findConfigFile returns ~/.config/layerhub/config.yaml, else ./layerhub.yaml,
// else "".
func findConfigFile() string {
	if _, err := os.Stat(GetConfigPath()); err == nil {
		return GetConfigPath()
	}
	if _, err := os.Stat("layerhub.yaml"); err == nil {
		return "layerhub.yaml"
	}
	return ""
}

// Load reads configuration from configPath, or from the default locations
// when configPath is empty, then applies LAYERHUB_* environment overrides.
// A missing default file is fine; a missing explicit file is an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfgPath := configPath
	if cfgPath == "" {
		cfgPath = findConfigFile()
	}
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		cfgPath = GetConfigPath()
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.configPath = cfgPath
	cfg.resolveLayers()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// resolveLayers makes layer paths absolute and fills in missing aliases.
func (c *Config) resolveLayers() {
	for i := range c.Layers {
		absPath, err := filepath.Abs(c.Layers[i].Path)
		if err == nil {
			c.Layers[i].Path = absPath
		}
		if c.Layers[i].Alias == "" {
			c.Layers[i].Alias = filepath.Base(c.Layers[i].Path)
		}
	}
}

// Save saves the current configuration to the config file
func (c *Config) Save() error {
	configDir := filepath.Dir(c.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.configPath, data, 0644)
}

// ConfigFilePath returns the path Save writes to.
func (c *Config) ConfigFilePath() string {
	return c.configPath
}

// SetConfigFilePath changes the path Save writes to.
func (c *Config) SetConfigFilePath(path string) {
	c.configPath = path
}

// AddLayer appends a layer. Adding a path that is already configured is a no-op.
func (c *Config) AddLayer(path, alias string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	for _, l := range c.Layers {
		if l.Path == absPath {
			return nil
		}
	}
	if alias == "" {
		alias = filepath.Base(absPath)
	}
	c.Layers = append(c.Layers, Layer{Path: absPath, Alias: alias})
	return nil
}

// RemoveLayer removes the layer with the given path or alias.
func (c *Config) RemoveLayer(pathOrAlias string) (Layer, bool) {
	absPath, _ := filepath.Abs(pathOrAlias)
	for i, l := range c.Layers {
		if l.Alias == pathOrAlias || l.Path == absPath {
			c.Layers = append(c.Layers[:i], c.Layers[i+1:]...)
			return l, true
		}
	}
	return Layer{}, false
}

// LayerByAlias returns the layer with the given alias.
func (c *Config) LayerByAlias(alias string) (Layer, bool) {
	for _, l := range c.Layers {
		if l.Alias == alias {
			return l, true
		}
	}
	return Layer{}, false
}

// LayerPaths returns the layer paths in order.
func (c *Config) LayerPaths() []string {
	paths := make([]string, len(c.Layers))
	for i, l := range c.Layers {
		paths[i] = l.Path
	}
	return paths
}

// SetExclude sets the exclude patterns
func (c *Config) SetExclude(patterns []string) {
	c.Exclude = patterns
}

// IsExcluded checks if a path should be excluded
func (c *Config) IsExcluded(path string) bool {
	base := filepath.Base(path)
	for _, exclude := range c.Exclude {
		if matched, _ := filepath.Match(exclude, base); matched {
			return true
		}
	}
	return false
}

// FilterSpec returns the listing filter built from Exclude and Filters.
func (c *Config) FilterSpec() filter.Spec {
	exclude := append([]string(nil), c.Exclude...)
	rules := append([]FilterRule(nil), c.Filters...)

	return filter.Configure(func(f *filter.Filter) error {
		for _, glob := range exclude {
			if err := f.AddRule(globPattern(glob), false, entry.TypeAny); err != nil {
				return err
			}
		}
		var errs []error
		for _, r := range rules {
			typ, err := entry.ParseType(r.Type)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			expr, expected := r.Pattern, true
			if rest, ok := strings.CutPrefix(expr, "!"); ok {
				expr, expected = rest, false
			}
			if err := f.AddRule(expr, expected, typ); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// globPattern turns a base-name glob into a regular expression matching
// the last segment of a path.
func globPattern(glob string) string {
	var b strings.Builder
	b.WriteString(`(^|/)`)
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(`[^/]*`)
		case '?':
			b.WriteString(`[^/]`)
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`$`)
	return b.String()
}
