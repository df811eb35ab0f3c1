package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the structure of the config.yaml file.
// Destination schema and vocabulary are easier to manage in YAML than env vars.
type YAMLConfig struct {
	Schema       SchemaConfig      `yaml:"schema"`
	Defaults     DefaultsConfig    `yaml:"defaults"`
	LevelAliases map[string]string `yaml:"level_aliases"` // course name -> level
}

// SchemaConfig names the Notion properties the service reads and writes.
// An empty optional property is neither written nor read.
type SchemaConfig struct {
	Name     string `yaml:"name"`     // title property
	Key      string `yaml:"key"`      // rich_text, normalized identity
	Level    string `yaml:"level"`    // select
	Duration string `yaml:"duration"` // rich_text, formatted duration
	Seconds  string `yaml:"seconds,omitempty"`
	Week     string `yaml:"week,omitempty"` // date
	Status   string `yaml:"status,omitempty"`
	Teacher  string `yaml:"teacher,omitempty"` // multi_select
}

// DefaultsConfig defines values written on every created page.
type DefaultsConfig struct {
	Status  string `yaml:"status"`
	Teacher string `yaml:"teacher"`
}

// DefaultYAMLConfig returns the built-in schema used when no file is present.
func DefaultYAMLConfig() *YAMLConfig {
	cfg := &YAMLConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadYAMLConfig loads the YAML configuration file.
// Path is determined by CONFIG_FILE env var, defaulting to "config.yaml".
// A missing file yields the defaults.
func LoadYAMLConfig() (*YAMLConfig, error) {
	return LoadYAMLConfigFile(getEnv("CONFIG_FILE", "config.yaml"))
}

// LoadYAMLConfigFile loads the YAML configuration from path.
func LoadYAMLConfigFile(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return DefaultYAMLConfig(), nil
		}
		return nil, err
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &cfg, nil
}

func (c *YAMLConfig) applyDefaults() {
	if c.Schema.Name == "" {
		c.Schema.Name = "Student Name"
	}
	if c.Schema.Key == "" {
		c.Schema.Key = "Student Key"
	}
	if c.Schema.Level == "" {
		c.Schema.Level = "Level"
	}
	if c.Schema.Duration == "" {
		c.Schema.Duration = "Study Time"
	}
	if c.Defaults.Status == "" {
		c.Defaults.Status = "Pending Review"
	}
}
