/*
 * Copyright © 2026 Tidemark Systems Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tidemark/docstore/errors"
	"github.com/tidemark/docstore/validation"
)

// Provider names accepted in a connection profile.
const (
	ProviderMemory   = "memory"
	ProviderDynamoDB = "dynamodb"
)

// Config is the full engine configuration, normally loaded from a YAML file
// with credentials injected from the environment.
type Config struct {
	Environment string                `yaml:"environment"`
	Connections map[string]Connection `yaml:"connections"`
	Limits      LimitsConfig          `yaml:"limits"`
	Logging     LoggingConfig         `yaml:"logging"`
	Models      []ModelBinding        `yaml:"models"`
}

// Connection is one named backend profile. Credentials are never written
// into the YAML file; they come from the environment (AWS_ACCESS_KEY_ID /
// AWS_SECRET_ACCESS_KEY), optionally via a .env file.
type Connection struct {
	Provider        string `yaml:"provider"`
	Region          string `yaml:"region"`
	Table           string `yaml:"table"`
	AccessKeyID     string `yaml:"-"`
	SecretAccessKey string `yaml:"-"`
}

// LimitsConfig overrides the validation ceilings. Zero values fall back to
// the defaults.
type LimitsConfig struct {
	MaxIDLength    int   `yaml:"maxIdLength"`
	MaxPageSize    int32 `yaml:"maxPageSize"`
	MaxBatchSize   int   `yaml:"maxBatchSize"`
	MaxConcurrency int   `yaml:"maxConcurrency"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// ModelBinding declares one document model the deployment serves. Read and
// write connections may differ; an empty name resolves to the sole declared
// connection.
type ModelBinding struct {
	Name                 string `yaml:"name"`
	Database             string `yaml:"database"`
	Container            string `yaml:"container"`
	PartitionKeyProperty string `yaml:"partitionKeyProperty"`
	ReadConnection       string `yaml:"readConnection"`
	WriteConnection      string `yaml:"writeConnection"`
}

// Load reads the YAML file at path, merges environment credentials and
// validates the result. A .env file in the working directory is loaded first
// when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigurationError("file", err.Error())
	}
	return Parse(data)
}

// Parse decodes and validates raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewConfigurationError("yaml", err.Error())
	}

	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	for name, conn := range cfg.Connections {
		conn.AccessKeyID = accessKey
		conn.SecretAccessKey = secretKey
		cfg.Connections[name] = conn
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if len(c.Connections) == 0 {
		c.Connections = map[string]Connection{"default": {Provider: ProviderMemory}}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	for name, conn := range c.Connections {
		switch conn.Provider {
		case ProviderMemory:
		case ProviderDynamoDB:
			if conn.Region == "" {
				return errors.NewConfigurationError("connections",
					fmt.Sprintf("connection %q: dynamodb requires a region", name))
			}
			if conn.Table == "" {
				return errors.NewConfigurationError("connections",
					fmt.Sprintf("connection %q: dynamodb requires a table", name))
			}
		default:
			return errors.NewConfigurationError("connections",
				fmt.Sprintf("connection %q: unknown provider %q", name, conn.Provider))
		}
	}

	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		return errors.NewConfigurationError("logging",
			fmt.Sprintf("unknown level %q", c.Logging.Level))
	}

	seen := make(map[string]bool, len(c.Models))
	for i := range c.Models {
		m := &c.Models[i]
		if m.Name == "" {
			return errors.NewConfigurationError("models",
				fmt.Sprintf("model %d has no name", i))
		}
		if m.PartitionKeyProperty == "" {
			return errors.NewConfigurationError("models",
				fmt.Sprintf("model %q has no partition key property", m.Name))
		}
		if seen[m.Name] {
			return errors.NewConfigurationError("models",
				fmt.Sprintf("model %q declared twice", m.Name))
		}
		seen[m.Name] = true

		var err error
		if m.ReadConnection, err = c.resolveConnection(m.Name, m.ReadConnection); err != nil {
			return err
		}
		if m.WriteConnection, err = c.resolveConnection(m.Name, m.WriteConnection); err != nil {
			return err
		}
	}
	return nil
}

// resolveConnection validates a model's connection reference, defaulting an
// empty reference when exactly one connection is declared.
func (c *Config) resolveConnection(model, name string) (string, error) {
	if name == "" {
		if len(c.Connections) != 1 {
			return "", errors.NewConfigurationError("models",
				fmt.Sprintf("model %q must name a connection; %d are declared", model, len(c.Connections)))
		}
		for sole := range c.Connections {
			return sole, nil
		}
	}
	if _, ok := c.Connections[name]; !ok {
		return "", errors.NewConfigurationError("models",
			fmt.Sprintf("model %q references unknown connection %q", model, name))
	}
	return name, nil
}

// ValidationLimits converts the configured ceilings, defaulting zeros.
func (c *Config) ValidationLimits() validation.Limits {
	limits := validation.Limits{
		MaxIDLength:    c.Limits.MaxIDLength,
		MaxPageSize:    c.Limits.MaxPageSize,
		MaxBatchSize:   c.Limits.MaxBatchSize,
		MaxConcurrency: c.Limits.MaxConcurrency,
	}
	limits.Normalize()
	return limits
}

// Binding returns the model binding with the given name.
func (c *Config) Binding(name string) (ModelBinding, bool) {
	for _, m := range c.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelBinding{}, false
}

// BuildLogger constructs the configured zap logger.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	var zapCfg zap.Config
	if c.Logging.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	level, err := zap.ParseAtomicLevel(c.Logging.Level)
	if err != nil {
		return nil, errors.NewConfigurationError("logging", err.Error())
	}
	zapCfg.Level = level
	return zapCfg.Build()
}
