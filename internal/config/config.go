package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the POS core.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Core     CoreConfig     `yaml:"core"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RabbitMQConfig holds RabbitMQ connection configuration for the audit
// event publisher.
type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// CoreConfig holds the business knobs the core receives rather than
// decides: the tax rate applied to order subtotals (kept as a rate so
// enabling a nonzero value needs no code change) and the age after
// which an abandoned table lock may be reclaimed.
type CoreConfig struct {
	TaxRate         float64       `yaml:"tax_rate"`
	LockStalePeriod time.Duration `yaml:"lock_stale_period"`
}

// UnmarshalYAML decodes the section, accepting the lock staleness
// period in time.ParseDuration form ("30m", "1h30m").
func (c *CoreConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		TaxRate         float64 `yaml:"tax_rate"`
		LockStalePeriod string  `yaml:"lock_stale_period"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	c.TaxRate = raw.TaxRate
	if raw.LockStalePeriod != "" {
		d, err := time.ParseDuration(raw.LockStalePeriod)
		if err != nil {
			return fmt.Errorf("invalid core.lock_stale_period: %w", err)
		}
		c.LockStalePeriod = d
	}
	return nil
}

// Load reads configuration from a YAML file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if config.Core.LockStalePeriod <= 0 {
		config.Core.LockStalePeriod = 30 * time.Minute
	}
	if config.Core.TaxRate < 0 {
		return nil, fmt.Errorf("core.tax_rate must not be negative")
	}

	return config, nil
}

// DatabaseURL returns a PostgreSQL connection URL.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port, c.Database.Database)
}

// RabbitMQURL returns an AMQP connection URL.
func (c *Config) RabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/",
		c.RabbitMQ.User, c.RabbitMQ.Password, c.RabbitMQ.Host, c.RabbitMQ.Port)
}
