// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig               `mapstructure:"app"`
	Broker   BrokerConfig            `mapstructure:"broker"`
	Database DatabaseConfig          `mapstructure:"database"`
	Services ServicesConfig          `mapstructure:"services"`
	Push     PushConfig              `mapstructure:"push"`
	Email    EmailConfig             `mapstructure:"email"`
	Workers  map[string]WorkerConfig `mapstructure:"workers"`
	Logging  LoggingConfig           `mapstructure:"logging"`
	Server   ServerConfig            `mapstructure:"server"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// BrokerConfig holds connection settings for the Zeebe job broker.
type BrokerConfig struct {
	GatewayAddress string `mapstructure:"gateway_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ServicesConfig holds the collaborator service endpoints the delivery
// pipeline calls out to.
type ServicesConfig struct {
	Directory    ServiceEndpoint `mapstructure:"directory"`
	Render       ServiceEndpoint `mapstructure:"render"`
	StatusReport ServiceEndpoint `mapstructure:"status_report"`
}

type ServiceEndpoint struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // milliseconds
}

// PushConfig holds settings for the push dispatch transport.
type PushConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AWSRegion string `mapstructure:"aws_region"`
}

// EmailConfig holds settings for the email dispatch transport.
type EmailConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AWSRegion string `mapstructure:"aws_region"`
	FromEmail string `mapstructure:"from_email"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`       // milliseconds
	RetryBackoff  int  `mapstructure:"retry_backoff"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds the health/metrics HTTP listener settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

func validateConfig(cfg *Config) error {
	if cfg.Broker.GatewayAddress == "" {
		return fmt.Errorf("broker.gateway_address is required")
	}
	if cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required")
	}
	if cfg.Services.Directory.BaseURL == "" {
		return fmt.Errorf("services.directory.base_url is required")
	}
	if cfg.Services.Render.BaseURL == "" {
		return fmt.Errorf("services.render.base_url is required")
	}
	return nil
}
