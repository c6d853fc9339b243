package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. It is immutable after Load;
// each component receives the section it needs by value.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	NFSe       NFSeConfig       `mapstructure:"nfse"`
	Reconciler ReconcilerConfig `mapstructure:"reconciler"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// NFSeConfig holds the tax-authority endpoint configuration. AccessKey and
// ClientID are the shared credentials of the legacy SOAP service.
type NFSeConfig struct {
	AccessKey string        `mapstructure:"access_key"`
	ClientID  string        `mapstructure:"client_id"`
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ReconcilerConfig controls the optional background reconciliation worker.
// Reconciliation always runs inline on invoice listing; the worker is an
// independent schedule on top of that.
type ReconcilerConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 90*time.Second)

	viper.SetDefault("database.path", "data/nfse.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	viper.SetDefault("nfse.timeout", 60*time.Second)

	viper.SetDefault("reconciler.enabled", false)
	viper.SetDefault("reconciler.interval", 15*time.Minute)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

func bindEnvVars() {
	// Credentials come from the environment, never from the config file.
	viper.BindEnv("nfse.access_key", "NFSE_ACCESS_KEY")
	viper.BindEnv("nfse.client_id", "NFSE_CN")
	viper.BindEnv("nfse.url", "NFSE_URL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.NFSe.AccessKey == "" {
		return fmt.Errorf("nfse.access_key is required")
	}
	if c.NFSe.ClientID == "" {
		return fmt.Errorf("nfse.client_id is required")
	}
	if c.NFSe.URL == "" {
		return fmt.Errorf("nfse.url is required")
	}
	if c.NFSe.Timeout <= 0 {
		return fmt.Errorf("nfse.timeout must be positive")
	}
	if c.Reconciler.Enabled && c.Reconciler.Interval <= 0 {
		return fmt.Errorf("reconciler.interval must be positive when enabled")
	}
	return nil
}
