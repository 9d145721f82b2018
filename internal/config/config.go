// Package config loads application settings (server, database, auth,
// logging) from a YAML file plus environment overrides, and loads the
// schema catalogue and per-resource descriptors from a directory of
// resource YAML files.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Resources ResourcesConfig `mapstructure:"resources"`
}

// ServerConfig configures the HTTP façade.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DatabaseConfig configures the MySQL/MariaDB connection pool.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	PoolSize int    `mapstructure:"pool_size"`
}

// DSN renders the go-sql-driver/mysql data source name.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", d.User, d.Password, d.Host, d.Port, d.Database)
}

// AuthConfig configures JWT and API-key verification. Either or both may
// be left unconfigured (empty JWTPublicKeyFile / APIKeyURL), in which
// case that credential type is rejected rather than silently ignored.
type AuthConfig struct {
	JWTPublicKeyFile string `mapstructure:"jwt_public_key_file"`
	JWTIssuer        string `mapstructure:"jwt_issuer"`
	APIKeyURL        string `mapstructure:"api_key_url"`
	APIKeyAuth       string `mapstructure:"api_key_auth"`
	APIKeyHeader     string `mapstructure:"api_key_header"`
}

// LoggingConfig configures the application and SQL audit logs.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Dir     string `mapstructure:"dir"`
	MaxSize int    `mapstructure:"max_size_mb"`
	MaxAge  int    `mapstructure:"max_age_days"`
	Backups int    `mapstructure:"backups"`
}

// ResourcesConfig locates the field catalogue and resource descriptor
// files.
type ResourcesConfig struct {
	CatalogueFile string `mapstructure:"catalogue_file"`
	Dir           string `mapstructure:"dir"`
}

// Load reads ./karps.yaml (or /etc/karps/karps.yaml), applying defaults
// and KARPS_-prefixed environment overrides.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("karps")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/karps")

	v.SetDefault("server.port", 8080)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("auth.api_key_header", "X-API-Key")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.dir", "./log")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_age_days", 28)
	v.SetDefault("logging.backups", 3)
	v.SetDefault("resources.catalogue_file", "./resources/catalogue.yaml")
	v.SetDefault("resources.dir", "./resources")

	v.SetEnvPrefix("karps")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
