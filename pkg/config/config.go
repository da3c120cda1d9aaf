// Package config loads service configuration from config.toml and
// BANKLOAN_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultAdminPassword = "admin"
	minSecretLength      = 32
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Log       LogConfig
	Loans     LoansConfig
	Bootstrap BootstrapConfig
}

type AppConfig struct {
	Env  string
	Port string
}

type DatabaseConfig struct {
	Driver       string // sqlite3 or postgres
	DSN          string // file path for sqlite3, connection string for postgres
	MaxOpenConns int
}

type JWTConfig struct {
	Secret    string
	Issuer    string
	Audience  string
	AccessTTL time.Duration
}

// LogConfig overrides the environment's logger defaults. Empty fields keep them.
type LogConfig struct {
	Level  string
	Format string
	Output string
}

type LoansConfig struct {
	StrictPaymentOrder      bool
	InstallmentIntervalDays int
}

// BootstrapConfig describes the superuser created on first start.
type BootstrapConfig struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Load reads the configuration. A missing config file is not an error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/bankloan")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("BANKLOAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		App: AppConfig{
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:       v.GetString("database.driver"),
			DSN:          v.GetString("database.dsn"),
			MaxOpenConns: v.GetInt("database.max_open_conns"),
		},
		JWT: JWTConfig{
			Secret:    v.GetString("jwt.secret"),
			Issuer:    v.GetString("jwt.issuer"),
			Audience:  v.GetString("jwt.audience"),
			AccessTTL: v.GetDuration("jwt.access_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Loans: LoansConfig{
			StrictPaymentOrder:      v.GetBool("loans.strict_payment_order"),
			InstallmentIntervalDays: v.GetInt("loans.installment_interval_days"),
		},
		Bootstrap: BootstrapConfig{
			AdminUsername: v.GetString("bootstrap.admin_username"),
			AdminEmail:    v.GetString("bootstrap.admin_email"),
			AdminPassword: v.GetString("bootstrap.admin_password"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.dsn", "bankloan.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("jwt.secret", "development-secret-change-me")
	v.SetDefault("jwt.issuer", "bankloan")
	v.SetDefault("jwt.audience", "bankloan-api")
	v.SetDefault("jwt.access_ttl", time.Hour)
	v.SetDefault("loans.strict_payment_order", true)
	v.SetDefault("loans.installment_interval_days", 30)
	v.SetDefault("bootstrap.admin_username", "admin")
	v.SetDefault("bootstrap.admin_email", "admin@localhost")
	v.SetDefault("bootstrap.admin_password", defaultAdminPassword)
}

// IsProduction reports whether app.env is production.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite3 or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.JWT.AccessTTL <= 0 {
		return fmt.Errorf("jwt.access_ttl must be positive")
	}
	if c.Loans.InstallmentIntervalDays <= 0 {
		return fmt.Errorf("loans.installment_interval_days must be positive")
	}
	if c.Bootstrap.AdminUsername == "" || c.Bootstrap.AdminPassword == "" {
		return fmt.Errorf("bootstrap admin username and password are required")
	}

	if c.IsProduction() {
		if len(c.JWT.Secret) < minSecretLength {
			return fmt.Errorf("jwt.secret must be at least %d characters in production", minSecretLength)
		}
		if c.Bootstrap.AdminPassword == defaultAdminPassword {
			return fmt.Errorf("bootstrap.admin_password must be changed in production")
		}
	}
	return nil
}
