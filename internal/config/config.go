// Package config provides YAML-based configuration loading for carecal.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/zulandar/carecal/internal/logging"
	"gopkg.in/yaml.v3"
)

// Environment variables that override values from the config file.
const (
	EnvDatabaseDSN = "CARECAL_DATABASE_DSN"
	EnvJWTSecret   = "CARECAL_JWT_SECRET"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config is the top-level carecal configuration, loaded from carecal.yaml.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Materialize MaterializeConfig `yaml:"materialize"`
	API         APIConfig         `yaml:"api"`
	Log         LogConfig         `yaml:"log"`
}

// DatabaseConfig selects the storage driver. DSN, when set, is used as is;
// otherwise mysql and postgres connections are built from the parts.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// MaterializeConfig controls when care tasks are materialized.
type MaterializeConfig struct {
	Horizon        time.Duration `yaml:"horizon"`
	ShiftLookahead time.Duration `yaml:"shift_lookahead"`
	CatchUpCron    string        `yaml:"catchup_cron"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads a YAML config file from path and returns a validated Config.
// A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadDotEnv loads environment variables from path without overriding
// ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabaseDSN); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.API.JWTSecret = v
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.DSN == "" {
			c.Database.DSN = "carecal.db"
		}
	case DriverMySQL, DriverPostgres:
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
			if c.Database.Driver == DriverPostgres {
				c.Database.Port = 5432
			}
		}
		if c.Database.Name == "" {
			c.Database.Name = "carecal"
		}
	}
	if c.Materialize.Horizon == 0 {
		c.Materialize.Horizon = 7 * 24 * time.Hour
	}
	if c.Materialize.ShiftLookahead == 0 {
		c.Materialize.ShiftLookahead = 24 * time.Hour
	}
	if c.Materialize.CatchUpCron == "" {
		c.Materialize.CatchUpCron = "0 * * * *"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not one of sqlite, mysql, postgres", c.Database.Driver))
	}
	if c.Materialize.Horizon < 0 {
		errs = append(errs, "materialize.horizon must not be negative")
	}
	if c.Materialize.ShiftLookahead < 0 {
		errs = append(errs, "materialize.shift_lookahead must not be negative")
	}
	if _, err := CronParser.Parse(c.Materialize.CatchUpCron); err != nil {
		errs = append(errs, fmt.Sprintf("materialize.catchup_cron: %v", err))
	}
	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port %d is out of range", c.API.Port))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Sprintf("log.level: %v", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// RequireJWTSecret reports an error when the API has no signing secret.
func (c *Config) RequireJWTSecret() error {
	if c.API.JWTSecret == "" {
		return fmt.Errorf("config: api.jwt_secret (or %s) is required to serve the API", EnvJWTSecret)
	}
	return nil
}

// CronParser parses the standard 5-field cron expressions used in config.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
