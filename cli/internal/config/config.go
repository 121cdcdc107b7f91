// Package config loads the inspection CLI's settings from environment
// variables and an optional config file.
package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the CLI configuration.
type Config struct {
	Driver string // sqlite3, postgres or mysql
	DSN    string
	Schema string // postgres/mysql schema name, optional
}

// Load reads configuration from .querykit.yaml in the working directory,
// QUERYKIT_* environment variables and a .env file, in increasing priority.
func Load() (*Config, error) {
	// Load .env if it exists; a missing file is fine.
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetConfigName(".querykit")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("QUERYKIT")
	v.AutomaticEnv()
	v.SetDefault("driver", "sqlite3")

	// The config file is optional.
	_ = v.ReadInConfig()

	return &Config{
		Driver: v.GetString("driver"),
		DSN:    v.GetString("dsn"),
		Schema: v.GetString("schema"),
	}, nil
}
