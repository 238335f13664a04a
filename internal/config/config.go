package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is loaded from the environment with a CERTSTORE_ prefix.
// Precedence: explicit env var > .env file > default.
type Config struct {
	DataDir   string        `envconfig:"DATA_DIR" default:"data"`
	Env       string        `envconfig:"ENV" default:"development"`
	SaveDelay time.Duration `envconfig:"SAVE_DELAY" default:"500ms"`
	LogLevel  string        `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := envconfig.Process("certstore", &cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
