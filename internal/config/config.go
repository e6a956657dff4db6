// Package config loads host configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every variable name.
const EnvPrefix = "GRIDIRON_"

// Config is everything the CLI and HTTP host read from the environment.
type Config struct {
	Addr           string        `env:"ADDR" envDefault:"127.0.0.1:8077"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"console"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	MaxSessions    int           `env:"MAX_SESSIONS" envDefault:"256"`
	UserTeamName   string        `env:"USER_TEAM" envDefault:"Chefs"`
	NPCTeamName    string        `env:"NPC_TEAM" envDefault:"NPC"`
	ScriptSeed     int64         `env:"SCRIPT_SEED" envDefault:"1"`
}

// Load reads dotenv files (default ".env"; missing files are ignored) into the
// process environment and parses Config from it. Variables already set in the
// environment win over dotenv values.
func Load(dotenv ...string) (Config, error) {
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env parsing cannot.
func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%sADDR must not be empty", EnvPrefix)
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("%sMAX_SESSIONS must be positive, got %d", EnvPrefix, c.MaxSessions)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%sREQUEST_TIMEOUT must be positive, got %s", EnvPrefix, c.RequestTimeout)
	}
	return nil
}
