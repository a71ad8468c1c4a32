// internal/config/config.go
//
// Process configuration.
// Responsibilities:
//   - Load .env (if present) into the environment.
//   - Read server settings from environment variables with defaults.
//   - Load game rules from RULES_FILE or the embedded rules.yaml.
//   - Validate both before anything starts.
//
// Environment variables:
//   PORT=5175                 HTTP listen port
//   LOG_LEVEL=info            zerolog level
//   CLIENT_ORIGIN=...         allowed CORS origin
//   DB_DRIVER=sqlite          sqlite | postgres | memory
//   DB_DSN=./data/app.db      file path (sqlite) or connection string (postgres)
//   COUNTRIES_FILE=           dataset path; empty uses the embedded dataset
//   RULES_FILE=               rules path; empty uses the embedded rules
//   WATCH_COUNTRIES=false     reload COUNTRIES_FILE when it changes
//   JWT_SECRET=dev-secret     HS256 key for game tokens
//   SESSION_TTL=2h            idle time before a game is evicted
//   DAILY_SALT=local_dev_salt keys the daily game seed
//   NODE_ENV=development      "production" marks cookies Secure

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/robalobadob/tradeloop/assets"
	"github.com/robalobadob/tradeloop/internal/game"
)

var validate = validator.New()

// Config is the validated process configuration.
type Config struct {
	Port          string        `validate:"required,numeric"`
	LogLevel      string        `validate:"required,oneof=trace debug info warn error fatal panic disabled"`
	ClientOrigin  string        `validate:"required"`
	DBDriver      string        `validate:"required,oneof=sqlite postgres memory"`
	DBDSN         string        `validate:"required_unless=DBDriver memory"`
	CountriesFile string        `validate:"omitempty,file"`
	RulesFile     string        `validate:"omitempty,file"`
	JWTSecret     string        `validate:"required,min=8"`
	SessionTTL    time.Duration `validate:"gte=1m"`
	DailySalt     string        `validate:"required"`

	WatchCountries bool
	Env            string

	Rules game.Rules
}

// Production reports whether NODE_ENV is "production".
func (c Config) Production() bool { return c.Env == "production" }

// Load reads .env, the environment and the rules file, then validates.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function; Load passes os.Getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(k, def string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return def
	}

	ttl, err := time.ParseDuration(get("SESSION_TTL", "2h"))
	if err != nil {
		return Config{}, fmt.Errorf("config: SESSION_TTL: %w", err)
	}
	watch := false
	if v := getenv("WATCH_COUNTRIES"); v != "" {
		if watch, err = strconv.ParseBool(v); err != nil {
			return Config{}, fmt.Errorf("config: WATCH_COUNTRIES: %w", err)
		}
	}

	c := Config{
		Port:           get("PORT", "5175"),
		LogLevel:       get("LOG_LEVEL", "info"),
		ClientOrigin:   get("CLIENT_ORIGIN", "http://localhost:5173"),
		DBDriver:       get("DB_DRIVER", "sqlite"),
		DBDSN:          get("DB_DSN", "./data/app.db"),
		CountriesFile:  getenv("COUNTRIES_FILE"),
		RulesFile:      getenv("RULES_FILE"),
		WatchCountries: watch,
		JWTSecret:      get("JWT_SECRET", "dev-secret-change-me"),
		SessionTTL:     ttl,
		DailySalt:      get("DAILY_SALT", "local_dev_salt"),
		Env:            get("NODE_ENV", "development"),
	}
	if err := validate.Struct(c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if c.WatchCountries && c.CountriesFile == "" {
		return Config{}, errors.New("config: WATCH_COUNTRIES needs COUNTRIES_FILE")
	}

	if c.Rules, err = LoadRules(c.RulesFile); err != nil {
		return Config{}, err
	}
	return c, nil
}

// LoadRules reads a YAML rules file over the embedded defaults, so a file
// only needs the keys it changes. An empty path returns the embedded rules.
func LoadRules(path string) (game.Rules, error) {
	var r game.Rules
	base, err := assets.RulesYAML()
	if err != nil {
		return r, fmt.Errorf("config: embedded rules: %w", err)
	}
	if err := yaml.Unmarshal(base, &r); err != nil {
		return r, fmt.Errorf("config: embedded rules: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return r, fmt.Errorf("config: read rules: %w", err)
		}
		if err := yaml.Unmarshal(data, &r); err != nil {
			return r, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := validate.Struct(r); err != nil {
		return r, fmt.Errorf("config: rules: %w", err)
	}
	return r, nil
}
