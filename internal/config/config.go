// Package config loads server settings from the environment, after an
// optional .env file.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Config holds every server setting.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" default:"file:formstudio.db?_pragma=foreign_keys(1)"`

	// BackendURL is the base URL of the REST backend that owns forms. Saving
	// and loading backend forms is disabled while it is empty.
	BackendURL     string        `envconfig:"BACKEND_URL"`
	BackendToken   string        `envconfig:"BACKEND_TOKEN"`
	BackendTimeout time.Duration `envconfig:"BACKEND_TIMEOUT" default:"10s"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	SessionIdle   time.Duration `envconfig:"SESSION_IDLE" default:"30m"`
	SessionMaxAge time.Duration `envconfig:"SESSION_MAX_AGE" default:"24h"`

	TemplateCacheSize int `envconfig:"TEMPLATE_CACHE_SIZE" default:"128"`
	EventBuffer       int `envconfig:"EVENT_BUFFER" default:"256"`
}

// Load reads dotEnvPath when it exists and then the environment. Variables
// already set in the environment win over the file.
func Load(dotEnvPath string) (Config, error) {
	if dotEnvPath != "" {
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return Config{}, errors.Wrapf(err, "loading %s", dotEnvPath)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, errors.Wrapf(err, "stat %s", dotEnvPath)
		}
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "reading environment")
	}
	return cfg, nil
}

// Level parses LogLevel, falling back to info.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
