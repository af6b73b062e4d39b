package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/twimp.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`
	RedisURL string     `env:"REDIS_URL"`

	BackendURL     string        `env:"BACKEND_URL,required,notEmpty"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`

	GameMode string `env:"GAME_MODE" envDefault:"easter"`
	GameRef  string `env:"GAME_REF,required,notEmpty"`

	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"5s"`
	MoveEpsilon  float64       `env:"MOVE_EPSILON" envDefault:"0.00001"`

	FixTimeout      time.Duration `env:"FIX_TIMEOUT" envDefault:"10s"`
	StaleAfter      time.Duration `env:"STALE_AFTER" envDefault:"30s"`
	StaleCheckEvery time.Duration `env:"STALE_CHECK_EVERY" envDefault:"5s"`

	LocationSource string        `env:"LOCATION_SOURCE" envDefault:"feed"`
	StaticLat      float64       `env:"STATIC_LAT"`
	StaticLng      float64       `env:"STATIC_LNG"`
	ReplayFile     string        `env:"REPLAY_FILE"`
	ReplayStep     time.Duration `env:"REPLAY_STEP" envDefault:"2s"`

	MinMarkerSpacing float64 `env:"MIN_MARKER_SPACING" envDefault:"200"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) validate() error {
	switch c.LocationSource {
	case "feed", "static":
	case "replay":
		if c.ReplayFile == "" {
			return fmt.Errorf("LOCATION_SOURCE=replay requires REPLAY_FILE")
		}
	default:
		return fmt.Errorf("unknown LOCATION_SOURCE %q (want feed, static or replay)", c.LocationSource)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.MoveEpsilon < 0 {
		return fmt.Errorf("MOVE_EPSILON must not be negative, got %g", c.MoveEpsilon)
	}
	if c.MinMarkerSpacing <= 0 {
		return fmt.Errorf("MIN_MARKER_SPACING must be positive, got %g", c.MinMarkerSpacing)
	}
	return nil
}
