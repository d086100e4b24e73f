// Package config loads arbiter's configuration surface (spec §6) from the
// environment, with an optional .env file and an optional YAML sports
// allow-list file.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/fortuna-sports/arbiter/internal/telemetry"
)

// Config is the value type built once at startup and passed explicitly
// into constructors — no process-wide mutable singleton.
type Config struct {
	APIKey       string        `env:"ODDS_API_KEY,required"`
	OddsFormat   string        `env:"ODDS_FORMAT" envDefault:"american"`
	Markets      string        `env:"MARKETS" envDefault:"h2h,spreads,totals"`
	Regions      string        `env:"REGIONS" envDefault:"us"`
	MinProfitPct float64       `env:"MIN_PROFIT_PCT" envDefault:"0.0"`
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL_S" envDefault:"300s"`
	DBPath       string        `env:"DB_PATH" envDefault:"data/arbiter.db"`
	Sports       string        `env:"SPORTS" envDefault:""`
	SportsFile   string        `env:"SPORTS_CONFIG_FILE" envDefault:""`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// sportsFile is the shape of an optional YAML allow-list file.
type sportsFile struct {
	Sports []string `yaml:"sports"`
}

// Load reads the process environment (after attempting to load a local
// .env file) into a Config.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		telemetry.Debugf("no .env file loaded: %v", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MarketKeys splits the Markets CSV option.
func (c Config) MarketKeys() []string { return splitCSV(c.Markets) }

// RegionKeys splits the Regions CSV option.
func (c Config) RegionKeys() []string { return splitCSV(c.Regions) }

// SportAllowList returns the configured sport key allow-list, preferring
// SportsFile (YAML) over the Sports CSV env var when both are set. An
// empty return means "all active sports".
func (c Config) SportAllowList() ([]string, error) {
	if c.SportsFile != "" {
		raw, err := os.ReadFile(c.SportsFile)
		if err != nil {
			return nil, err
		}
		var sf sportsFile
		if err := yaml.Unmarshal(raw, &sf); err != nil {
			return nil, err
		}
		return sf.Sports, nil
	}
	return splitCSV(c.Sports), nil
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
