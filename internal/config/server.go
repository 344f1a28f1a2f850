package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"
)

// Server holds the HTTP server settings. Values come from an optional YAML file
// and are overridden by environment variables.
type Server struct {
	Port       string `yaml:"port" env:"API_PORT" env-default:"8080"`
	Env        string `yaml:"env" env:"API_ENV" env-default:"development"`
	StaticDir  string `yaml:"static_dir" env:"STATIC_DIR" env-default:"./web/dist"`
	BatteryDir string `yaml:"battery_dir" env:"BATTERY_DIR" env-default:"./examples/batteries"`
	ResultsDB  string `yaml:"results_db" env:"RESULTS_DB" env-default:"results.db"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Timezone   string `yaml:"timezone" env:"TIMEZONE" env-default:"Europe/Berlin"`

	PriceAPIURL   string        `yaml:"price_api_url" env:"PRICE_API_URL" env-default:"https://api.awattar.de"`
	PriceAPIURLAT string        `yaml:"price_api_url_at" env:"PRICE_API_URL_AT" env-default:"https://api.awattar.at"`
	PriceCacheTTL time.Duration `yaml:"price_cache_ttl" env:"PRICE_CACHE_TTL" env-default:"1h"`
}

// LoadServer reads settings from path when given, otherwise from the environment only.
func LoadServer(path string) (*Server, error) {
	var s Server
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &s)
	} else {
		err = cleanenv.ReadEnv(&s)
	}
	if err != nil {
		return nil, fmt.Errorf("read server config: %w", err)
	}
	return &s, nil
}

func (s *Server) Production() bool { return s.Env == "production" }

// PriceURL returns the day-ahead API base URL for market. PRICE_API_URL serves
// "de", PRICE_API_URL_AT serves "at"; other markets get "" and fall back to the
// client's built-in endpoint.
func (s *Server) PriceURL(market string) string {
	switch market {
	case "de":
		return s.PriceAPIURL
	case "at":
		return s.PriceAPIURLAT
	}
	return ""
}

func (s *Server) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

// Level parses LogLevel, falling back to info.
func (s *Server) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
