package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"

	"github.com/i474232898/forecast-gateway/internal/weather"
	"github.com/i474232898/forecast-gateway/internal/weather/providers"
)

var validate = validator.New()

type AppConfig struct {
	Client weather.ClientConfig

	Port string `validate:"required,numeric"`

	// HTTPTimeout bounds outbound provider calls; 0 leaves the transport default.
	HTTPTimeout time.Duration `validate:"gte=0"`

	// GroupedMaxConcurrency bounds the grouped fan-out (0 = one call per city at once).
	GroupedMaxConcurrency int `validate:"gte=0"`

	Breaker providers.BreakerConfig

	// Upstream probe; a zero interval disables it.
	ProbeInterval   time.Duration `validate:"gte=0"`
	ProbeTimeout    time.Duration `validate:"gte=0"`
	ProbeMaxHistory int           // max number of probe results kept (0 = unlimited)
	ProbeMaxAge     time.Duration // max age of probe results (0 = unlimited)

	OTelEndpoint    string
	OTelServiceName string `validate:"required"`
}

// Load reads configuration from environment with sensible defaults and
// validates it. A missing API key is a startup error.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	lang, err := parseLanguage(getenvDefault("OPEN_WEATHER_LANGUAGE", "it"))
	if err != nil {
		return nil, err
	}

	cfg.Client = weather.ClientConfig{
		APIKey:   os.Getenv("OPEN_WEATHER_API_KEY"),
		Language: lang,
		Units:    weather.Units(strings.ToLower(getenvDefault("OPEN_WEATHER_UNITS", string(weather.UnitsMetric)))),
		BaseURL:  getenvDefault("OPEN_WEATHER_BASE_URL", providers.DefaultOpenWeatherBaseURL),
	}

	cfg.Port = getenvDefault("PORT", "8080")

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "0s"); err != nil {
		return nil, err
	}
	cfg.GroupedMaxConcurrency = getenvInt("GROUPED_MAX_CONCURRENCY", 0)

	cfg.Breaker.FailureThreshold = getenvInt("BREAKER_FAILURE_THRESHOLD", 5)
	if cfg.Breaker.OpenTimeout, err = getenvDuration("BREAKER_OPEN_TIMEOUT", "30s"); err != nil {
		return nil, err
	}

	if cfg.ProbeInterval, err = getenvDuration("PROBE_INTERVAL", "0s"); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout, err = getenvDuration("PROBE_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	cfg.ProbeMaxHistory = getenvInt("PROBE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals
	if cfg.ProbeMaxAge, err = getenvDuration("PROBE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	cfg.OTelEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	cfg.OTelServiceName = getenvDefault("OTEL_SERVICE_NAME", "forecast-gateway")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// parseLanguage canonicalizes a BCP 47 tag into the provider's lowercase
// form, e.g. "zh-CN" becomes "zh_cn".
func parseLanguage(s string) (string, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid OPEN_WEATHER_LANGUAGE %q: %w", s, err)
	}
	return strings.ReplaceAll(strings.ToLower(tag.String()), "-", "_"), nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
