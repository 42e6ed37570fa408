// Package config loads EcoRoute runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ecoroute/ecoroute/internal/database"
)

// ErrMissingAPIKey is returned when a provider API key is not configured.
var ErrMissingAPIKey = errors.New("API keys not configured")

// Default provider endpoints.
const (
	DefaultORSBaseURL         = "https://api.openrouteservice.org"
	DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"
)

// Config is the process configuration shared by the API, worker and CLI.
type Config struct {
	Port        string
	Environment string

	ORSAPIKey         string
	ORSBaseURL        string
	OpenWeatherAPIKey string
	OpenWeatherURL    string

	RouteTimeout       time.Duration
	WeatherTimeout     time.Duration
	PlannerConcurrency int

	// RequireTLS rejects plain-HTTP requests forwarded by the load balancer.
	RequireTLS bool

	OTelEnabled  bool
	OTLPEndpoint string

	// OTelSampleRatio is the fraction of new traces kept. Out-of-range values keep all.
	OTelSampleRatio float64

	// OpsSigningKey signs operator tokens. Operator endpoints are disabled when empty.
	OpsSigningKey string

	Database database.Config

	PubSubProjectID    string
	PubSubTopic        string
	PubSubSubscription string
}

// Load reads an optional .env file and then the environment.
// Variables already set in the environment win over the file.
func Load() Config {
	_ = godotenv.Load() //nolint:errcheck // the file is optional

	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() Config {
	return Config{
		Port:        getEnvOrDefault("APP_PORT", "8080"),
		Environment: getEnvOrDefault("APP_ENV", "development"),

		ORSAPIKey:         os.Getenv("ORS_API_KEY"),
		ORSBaseURL:        getEnvOrDefault("ORS_BASE_URL", DefaultORSBaseURL),
		OpenWeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherURL:    getEnvOrDefault("OPENWEATHER_BASE_URL", DefaultOpenWeatherBaseURL),

		RouteTimeout:       getDurationOrDefault("ROUTE_TIMEOUT", 15*time.Second),
		WeatherTimeout:     getDurationOrDefault("WEATHER_TIMEOUT", 10*time.Second),
		PlannerConcurrency: getIntOrDefault("PLANNER_CONCURRENCY", 4),

		RequireTLS: os.Getenv("REQUIRE_TLS") == "true",

		OTelEnabled:  os.Getenv("OTEL_ENABLED") == "true",
		OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		OTelSampleRatio: getFloatOrDefault("OTEL_TRACES_SAMPLER_ARG", 1),

		OpsSigningKey: os.Getenv("OPS_JWT_SIGNING_KEY"),

		Database: database.ConfigFromEnv(),

		PubSubProjectID:    os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:        getEnvOrDefault("PUBSUB_TOPIC", "ecoroute-jobs"),
		PubSubSubscription: getEnvOrDefault("PUBSUB_SUBSCRIPTION", "ecoroute-worker"),
	}
}

// RequireProviderKeys reports which provider keys are missing.
func (c Config) RequireProviderKeys() error {
	var missing []string
	if c.ORSAPIKey == "" {
		missing = append(missing, "ORS_API_KEY")
	}
	if c.OpenWeatherAPIKey == "" {
		missing = append(missing, "OPENWEATHER_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingAPIKey, missing)
	}
	return nil
}

// PubSubEnabled reports whether plan events go through Pub/Sub.
func (c Config) PubSubEnabled() bool {
	return c.PubSubProjectID != ""
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return v
}
