// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server and the admin CLI.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// JWTSecret signs access tokens. Required, at least 32 bytes.
	JWTSecret string

	// TokenTTL is the lifetime of an access token. Defaults to 24h.
	TokenTTL time.Duration

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// Provider credentials. An empty key disables the provider; Nominatim
	// needs none and always serves as the geocoding fallback.
	GoogleMapsAPIKey  string
	OpenWeatherAPIKey string
	NominatimURL      string

	// Geocoding enrichment tuning. GeocodeSchedule is a cron spec
	// (e.g. "@every 30m"); empty disables the scheduled pass.
	GeocodeBatchSize  int
	GeocodeBatchPause time.Duration
	GeocodeSchedule   string

	// TokenPurgeSchedule is the cron spec for dropping expired revocations.
	TokenPurgeSchedule string

	// Attachment storage. When AttachmentBucket is set files go to S3,
	// otherwise to AttachmentDir on local disk.
	AttachmentBucket    string
	AttachmentRegion    string
	AttachmentEndpoint  string
	AttachmentPublicURL string
	AttachmentDir       string

	// Request size caps in bytes.
	MaxBodyBytes   int64
	MaxUploadBytes int64
}

const minSecretLen = 32

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set and any
// value that does not parse.
func Load() (Config, error) {
	cfg := Config{
		Port:                getEnv("PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		CORSOrigins:         splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		GoogleMapsAPIKey:    os.Getenv("GOOGLE_MAPS_API_KEY"),
		OpenWeatherAPIKey:   os.Getenv("OPENWEATHER_API_KEY"),
		NominatimURL:        os.Getenv("NOMINATIM_URL"),
		GeocodeSchedule:     getEnv("GEOCODE_SCHEDULE", "@every 1h"),
		TokenPurgeSchedule:  getEnv("TOKEN_PURGE_SCHEDULE", "@daily"),
		AttachmentBucket:    os.Getenv("ATTACHMENT_BUCKET"),
		AttachmentRegion:    getEnv("ATTACHMENT_REGION", "eu-west-3"),
		AttachmentEndpoint:  os.Getenv("ATTACHMENT_ENDPOINT"),
		AttachmentPublicURL: os.Getenv("ATTACHMENT_PUBLIC_URL"),
		AttachmentDir:       getEnv("ATTACHMENT_DIR", "./data/attachments"),
	}
	if cfg.GeocodeSchedule == "off" {
		cfg.GeocodeSchedule = ""
	}

	var missing, invalid []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	switch {
	case cfg.JWTSecret == "":
		missing = append(missing, "JWT_SECRET")
	case len(cfg.JWTSecret) < minSecretLen:
		invalid = append(invalid, fmt.Sprintf("JWT_SECRET (must be at least %d bytes)", minSecretLen))
	}

	p := parser{invalid: &invalid}
	cfg.TokenTTL = p.duration("TOKEN_TTL", 24*time.Hour)
	cfg.GeocodeBatchSize = int(p.int("GEOCODE_BATCH_SIZE", 5))
	cfg.GeocodeBatchPause = p.duration("GEOCODE_BATCH_PAUSE", 500*time.Millisecond)
	cfg.MaxBodyBytes = p.int("MAX_BODY_BYTES", 1<<20)
	cfg.MaxUploadBytes = p.int("MAX_UPLOAD_BYTES", 10<<20)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// LoadDatabase reads only what the admin CLI needs: the store, the
// geocoders and local attachment storage. JWT_SECRET is not required.
func LoadDatabase() (Config, error) {
	cfg := Config{
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
		NominatimURL:     os.Getenv("NOMINATIM_URL"),
		AttachmentDir:    getEnv("ATTACHMENT_DIR", "./data/attachments"),
		GeocodeBatchSize: 5,
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("required environment variables not set: DATABASE_URL")
	}
	return cfg, nil
}

// parser reads typed values, recording the names of those that do not parse
// or are not positive.
type parser struct {
	invalid *[]string
}

func (p parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*p.invalid = append(*p.invalid, key)
		return fallback
	}
	return d
}

func (p parser) int(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		*p.invalid = append(*p.invalid, key)
		return fallback
	}
	return n
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
