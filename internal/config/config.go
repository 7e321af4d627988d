// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["*"] — the API is consumed by arbitrary browser frontends.
	// Set CORS_ORIGINS to a comma-separated list to restrict it.
	CORSOrigins []string

	// MaxBodyBytes caps the size of incoming request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// ProjectID is the Google Cloud project that owns the Firestore database. Required.
	ProjectID string

	// Collection is the Firestore collection holding job documents.
	// Defaults to "itineraries".
	Collection string

	// ServiceAccountEmail is the issuer of the self-signed token assertion. Required.
	ServiceAccountEmail string

	// ServiceAccountKey is the PEM-encoded RSA private key of the service account. Required.
	ServiceAccountKey string

	// GeminiAPIKey authenticates calls to the generative service. Required.
	GeminiAPIKey string

	// GeminiModel is the model name used for itinerary generation.
	// Defaults to "gemini-2.0-flash".
	GeminiModel string
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set.
func Load() (Config, error) {
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "*")),
		MaxBodyBytes: getEnvInt64("MAX_BODY_BYTES", 1<<20),
		Collection:   getEnv("FIRESTORE_COLLECTION", "itineraries"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
	}

	var missing []string

	for _, v := range []struct {
		key  string
		dest *string
	}{
		{"GCP_PROJECT_ID", &cfg.ProjectID},
		{"SERVICE_ACCOUNT_EMAIL", &cfg.ServiceAccountEmail},
		{"SERVICE_ACCOUNT_PRIVATE_KEY", &cfg.ServiceAccountKey},
		{"GEMINI_API_KEY", &cfg.GeminiAPIKey},
	} {
		*v.dest = os.Getenv(v.key)
		if *v.dest == "" {
			missing = append(missing, v.key)
		}
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt64 parses the named variable as a base-10 integer,
// falling back when unset or unparseable.
func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
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
