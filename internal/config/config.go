// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Money values are KRW expressed as int64,
// matching the rest of the pricing code.
type Config struct {
	Env                  string        // application environment (e.g. "dev", "prod")
	Port                 string        // HTTP port to listen on
	DBUser               string        // database username
	DBPass               string        // database password (optional)
	DBHost               string        // database host address
	DBPort               string        // database port number
	DBName               string        // database name
	JWTSecret            string        // secret used to verify admin JWTs
	PaymentBaseURL       string        // payment gateway base URL
	PaymentAPIKey        string        // payment gateway API key
	PaymentTimeout       time.Duration // per-call timeout for gateway requests
	FallbackNightlyPrice int64         // nightly price used when a room has no rate schedule
	MigrationsDir        string        // directory holding goose SQL migrations
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:                  must("APP_ENV"),
		Port:                 must("APP_PORT"),
		DBUser:               must("DB_USER"),
		DBPass:               os.Getenv("DB_PASS"), // empty allowed
		DBHost:               must("DB_HOST"),
		DBPort:               must("DB_PORT"),
		DBName:               must("DB_NAME"),
		JWTSecret:            must("JWT_SECRET"),
		PaymentBaseURL:       must("PAYMENT_BASE_URL"),
		PaymentAPIKey:        must("PAYMENT_API_KEY"),
		PaymentTimeout:       envDur("PAYMENT_TIMEOUT", 10*time.Second),
		FallbackNightlyPrice: mustInt64("FALLBACK_NIGHTLY_PRICE"),
		MigrationsDir:        envStr("MIGRATIONS_DIR", "migrations"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt64 is like must() but converts the retrieved string into an
// int64.  If conversion fails, the application logs a fatal error and exits.
func mustInt64(key string) int64 {
	s := must(key)
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
