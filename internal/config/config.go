// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration values.  Each field maps to an
// environment variable; required ones are enforced by must() and abort
// startup when missing.
type Config struct {
	Env          string // application environment (dev/test/prod)
	Port         string // HTTP port to listen on
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	JWTSecret    string // secret used to sign staff JWTs
	AccessTTLMin int    // staff access token time-to-live in minutes
	BcryptCost   int    // bcrypt cost for staff password hashing

	// CodePrefix is the fixed site identifier leading every
	// confirmation code (PREFIX-YYYYMMDD-XXXX).
	CodePrefix string
	// TokenTTL is how long validation tokens stay redeemable; zero
	// means they never expire.
	TokenTTL time.Duration
	// CapacityCacheTTL bounds the staleness of the advisory
	// remaining-capacity read served from Redis.
	CapacityCacheTTL time.Duration
}

// Load reads configuration from the environment.  Required variables
// cause a fatal log when unset; the ticketing-specific knobs fall back
// to sensible defaults.
func Load() Config {
	return Config{
		Env:          must("APP_ENV"),
		Port:         must("APP_PORT"),
		DBUser:       must("DB_USER"),
		DBPass:       os.Getenv("DB_PASS"),
		DBHost:       must("DB_HOST"),
		DBPort:       must("DB_PORT"),
		DBName:       must("DB_NAME"),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:   mustInt("BCRYPT_COST"),

		CodePrefix:       envStr("CONFIRMATION_CODE_PREFIX", "HHM"),
		TokenTTL:         envDur("VALIDATION_TOKEN_TTL", 0),
		CapacityCacheTTL: envDur("CAPACITY_CACHE_TTL", 15*time.Second),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts to an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
