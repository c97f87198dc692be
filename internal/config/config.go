package config // package config loads application configuration from environment variables

import (
	"log"      // log is used to report configuration errors and halt execution
	"os"       // os provides access to environment variables
	"strconv"  // strconv converts strings to other types
	"time"     // time parses duration tunables
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values (database, secret) are enforced
// with must(); token lifetimes and realtime tunables fall back to defaults.
type Config struct {
	Env               string        // application environment (e.g. "dev", "production")
	Port              string        // HTTP port to listen on
	DBUser            string        // database username
	DBPass            string        // database password (optional)
	DBHost            string        // database host address
	DBPort            string        // database port number
	DBName            string        // database name
	JWTSecret         string        // secret used to sign JWTs
	AccessTTLMin      int           // access token time-to-live in minutes
	RefreshTTLDays    int           // refresh token time-to-live in days
	SlideThresholdPct int           // remaining-lifetime percentage that triggers a silent reissue
	HeartbeatInterval time.Duration // websocket ping sweep interval
}

// Production reports whether the app runs with production cookie policy
// (secure cookies on).
func (c Config) Production() bool { return c.Env == "production" || c.Env == "prod" }

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	return Config{
		Env:               must("APP_ENV"),
		Port:              must("APP_PORT"),
		DBUser:            must("DB_USER"),
		DBPass:            os.Getenv("DB_PASS"), // empty allowed
		DBHost:            must("DB_HOST"),
		DBPort:            must("DB_PORT"),
		DBName:            must("DB_NAME"),
		JWTSecret:         must("JWT_SECRET"),
		AccessTTLMin:      envInt("ACCESS_TOKEN_TTL_MIN", 1440),
		RefreshTTLDays:    envInt("REFRESH_TOKEN_TTL_DAYS", 30),
		SlideThresholdPct: envInt("SLIDE_THRESHOLD_PCT", 20),
		HeartbeatInterval: envDur("WS_HEARTBEAT_INTERVAL", 30*time.Second),
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

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil && dur > 0 {
		return dur
	}
	return d
}
