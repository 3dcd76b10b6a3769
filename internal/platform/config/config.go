package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Server captures process-level configuration.
type Server struct {
	Addr            string
	LogFormat       string
	DataDir         string
	PostgresURL     string
	LoanPeriodDays  int
	DailyFineRate   float64
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file, then builds config from the environment.
// A missing .env is not an error.
func Load() Server {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Server config from environment variables so main stays lean.
// When BIBLIO_POSTGRES_URL is empty the service runs on in-memory stores
// persisted to JSON snapshots under DataDir.
func FromEnv() Server {
	return Server{
		Addr:            envString("BIBLIO_ADDR", ":8080"),
		LogFormat:       envString("BIBLIO_LOG_FORMAT", "json"),
		DataDir:         envString("BIBLIO_DATA_DIR", "data"),
		PostgresURL:     os.Getenv("BIBLIO_POSTGRES_URL"),
		LoanPeriodDays:  envInt("BIBLIO_LOAN_PERIOD_DAYS", 14),
		DailyFineRate:   envFloat("BIBLIO_DAILY_FINE_RATE", 5.0),
		ShutdownTimeout: envDuration("BIBLIO_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
