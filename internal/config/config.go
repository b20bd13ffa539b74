package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds the process configuration, read from the environment with an
// optional .env file overlay.
type Config struct {
	Port     string
	DBPath   string
	LogLevel string
}

// Load reads configuration. A missing .env file is not an error.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:     envOr("PORT", "8080"),
		DBPath:   envOr("DB_PATH", "gyl.db"),
		LogLevel: envOr("LOG_LEVEL", "info"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
