package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads variables from a .env file if present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file found: %v", err)
	}
}

// GetEnv returns an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return defaultVal
}

// GetIntEnv returns an int environment variable or a default value.
func GetIntEnv(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// GetDurationEnv returns a duration environment variable (e.g. "30m") or a default value.
func GetDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		log.Printf("invalid duration for %s: %q, using default %s", key, val, defaultVal)
	}
	return defaultVal
}

// GetBoolEnv returns a bool environment variable or a default value.
func GetBoolEnv(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// GetListEnv splits a comma separated environment variable.
func GetListEnv(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// IsProduction checks if the app runs in production mode.
func IsProduction() bool {
	return GetEnv("ENV", "development") == "production"
}
