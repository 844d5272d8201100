package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/abelbrown/viralscope/internal/logging"
)

// LoadEnv loads .env files from the working directory into the process
// environment. Missing files are skipped.
func LoadEnv() {
	files := []string{".env", ".env.local"}
	loaded := make([]string, 0, len(files))
	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			logging.Warn("Failed to load env file", "file", file, "error", err)
			continue
		}
		loaded = append(loaded, file)
	}
	if len(loaded) > 0 {
		logging.Debug("Loaded env files", "files", strings.Join(loaded, ", "))
	}
}

// LoadKeysFromFile loads provider keys from a dotenv or shell file
// (`export KEY=value` lines are accepted).
func (c *Config) LoadKeysFromFile(path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		return err
	}
	c.applyKeys(func(k string) string { return vars[k] })
	return nil
}

// GetEnv gets an environment variable with a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer environment variable with a default value
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvFloat gets a float environment variable with a default value
func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
