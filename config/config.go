/*
config.go - Runtime configuration

PURPOSE:
  Collects server settings from environment variables with flag
  overrides. A .env file in the working directory is honored when
  present.

ENVIRONMENT:
  PORT               HTTP port (default 8080)
  DATABASE_PATH      SQLite database path (default krisflyer.db)
  REDIS_ADDR         Redis host:port; empty disables the Redis cache
  REDIS_PASSWORD     Redis password (optional)
  ADMIN_ROLE         Role name gating admin commands
  LOG_LEVEL          debug | info | warn | error (default info)
*/
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all server settings.
type Config struct {
	Port          int
	DatabasePath  string
	RedisAddr     string
	RedisPassword string
	AdminRole     string
	LogLevel      string
}

// Load reads the environment, after loading a .env file when one
// exists. Missing variables fall back to defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:          getEnvInt("PORT", 8080),
		DatabasePath:  getEnv("DATABASE_PATH", "krisflyer.db"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		AdminRole:     getEnv("ADMIN_ROLE", ""),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
