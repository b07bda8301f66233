// Package config loads runtime settings for the presence chat server from
// environment variables.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable of the server.
type Config struct {
	Port            int
	Env             string
	LogLevel        string
	HistorySize     int
	TypingTimeout   time.Duration
	DefaultRooms    []string
	SendBuffer      int
	RatePerSecond   float64
	RateBurst       int
	MaxMessageSize  int64
	AllowedOrigins  string
	ShutdownTimeout time.Duration

	// StrictInvariants makes registry/room store desync panic instead of
	// being logged.
	StrictInvariants bool
}

// Load reads the configuration from the environment, falling back to
// defaults for anything unset or unparsable.
func Load() Config {
	env := getEnv("APP_ENV", "development")
	return Config{
		Port:             getEnvInt("PORT", 3000),
		Env:              env,
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		HistorySize:      getEnvInt("HISTORY_SIZE", 100),
		TypingTimeout:    getEnvDuration("TYPING_TIMEOUT", time.Second),
		DefaultRooms:     getEnvList("DEFAULT_ROOMS", []string{"general", "random", "tech"}),
		SendBuffer:       getEnvInt("SEND_BUFFER", 256),
		RatePerSecond:    getEnvFloat("RATE_LIMIT_PER_SECOND", 10),
		RateBurst:        getEnvInt("RATE_LIMIT_BURST", 20),
		MaxMessageSize:   int64(getEnvInt("MAX_MESSAGE_SIZE", 8192)),
		AllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080"),
		ShutdownTimeout:  getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		StrictInvariants: getEnvBool("STRICT_INVARIANTS", env != "production"),
	}
}

// Validate reports settings that would make the server misbehave.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d", c.Port))
	}
	if c.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("HISTORY_SIZE must be positive, got %d", c.HistorySize))
	}
	if c.TypingTimeout <= 0 {
		errs = append(errs, fmt.Errorf("TYPING_TIMEOUT must be positive, got %s", c.TypingTimeout))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("SEND_BUFFER must be positive, got %d", c.SendBuffer))
	}
	if c.RatePerSecond <= 0 || c.RateBurst <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be positive"))
	}
	if len(c.DefaultRooms) == 0 {
		errs = append(errs, errors.New("DEFAULT_ROOMS must name at least one room"))
	}
	return errors.Join(errs...)
}

// Addr returns the fiber listen address.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("Warning: invalid float value for %s: %s, using default: %g", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
		log.Printf("Warning: invalid bool value for %s: %s, using default: %t", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
