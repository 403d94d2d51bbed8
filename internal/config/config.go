package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/playmatatu/minigolf/internal/game"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	// Environment
	Environment string
	LogLevel    string

	// Database (optional; strokes are not persisted without it)
	DatabaseURL    string
	MigrateOnStart bool

	// Redis (optional; summaries and events are dropped without it)
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Levels
	LevelsFile string

	// Simulation
	FixedDT   float64
	TimeScale float64
	FrameRate int

	// Sessions
	SessionIdleMinutes int
	SessionTokenHours  int

	// Physics
	Gravity     float64
	FrictionTau float64
	StopSpeed   float64

	// Security
	JWTSecret    string
	AdminKeyHash string // bcrypt; empty disables the admin routes
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	defaults := game.DefaultTuning()
	session := game.DefaultSessionOptions()

	return &Config{
		Environment: getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		RedisURL: getEnv("REDIS_URL", ""),

		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		LevelsFile: getEnv("LEVELS_FILE", ""),

		FixedDT:   getEnvFloat("SIM_FIXED_DT", session.FixedDT),
		TimeScale: getEnvFloat("SIM_TIME_SCALE", session.TimeScale),
		FrameRate: getEnvInt("FRAME_RATE", session.FrameRate),

		SessionIdleMinutes: getEnvInt("SESSION_IDLE_MINUTES", 30),
		SessionTokenHours:  getEnvInt("SESSION_TOKEN_HOURS", 12),

		Gravity:     getEnvFloat("PHYS_GRAVITY", defaults.Gravity),
		FrictionTau: getEnvFloat("PHYS_FRICTION_TAU", defaults.FrictionTau),
		StopSpeed:   getEnvFloat("PHYS_STOP_SPEED", defaults.StopSpeed),

		JWTSecret:    getEnv("JWT_SECRET", "change-me-in-production"),
		AdminKeyHash: getEnv("ADMIN_KEY_HASH", ""),
	}
}

// Tuning is the default physics tuning with the configured overrides.
func (c *Config) Tuning() game.Tuning {
	t := game.DefaultTuning()
	t.Gravity = c.Gravity
	t.FrictionTau = c.FrictionTau
	t.StopSpeed = c.StopSpeed
	return t
}

func (c *Config) SessionOptions() game.SessionOptions {
	return game.SessionOptions{FixedDT: c.FixedDT, TimeScale: c.TimeScale, FrameRate: c.FrameRate}
}

func (c *Config) SessionIdle() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.SessionTokenHours) * time.Hour
}

func (c *Config) IsProduction() bool { return c.Environment == "production" }

// Validate fails on settings that would otherwise surface as a broken
// simulation later.
func (c *Config) Validate() error {
	if !(c.FixedDT > 0) || math.IsInf(c.FixedDT, 0) {
		return fmt.Errorf("SIM_FIXED_DT=%v: %w", c.FixedDT, ErrInvalidConfig)
	}
	if math.IsNaN(c.TimeScale) || math.IsInf(c.TimeScale, 0) {
		return fmt.Errorf("SIM_TIME_SCALE=%v: %w", c.TimeScale, ErrInvalidConfig)
	}
	if c.FrameRate <= 0 {
		return fmt.Errorf("FRAME_RATE=%d: %w", c.FrameRate, ErrInvalidConfig)
	}
	if c.SessionTokenHours <= 0 {
		return fmt.Errorf("SESSION_TOKEN_HOURS=%d: %w", c.SessionTokenHours, ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.FrontendURL, "http://") && !strings.HasPrefix(c.FrontendURL, "https://") {
		return fmt.Errorf("FRONTEND_URL=%q must be an http(s) origin: %w", c.FrontendURL, ErrInvalidConfig)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is empty: %w", ErrInvalidConfig)
	}
	if c.IsProduction() && c.JWTSecret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET must be set in production: %w", ErrInvalidConfig)
	}
	if err := c.Tuning().Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidConfig)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
