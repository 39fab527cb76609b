package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Match Settings
	DefaultOvers           int
	FieldingDifficulty     string
	BallDelayMs            int
	WideBallDelayMs        int
	InningsBreakSecs       int
	DisconnectGraceSecs    int
	FinishedRoomRetainSecs int

	// Security
	JWTSecret          string
	ResumeTokenTTLMins int

	// Telemetry
	TelemetryEnabled bool
	OtlpEndpoint     string
	OtlpInsecure     bool
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database (optional: empty disables match archiving)
		DatabaseURL: getEnv("DATABASE_URL", ""),

		// Redis (optional: empty disables the leaderboard)
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Match Settings
		DefaultOvers:           getEnvInt("DEFAULT_OVERS", 5),
		FieldingDifficulty:     getEnv("FIELDING_DIFFICULTY", "medium"),
		BallDelayMs:            getEnvInt("BALL_DELAY_MS", 2500),
		WideBallDelayMs:        getEnvInt("WIDE_BALL_DELAY_MS", 1500),
		InningsBreakSecs:       getEnvInt("INNINGS_BREAK_SECONDS", 5),
		DisconnectGraceSecs:    getEnvInt("DISCONNECT_GRACE_PERIOD_SECONDS", 30),
		FinishedRoomRetainSecs: getEnvInt("FINISHED_ROOM_RETAIN_SECONDS", 60),

		// Security
		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		ResumeTokenTTLMins: getEnvInt("RESUME_TOKEN_TTL_MINUTES", 120),

		// Telemetry
		TelemetryEnabled: getEnvBool("TELEMETRY_ENABLED", false),
		OtlpEndpoint:     getEnv("OTLP_ENDPOINT", ""),
		OtlpInsecure:     getEnvBool("OTLP_INSECURE", true),
	}
}

// BallDelay and friends expose the pacing knobs as durations.
func (c *Config) BallDelay() time.Duration       { return time.Duration(c.BallDelayMs) * time.Millisecond }
func (c *Config) WideBallDelay() time.Duration   { return time.Duration(c.WideBallDelayMs) * time.Millisecond }
func (c *Config) InningsBreak() time.Duration    { return time.Duration(c.InningsBreakSecs) * time.Second }
func (c *Config) DisconnectGrace() time.Duration { return time.Duration(c.DisconnectGraceSecs) * time.Second }
func (c *Config) FinishedRoomRetain() time.Duration {
	return time.Duration(c.FinishedRoomRetainSecs) * time.Second
}
func (c *Config) ResumeTokenTTL() time.Duration {
	return time.Duration(c.ResumeTokenTTLMins) * time.Minute
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
