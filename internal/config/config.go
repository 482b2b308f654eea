package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	ServerPort            string
	PublicBaseURL         string
	FrontendURL           string
	AccessTokenSecret     string
	UploadChallengeSecret string
	RedisURL              string
	UploadPolicyPath      string
	ChallengeTTLMinutes   int
	AccessTokenTTLMinutes int
	EnableHSTS            bool
	ServerDebugMode       bool
	OTELEnabled           bool
	OTELEndpoint          string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		PublicBaseURL:         getEnv("PUBLIC_BASE_URL", "http://localhost:8080/files"),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:3000"),
		AccessTokenSecret:     getEnv("ACCESS_TOKEN_SECRET", ""),
		UploadChallengeSecret: getEnv("UPLOAD_CHALLENGE_SECRET", ""),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
		UploadPolicyPath:      getEnv("UPLOAD_POLICY_PATH", ""),
		ChallengeTTLMinutes:   getEnvInt("CHALLENGE_TTL_MINUTES", 10),
		AccessTokenTTLMinutes: getEnvInt("ACCESS_TOKEN_TTL_MINUTES", 12*60),
		EnableHSTS:            getEnvBool("ENABLE_HSTS", false),
		ServerDebugMode:       getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:           getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:          getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.AccessTokenSecret == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET is required")
	}

	if cfg.UploadChallengeSecret == "" {
		return nil, fmt.Errorf("UPLOAD_CHALLENGE_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
