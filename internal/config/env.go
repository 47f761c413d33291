package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvAPIBase   = "MATHRACE_API_BASE"
	EnvLogLevel  = "MATHRACE_LOG_LEVEL"
	EnvLogFormat = "MATHRACE_LOG_FORMAT"
)

// LoadDotEnv loads a .env file from the working directory if present.
// Variables already set in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load() // .env is optional
}

// Env returns the value of key, or nil when it is unset or empty.
func Env(key string) *string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return &v
}
