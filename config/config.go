package config

import (
	"os"
	"strconv"
)

// Config holds application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Monitor    MonitorConfig
	Classifier ClassifierConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
}

// MonitorConfig holds sentiment/SLA monitoring thresholds.
// Scores are on the classifier's [-1, 1] scale.
type MonitorConfig struct {
	SLAWindowDays          int     // SLA_WINDOW_DAYS: days of inactivity before breach
	SLAWarnDays            int     // SLA_WARN_DAYS: days of inactivity before approaching-warning
	NegThreshold           float64 // SENTIMENT_NEG_THRESHOLD: single-entry score at/below = declining
	CritThreshold          float64 // SENTIMENT_CRIT_THRESHOLD: score at/below = critical
	DeclineDelta           float64 // TREND_DECLINE_DELTA: delta magnitude that counts as decline/improvement
	TrendWindow            int     // TREND_WINDOW: short-window size for the prior-entries mean
	ClassifyTimeoutSeconds int     // CLASSIFY_TIMEOUT_SECONDS: per-entry classification budget
	WorkerIntervalSeconds  int     // MONITOR_INTERVAL_SECONDS: background sweep interval
}

// ClassifierConfig holds sentiment classifier configuration
type ClassifierConfig struct {
	APIKey  string // OPENAI_API_KEY
	BaseURL string // OPENAI_BASE_URL: optional override for compatible endpoints
	Model   string // CLASSIFIER_MODEL
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     os.Getenv("DB_HOST"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("PORT", getEnv("SERVER_PORT", "8080")),
		},
		Monitor: MonitorConfig{
			SLAWindowDays:          getEnvInt("SLA_WINDOW_DAYS", 7),
			SLAWarnDays:            getEnvInt("SLA_WARN_DAYS", 5),
			NegThreshold:           getEnvFloat("SENTIMENT_NEG_THRESHOLD", -0.4),
			CritThreshold:          getEnvFloat("SENTIMENT_CRIT_THRESHOLD", -0.75),
			DeclineDelta:           getEnvFloat("TREND_DECLINE_DELTA", 0.25),
			TrendWindow:            getEnvInt("TREND_WINDOW", 3),
			ClassifyTimeoutSeconds: getEnvInt("CLASSIFY_TIMEOUT_SECONDS", 10),
			WorkerIntervalSeconds:  getEnvInt("MONITOR_INTERVAL_SECONDS", 300),
		},
		Classifier: ClassifierConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   getEnv("CLASSIFIER_MODEL", "gpt-4o-mini"),
		},
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
