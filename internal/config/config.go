package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Storage    StorageConfig
	Submission SubmissionConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	// URL empty means run on the in-memory store (development only).
	URL string
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type StorageConfig struct {
	Type            string // "local" or "s3"
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string
	LocalPath       string
	LocalBaseURL    string
}

// SubmissionConfig carries the lifecycle policy and the search default.
// Constants like the edit window are configuration here, never ambient
// globals.
type SubmissionConfig struct {
	EditWindow      time.Duration
	ExpiryHorizon   time.Duration
	DefaultRadiusKm float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "change-me-in-production"),
			AccessExpiry:  getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
		},
		Storage: StorageConfig{
			Type:            getEnv("STORAGE_TYPE", "local"),
			Bucket:          getEnv("S3_BUCKET_NAME", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			PublicURL:       getEnv("S3_PUBLIC_URL", ""),
			LocalPath:       getEnv("STORAGE_LOCAL_PATH", "./uploads"),
			LocalBaseURL:    getEnv("STORAGE_LOCAL_BASE_URL", "http://localhost:8080/uploads"),
		},
		Submission: SubmissionConfig{
			EditWindow:      getDuration("SUBMISSION_EDIT_WINDOW", 10*time.Minute),
			ExpiryHorizon:   getDuration("SUBMISSION_EXPIRY_HORIZON", 72*time.Hour),
			DefaultRadiusKm: getFloat("SUBMISSION_DEFAULT_RADIUS_KM", 5.0),
		},
	}, nil
}

// getEnv gets an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func getFloat(key string, fallback float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return f
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
