package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Azure  AzureConfig
	Store  StoreConfig
	Blob   BlobConfig
	Chat   ChatConfig
	Ingest IngestConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	CORSOrigins     []string
	JWTSecret       string
	ShutdownTimeout time.Duration
}

// AzureConfig holds Document Intelligence configuration
type AzureConfig struct {
	Endpoint     string
	APIKey       string
	PollInterval time.Duration
	MaxPolls     int
	Timeout      time.Duration
}

// StoreConfig selects and configures the receipt document store
type StoreConfig struct {
	Backend    string // "firestore" | "bolt"
	ProjectID  string
	Collection string
	BoltPath   string
}

// BlobConfig selects and configures receipt image storage
type BlobConfig struct {
	Backend   string // "gcs" | "fs"
	Bucket    string
	LocalDir  string
	PublicURL string
}

// ChatConfig holds the MCP agent backend location
type ChatConfig struct {
	BaseURL string
	Timeout time.Duration
}

// IngestConfig holds batch ingestion worker settings
type IngestConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			CORSOrigins:     getEnvAsSlice("CORS_ORIGINS", []string{"http://localhost:5173"}),
			JWTSecret:       getEnv("JWT_SECRET", ""),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Azure: AzureConfig{
			Endpoint:     getEnv("AZURE_ENDPOINT", ""),
			APIKey:       getEnv("AZURE_KEY", ""),
			PollInterval: getEnvAsDuration("AZURE_POLL_INTERVAL", 2*time.Second),
			MaxPolls:     getEnvAsInt("AZURE_MAX_POLLS", 10),
			Timeout:      getEnvAsDuration("AZURE_TIMEOUT", 30*time.Second),
		},
		Store: StoreConfig{
			Backend:    getEnv("STORE_BACKEND", "bolt"),
			ProjectID:  getEnv("FIRESTORE_PROJECT_ID", ""),
			Collection: getEnv("FIRESTORE_COLLECTION", "receipts"),
			BoltPath:   getEnv("BOLT_PATH", "qayd.db"),
		},
		Blob: BlobConfig{
			Backend:   getEnv("BLOB_BACKEND", "fs"),
			Bucket:    getEnv("BLOB_BUCKET", ""),
			LocalDir:  getEnv("BLOB_DIR", "./uploads"),
			PublicURL: getEnv("BLOB_PUBLIC_URL", "/uploads"),
		},
		Chat: ChatConfig{
			BaseURL: getEnv("CHAT_BACKEND_URL", "http://localhost:3001"),
			Timeout: getEnvAsDuration("CHAT_TIMEOUT", 60*time.Second),
		},
		Ingest: IngestConfig{
			Workers:    getEnvAsInt("INGEST_WORKERS", 4),
			QueueSize:  getEnvAsInt("INGEST_QUEUE_SIZE", 64),
			JobTimeout: getEnvAsDuration("INGEST_JOB_TIMEOUT", 3*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Azure.Endpoint == "" {
		return NewAppError("CONFIG_ERROR", "AZURE_ENDPOINT is required", ErrInvalidInput)
	}
	if c.Azure.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "AZURE_KEY is required", ErrInvalidInput)
	}
	if c.Server.JWTSecret == "" {
		return NewAppError("CONFIG_ERROR", "JWT_SECRET is required", ErrInvalidInput)
	}
	if c.Store.Backend == "firestore" && c.Store.ProjectID == "" {
		return NewAppError("CONFIG_ERROR", "FIRESTORE_PROJECT_ID is required for the firestore backend", ErrInvalidInput)
	}
	if c.Blob.Backend == "gcs" && c.Blob.Bucket == "" {
		return NewAppError("CONFIG_ERROR", "BLOB_BUCKET is required for the gcs backend", ErrInvalidInput)
	}
	return nil
}
