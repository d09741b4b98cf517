package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DatabaseURL    string // SK_DATABASE_URL (required)
	HTTPAddr       string // SK_HTTP_ADDR (default ":8080")
	NATSURL        string // SK_NATS_URL (optional, empty = no bus)
	AdminToken     string // SK_ADMIN_TOKEN (optional, empty = admin api disabled)
	AdminSecretKey string // SK_ADMIN_SECRET_KEY (hex key signing card definitions; required)
	RelayURL       string // SK_RELAY_URL (advertised with challenges, optional)

	// Archive settings
	ArchiveInterval   time.Duration // SK_ARCHIVE_INTERVAL (default 10m; 0 = disabled)
	ArchiveS3Bucket   string        // SK_ARCHIVE_S3_BUCKET (enables S3 when set)
	ArchiveS3Region   string        // SK_ARCHIVE_S3_REGION (default "us-east-1")
	ArchiveS3Key      string        // SK_ARCHIVE_S3_KEY (default "sammelkarten/events.jsonl")
	ArchiveS3Endpoint string        // SK_ARCHIVE_S3_ENDPOINT (custom endpoint for MinIO)
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:       os.Getenv("SK_DATABASE_URL"),
		HTTPAddr:          envOrDefault("SK_HTTP_ADDR", ":8080"),
		NATSURL:           os.Getenv("SK_NATS_URL"),
		AdminToken:        os.Getenv("SK_ADMIN_TOKEN"),
		AdminSecretKey:    os.Getenv("SK_ADMIN_SECRET_KEY"),
		RelayURL:          os.Getenv("SK_RELAY_URL"),
		ArchiveS3Bucket:   os.Getenv("SK_ARCHIVE_S3_BUCKET"),
		ArchiveS3Region:   envOrDefault("SK_ARCHIVE_S3_REGION", "us-east-1"),
		ArchiveS3Key:      envOrDefault("SK_ARCHIVE_S3_KEY", "sammelkarten/events.jsonl"),
		ArchiveS3Endpoint: os.Getenv("SK_ARCHIVE_S3_ENDPOINT"),
	}
	if c.DatabaseURL == "" {
		return nil, fmt.Errorf("SK_DATABASE_URL is required")
	}
	if c.AdminSecretKey == "" {
		return nil, fmt.Errorf("SK_ADMIN_SECRET_KEY is required")
	}

	intervalStr := envOrDefault("SK_ARCHIVE_INTERVAL", "10m")
	if intervalStr != "" {
		d, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("SK_ARCHIVE_INTERVAL: %w", err)
		}
		c.ArchiveInterval = d
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
